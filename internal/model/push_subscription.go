package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Alerts are scoped per institution: a subscriber receives every alert event
// emitted for the institution it is registered under.
type PushSubscription struct {
	Endpoint      string    `gorm:"primaryKey"`
	P256DH        string    `gorm:"column:p256dh;not null"`
	Auth          string    `gorm:"not null"`
	InstitutionID int64     `gorm:"index;not null"`
	CreatedAt     time.Time `gorm:"not null"`
}
