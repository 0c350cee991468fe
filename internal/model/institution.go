package model

import "time"

// Institution represents a tenant (a hotel) in the system.
type Institution struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:128;not null"`
	// DefinitivePause forbids resuming or extending a reservation once it
	// has been paused.
	DefinitivePause bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}
