package model

import "time"

// Occupancy represents a guest's stay in a room ("visit"). Its billable time
// windows live in Reservation rows that reference it by id.
type Occupancy struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	InstitutionID int64 `gorm:"index;not null"`
	CancelledAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// Cancelled reports whether the occupancy has been voided.
func (o *Occupancy) Cancelled() bool {
	return o.CancelledAt != nil
}
