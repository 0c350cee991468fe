package model

import "time"

// Reservation is a billable time window within an occupancy. Termination is
// always a field update (EndTime or CancelledAt), never a delete.
//
// PauseHours/PauseMinutes hold a snapshot of the remaining time taken when
// the reservation was paused; both are non-nil iff the reservation is paused.
// RecalculationTimestamp marks an open payment-confirmation window and is
// only meaningful while paused.
type Reservation struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement"`
	RoomID                 int64     `gorm:"index;not null"`
	OccupancyID            int64     `gorm:"index;not null"`
	StartTime              time.Time `gorm:"not null"`
	TotalHours             int       `gorm:"not null"`
	TotalMinutes           int       `gorm:"not null"`
	PauseHours             *int
	PauseMinutes           *int
	RecalculationTimestamp *time.Time
	EndTime                *time.Time
	CancelledAt            *time.Time
	CancellationReason     string `gorm:"size:150"`
	PromotionID            *int64 `gorm:"index"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Paused reports whether a pause snapshot is held.
func (r *Reservation) Paused() bool {
	return r.PauseHours != nil && r.PauseMinutes != nil
}

// Open reports whether the reservation is still running: not finalized and
// not cancelled.
func (r *Reservation) Open() bool {
	return r.EndTime == nil && r.CancelledAt == nil
}

// ScheduledEnd is the end of the billed window: StartTime plus the total
// booked duration.
func (r *Reservation) ScheduledEnd() time.Time {
	return r.StartTime.
		Add(time.Duration(r.TotalHours) * time.Hour).
		Add(time.Duration(r.TotalMinutes) * time.Minute)
}
