package model

import "time"

// Promotion is an institution-scoped discounted hourly rate that can be
// attached to a reservation in place of the room category tariff.
type Promotion struct {
	ID            int64   `gorm:"primaryKey"`
	InstitutionID int64   `gorm:"index;not null"`
	Name          string  `gorm:"size:128;not null"`
	Rate          float64 `gorm:"not null"`
	ValidFrom     time.Time
	ValidUntil    time.Time
	VoidedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Usable reports whether the promotion may price a reservation at time t.
func (p *Promotion) Usable(t time.Time) bool {
	if p.VoidedAt != nil {
		return false
	}
	if !p.ValidFrom.IsZero() && t.Before(p.ValidFrom) {
		return false
	}
	if !p.ValidUntil.IsZero() && t.After(p.ValidUntil) {
		return false
	}
	return true
}
