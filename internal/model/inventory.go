package model

import "time"

// InventoryItem is a stocked product (minibar, amenities) that can be
// consumed against a reservation.
type InventoryItem struct {
	ID            int64  `gorm:"primaryKey"`
	InstitutionID int64  `gorm:"index;not null"`
	Name          string `gorm:"size:256;not null"`
	Stock         int    `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Consumption records an item taken during a reservation. Cancelling the
// reservation voids the row and restores the item's stock.
type Consumption struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	ReservationID int64   `gorm:"index;not null"`
	ItemID        int64   `gorm:"index;not null"`
	Quantity      int     `gorm:"not null"`
	UnitPrice     float64 `gorm:"not null"`
	VoidedAt      *time.Time
	CreatedAt     time.Time
}
