package model

import "time"

// RoomCategory groups rooms sharing a standard hourly tariff.
type RoomCategory struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:128;not null"`
	Tariff    float64   `gorm:"not null"` // hourly rate
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Room represents a single rentable room.
//
// OccupancyID is a back-reference by id, never a struct pointer: at most one
// active occupancy per room, and Available is false iff OccupancyID is set.
type Room struct {
	ID            int64  `gorm:"primaryKey"`
	InstitutionID int64  `gorm:"index;not null"`
	CategoryID    int64  `gorm:"index;not null"`
	Number        string `gorm:"size:32;not null"`
	Available     bool   `gorm:"not null;default:true"`
	OccupancyID   *int64 `gorm:"index"`
	VoidedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Category RoomCategory `gorm:"foreignKey:CategoryID"`
}
