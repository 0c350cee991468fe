package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotel-ops-backend/internal/model"
)

// ErrRoomUnavailable is returned by Book when the target room is voided or
// already holds an active occupancy.
var ErrRoomUnavailable = errors.New("room is not available")

// Store defines the interface for all database operations used by the
// accounting state machine, the scheduler and the sweep.
type Store interface {
	DB() *gorm.DB

	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	UpdateReservation(ctx context.Context, id int64, fields map[string]any) error
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	GetOccupancy(ctx context.Context, id int64) (*model.Occupancy, error)
	GetInstitution(ctx context.Context, id int64) (*model.Institution, error)

	// Book atomically creates an occupancy plus its first reservation and
	// marks the room unavailable.
	Book(ctx context.Context, roomID int64, start time.Time, hours, minutes int) (*model.Reservation, error)

	// ReleaseRoom clears the room's occupancy reference and marks it
	// available again.
	ReleaseRoom(ctx context.Context, roomID int64) error

	// OccupiedRooms returns every room that is unavailable, not voided and
	// references a non-cancelled occupancy: the durable definition of
	// "truly occupied".
	OccupiedRooms(ctx context.Context) ([]model.Room, error)

	// OpenReservation returns the occupancy's reservation that has not been
	// finalized or cancelled yet.
	OpenReservation(ctx context.Context, occupancyID int64) (*model.Reservation, error)

	// Quote computes the billed amount for a reservation in one consistent
	// transactional read.
	Quote(ctx context.Context, reservationID int64, now time.Time) (*QuoteResult, error)
}

// QuoteResult is the billed amount for a reservation together with the
// tariff that produced it.
type QuoteResult struct {
	ReservationID int64   `json:"reservation_id"`
	Tariff        float64 `json:"tariff"`
	Hours         int     `json:"hours"`
	Minutes       int     `json:"minutes"`
	Amount        float64 `json:"amount"`
	PromotionID   *int64  `json:"promotion_id,omitempty"`
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	var r model.Reservation
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) UpdateReservation(ctx context.Context, id int64, fields map[string]any) error {
	if err := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update reservation %d: %w", id, err)
	}
	return nil
}

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *gormStore) GetOccupancy(ctx context.Context, id int64) (*model.Occupancy, error) {
	var o model.Occupancy
	if err := s.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *gormStore) GetInstitution(ctx context.Context, id int64) (*model.Institution, error) {
	var inst model.Institution
	if err := s.db.WithContext(ctx).First(&inst, id).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *gormStore) Book(ctx context.Context, roomID int64, start time.Time, hours, minutes int) (*model.Reservation, error) {
	var reservation model.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		if err := tx.First(&room, roomID).Error; err != nil {
			return err
		}
		if !room.Available || room.OccupancyID != nil || room.VoidedAt != nil {
			return ErrRoomUnavailable
		}

		occupancy := model.Occupancy{InstitutionID: room.InstitutionID}
		if err := tx.Create(&occupancy).Error; err != nil {
			return fmt.Errorf("failed to create occupancy for room %d: %w", roomID, err)
		}

		reservation = model.Reservation{
			RoomID:       roomID,
			OccupancyID:  occupancy.ID,
			StartTime:    start,
			TotalHours:   hours,
			TotalMinutes: minutes,
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation for room %d: %w", roomID, err)
		}

		if err := tx.Model(&model.Room{}).Where("id = ?", roomID).Updates(map[string]any{
			"available":    false,
			"occupancy_id": occupancy.ID,
		}).Error; err != nil {
			return fmt.Errorf("failed to occupy room %d: %w", roomID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (s *gormStore) ReleaseRoom(ctx context.Context, roomID int64) error {
	if err := s.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]any{
			"available":    true,
			"occupancy_id": nil,
		}).Error; err != nil {
		return fmt.Errorf("failed to release room %d: %w", roomID, err)
	}
	return nil
}

func (s *gormStore) OccupiedRooms(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := s.db.WithContext(ctx).
		Joins("JOIN occupancies ON occupancies.id = rooms.occupancy_id AND occupancies.cancelled_at IS NULL").
		Where("rooms.available = ? AND rooms.voided_at IS NULL AND rooms.occupancy_id IS NOT NULL", false).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch occupied rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) OpenReservation(ctx context.Context, occupancyID int64) (*model.Reservation, error) {
	var r model.Reservation
	err := s.db.WithContext(ctx).
		Where("occupancy_id = ? AND end_time IS NULL AND cancelled_at IS NULL", occupancyID).
		Order("start_time DESC").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Quote reads the reservation, its room category and any attached promotion
// inside one transaction. Alert sweeps tolerate stale reads; the billed
// amount does not.
func (s *gormStore) Quote(ctx context.Context, reservationID int64, now time.Time) (*QuoteResult, error) {
	var result QuoteResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r model.Reservation
		if err := tx.First(&r, reservationID).Error; err != nil {
			return err
		}

		var room model.Room
		if err := tx.Preload("Category").First(&room, r.RoomID).Error; err != nil {
			return fmt.Errorf("failed to fetch room %d: %w", r.RoomID, err)
		}

		tariff := room.Category.Tariff
		var promotionID *int64
		if r.PromotionID != nil {
			var promo model.Promotion
			if err := tx.First(&promo, *r.PromotionID).Error; err != nil {
				return fmt.Errorf("failed to fetch promotion %d: %w", *r.PromotionID, err)
			}
			if promo.Usable(now) {
				tariff = promo.Rate
				promotionID = r.PromotionID
			}
		}

		result = QuoteResult{
			ReservationID: r.ID,
			Tariff:        tariff,
			Hours:         r.TotalHours,
			Minutes:       r.TotalMinutes,
			Amount:        tariff * (float64(r.TotalHours) + float64(r.TotalMinutes)/60),
			PromotionID:   promotionID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
