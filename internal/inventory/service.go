package inventory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotel-ops-backend/internal/model"
)

// Service voids consumptions when their reservation is cancelled.
type Service interface {
	// VoidConsumptions marks every open consumption of the reservation as
	// voided and restores the consumed quantities to item stock.
	VoidConsumptions(ctx context.Context, reservationID int64, at time.Time) error
}

type gormService struct {
	db *gorm.DB
}

// NewGormService creates a GORM-backed inventory service.
func NewGormService(db *gorm.DB) Service {
	return &gormService{db: db}
}

func (s *gormService) VoidConsumptions(ctx context.Context, reservationID int64, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var consumptions []model.Consumption
		if err := tx.
			Where("reservation_id = ? AND voided_at IS NULL", reservationID).
			Find(&consumptions).Error; err != nil {
			return fmt.Errorf("failed to fetch consumptions for reservation %d: %w", reservationID, err)
		}

		for _, c := range consumptions {
			if err := tx.Model(&model.InventoryItem{}).
				Where("id = ?", c.ItemID).
				Update("stock", gorm.Expr("stock + ?", c.Quantity)).Error; err != nil {
				return fmt.Errorf("failed to restore stock for item %d: %w", c.ItemID, err)
			}
			if err := tx.Model(&model.Consumption{}).
				Where("id = ?", c.ID).
				Update("voided_at", at).Error; err != nil {
				return fmt.Errorf("failed to void consumption %d: %w", c.ID, err)
			}
		}
		return nil
	})
}
