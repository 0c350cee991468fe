package visit

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"hotel-ops-backend/internal/inventory"
	"hotel-ops-backend/internal/model"
	"hotel-ops-backend/internal/store"
	"hotel-ops-backend/internal/timeutil"
)

// maxCancellationReasonLen is the longest accepted cancellation reason, in
// characters.
const maxCancellationReasonLen = 150

// Scheduler is the slice of the in-process alert scheduler consumed by the
// state-transition handlers. The scheduler is a low-latency cache over
// durable state; the reconciliation sweep remains the source of truth, so
// only booking arms an entry and only finalize/cancel tear one down. The
// other transitions leave any armed entry untouched and rely on the next
// sweep tick to correct stale alerts.
type Scheduler interface {
	Schedule(reservationID, roomID, institutionID int64, start time.Time, hours, minutes int)
	Cancel(reservationID int64)
}

// Service implements the per-reservation time-accounting state machine.
type Service struct {
	store     store.Store
	inventory inventory.Service
	scheduler Scheduler
	now       func() time.Time

	// EnforceRecalculationWindow makes Finalize reject a pause snapshot
	// whose recalculation confirmation window has elapsed. Off by default:
	// the window is captured and cleared but never enforced.
	EnforceRecalculationWindow bool
	RecalculationWindow        time.Duration
}

// NewService creates the state machine service.
func NewService(s store.Store, inv inventory.Service, sched Scheduler) *Service {
	return &Service{
		store:               s,
		inventory:           inv,
		scheduler:           sched,
		now:                 time.Now,
		RecalculationWindow: time.Minute,
	}
}

func (s *Service) getReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return r, nil
}

// definitivePause reports whether the reservation's institution forbids
// resuming or extending once paused.
func (s *Service) definitivePause(ctx context.Context, r *model.Reservation) (bool, error) {
	occupancy, err := s.store.GetOccupancy(ctx, r.OccupancyID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch occupancy %d: %w", r.OccupancyID, err)
	}
	institution, err := s.store.GetInstitution(ctx, occupancy.InstitutionID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch institution %d: %w", occupancy.InstitutionID, err)
	}
	return institution.DefinitivePause, nil
}

// Book creates an occupancy and its reservation for an available room and
// arms the scheduler for it.
func (s *Service) Book(ctx context.Context, roomID int64, start time.Time, hours, minutes int) (*model.Reservation, error) {
	r, err := s.store.Book(ctx, roomID, start, hours, minutes)
	if err != nil {
		return nil, err
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room %d after booking: %w", roomID, err)
	}
	s.scheduler.Schedule(r.ID, r.RoomID, room.InstitutionID, r.StartTime, r.TotalHours, r.TotalMinutes)
	return r, nil
}

// Pause captures the remaining time into the pause snapshot and clears any
// open recalculation window. Valid only while active.
func (s *Service) Pause(ctx context.Context, id int64) error {
	r, err := s.getReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.Open() || r.Paused() {
		return ErrNotActive
	}

	now := s.now()
	remaining := timeutil.Remaining(r.StartTime, r.TotalHours, r.TotalMinutes, now)
	// Only the hour-of-day and minute components survive the snapshot.
	hours, minutes := timeutil.ClockParts(remaining)

	return s.store.UpdateReservation(ctx, id, map[string]any{
		"pause_hours":             hours,
		"pause_minutes":           minutes,
		"recalculation_timestamp": nil,
	})
}

// Resume clears the pause snapshot. Rejected under a definitive-pause
// policy, always without mutating state.
func (s *Service) Resume(ctx context.Context, id int64) error {
	r, err := s.getReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.Open() || !r.Paused() {
		return ErrNotPaused
	}

	definitive, err := s.definitivePause(ctx, r)
	if err != nil {
		return err
	}
	if definitive {
		return ErrDefinitivePause
	}

	return s.store.UpdateReservation(ctx, id, map[string]any{
		"pause_hours":             nil,
		"pause_minutes":           nil,
		"recalculation_timestamp": nil,
	})
}

// Recalculate re-captures the remaining time into the pause snapshot and
// opens a payment-confirmation window. Valid only while paused.
func (s *Service) Recalculate(ctx context.Context, id int64) error {
	r, err := s.getReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.Open() || !r.Paused() {
		return ErrNotPaused
	}

	now := s.now()
	remaining := timeutil.Remaining(r.StartTime, r.TotalHours, r.TotalMinutes, now)
	hours, minutes := timeutil.ClockParts(remaining)

	return s.store.UpdateReservation(ctx, id, map[string]any{
		"pause_hours":             hours,
		"pause_minutes":           minutes,
		"recalculation_timestamp": now,
	})
}

// Extend adds to the booked duration and clears any open recalculation
// window. Minutes accumulate as-is; they are not carried into hours.
func (s *Service) Extend(ctx context.Context, id int64, hours, minutes int) error {
	r, err := s.getReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.Open() {
		return ErrNotActive
	}
	if r.Paused() {
		definitive, err := s.definitivePause(ctx, r)
		if err != nil {
			return err
		}
		if definitive {
			return ErrDefinitivePause
		}
	}

	return s.store.UpdateReservation(ctx, id, map[string]any{
		"total_hours":             r.TotalHours + hours,
		"total_minutes":           r.TotalMinutes + minutes,
		"recalculation_timestamp": nil,
	})
}

// Finalize closes the open reservation of the room's active occupancy and
// releases the room. A room with no open reservation is still released and
// is not an error.
func (s *Service) Finalize(ctx context.Context, roomID int64) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to fetch room %d: %w", roomID, err)
	}

	if room.OccupancyID == nil {
		return s.store.ReleaseRoom(ctx, roomID)
	}

	now := s.now()
	r, err := s.store.OpenReservation(ctx, *room.OccupancyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.store.ReleaseRoom(ctx, roomID)
		}
		return fmt.Errorf("failed to fetch open reservation for occupancy %d: %w", *room.OccupancyID, err)
	}

	if s.EnforceRecalculationWindow && r.RecalculationTimestamp != nil &&
		now.Sub(*r.RecalculationTimestamp) > s.RecalculationWindow {
		return ErrStaleRecalculation
	}

	if err := s.store.UpdateReservation(ctx, r.ID, map[string]any{
		"end_time":                now,
		"pause_hours":             nil,
		"pause_minutes":           nil,
		"recalculation_timestamp": nil,
	}); err != nil {
		return err
	}

	s.scheduler.Cancel(r.ID)
	return s.store.ReleaseRoom(ctx, roomID)
}

// Cancel voids the reservation and its occupancy, releases the room, and
// delegates to the inventory collaborator to roll back consumptions.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) error {
	if utf8.RuneCountInString(reason) > maxCancellationReasonLen {
		return ErrReasonTooLong
	}

	r, err := s.getReservation(ctx, id)
	if err != nil {
		return err
	}
	if r.CancelledAt != nil {
		return ErrAlreadyCancelled
	}

	now := s.now()
	if err := s.store.UpdateReservation(ctx, id, map[string]any{
		"cancelled_at":        now,
		"cancellation_reason": reason,
	}); err != nil {
		return err
	}
	if err := s.store.DB().WithContext(ctx).
		Model(&model.Occupancy{}).
		Where("id = ?", r.OccupancyID).
		Update("cancelled_at", now).Error; err != nil {
		return fmt.Errorf("failed to cancel occupancy %d: %w", r.OccupancyID, err)
	}

	s.scheduler.Cancel(id)

	if err := s.store.ReleaseRoom(ctx, r.RoomID); err != nil {
		return err
	}
	return s.inventory.VoidConsumptions(ctx, id, now)
}

// AttachPromotion prices the reservation with the promotion's rate. The
// billed amount is recomputed against the current total duration, so earlier
// quotes are never rewritten retroactively.
func (s *Service) AttachPromotion(ctx context.Context, id, promotionID int64) error {
	r, err := s.getReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.Open() {
		return ErrNotActive
	}

	var promo model.Promotion
	if err := s.store.DB().WithContext(ctx).First(&promo, promotionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("promotion %d not found", promotionID)
		}
		return err
	}
	if !promo.Usable(s.now()) {
		return fmt.Errorf("promotion %d is voided or outside its validity window", promotionID)
	}

	return s.store.UpdateReservation(ctx, id, map[string]any{"promotion_id": promotionID})
}

// DetachPromotion reverts the reservation to the room category tariff.
func (s *Service) DetachPromotion(ctx context.Context, id int64) error {
	if _, err := s.getReservation(ctx, id); err != nil {
		return err
	}
	return s.store.UpdateReservation(ctx, id, map[string]any{"promotion_id": nil})
}

// Quote returns the billed amount for the reservation from one consistent
// read.
func (s *Service) Quote(ctx context.Context, id int64) (*store.QuoteResult, error) {
	q, err := s.store.Quote(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return q, nil
}
