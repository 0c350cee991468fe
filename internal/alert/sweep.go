package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"hotel-ops-backend/internal/model"
	"hotel-ops-backend/internal/store"
	"hotel-ops-backend/internal/timeutil"
)

// Sweep is the periodic reconciliation job. Each tick it recomputes the
// remaining time of every truly-occupied room from durable state alone and
// emits tiered alerts. It is the authoritative alerting layer across process
// restarts; the in-process scheduler only lowers latency on top of it.
type Sweep struct {
	store    store.Store
	notifier Notifier

	interval time.Duration
	critical time.Duration
	warning  time.Duration
}

// NewSweep creates the sweep job.
func NewSweep(s store.Store, notifier Notifier, interval, critical, warning time.Duration) *Sweep {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if critical <= 0 {
		critical = 5 * time.Minute
	}
	if warning <= 0 {
		warning = 15 * time.Minute
	}
	return &Sweep{
		store:    s,
		notifier: notifier,
		interval: interval,
		critical: critical,
		warning:  warning,
	}
}

// Run executes sweep cycles on the configured cadence until the context is
// cancelled.
func (s *Sweep) Run(ctx context.Context) {
	log.Println("Starting reconciliation sweep...")

	s.SweepOnce(ctx, time.Now())

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconciliation sweep shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx, time.Now())
			timer.Reset(s.interval)
		}
	}
}

// SweepOnce performs a single reconciliation cycle. The durable state is
// read without a lock: a reservation paused, resumed or finalized mid-sweep
// may produce one stale alert, and the next tick self-corrects. A failure on
// one room is logged and skipped, never aborting the rest of the batch.
func (s *Sweep) SweepOnce(ctx context.Context, now time.Time) {
	rooms, err := s.store.OccupiedRooms(ctx)
	if err != nil {
		log.Printf("sweep: failed to fetch occupied rooms: %v", err)
		return
	}

	for _, room := range rooms {
		if room.OccupancyID == nil {
			continue
		}
		r, err := s.store.OpenReservation(ctx, *room.OccupancyID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("sweep: failed to fetch open reservation for room %d: %v", room.ID, err)
			}
			continue
		}
		s.classify(room, r, now)
	}
}

func (s *Sweep) classify(room model.Room, r *model.Reservation, now time.Time) {
	remaining := timeutil.Remaining(r.StartTime, r.TotalHours, r.TotalMinutes, now)
	if r.Paused() {
		// A paused reservation's window is extended by its pause snapshot.
		remaining += timeutil.PartsDuration(*r.PauseHours, *r.PauseMinutes)
	}

	event := Event{
		RoomID:        room.ID,
		ReservationID: r.ID,
		InstitutionID: room.InstitutionID,
	}

	switch timeutil.Classify(remaining, s.critical, s.warning) {
	case timeutil.TierExpired:
		event.Severity = SeverityExpired
		event.Message = fmt.Sprintf("room %d: time expired", room.ID)
		event.OverdueMinutes = minutesPtr(int((-remaining).Minutes()))
	case timeutil.TierCritical:
		event.Severity = SeverityCritical
		event.Message = fmt.Sprintf("room %d: %d minutes remaining", room.ID, int(remaining.Minutes()))
		event.RemainingMinutes = minutesPtr(int(remaining.Minutes()))
	case timeutil.TierWarning:
		event.Severity = SeverityWarning
		event.Message = fmt.Sprintf("room %d: %d minutes remaining", room.ID, int(remaining.Minutes()))
		event.RemainingMinutes = minutesPtr(int(remaining.Minutes()))
	default:
		return
	}

	s.notifier.Publish(event)
}
