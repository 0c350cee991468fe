package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"hotel-ops-backend/internal/store"
	"hotel-ops-backend/internal/timeutil"
)

// Scheduler keeps one live, cancellable alert task per active reservation.
//
// The registry is a low-latency cache over durable state, not a source of
// truth: it does not survive restarts and is not re-armed on every mutation.
// The reconciliation sweep corrects anything the scheduler got wrong.
type Scheduler struct {
	mu      sync.Mutex
	entries map[int64]*entry

	store    store.Store
	notifier Notifier
	warnLead time.Duration
}

type entry struct {
	cancel context.CancelFunc
}

// NewScheduler creates the registry. warnLead is how far before the
// scheduled end the warning alert fires.
func NewScheduler(s store.Store, notifier Notifier, warnLead time.Duration) *Scheduler {
	if warnLead <= 0 {
		warnLead = 5 * time.Minute
	}
	return &Scheduler{
		entries:  make(map[int64]*entry),
		store:    s,
		notifier: notifier,
		warnLead: warnLead,
	}
}

// Schedule installs a task that fires a warning alert warnLead before the
// reservation's scheduled end and an expired alert at the end. An existing
// entry for the same reservation is cancelled and replaced first, so two
// tasks never race to emit duplicate alerts for one reservation.
//
// The task works from this point-in-time snapshot only; it never reads or
// mutates persisted state.
func (s *Scheduler) Schedule(reservationID, roomID, institutionID int64, start time.Time, hours, minutes int) {
	end := start.Add(timeutil.PartsDuration(hours, minutes))
	warnAt := end.Add(-s.warnLead)

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{cancel: cancel}

	s.mu.Lock()
	if old, ok := s.entries[reservationID]; ok {
		old.cancel()
	}
	s.entries[reservationID] = e
	s.mu.Unlock()

	go s.run(ctx, e, reservationID, roomID, institutionID, warnAt, end)
}

// Cancel aborts and removes the reservation's entry if present. Cancelling
// an unknown id is a no-op, and a cancelled task emits nothing further.
func (s *Scheduler) Cancel(reservationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[reservationID]; ok {
		e.cancel()
		delete(s.entries, reservationID)
	}
}

// Prime arms an entry for every open reservation of a currently occupied
// room. Called once on startup; per-room failures are logged and skipped.
func (s *Scheduler) Prime(ctx context.Context) {
	rooms, err := s.store.OccupiedRooms(ctx)
	if err != nil {
		log.Printf("scheduler: failed to prime registry: %v", err)
		return
	}

	armed := 0
	for _, room := range rooms {
		if room.OccupancyID == nil {
			continue
		}
		r, err := s.store.OpenReservation(ctx, *room.OccupancyID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("scheduler: failed to fetch open reservation for room %d: %v", room.ID, err)
			}
			continue
		}
		s.Schedule(r.ID, r.RoomID, room.InstitutionID, r.StartTime, r.TotalHours, r.TotalMinutes)
		armed++
	}
	log.Printf("scheduler: primed %d alert tasks", armed)
}

// Stop cancels every live task. Used on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.cancel()
		delete(s.entries, id)
	}
}

func (s *Scheduler) run(ctx context.Context, e *entry, reservationID, roomID, institutionID int64, warnAt, end time.Time) {
	defer s.remove(reservationID, e)

	if !sleepUntil(ctx, warnAt) {
		return
	}
	warnMinutes := int(s.warnLead.Minutes())
	s.notifier.Publish(Event{
		Severity:         SeverityWarning,
		Message:          fmt.Sprintf("room %d: %d minutes remaining", roomID, warnMinutes),
		RoomID:           roomID,
		ReservationID:    reservationID,
		InstitutionID:    institutionID,
		RemainingMinutes: minutesPtr(warnMinutes),
	})

	if !sleepUntil(ctx, end) {
		return
	}
	s.notifier.Publish(Event{
		Severity:         SeverityExpired,
		Message:          fmt.Sprintf("room %d: time expired", roomID),
		RoomID:           roomID,
		ReservationID:    reservationID,
		InstitutionID:    institutionID,
		RemainingMinutes: minutesPtr(0),
	})
}

// remove deletes the entry only if it is still the live one; a replacement
// installed by a later Schedule call stays.
func (s *Scheduler) remove(reservationID int64, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[reservationID]; ok && cur == e {
		delete(s.entries, reservationID)
	}
}

// sleepUntil suspends until t or cancellation. Returns false when cancelled.
// A wake point in the past returns immediately.
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// live reports the number of registered tasks.
func (s *Scheduler) live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
