package visit

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-ops-backend/internal/db"
	"hotel-ops-backend/internal/inventory"
	"hotel-ops-backend/internal/model"
	"hotel-ops-backend/internal/store"
)

var testDBSeq int64

// newTestDB opens a fresh in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:visit_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

// fakeScheduler records scheduler calls made by the state machine.
type fakeScheduler struct {
	scheduled []int64
	cancelled []int64
}

func (f *fakeScheduler) Schedule(reservationID, roomID, institutionID int64, start time.Time, hours, minutes int) {
	f.scheduled = append(f.scheduled, reservationID)
}

func (f *fakeScheduler) Cancel(reservationID int64) {
	f.cancelled = append(f.cancelled, reservationID)
}

type fixture struct {
	db        *gorm.DB
	store     store.Store
	service   *Service
	scheduler *fakeScheduler
	room      model.Room
}

// newFixture seeds one institution, one room category and one available room.
func newFixture(t *testing.T, definitivePause bool) *fixture {
	gormDB := newTestDB(t)

	institution := model.Institution{ID: 1, Name: "Hotel Aurora", DefinitivePause: definitivePause}
	require.NoError(t, gormDB.Create(&institution).Error)
	category := model.RoomCategory{ID: 1, Name: "Standard", Tariff: 30}
	require.NoError(t, gormDB.Create(&category).Error)
	room := model.Room{ID: 1, InstitutionID: 1, CategoryID: 1, Number: "101", Available: true}
	require.NoError(t, gormDB.Create(&room).Error)

	appStore := store.NewGormStore(gormDB)
	scheduler := &fakeScheduler{}
	service := NewService(appStore, inventory.NewGormService(gormDB), scheduler)

	return &fixture{
		db:        gormDB,
		store:     appStore,
		service:   service,
		scheduler: scheduler,
		room:      room,
	}
}

func (f *fixture) setNow(t time.Time) {
	f.service.now = func() time.Time { return t }
}

func (f *fixture) reservation(t *testing.T, id int64) *model.Reservation {
	r, err := f.store.GetReservation(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) freshRoom(t *testing.T) *model.Room {
	room, err := f.store.GetRoom(context.Background(), f.room.ID)
	require.NoError(t, err)
	return room
}

var tenAM = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func book(t *testing.T, f *fixture, hours, minutes int) *model.Reservation {
	r, err := f.service.Book(context.Background(), f.room.ID, tenAM, hours, minutes)
	require.NoError(t, err)
	return r
}

func TestBook(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	r := book(t, f, 1, 0)
	assert.Equal(t, tenAM, r.StartTime)
	assert.Equal(t, 1, r.TotalHours)
	assert.Equal(t, 0, r.TotalMinutes)
	assert.Equal(t, []int64{r.ID}, f.scheduler.scheduled)

	room := f.freshRoom(t)
	assert.False(t, room.Available)
	require.NotNil(t, room.OccupancyID)
	assert.Equal(t, r.OccupancyID, *room.OccupancyID)

	// The room now holds an active occupancy; booking again must fail.
	_, err := f.service.Book(ctx, f.room.ID, tenAM, 2, 0)
	assert.ErrorIs(t, err, store.ErrRoomUnavailable)
}

func TestPause(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	// Paused at 10:40 with 20 of 60 minutes left.
	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))

	got := f.reservation(t, r.ID)
	require.True(t, got.Paused())
	assert.Equal(t, 0, *got.PauseHours)
	assert.Equal(t, 20, *got.PauseMinutes)
	assert.Nil(t, got.RecalculationTimestamp)

	// Pausing an already paused reservation is rejected.
	assert.ErrorIs(t, f.service.Pause(ctx, r.ID), ErrNotActive)
}

func TestPause_MissingReservation(t *testing.T) {
	f := newFixture(t, false)
	assert.ErrorIs(t, f.service.Pause(context.Background(), 999), ErrReservationNotFound)
}

func TestResume(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	// Resuming an active reservation is rejected.
	assert.ErrorIs(t, f.service.Resume(ctx, r.ID), ErrNotPaused)

	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))
	require.NoError(t, f.service.Recalculate(ctx, r.ID))

	f.setNow(tenAM.Add(50 * time.Minute))
	require.NoError(t, f.service.Resume(ctx, r.ID))

	got := f.reservation(t, r.ID)
	assert.False(t, got.Paused())
	assert.Nil(t, got.RecalculationTimestamp)
}

func TestResume_DefinitivePausePolicy(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))
	before := f.reservation(t, r.ID)

	assert.ErrorIs(t, f.service.Resume(ctx, r.ID), ErrDefinitivePause)

	// The rejection must not mutate state.
	after := f.reservation(t, r.ID)
	assert.Equal(t, before.PauseHours, after.PauseHours)
	assert.Equal(t, before.PauseMinutes, after.PauseMinutes)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestRecalculate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	// Recalculate from active is rejected.
	assert.ErrorIs(t, f.service.Recalculate(ctx, r.ID), ErrNotPaused)

	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))

	recalcAt := tenAM.Add(45 * time.Minute)
	f.setNow(recalcAt)
	require.NoError(t, f.service.Recalculate(ctx, r.ID))

	got := f.reservation(t, r.ID)
	require.True(t, got.Paused())
	assert.Equal(t, 0, *got.PauseHours)
	assert.Equal(t, 15, *got.PauseMinutes)
	require.NotNil(t, got.RecalculationTimestamp)
	assert.WithinDuration(t, recalcAt, *got.RecalculationTimestamp, time.Second)
}

func TestExtend(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))
	require.NoError(t, f.service.Recalculate(ctx, r.ID))

	f.setNow(tenAM.Add(50 * time.Minute))
	require.NoError(t, f.service.Resume(ctx, r.ID))

	// Minutes accumulate without carrying into hours.
	require.NoError(t, f.service.Extend(ctx, r.ID, 0, 10))
	got := f.reservation(t, r.ID)
	assert.Equal(t, 1, got.TotalHours)
	assert.Equal(t, 70, got.TotalMinutes)
	assert.Nil(t, got.RecalculationTimestamp)
}

func TestExtend_DefinitivePausePolicy(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	// Extending while active is allowed even under the policy.
	require.NoError(t, f.service.Extend(ctx, r.ID, 1, 0))

	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))
	assert.ErrorIs(t, f.service.Extend(ctx, r.ID, 0, 30), ErrDefinitivePause)

	got := f.reservation(t, r.ID)
	assert.Equal(t, 2, got.TotalHours)
	assert.Equal(t, 0, got.TotalMinutes)
}

func TestFinalize(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))

	endAt := tenAM.Add(55 * time.Minute)
	f.setNow(endAt)
	require.NoError(t, f.service.Finalize(ctx, f.room.ID))

	got := f.reservation(t, r.ID)
	require.NotNil(t, got.EndTime)
	assert.WithinDuration(t, endAt, *got.EndTime, time.Second)
	assert.False(t, got.Paused())
	assert.Nil(t, got.RecalculationTimestamp)

	room := f.freshRoom(t)
	assert.True(t, room.Available)
	assert.Nil(t, room.OccupancyID)

	assert.Equal(t, []int64{r.ID}, f.scheduler.cancelled)
}

func TestFinalize_NoOpenReservation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	// Close the reservation behind the room's back.
	end := tenAM.Add(time.Hour)
	require.NoError(t, f.db.Model(&model.Reservation{}).
		Where("id = ?", r.ID).
		Update("end_time", end).Error)

	require.NoError(t, f.service.Finalize(ctx, f.room.ID))

	room := f.freshRoom(t)
	assert.True(t, room.Available)
	assert.Nil(t, room.OccupancyID)
}

func TestFinalize_StaleRecalculationWindow(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	f.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f.service.Pause(ctx, r.ID))
	require.NoError(t, f.service.Recalculate(ctx, r.ID))

	// Three minutes later the one-minute confirmation window has elapsed.
	f.setNow(tenAM.Add(43 * time.Minute))

	// The window is not enforced by default.
	require.NoError(t, f.service.Finalize(ctx, f.room.ID))

	// With enforcement on, the stale snapshot is rejected.
	f2 := newFixture(t, false)
	f2.service.EnforceRecalculationWindow = true
	r2 := book(t, f2, 1, 0)
	f2.setNow(tenAM.Add(40 * time.Minute))
	require.NoError(t, f2.service.Pause(ctx, r2.ID))
	require.NoError(t, f2.service.Recalculate(ctx, r2.ID))
	f2.setNow(tenAM.Add(43 * time.Minute))
	assert.ErrorIs(t, f2.service.Finalize(ctx, f2.room.ID), ErrStaleRecalculation)
}

func TestCancel(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	// Record a minibar consumption against the reservation.
	item := model.InventoryItem{ID: 1, InstitutionID: 1, Name: "Sparkling water", Stock: 8}
	require.NoError(t, f.db.Create(&item).Error)
	consumption := model.Consumption{ReservationID: r.ID, ItemID: item.ID, Quantity: 2, UnitPrice: 3.5}
	require.NoError(t, f.db.Create(&consumption).Error)

	cancelAt := tenAM.Add(30 * time.Minute)
	f.setNow(cancelAt)
	require.NoError(t, f.service.Cancel(ctx, r.ID, "guest emergency"))

	got := f.reservation(t, r.ID)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, "guest emergency", got.CancellationReason)

	var occupancy model.Occupancy
	require.NoError(t, f.db.First(&occupancy, r.OccupancyID).Error)
	assert.True(t, occupancy.Cancelled())

	room := f.freshRoom(t)
	assert.True(t, room.Available)
	assert.Nil(t, room.OccupancyID)

	// Consumptions are voided and stock restored.
	var gotItem model.InventoryItem
	require.NoError(t, f.db.First(&gotItem, item.ID).Error)
	assert.Equal(t, 10, gotItem.Stock)
	var gotConsumption model.Consumption
	require.NoError(t, f.db.First(&gotConsumption, consumption.ID).Error)
	assert.NotNil(t, gotConsumption.VoidedAt)

	assert.Equal(t, []int64{r.ID}, f.scheduler.cancelled)

	// Cancelling twice is rejected.
	assert.ErrorIs(t, f.service.Cancel(ctx, r.ID, "again"), ErrAlreadyCancelled)
}

func TestCancel_ReasonTooLong(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)
	before := f.reservation(t, r.ID)

	reason := strings.Repeat("x", 151)
	assert.ErrorIs(t, f.service.Cancel(ctx, r.ID, reason), ErrReasonTooLong)

	// State must be untouched.
	after := f.reservation(t, r.ID)
	assert.Nil(t, after.CancelledAt)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

	// Exactly 150 characters is accepted.
	require.NoError(t, f.service.Cancel(ctx, r.ID, strings.Repeat("y", 150)))
}

func TestQuote(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 30)

	quote, err := f.service.Quote(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, quote.Tariff)
	assert.InDelta(t, 45.0, quote.Amount, 1e-9)
	assert.Nil(t, quote.PromotionID)

	_, err = f.service.Quote(ctx, 999)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestQuote_Promotion(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	promo := model.Promotion{ID: 1, InstitutionID: 1, Name: "Happy hour", Rate: 20}
	require.NoError(t, f.db.Create(&promo).Error)

	require.NoError(t, f.service.AttachPromotion(ctx, r.ID, promo.ID))
	quote, err := f.service.Quote(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, quote.Tariff)
	assert.InDelta(t, 20.0, quote.Amount, 1e-9)

	// Extending after attaching recomputes against the current duration.
	require.NoError(t, f.service.Extend(ctx, r.ID, 0, 70))
	quote, err = f.service.Quote(ctx, r.ID)
	require.NoError(t, err)
	assert.InDelta(t, 20*(1+70.0/60), quote.Amount, 1e-9)

	// A voided promotion falls back to the category tariff.
	now := time.Now()
	require.NoError(t, f.db.Model(&model.Promotion{}).
		Where("id = ?", promo.ID).
		Update("voided_at", now).Error)
	quote, err = f.service.Quote(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, quote.Tariff)

	require.NoError(t, f.service.DetachPromotion(ctx, r.ID))
	got := f.reservation(t, r.ID)
	assert.Nil(t, got.PromotionID)
}

func TestAttachPromotion_Voided(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	r := book(t, f, 1, 0)

	now := time.Now()
	promo := model.Promotion{ID: 2, InstitutionID: 1, Name: "Expired deal", Rate: 5, VoidedAt: &now}
	require.NoError(t, f.db.Create(&promo).Error)

	assert.Error(t, f.service.AttachPromotion(ctx, r.ID, promo.ID))
}
