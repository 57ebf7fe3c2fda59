package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/horizon"
	"github.com/telecare-labs/telesched/services/availability-service/internal/outbox"
	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// memStore keeps calendars and emitted events in memory. Save stores a
// deep copy so aliasing bugs in the engine show up as test failures.
type memStore struct {
	cals    map[string]*horizon.Calendar
	events  []outbox.Event
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{cals: map[string]*horizon.Calendar{}}
}

func (s *memStore) Load(_ context.Context, practitionerID string) (*horizon.Calendar, bool, error) {
	cal, ok := s.cals[practitionerID]
	if !ok {
		return nil, false, nil
	}
	return cal.Clone(), true, nil
}

func (s *memStore) Save(_ context.Context, practitionerID string, cal *horizon.Calendar, events []outbox.Event) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.cals[practitionerID] = cal.Clone()
	s.events = append(s.events, events...)
	return nil
}

func (s *memStore) lastEvent(t *testing.T) outbox.Event {
	t.Helper()
	if len(s.events) == 0 {
		t.Fatalf("no events emitted")
	}
	return s.events[len(s.events)-1]
}

var testNow = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC) // a Monday

func newTestEngine(t *testing.T, store Store) *Engine {
	t.Helper()
	return New(store, slog.Default(), Options{
		Now:                func() time.Time { return testNow },
		DefaultSlotMinutes: 30,
	})
}

func mustTime(t *testing.T, s string) schedule.TimeOfDay {
	t.Helper()
	tod, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tod
}

// configure enables Monday 09:00-11:00 for the practitioner, creating
// the calendar on first touch.
func configure(t *testing.T, eng *Engine, practitionerID string) {
	t.Helper()
	ctx := context.Background()
	enabled := true
	start, end := mustTime(t, "09:00"), mustTime(t, "11:00")
	err := eng.UpdateDay(ctx, practitionerID, time.Monday, DayUpdate{
		Enabled: &enabled,
		Start:   &start,
		End:     &end,
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
}

func TestUpdateDay_CreatesCalendar(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")

	cal, err := eng.Snapshot(context.Background(), "pr-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	mon, err := cal.Template.Day(time.Monday)
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	if !mon.Enabled || len(mon.Slots) != 4 {
		t.Fatalf("expected 4 Monday slots, got enabled=%v slots=%d", mon.Enabled, len(mon.Slots))
	}

	evt := store.lastEvent(t)
	if evt.EventType != outbox.EventScheduleUpdated || evt.AggregateID != "pr-1" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestUpdateDay_RejectsInvalidTransition(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")

	// Disabling the only active day must fail validation and leave the
	// committed state untouched.
	disabled := false
	err := eng.UpdateDay(context.Background(), "pr-1", time.Monday, DayUpdate{Enabled: &disabled})
	if !errors.Is(err, schedule.ErrNoActiveDays) {
		t.Fatalf("expected ErrNoActiveDays, got %v", err)
	}

	cal, err := eng.Snapshot(context.Background(), "pr-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	mon, _ := cal.Template.Day(time.Monday)
	if !mon.Enabled {
		t.Fatalf("failed mutation leaked into committed state")
	}
}

func TestUpdateDay_HoursRequireBothEnds(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")

	start := mustTime(t, "08:00")
	err := eng.UpdateDay(context.Background(), "pr-1", time.Monday, DayUpdate{Start: &start})
	if err == nil {
		t.Fatalf("expected error for start without end")
	}
}

func TestMutationsRequireConfiguration(t *testing.T) {
	eng := newTestEngine(t, newMemStore())
	ctx := context.Background()

	if err := eng.Materialize(ctx, "ghost", 2); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("materialize: expected ErrNotConfigured, got %v", err)
	}
	if _, err := eng.Snapshot(ctx, "ghost"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("snapshot: expected ErrNotConfigured, got %v", err)
	}
	if _, err := eng.BlockWholeDay(ctx, "ghost", horizon.DateOf(testNow), ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("block: expected ErrNotConfigured, got %v", err)
	}
}

func TestMaterializeAndQuery(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")
	ctx := context.Background()

	if err := eng.Materialize(ctx, "pr-1", 2); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	evt := store.lastEvent(t)
	if evt.EventType != outbox.EventHorizonExtended {
		t.Fatalf("expected horizon event, got %s", evt.EventType)
	}

	today := horizon.DateOf(testNow)
	day, err := eng.DaySlots(ctx, "pr-1", today)
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if day.State != horizon.DayOpen || len(day.Slots) != 4 {
		t.Fatalf("expected open day with 4 slots, got %s/%d", day.State, len(day.Slots))
	}

	// Outside the two-week horizon.
	if _, err := eng.DaySlots(ctx, "pr-1", today.AddDays(30)); !errors.Is(err, horizon.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound beyond horizon, got %v", err)
	}
}

func TestTemplateEditRematerializesFutureDates(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")
	ctx := context.Background()

	if err := eng.Materialize(ctx, "pr-1", 2); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if err := eng.SetWorkingHours(ctx, "pr-1", time.Monday, mustTime(t, "09:00"), mustTime(t, "10:00")); err != nil {
		t.Fatalf("set hours: %v", err)
	}

	today := horizon.DateOf(testNow)
	for _, d := range []horizon.Date{today, today.AddDays(7)} {
		day, err := eng.DaySlots(ctx, "pr-1", d)
		if err != nil {
			t.Fatalf("day slots %s: %v", d, err)
		}
		if len(day.Slots) != 2 {
			t.Fatalf("%s: expected 2 slots after edit, got %d", d, len(day.Slots))
		}
	}
}

func TestDisableDayZeroesFutureDates(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")
	ctx := context.Background()

	// A second enabled day so disabling Monday stays valid.
	enabled := true
	start, end := mustTime(t, "09:00"), mustTime(t, "11:00")
	if err := eng.UpdateDay(ctx, "pr-1", time.Tuesday, DayUpdate{Enabled: &enabled, Start: &start, End: &end}); err != nil {
		t.Fatalf("enable tuesday: %v", err)
	}
	if err := eng.Materialize(ctx, "pr-1", 2); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	if err := eng.SetDayEnabled(ctx, "pr-1", time.Monday, false); err != nil {
		t.Fatalf("disable monday: %v", err)
	}

	today := horizon.DateOf(testNow)
	for _, d := range []horizon.Date{today, today.AddDays(7)} {
		day, err := eng.DaySlots(ctx, "pr-1", d)
		if err != nil {
			t.Fatalf("day slots %s: %v", d, err)
		}
		if day.State != horizon.DayOff || len(day.Slots) != 0 {
			t.Fatalf("%s: expected off with no slots, got %s/%d", d, day.State, len(day.Slots))
		}
	}

	// Re-enabling restores the prior hours without re-entry.
	if err := eng.SetDayEnabled(ctx, "pr-1", time.Monday, true); err != nil {
		t.Fatalf("re-enable monday: %v", err)
	}
	day, err := eng.DaySlots(ctx, "pr-1", today)
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if day.State != horizon.DayOpen || len(day.Slots) != 4 {
		t.Fatalf("expected restored 09:00-11:00 day, got %s/%d", day.State, len(day.Slots))
	}
}

func TestExtendAppendsWeeks(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")
	ctx := context.Background()

	if err := eng.Materialize(ctx, "pr-1", 1); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if err := eng.Extend(ctx, "pr-1", 1); err != nil {
		t.Fatalf("extend: %v", err)
	}

	today := horizon.DateOf(testNow)
	if _, err := eng.DaySlots(ctx, "pr-1", today.AddDays(7)); err != nil {
		t.Fatalf("extended Monday missing: %v", err)
	}

	saves := store.saves
	events := len(store.events)
	if err := eng.Extend(ctx, "pr-1", 0); err != nil {
		t.Fatalf("extend zero: %v", err)
	}
	if len(store.events) != events {
		t.Fatalf("zero-week extend must not emit events")
	}
	if store.saves != saves+1 {
		t.Fatalf("expected a save either way, got %d -> %d", saves, store.saves)
	}
}

func TestBlockLifecycle(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")
	ctx := context.Background()

	if err := eng.Materialize(ctx, "pr-1", 2); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	today := horizon.DateOf(testNow)
	blk, err := eng.BlockInterval(ctx, "pr-1", today, mustTime(t, "10:00"), mustTime(t, "11:00"), "errand")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blk.ID == "" {
		t.Fatalf("block id missing")
	}
	if evt := store.lastEvent(t); evt.EventType != outbox.EventIntervalBlocked {
		t.Fatalf("expected blocked event, got %s", evt.EventType)
	}

	day, err := eng.DaySlots(ctx, "pr-1", today)
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if day.State != horizon.DayPartiallyBlocked || len(day.Slots) != 2 {
		t.Fatalf("expected partially blocked with 2 slots, got %s/%d", day.State, len(day.Slots))
	}

	if err := eng.Unblock(ctx, "pr-1", today, blk.Start, blk.End); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	day, _ = eng.DaySlots(ctx, "pr-1", today)
	if day.State != horizon.DayOpen || len(day.Slots) != 4 {
		t.Fatalf("expected open with 4 slots, got %s/%d", day.State, len(day.Slots))
	}
	if evt := store.lastEvent(t); evt.EventType != outbox.EventIntervalUnblocked {
		t.Fatalf("expected unblocked event, got %s", evt.EventType)
	}
}

func TestOccupyReleaseRoundTrip(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")
	ctx := context.Background()

	if err := eng.Materialize(ctx, "pr-1", 1); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	today := horizon.DateOf(testNow)
	start := mustTime(t, "09:00")
	if err := eng.OccupySlot(ctx, "pr-1", today, start); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := eng.OccupySlot(ctx, "pr-1", today, start); !errors.Is(err, horizon.ErrSlotFullyBooked) {
		t.Fatalf("expected ErrSlotFullyBooked, got %v", err)
	}

	// A booked slot must veto template rebuilds.
	err := eng.SetWorkingHours(ctx, "pr-1", time.Monday, mustTime(t, "09:00"), mustTime(t, "10:00"))
	if !errors.Is(err, horizon.ErrBookedSlots) {
		t.Fatalf("expected ErrBookedSlots, got %v", err)
	}

	if err := eng.ReleaseSlot(ctx, "pr-1", today, start); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := eng.SetWorkingHours(ctx, "pr-1", time.Monday, mustTime(t, "09:00"), mustTime(t, "10:00")); err != nil {
		t.Fatalf("edit after release: %v", err)
	}
}

func TestSaveFailureLeavesStateUntouched(t *testing.T) {
	store := newMemStore()
	eng := newTestEngine(t, store)
	configure(t, eng, "pr-1")
	ctx := context.Background()

	if err := eng.Materialize(ctx, "pr-1", 1); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	store.saveErr = fmt.Errorf("connection reset")
	today := horizon.DateOf(testNow)
	if _, err := eng.BlockWholeDay(ctx, "pr-1", today, "away"); err == nil {
		t.Fatalf("expected save failure to surface")
	}

	store.saveErr = nil
	day, err := eng.DaySlots(ctx, "pr-1", today)
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if day.State != horizon.DayOpen {
		t.Fatalf("failed save mutated committed state: %s", day.State)
	}
}

func TestEngineLoadsFromStore(t *testing.T) {
	store := newMemStore()
	first := newTestEngine(t, store)
	configure(t, first, "pr-1")
	if err := first.Materialize(context.Background(), "pr-1", 1); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	// A second engine over the same store sees the persisted calendar.
	second := newTestEngine(t, store)
	day, err := second.DaySlots(context.Background(), "pr-1", horizon.DateOf(testNow))
	if err != nil {
		t.Fatalf("day slots: %v", err)
	}
	if len(day.Slots) != 4 {
		t.Fatalf("expected 4 slots from persisted state, got %d", len(day.Slots))
	}
}
