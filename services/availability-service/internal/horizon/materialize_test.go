package horizon

import (
	"testing"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

// monday is a fixed anchor so weekday math in tests is deterministic.
const monday = Date("2026-01-05")

func workweekTemplate(t *testing.T) *schedule.WeeklyTemplate {
	t.Helper()
	tpl, err := schedule.NewWeeklyTemplate(30)
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday} {
		if err := tpl.SetDayEnabled(wd, true); err != nil {
			t.Fatalf("enable %s: %v", wd, err)
		}
		if err := tpl.SetWorkingHours(wd, mustTime(t, "09:00"), mustTime(t, "11:00")); err != nil {
			t.Fatalf("hours %s: %v", wd, err)
		}
	}
	return tpl
}

func mustTime(t *testing.T, s string) schedule.TimeOfDay {
	t.Helper()
	tod, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tod
}

func TestDateArithmetic(t *testing.T) {
	if monday.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", monday.Weekday())
	}
	if monday.AddDays(7) != Date("2026-01-12") {
		t.Fatalf("expected 2026-01-12, got %s", monday.AddDays(7))
	}
	if !monday.Before(monday.AddDays(1)) {
		t.Fatalf("lexical order must equal chronological order")
	}
	if _, err := ParseDate("05-01-2026"); err == nil {
		t.Fatalf("expected error for non-ISO date")
	}
}

func TestMaterialize_OneWeek(t *testing.T) {
	tpl := workweekTemplate(t)

	m, err := Materialize(tpl, BlockSet{}, monday, monday.AddDays(7))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if len(m.PerDate) != 7 {
		t.Fatalf("expected 7 dates, got %d", len(m.PerDate))
	}

	mon := m.PerDate[monday]
	if mon.State != DayOpen {
		t.Fatalf("expected Monday open, got %s", mon.State)
	}
	// 09:00-11:00 at 30 minutes.
	if len(mon.Slots) != 4 {
		t.Fatalf("expected 4 Monday slots, got %d", len(mon.Slots))
	}
	if mon.Slots[0].Booked != 0 {
		t.Fatalf("fresh slots must start unbooked")
	}

	sunday := m.PerDate[monday.AddDays(6)]
	if sunday.State != DayOff {
		t.Fatalf("expected Sunday off, got %s", sunday.State)
	}
	if len(sunday.Slots) != 0 {
		t.Fatalf("off day must have no slots, got %d", len(sunday.Slots))
	}
}

func TestMaterialize_InvertedRange(t *testing.T) {
	tpl := workweekTemplate(t)
	if _, err := Materialize(tpl, BlockSet{}, monday, monday.AddDays(-1)); err == nil {
		t.Fatalf("expected error when end precedes start")
	}
}

func TestExtend_OnlyAddsNewDates(t *testing.T) {
	tpl := workweekTemplate(t)
	m, err := Materialize(tpl, BlockSet{}, monday, monday.AddDays(7))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	// Existing state must survive an extension untouched.
	m.PerDate[monday].Slots[0].Booked = 1

	if err := m.Extend(tpl, BlockSet{}, 1); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if m.HorizonEnd != monday.AddDays(14) {
		t.Fatalf("expected end %s, got %s", monday.AddDays(14), m.HorizonEnd)
	}
	if len(m.PerDate) != 14 {
		t.Fatalf("expected 14 dates, got %d", len(m.PerDate))
	}
	if m.PerDate[monday].Slots[0].Booked != 1 {
		t.Fatalf("extension must not rebuild existing dates")
	}
	if nextMon := m.PerDate[monday.AddDays(7)]; len(nextMon.Slots) != 4 {
		t.Fatalf("expected 4 slots on the new Monday, got %d", len(nextMon.Slots))
	}
}

func TestExtend_ZeroAndNegative(t *testing.T) {
	tpl := workweekTemplate(t)
	m, err := Materialize(tpl, BlockSet{}, monday, monday.AddDays(7))
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}

	if err := m.Extend(tpl, BlockSet{}, 0); err != nil {
		t.Fatalf("zero weeks must be a no-op, got %v", err)
	}
	if m.HorizonEnd != monday.AddDays(7) {
		t.Fatalf("no-op extend moved the end to %s", m.HorizonEnd)
	}
	if err := m.Extend(tpl, BlockSet{}, -1); err == nil {
		t.Fatalf("expected error for negative weeks")
	}
}
