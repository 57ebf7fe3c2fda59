package horizon

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/telecare-labs/telesched/services/availability-service/internal/schedule"
)

var testClock = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func materializedCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal := NewCalendar(workweekTemplate(t))
	if err := cal.MaterializeHorizon(monday, 2); err != nil {
		t.Fatalf("materialize horizon: %v", err)
	}
	return cal
}

func TestMaterializeHorizon_ValidatesTemplate(t *testing.T) {
	tpl, err := schedule.NewWeeklyTemplate(30)
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	cal := NewCalendar(tpl)
	if err := cal.MaterializeHorizon(monday, 2); !errors.Is(err, schedule.ErrNoActiveDays) {
		t.Fatalf("expected ErrNoActiveDays, got %v", err)
	}
}

func TestMaterializeHorizon_OnlyOnce(t *testing.T) {
	cal := materializedCalendar(t)
	if err := cal.MaterializeHorizon(monday, 1); err == nil {
		t.Fatalf("expected error on second materialization")
	}
	if cal.Horizon.HorizonEnd != monday.AddDays(14) {
		t.Fatalf("horizon end moved to %s", cal.Horizon.HorizonEnd)
	}
}

func TestBlockInterval(t *testing.T) {
	cal := materializedCalendar(t)
	day, _ := cal.DayFor(monday)
	// Book the 09:00 slot before blocking elsewhere; it must survive.
	day.Slots[0].Booked = 1

	blk, err := cal.BlockInterval(monday, mustTime(t, "10:00"), mustTime(t, "11:00"), "admin", monday, testClock)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blk.ID == "" || blk.WholeDay {
		t.Fatalf("unexpected block %+v", blk)
	}

	day, _ = cal.DayFor(monday)
	if day.State != DayPartiallyBlocked {
		t.Fatalf("expected partially_blocked, got %s", day.State)
	}
	if len(day.Slots) != 2 {
		t.Fatalf("expected 2 surviving slots, got %d", len(day.Slots))
	}
	if day.Slots[0].Start.String() != "09:00" || day.Slots[0].Booked != 1 {
		t.Fatalf("surviving slot lost its booking: %+v", day.Slots[0])
	}

	// The same weekday one week later is untouched.
	nextMon, _ := cal.DayFor(monday.AddDays(7))
	if nextMon.State != DayOpen || len(nextMon.Slots) != 4 {
		t.Fatalf("block leaked to another date: %s/%d", nextMon.State, len(nextMon.Slots))
	}
}

func TestBlockInterval_PastDate(t *testing.T) {
	cal := materializedCalendar(t)
	if _, err := cal.BlockInterval(monday, mustTime(t, "10:00"), mustTime(t, "11:00"), "", monday.AddDays(1), testClock); !errors.Is(err, ErrPastDateBlocked) {
		t.Fatalf("expected ErrPastDateBlocked, got %v", err)
	}
	if _, err := cal.BlockInterval(monday, mustTime(t, "11:00"), mustTime(t, "10:00"), "", monday, testClock); err == nil {
		t.Fatalf("expected error for inverted block")
	}
}

func TestBlockWholeDay_VersusDayOff(t *testing.T) {
	cal := materializedCalendar(t)
	blk, err := cal.BlockWholeDay(monday, "conference", monday, testClock)
	if err != nil {
		t.Fatalf("block whole day: %v", err)
	}
	if !blk.WholeDay {
		t.Fatalf("expected whole-day flag")
	}
	if blk.Start.String() != "09:00" || blk.End.String() != "11:00" {
		t.Fatalf("whole-day block should span working hours, got %s-%s", blk.Start, blk.End)
	}

	blocked, _ := cal.DayFor(monday)
	off, _ := cal.DayFor(monday.AddDays(6)) // Sunday, disabled in template
	if blocked.State != DayFullyBlocked || off.State != DayOff {
		t.Fatalf("states must differ: %s vs %s", blocked.State, off.State)
	}

	// The distinction must survive serialization.
	rawBlocked, _ := json.Marshal(blocked)
	rawOff, _ := json.Marshal(off)
	var rtBlocked, rtOff DaySlots
	if err := json.Unmarshal(rawBlocked, &rtBlocked); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal(rawOff, &rtOff); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rtBlocked.State != DayFullyBlocked || rtOff.State != DayOff {
		t.Fatalf("day state lost in round trip: %s vs %s", rtBlocked.State, rtOff.State)
	}
}

func TestUnblock_RegeneratesAndRestoresBookings(t *testing.T) {
	cal := materializedCalendar(t)
	day, _ := cal.DayFor(monday)
	day.Slots[0].Booked = 1 // 09:00

	blk, err := cal.BlockInterval(monday, mustTime(t, "10:00"), mustTime(t, "11:00"), "", monday, testClock)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := cal.Unblock(monday, blk.Start, blk.End, monday); err != nil {
		t.Fatalf("unblock: %v", err)
	}

	day, _ = cal.DayFor(monday)
	if day.State != DayOpen {
		t.Fatalf("expected open after unblock, got %s", day.State)
	}
	if len(day.Slots) != 4 {
		t.Fatalf("expected all 4 slots back, got %d", len(day.Slots))
	}
	if day.Slots[0].Booked != 1 {
		t.Fatalf("booking on 09:00 must survive the unblock")
	}
}

func TestUnblock_Errors(t *testing.T) {
	cal := materializedCalendar(t)
	if err := cal.Unblock(monday, mustTime(t, "10:00"), mustTime(t, "11:00"), monday.AddDays(1)); !errors.Is(err, ErrPastDateImmutable) {
		t.Fatalf("expected ErrPastDateImmutable, got %v", err)
	}
	if err := cal.Unblock(monday, mustTime(t, "10:00"), mustTime(t, "11:00"), monday); !errors.Is(err, ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
}

func TestOccupyAndRelease(t *testing.T) {
	cal := materializedCalendar(t)
	start := mustTime(t, "09:30")

	if err := cal.OccupySlot(monday, start, monday); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := cal.OccupySlot(monday, start, monday); !errors.Is(err, ErrSlotFullyBooked) {
		t.Fatalf("expected ErrSlotFullyBooked, got %v", err)
	}
	if err := cal.OccupySlot(monday, mustTime(t, "22:00"), monday); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
	if err := cal.OccupySlot(monday, start, monday.AddDays(1)); !errors.Is(err, ErrPastDateImmutable) {
		t.Fatalf("expected ErrPastDateImmutable, got %v", err)
	}

	if err := cal.ReleaseSlot(monday, start, monday); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Releasing an unbooked slot stays at zero.
	if err := cal.ReleaseSlot(monday, start, monday); err != nil {
		t.Fatalf("release unbooked: %v", err)
	}
	day, _ := cal.DayFor(monday)
	if day.Slots[1].Booked != 0 {
		t.Fatalf("expected booked floor at 0, got %d", day.Slots[1].Booked)
	}
}

func TestRematerialize_AppliesTemplateEdits(t *testing.T) {
	cal := materializedCalendar(t)
	if err := cal.Template.SetWorkingHours(time.Monday, mustTime(t, "09:00"), mustTime(t, "10:00")); err != nil {
		t.Fatalf("set hours: %v", err)
	}
	if err := cal.Rematerialize(monday); err != nil {
		t.Fatalf("rematerialize: %v", err)
	}
	for _, d := range []Date{monday, monday.AddDays(7)} {
		day, _ := cal.DayFor(d)
		if len(day.Slots) != 2 {
			t.Fatalf("%s: expected 2 slots after shrink, got %d", d, len(day.Slots))
		}
	}
}

func TestRematerialize_RefusesBookedSlots(t *testing.T) {
	cal := materializedCalendar(t)
	if err := cal.OccupySlot(monday.AddDays(1), mustTime(t, "09:00"), monday); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := cal.Rematerialize(monday); !errors.Is(err, ErrBookedSlots) {
		t.Fatalf("expected ErrBookedSlots, got %v", err)
	}

	if err := cal.ReleaseSlot(monday.AddDays(1), mustTime(t, "09:00"), monday); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := cal.Rematerialize(monday); err != nil {
		t.Fatalf("rematerialize after release: %v", err)
	}
}

func TestRematerialize_KeepsPastDates(t *testing.T) {
	cal := materializedCalendar(t)
	day, _ := cal.DayFor(monday)
	sentinel := len(day.Slots)

	if err := cal.Template.SetWorkingHours(time.Monday, mustTime(t, "09:00"), mustTime(t, "10:00")); err != nil {
		t.Fatalf("set hours: %v", err)
	}
	// Today is Tuesday; Monday already happened.
	if err := cal.Rematerialize(monday.AddDays(1)); err != nil {
		t.Fatalf("rematerialize: %v", err)
	}

	past, _ := cal.DayFor(monday)
	if len(past.Slots) != sentinel {
		t.Fatalf("past date was rebuilt: %d -> %d slots", sentinel, len(past.Slots))
	}
	future, _ := cal.DayFor(monday.AddDays(7))
	if len(future.Slots) != 2 {
		t.Fatalf("future date not rebuilt, got %d slots", len(future.Slots))
	}
}

func TestExtendHorizon_RequiresMaterialization(t *testing.T) {
	cal := NewCalendar(workweekTemplate(t))
	if err := cal.ExtendHorizon(1); !errors.Is(err, ErrHorizonMissing) {
		t.Fatalf("expected ErrHorizonMissing, got %v", err)
	}
	if err := cal.Rematerialize(monday); !errors.Is(err, ErrHorizonMissing) {
		t.Fatalf("expected ErrHorizonMissing, got %v", err)
	}
}

func TestBlocksSurviveExtension(t *testing.T) {
	cal := materializedCalendar(t)
	if _, err := cal.BlockWholeDay(monday.AddDays(7), "away", monday, testClock); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := cal.ExtendHorizon(2); err != nil {
		t.Fatalf("extend: %v", err)
	}
	day, _ := cal.DayFor(monday.AddDays(7))
	if day.State != DayFullyBlocked {
		t.Fatalf("block lost across extension, state %s", day.State)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	cal := materializedCalendar(t)
	cp := cal.Clone()

	if err := cp.OccupySlot(monday, mustTime(t, "09:00"), monday); err != nil {
		t.Fatalf("occupy clone: %v", err)
	}
	if _, err := cp.BlockWholeDay(monday.AddDays(1), "", monday, testClock); err != nil {
		t.Fatalf("block clone: %v", err)
	}

	day, _ := cal.DayFor(monday)
	if day.Slots[0].Booked != 0 {
		t.Fatalf("clone booking leaked into the original")
	}
	tue, _ := cal.DayFor(monday.AddDays(1))
	if tue.State != DayOpen {
		t.Fatalf("clone block leaked into the original, state %s", tue.State)
	}
	if len(cal.Blocks) != 0 {
		t.Fatalf("clone block set leaked, %d entries", len(cal.Blocks))
	}
}

func TestCalendarJSONRoundTrip(t *testing.T) {
	cal := materializedCalendar(t)
	if _, err := cal.BlockInterval(monday, mustTime(t, "10:00"), mustTime(t, "11:00"), "errand", monday, testClock); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := cal.OccupySlot(monday, mustTime(t, "09:00"), monday); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	raw, err := json.Marshal(cal)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rt Calendar
	if err := json.Unmarshal(raw, &rt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	day, ok := rt.DayFor(monday)
	if !ok {
		t.Fatalf("date missing after round trip")
	}
	if day.State != DayPartiallyBlocked || len(day.Slots) != 2 {
		t.Fatalf("state %s with %d slots after round trip", day.State, len(day.Slots))
	}
	if day.Slots[0].Booked != 1 {
		t.Fatalf("booked count lost in round trip")
	}
	if len(rt.Blocks.ForDate(monday)) != 1 {
		t.Fatalf("blocks lost in round trip")
	}
}
