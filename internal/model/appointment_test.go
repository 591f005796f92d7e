package model

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDone, false},
		{StatusPending, StatusPending, false},
		{StatusConfirmed, StatusDone, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusDone, StatusCancelled, false},
		{StatusDone, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	for _, s := range []Status{StatusDone, StatusCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus("CONFIRMED"); !ok || s != StatusConfirmed {
		t.Fatalf("ParseStatus(CONFIRMED) = %q, %v", s, ok)
	}
	if _, ok := ParseStatus("confirmed"); ok {
		t.Fatal("lowercase status should not parse")
	}
	if _, ok := ParseStatus(""); ok {
		t.Fatal("empty status should not parse")
	}
}

func TestAppointmentEndTime(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	a := Appointment{StartTime: start, DurationMin: 45}
	want := start.Add(45 * time.Minute)
	if got := a.EndTime(); !got.Equal(want) {
		t.Fatalf("EndTime() = %v, want %v", got, want)
	}
}

func TestAppointmentStaffIDs(t *testing.T) {
	a := Appointment{Assignments: []ServiceAssignment{
		{ServiceID: 1, StaffID: 7},
		{ServiceID: 2, StaffID: 7},
		{ServiceID: 3, StaffID: 9},
	}}
	ids := a.StaffIDs()
	if len(ids) != 2 || ids[0] != 7 || ids[1] != 9 {
		t.Fatalf("StaffIDs() = %v, want [7 9]", ids)
	}
}

func TestNotAvailableDateContains(t *testing.T) {
	d := NotAvailableDate{
		FromDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	}
	if !d.Contains(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)) {
		t.Error("first day of range should be contained")
	}
	if !d.Contains(time.Date(2026, 3, 4, 23, 59, 0, 0, time.UTC)) {
		t.Error("last day of range should be contained")
	}
	if d.Contains(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Error("day after range should not be contained")
	}
	if d.Contains(time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)) {
		t.Error("day before range should not be contained")
	}
}

func TestNotAvailableTimeOverlaps(t *testing.T) {
	n := NotAvailableTime{
		FromTime: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		ToTime:   time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC),
	}
	mk := func(h, m int) time.Time { return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC) }

	if !n.Overlaps(mk(12, 30), mk(13, 30)) {
		t.Error("window crossing the blackout should overlap")
	}
	// Half-open intervals: touching boundaries do not overlap.
	if n.Overlaps(mk(11, 0), mk(12, 0)) {
		t.Error("window ending at blackout start should not overlap")
	}
	if n.Overlaps(mk(13, 0), mk(14, 0)) {
		t.Error("window starting at blackout end should not overlap")
	}
}
