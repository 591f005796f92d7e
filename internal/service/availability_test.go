package service

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/salon-appointment-booking/internal/model"
	"github.com/iliyamo/salon-appointment-booking/internal/repository"
)

// fakeDirectory serves staff rows and opening hours from maps.  A
// missing weekday means the business is closed, mirroring the
// repository's ErrNotFound contract.
type fakeDirectory struct {
	staff map[uint64]model.Staff
	hours map[time.Weekday]model.OpeningHour
}

func (f *fakeDirectory) GetStaff(_ context.Context, id uint64) (model.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return model.Staff{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeDirectory) OpeningHourFor(_ context.Context, _ uint64, wd time.Weekday) (model.OpeningHour, error) {
	oh, ok := f.hours[wd]
	if !ok {
		return model.OpeningHour{}, repository.ErrNotFound
	}
	return oh, nil
}

type fakeBlackouts struct {
	dates []model.NotAvailableDate
	times []model.NotAvailableTime
}

func (f *fakeBlackouts) DatesByStaff(_ context.Context, staffID uint64) ([]model.NotAvailableDate, error) {
	out := []model.NotAvailableDate{}
	for _, d := range f.dates {
		if d.StaffID == staffID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeBlackouts) TimesByStaff(_ context.Context, staffID uint64) ([]model.NotAvailableTime, error) {
	out := []model.NotAvailableTime{}
	for _, n := range f.times {
		if n.StaffID == staffID {
			out = append(out, n)
		}
	}
	return out, nil
}

// fakeOverlaps applies the same predicate the SQL query does: half-open
// window intersection, cancelled rows excluded, one id optionally
// skipped.
type fakeOverlaps struct {
	appts map[uint64][]model.Appointment // staff id -> appointments
}

func (f *fakeOverlaps) ListOverlapping(_ context.Context, staffID uint64, start, end time.Time, excludeID uint64) ([]model.Appointment, error) {
	out := []model.Appointment{}
	for _, a := range f.appts[staffID] {
		if a.ID == excludeID || a.Status == model.StatusCancelled {
			continue
		}
		if a.StartTime.Before(end) && a.EndTime().After(start) {
			out = append(out, a)
		}
	}
	return out, nil
}

const (
	staffAnn  uint64 = 1
	staffIdle uint64 = 2
)

// testWorld builds a checker around one active staff member working
// 09:00-17:00 every day, with a fixed clock at midnight on March 1st.
func testWorld() (*AvailabilityChecker, *fakeDirectory, *fakeBlackouts, *fakeOverlaps) {
	dir := &fakeDirectory{
		staff: map[uint64]model.Staff{
			staffAnn:  {ID: staffAnn, BusinessID: 10, Name: "Ann", Active: true},
			staffIdle: {ID: staffIdle, BusinessID: 10, Name: "Idle", Active: false},
		},
		hours: map[time.Weekday]model.OpeningHour{},
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		dir.hours[wd] = model.OpeningHour{BusinessID: 10, Weekday: wd, OpenMin: 9 * 60, CloseMin: 17 * 60}
	}
	blk := &fakeBlackouts{}
	ov := &fakeOverlaps{appts: map[uint64][]model.Appointment{}}
	now := func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return NewAvailabilityChecker(dir, blk, ov, now), dir, blk, ov
}

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func check(t *testing.T, ac *AvailabilityChecker, staffID uint64, start time.Time, dur time.Duration, exclude uint64, want bool) {
	t.Helper()
	got, err := ac.IsStaffAvailable(context.Background(), staffID, start, dur, exclude)
	if err != nil {
		t.Fatalf("IsStaffAvailable: %v", err)
	}
	if got != want {
		t.Fatalf("IsStaffAvailable(start=%v dur=%v) = %v, want %v", start, dur, got, want)
	}
}

func TestAvailabilityOpenSlot(t *testing.T) {
	ac, _, _, _ := testWorld()
	check(t, ac, staffAnn, at(2, 10, 0), time.Hour, 0, true)
}

func TestAvailabilityInactiveStaff(t *testing.T) {
	ac, _, _, _ := testWorld()
	check(t, ac, staffIdle, at(2, 10, 0), time.Hour, 0, false)
}

func TestAvailabilityUnknownStaff(t *testing.T) {
	ac, _, _, _ := testWorld()
	if _, err := ac.IsStaffAvailable(context.Background(), 99, at(2, 10, 0), time.Hour, 0); err == nil {
		t.Fatal("expected error for unknown staff")
	}
}

func TestAvailabilityClosedWeekday(t *testing.T) {
	ac, dir, _, _ := testWorld()
	delete(dir.hours, at(2, 0, 0).Weekday())
	check(t, ac, staffAnn, at(2, 10, 0), time.Hour, 0, false)
}

func TestAvailabilityOutsideOpeningHours(t *testing.T) {
	ac, _, _, _ := testWorld()
	check(t, ac, staffAnn, at(2, 8, 0), time.Hour, 0, false)   // before open
	check(t, ac, staffAnn, at(2, 16, 30), time.Hour, 0, false) // runs past close
	check(t, ac, staffAnn, at(2, 16, 0), time.Hour, 0, true)   // ends exactly at close
	check(t, ac, staffAnn, at(2, 9, 0), time.Hour, 0, true)    // starts exactly at open
}

func TestAvailabilityMinAdvanceHorizon(t *testing.T) {
	ac, dir, _, _ := testWorld()
	wd := at(1, 0, 0).Weekday()
	oh := dir.hours[wd]
	oh.MinAdvanceMin = 12 * 60 // half a day of notice
	dir.hours[wd] = oh
	// Clock is midnight March 1st; 10:00 the same day is inside the horizon.
	check(t, ac, staffAnn, at(1, 10, 0), time.Hour, 0, false)
	check(t, ac, staffAnn, at(1, 14, 0), time.Hour, 0, true)
}

func TestAvailabilityDateBlackout(t *testing.T) {
	ac, _, blk, _ := testWorld()
	blk.dates = append(blk.dates, model.NotAvailableDate{
		StaffID:  staffAnn,
		FromDate: at(3, 0, 0),
		ToDate:   at(4, 0, 0),
	})
	check(t, ac, staffAnn, at(3, 10, 0), time.Hour, 0, false)
	check(t, ac, staffAnn, at(4, 10, 0), time.Hour, 0, false)
	check(t, ac, staffAnn, at(5, 10, 0), time.Hour, 0, true)
	check(t, ac, staffAnn, at(2, 10, 0), time.Hour, 0, true)
}

func TestAvailabilityTimeBlackout(t *testing.T) {
	ac, _, blk, _ := testWorld()
	blk.times = append(blk.times, model.NotAvailableTime{
		StaffID:  staffAnn,
		FromTime: at(2, 12, 0),
		ToTime:   at(2, 13, 0),
	})
	check(t, ac, staffAnn, at(2, 12, 30), time.Hour, 0, false)
	check(t, ac, staffAnn, at(2, 11, 30), time.Hour, 0, false)
	// Touching boundaries are fine under half-open semantics.
	check(t, ac, staffAnn, at(2, 11, 0), time.Hour, 0, true)
	check(t, ac, staffAnn, at(2, 13, 0), time.Hour, 0, true)
}

func TestAvailabilityOverlap(t *testing.T) {
	ac, _, _, ov := testWorld()
	ov.appts[staffAnn] = []model.Appointment{
		{ID: 50, StartTime: at(2, 10, 0), DurationMin: 60, Status: model.StatusConfirmed},
	}
	check(t, ac, staffAnn, at(2, 10, 30), time.Hour, 0, false)
	check(t, ac, staffAnn, at(2, 9, 30), time.Hour, 0, false)
	// Back-to-back bookings are allowed.
	check(t, ac, staffAnn, at(2, 11, 0), time.Hour, 0, true)
	check(t, ac, staffAnn, at(2, 9, 0), time.Hour, 0, true)
}

func TestAvailabilityExcludesOwnAppointment(t *testing.T) {
	ac, _, _, ov := testWorld()
	ov.appts[staffAnn] = []model.Appointment{
		{ID: 50, StartTime: at(2, 10, 0), DurationMin: 60, Status: model.StatusConfirmed},
	}
	// Rebooking appointment 50 onto an overlapping slot must not
	// collide with itself.
	check(t, ac, staffAnn, at(2, 10, 30), time.Hour, 50, true)
	check(t, ac, staffAnn, at(2, 10, 30), time.Hour, 51, false)
}

func TestAvailabilityIgnoresCancelled(t *testing.T) {
	ac, _, _, ov := testWorld()
	ov.appts[staffAnn] = []model.Appointment{
		{ID: 50, StartTime: at(2, 10, 0), DurationMin: 60, Status: model.StatusCancelled},
	}
	check(t, ac, staffAnn, at(2, 10, 0), time.Hour, 0, true)
}
