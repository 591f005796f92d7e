// Package service implements the booking engine: availability checking,
// appointment aggregate construction and the write pipeline that keeps
// the durable store and the cache read model consistent.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/salon-appointment-booking/internal/model"
	"github.com/iliyamo/salon-appointment-booking/internal/repository"
)

// StaffDirectory resolves staff membership.  *repository.BusinessRepo
// satisfies it.
type StaffDirectory interface {
	GetStaff(ctx context.Context, staffID uint64) (model.Staff, error)
	OpeningHourFor(ctx context.Context, businessID uint64, weekday time.Weekday) (model.OpeningHour, error)
}

// BlackoutSource supplies staff blackout windows.
// *repository.BlackoutRepo satisfies it.
type BlackoutSource interface {
	DatesByStaff(ctx context.Context, staffID uint64) ([]model.NotAvailableDate, error)
	TimesByStaff(ctx context.Context, staffID uint64) ([]model.NotAvailableTime, error)
}

// OverlapSource lists committed appointments that intersect a window.
// *repository.AppointmentRepo satisfies it.
type OverlapSource interface {
	ListOverlapping(ctx context.Context, staffID uint64, start, end time.Time, excludeID uint64) ([]model.Appointment, error)
}

// AvailabilityChecker decides whether a staff member can take a booking
// of a given duration at a given start time.  The staff availability
// window is recomputed on every check from the business opening hours,
// the staff blackout ranges and the staff's existing non-cancelled
// appointments; nothing derived is persisted.
type AvailabilityChecker struct {
	directory StaffDirectory
	blackouts BlackoutSource
	overlaps  OverlapSource
	now       func() time.Time
}

// NewAvailabilityChecker wires the checker.  now may be nil, in which
// case the wall clock is used; tests inject a fixed clock.
func NewAvailabilityChecker(directory StaffDirectory, blackouts BlackoutSource, overlaps OverlapSource, now func() time.Time) *AvailabilityChecker {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AvailabilityChecker{directory: directory, blackouts: blackouts, overlaps: overlaps, now: now}
}

// IsStaffAvailable reports whether [start, start+duration) is bookable
// for the staff member.  excludeAppointmentID, when non-zero, removes
// one appointment from the overlap check so an update does not collide
// with itself.  Durations are validated upstream; callers never pass
// zero here.
//
// The window is rejected when the business has no opening-hours row for
// the weekday, when it falls outside open/close bounds, when it starts
// before the business's minimum advance-booking horizon, when it
// touches a blackout range, or when it overlaps an existing
// non-cancelled appointment (half-open intervals, so a booking that
// starts exactly when another ends is allowed).
func (ac *AvailabilityChecker) IsStaffAvailable(ctx context.Context, staffID uint64, start time.Time, duration time.Duration, excludeAppointmentID uint64) (bool, error) {
	start = start.UTC()
	end := start.Add(duration)

	staff, err := ac.directory.GetStaff(ctx, staffID)
	if err != nil {
		return false, err
	}
	if !staff.Active {
		return false, nil
	}

	oh, err := ac.directory.OpeningHourFor(ctx, staff.BusinessID, start.Weekday())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil // closed that day
		}
		return false, err
	}
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	open := dayStart.Add(time.Duration(oh.OpenMin) * time.Minute)
	close := dayStart.Add(time.Duration(oh.CloseMin) * time.Minute)
	if start.Before(open) || end.After(close) {
		return false, nil
	}

	if oh.MinAdvanceMin > 0 {
		horizon := ac.now().Add(time.Duration(oh.MinAdvanceMin) * time.Minute)
		if start.Before(horizon) {
			return false, nil
		}
	}

	dates, err := ac.blackouts.DatesByStaff(ctx, staffID)
	if err != nil {
		return false, err
	}
	for _, d := range dates {
		// The last covered instant is end-1ns; a window ending exactly at
		// midnight does not touch the next day.
		if d.Contains(start) || d.Contains(end.Add(-time.Nanosecond)) {
			return false, nil
		}
	}

	times, err := ac.blackouts.TimesByStaff(ctx, staffID)
	if err != nil {
		return false, err
	}
	for _, n := range times {
		if n.Overlaps(start, end) {
			return false, nil
		}
	}

	existing, err := ac.overlaps.ListOverlapping(ctx, staffID, start, end, excludeAppointmentID)
	if err != nil {
		return false, err
	}
	return len(existing) == 0, nil
}
