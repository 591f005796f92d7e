package model

import "time"

// NotAvailableDate is a whole-day (or multi-day) blackout window for one
// staff member.  FromDate and ToDate are inclusive calendar days stored
// at midnight UTC; an appointment whose window touches any day inside
// the range is rejected.
type NotAvailableDate struct {
	ID       uint64    `json:"id"`       // not_available_dates.id
	StaffID  uint64    `json:"staff_id"` // not_available_dates.staff_id
	FromDate time.Time `json:"from_date"`
	ToDate   time.Time `json:"to_date"`
}

// Contains reports whether the instant t falls on a day covered by the
// blackout range.  Comparison is done on UTC calendar days.
func (d *NotAvailableDate) Contains(t time.Time) bool {
	day := t.UTC().Truncate(24 * time.Hour)
	from := d.FromDate.UTC().Truncate(24 * time.Hour)
	to := d.ToDate.UTC().Truncate(24 * time.Hour)
	return !day.Before(from) && !day.After(to)
}

// NotAvailableTime is a fine-grained same-day blackout window for one
// staff member, e.g. a lunch break or an external obligation.
type NotAvailableTime struct {
	ID       uint64    `json:"id"`       // not_available_times.id
	StaffID  uint64    `json:"staff_id"` // not_available_times.staff_id
	FromTime time.Time `json:"from_time"`
	ToTime   time.Time `json:"to_time"`
}

// Overlaps reports whether [start, end) intersects the blackout window
// using half-open interval semantics, so a booking that ends exactly
// when the blackout begins is allowed.
func (n *NotAvailableTime) Overlaps(start, end time.Time) bool {
	return start.Before(n.ToTime) && n.FromTime.Before(end)
}
