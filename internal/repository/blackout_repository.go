package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/salon-appointment-booking/internal/model"
)

// BlackoutRepo provides access to staff blackout windows: whole-day
// not-available date ranges and fine-grained same-day not-available
// time ranges.  The availability checker consumes both.
type BlackoutRepo struct {
	db *sql.DB
}

// NewBlackoutRepo returns a new BlackoutRepo bound to the given database.
func NewBlackoutRepo(db *sql.DB) *BlackoutRepo { return &BlackoutRepo{db: db} }

// DatesByStaff returns all not-available date ranges for a staff member
// ordered by start date.
func (r *BlackoutRepo) DatesByStaff(ctx context.Context, staffID uint64) ([]model.NotAvailableDate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, staff_id, from_date, to_date FROM not_available_dates WHERE staff_id = ? ORDER BY from_date`,
		staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.NotAvailableDate, 0)
	for rows.Next() {
		var d model.NotAvailableDate
		if err := rows.Scan(&d.ID, &d.StaffID, &d.FromDate, &d.ToDate); err != nil {
			return nil, err
		}
		d.FromDate = d.FromDate.UTC()
		d.ToDate = d.ToDate.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// TimesByStaff returns all not-available time ranges for a staff member
// ordered by start time.
func (r *BlackoutRepo) TimesByStaff(ctx context.Context, staffID uint64) ([]model.NotAvailableTime, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, staff_id, from_time, to_time FROM not_available_times WHERE staff_id = ? ORDER BY from_time`,
		staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.NotAvailableTime, 0)
	for rows.Next() {
		var n model.NotAvailableTime
		if err := rows.Scan(&n.ID, &n.StaffID, &n.FromTime, &n.ToTime); err != nil {
			return nil, err
		}
		n.FromTime = n.FromTime.UTC()
		n.ToTime = n.ToTime.UTC()
		out = append(out, n)
	}
	return out, rows.Err()
}
