package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/salon-appointment-booking/internal/model"
)

// BusinessRepo provides read access to the business directory: the
// businesses themselves, their staff, their service offerings and their
// opening hours.  The booking engine only needs existence and
// membership lookups, so the write surface is limited to what the owner
// endpoints use.
type BusinessRepo struct {
	db *sql.DB
}

// NewBusinessRepo returns a new BusinessRepo bound to the given database.
func NewBusinessRepo(db *sql.DB) *BusinessRepo { return &BusinessRepo{db: db} }

// GetByID returns one business or ErrNotFound.
func (r *BusinessRepo) GetByID(ctx context.Context, id uint64) (model.Business, error) {
	var b model.Business
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM businesses WHERE id = ?`,
		id).Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Business{}, ErrNotFound
	}
	return b, err
}

// ListAll returns every business ordered by name.  Used by the public
// browse endpoint.
func (r *BusinessRepo) ListAll(ctx context.Context) ([]model.Business, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at, updated_at FROM businesses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Business, 0)
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// StaffByBusiness returns the staff of a business ordered by name.
// When activeOnly is set, inactive staff are filtered out.
func (r *BusinessRepo) StaffByBusiness(ctx context.Context, businessID uint64, activeOnly bool) ([]model.Staff, error) {
	q := `SELECT id, business_id, name, is_active FROM staff WHERE business_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Staff, 0)
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Active); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetStaff returns one staff member or ErrNotFound.
func (r *BusinessRepo) GetStaff(ctx context.Context, staffID uint64) (model.Staff, error) {
	var s model.Staff
	err := r.db.QueryRowContext(ctx,
		`SELECT id, business_id, name, is_active FROM staff WHERE id = ?`,
		staffID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Staff{}, ErrNotFound
	}
	return s, err
}

// ServicesByBusiness returns the offerings of a business ordered by name.
func (r *BusinessRepo) ServicesByBusiness(ctx context.Context, businessID uint64) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, business_id, name, duration_min, price_cents FROM services WHERE business_id = ? ORDER BY name`,
		businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Service, 0)
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMin, &s.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ServicesByIDs returns the services matching the given ids in one
// query.  Ids that do not exist are simply absent from the result; the
// caller decides whether that is an error.
func (r *BusinessRepo) ServicesByIDs(ctx context.Context, ids []uint64) ([]model.Service, error) {
	if len(ids) == 0 {
		return []model.Service{}, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT id, business_id, name, duration_min, price_cents FROM services
	      WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Service, 0, len(ids))
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMin, &s.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// OpeningHourFor returns the opening-hours row of a business for one
// weekday.  A missing row means the business is closed that day and is
// reported as ErrNotFound.
func (r *BusinessRepo) OpeningHourFor(ctx context.Context, businessID uint64, weekday time.Weekday) (model.OpeningHour, error) {
	var oh model.OpeningHour
	var wd int
	err := r.db.QueryRowContext(ctx,
		`SELECT business_id, weekday, open_min, close_min, min_advance_min FROM opening_hours WHERE business_id = ? AND weekday = ?`,
		businessID, int(weekday)).Scan(&oh.BusinessID, &wd, &oh.OpenMin, &oh.CloseMin, &oh.MinAdvanceMin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OpeningHour{}, ErrNotFound
	}
	oh.Weekday = time.Weekday(wd)
	return oh, err
}
