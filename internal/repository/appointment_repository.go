package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/salon-appointment-booking/internal/model"
)

// AppointmentRepo provides CRUD operations for appointments and their
// service assignments.  An appointment groups one or more services for a
// customer at a business; assignments are stored in the
// appointment_services table.  All timestamp columns are stored in UTC.
type AppointmentRepo struct {
	db *sql.DB
}

// NewAppointmentRepo returns a new AppointmentRepo bound to the given database.
func NewAppointmentRepo(db *sql.DB) *AppointmentRepo { return &AppointmentRepo{db: db} }

// DB exposes the underlying pool so callers can open transactions that
// span appointment rows and their assignments.
func (r *AppointmentRepo) DB() *sql.DB { return r.db }

const appointmentColumns = `id, customer_id, business_id, start_time, duration_min, status, comment, created_at, updated_at`

// scanAppointment reads one appointment row from a *sql.Row or *sql.Rows
// scanner into a model.Appointment.  Assignments are not populated here.
func scanAppointment(scan func(dest ...any) error) (model.Appointment, error) {
	var a model.Appointment
	var status string
	var comment sql.NullString
	if err := scan(&a.ID, &a.CustomerID, &a.BusinessID, &a.StartTime, &a.DurationMin,
		&status, &comment, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Appointment{}, err
	}
	st, ok := model.ParseStatus(status)
	if !ok {
		return model.Appointment{}, ErrInvalidStatus
	}
	a.Status = st
	if comment.Valid {
		a.Comment = comment.String
	}
	a.StartTime = a.StartTime.UTC()
	return a, nil
}

// CreateTx inserts a new appointment and its service assignments within
// the scope of an existing transaction.  It populates the generated ID
// and the database-assigned timestamps on the provided appointment.  The
// caller must commit or rollback the transaction.
func (r *AppointmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Appointment) error {
	if _, ok := model.ParseStatus(string(a.Status)); !ok {
		return ErrInvalidStatus
	}
	const q = `INSERT INTO appointments (customer_id, business_id, start_time, duration_min, status, comment) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, a.CustomerID, a.BusinessID, a.StartTime.UTC(), a.DurationMin, string(a.Status), nullString(a.Comment))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	if err := r.insertAssignmentsTx(ctx, tx, a.ID, a.Assignments); err != nil {
		return err
	}
	// Read back timestamps and defaults assigned by the database.
	const sel = `SELECT created_at, updated_at FROM appointments WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, a.ID).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// UpdateTx replaces the mutable fields of an appointment (start time,
// duration, comment) and its full assignment set within a transaction.
// Status is not touched here; use UpdateStatusTx.  Returns ErrNotFound
// when no row matches the id.
func (r *AppointmentRepo) UpdateTx(ctx context.Context, tx *sql.Tx, a *model.Appointment) error {
	const q = `UPDATE appointments SET start_time = ?, duration_min = ?, comment = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, a.StartTime.UTC(), a.DurationMin, nullString(a.Comment), a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL also reports 0 when nothing changed; confirm existence.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM appointments WHERE id = ?`, a.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM appointment_services WHERE appointment_id = ?`, a.ID); err != nil {
		return err
	}
	if err := r.insertAssignmentsTx(ctx, tx, a.ID, a.Assignments); err != nil {
		return err
	}
	return tx.QueryRowContext(ctx, `SELECT updated_at FROM appointments WHERE id = ?`, a.ID).Scan(&a.UpdatedAt)
}

// UpdateStatusTx sets only the status and updated_at columns and
// returns the new updated_at.  The status value must be a member of the
// enum; transition legality is the service layer's concern.
func (r *AppointmentRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.Status) (time.Time, error) {
	if _, ok := model.ParseStatus(string(status)); !ok {
		return time.Time{}, ErrInvalidStatus
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`,
		string(status), id)
	if err != nil {
		return time.Time{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, err
	}
	if n == 0 {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM appointments WHERE id = ?`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return time.Time{}, ErrNotFound
			}
			return time.Time{}, err
		}
	}
	var updatedAt time.Time
	if err := tx.QueryRowContext(ctx, `SELECT updated_at FROM appointments WHERE id = ?`, id).Scan(&updatedAt); err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

// DeleteTx hard-deletes an appointment and its assignments.  Assignments
// go first so the delete never leaves orphaned join rows even without a
// foreign-key cascade.  Returns ErrNotFound when the id does not exist.
func (r *AppointmentRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM appointment_services WHERE appointment_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBeforeTx removes every appointment whose start time is strictly
// before the cutoff, along with their assignments.  It returns true when
// at least one appointment was deleted; an empty sweep is not an error.
func (r *AppointmentRepo) DeleteBeforeTx(ctx context.Context, tx *sql.Tx, cutoff time.Time) (bool, error) {
	const delAssign = `DELETE aps FROM appointment_services aps
	                   JOIN appointments a ON a.id = aps.appointment_id
	                   WHERE a.start_time < ?`
	if _, err := tx.ExecContext(ctx, delAssign, cutoff.UTC()); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM appointments WHERE start_time < ?`, cutoff.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID returns one appointment with its assignments populated, or
// ErrNotFound.
func (r *AppointmentRepo) GetByID(ctx context.Context, id uint64) (model.Appointment, error) {
	const q = `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	a, err := scanAppointment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Appointment{}, ErrNotFound
		}
		return model.Appointment{}, err
	}
	assignments, err := r.assignmentsFor(ctx, []uint64{a.ID})
	if err != nil {
		return model.Appointment{}, err
	}
	a.Assignments = assignments[a.ID]
	return a, nil
}

// ListByCustomer returns all appointments for a customer, newest start
// time first, with assignments populated.  An empty result is a valid
// empty slice, not an error.
func (r *AppointmentRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Appointment, error) {
	const q = `SELECT ` + appointmentColumns + ` FROM appointments WHERE customer_id = ? ORDER BY start_time DESC`
	return r.list(ctx, q, customerID)
}

// ListByBusiness returns all appointments booked at a business, newest
// start time first.
func (r *AppointmentRepo) ListByBusiness(ctx context.Context, businessID uint64) ([]model.Appointment, error) {
	const q = `SELECT ` + appointmentColumns + ` FROM appointments WHERE business_id = ? ORDER BY start_time DESC`
	return r.list(ctx, q, businessID)
}

// ListByStaff returns all appointments that have at least one service
// assigned to the given staff member, newest start time first.
func (r *AppointmentRepo) ListByStaff(ctx context.Context, staffID uint64) ([]model.Appointment, error) {
	const q = `SELECT DISTINCT a.id, a.customer_id, a.business_id, a.start_time, a.duration_min, a.status, a.comment, a.created_at, a.updated_at
	           FROM appointments a
	           JOIN appointment_services aps ON aps.appointment_id = a.id
	           WHERE aps.staff_id = ?
	           ORDER BY a.start_time DESC`
	return r.list(ctx, q, staffID)
}

// ListAll returns every appointment, newest start time first.  Used by
// the global cache scope.
func (r *AppointmentRepo) ListAll(ctx context.Context) ([]model.Appointment, error) {
	const q = `SELECT ` + appointmentColumns + ` FROM appointments ORDER BY start_time DESC`
	return r.list(ctx, q)
}

// ListOverlapping returns non-cancelled appointments for a staff member
// whose window intersects [start, end) using half-open semantics, so an
// appointment ending exactly at start does not count.  excludeID, when
// non-zero, removes one appointment from consideration (used when
// re-checking availability for an update).  Assignments are not
// populated; callers only need the time windows.
func (r *AppointmentRepo) ListOverlapping(ctx context.Context, staffID uint64, start, end time.Time, excludeID uint64) ([]model.Appointment, error) {
	const q = `SELECT DISTINCT a.id, a.customer_id, a.business_id, a.start_time, a.duration_min, a.status, a.comment, a.created_at, a.updated_at
	           FROM appointments a
	           JOIN appointment_services aps ON aps.appointment_id = a.id
	           WHERE aps.staff_id = ?
	             AND a.status <> 'CANCELLED'
	             AND a.id <> ?
	             AND a.start_time < ?
	             AND DATE_ADD(a.start_time, INTERVAL a.duration_min MINUTE) > ?
	           ORDER BY a.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, staffID, excludeID, end.UTC(), start.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	appts := make([]model.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// list runs a query returning appointment rows and populates the
// assignments for every result in a single follow-up query.
func (r *AppointmentRepo) list(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	appts := make([]model.Appointment, 0)
	ids := make([]uint64, 0)
	for rows.Next() {
		a, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return appts, nil
	}
	assignments, err := r.assignmentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range appts {
		appts[i].Assignments = assignments[appts[i].ID]
	}
	return appts, nil
}

// assignmentsFor loads the service assignments for a set of appointment
// ids in one query and groups them by appointment.
func (r *AppointmentRepo) assignmentsFor(ctx context.Context, ids []uint64) (map[uint64][]model.ServiceAssignment, error) {
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `SELECT appointment_id, service_id, staff_id FROM appointment_services
	      WHERE appointment_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY appointment_id, service_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.ServiceAssignment, len(ids))
	for rows.Next() {
		var as model.ServiceAssignment
		if err := rows.Scan(&as.AppointmentID, &as.ServiceID, &as.StaffID); err != nil {
			return nil, err
		}
		out[as.AppointmentID] = append(out[as.AppointmentID], as)
	}
	return out, rows.Err()
}

// insertAssignmentsTx bulk-inserts assignment rows for one appointment.
// Passing an empty slice has no effect and returns nil.
func (r *AppointmentRepo) insertAssignmentsTx(ctx context.Context, tx *sql.Tx, appointmentID uint64, assignments []model.ServiceAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	query := `INSERT INTO appointment_services (appointment_id, service_id, staff_id) VALUES `
	args := make([]any, 0, len(assignments)*3)
	for i, as := range assignments {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, appointmentID, as.ServiceID, as.StaffID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Create runs CreateTx inside its own transaction.  The deferred
// rollback is a no-op once the transaction committed.
func (r *AppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	return r.inTx(ctx, func(tx *sql.Tx) error { return r.CreateTx(ctx, tx, a) })
}

// Update runs UpdateTx inside its own transaction.
func (r *AppointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	return r.inTx(ctx, func(tx *sql.Tx) error { return r.UpdateTx(ctx, tx, a) })
}

// UpdateStatus runs UpdateStatusTx inside its own transaction.
func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uint64, status model.Status) (time.Time, error) {
	var updatedAt time.Time
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		updatedAt, err = r.UpdateStatusTx(ctx, tx, id, status)
		return err
	})
	return updatedAt, err
}

// Delete runs DeleteTx inside its own transaction.
func (r *AppointmentRepo) Delete(ctx context.Context, id uint64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error { return r.DeleteTx(ctx, tx, id) })
}

// DeleteBefore runs DeleteBeforeTx inside its own transaction.
func (r *AppointmentRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (bool, error) {
	var deleted bool
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = r.DeleteBeforeTx(ctx, tx, cutoff)
		return err
	})
	return deleted, err
}

func (r *AppointmentRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
