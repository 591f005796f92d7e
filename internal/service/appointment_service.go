package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/salon-appointment-booking/internal/model"
	"github.com/iliyamo/salon-appointment-booking/internal/repository"
)

// ValidationError marks malformed or referentially invalid input: an
// unknown business, staff or service, or an empty service set.  Field
// names the offending input.
type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string { return e.msg }

func validationError(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

// ErrNotAvailable is returned when the requested slot fails the
// business-hours, blackout or overlap checks, or lies in the past.
// Callers may retry with a different slot.
var ErrNotAvailable = fmt.Errorf("requested slot is not available: %w", repository.ErrConflict)

// ErrInvalidTransition is returned when a status change is not a legal
// forward transition.
var ErrInvalidTransition = fmt.Errorf("illegal status transition: %w", repository.ErrConflict)

// AppointmentStore is the durable write surface the pipeline commits
// to.  *repository.AppointmentRepo satisfies it; each call is one
// transaction, so the cache refresh below only ever runs after a
// committed write.
type AppointmentStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	Update(ctx context.Context, a *model.Appointment) error
	UpdateStatus(ctx context.Context, id uint64, status model.Status) (time.Time, error)
	Delete(ctx context.Context, id uint64) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (bool, error)
	GetByID(ctx context.Context, id uint64) (model.Appointment, error)
}

// Directory is the business-directory surface used for existence and
// membership validation.  *repository.BusinessRepo satisfies it.
type Directory interface {
	GetByID(ctx context.Context, id uint64) (model.Business, error)
	GetStaff(ctx context.Context, staffID uint64) (model.Staff, error)
	ServicesByIDs(ctx context.Context, ids []uint64) ([]model.Service, error)
}

// Availability is the slice of the availability checker the pipeline
// needs.
type Availability interface {
	IsStaffAvailable(ctx context.Context, staffID uint64, start time.Time, duration time.Duration, excludeAppointmentID uint64) (bool, error)
}

// ReadModel is the cache-consistent read repository.
// *cache.AppointmentCache satisfies it.
type ReadModel interface {
	GetByID(ctx context.Context, id uint64) (model.Appointment, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]model.Appointment, error)
	ListByBusiness(ctx context.Context, businessID uint64) ([]model.Appointment, error)
	ListByStaff(ctx context.Context, staffID uint64) ([]model.Appointment, error)
	ListAll(ctx context.Context) ([]model.Appointment, error)
	Refresh(ctx context.Context, appointmentID, customerID, businessID uint64, staffIDs []uint64, deleted bool)
	RefreshAll(ctx context.Context)
}

// EventPublisher emits best-effort domain events after committed
// writes.  Failures are logged by implementations and ignored here.
type EventPublisher interface {
	PublishAppointmentBooked(ctx context.Context, a model.Appointment) error
	PublishAppointmentCancelled(ctx context.Context, a model.Appointment) error
}

// AppointmentService orchestrates validation, availability checking,
// persistence and post-commit cache refresh for every appointment
// mutation, and serves reads through the cache.
//
// clientOffset is subtracted from every caller-supplied start time
// before validation and storage.  It reconciles a client display
// convention and is configured, never hard-coded, so it can be audited
// or zeroed per deployment.
type AppointmentService struct {
	store        AppointmentStore
	directory    Directory
	availability Availability
	cache        ReadModel
	lock         SlotLocker
	events       EventPublisher
	clientOffset time.Duration
	now          func() time.Time
}

// NewAppointmentService wires the pipeline.  events may be nil when no
// broker is configured; now may be nil to use the wall clock.
func NewAppointmentService(store AppointmentStore, directory Directory, availability Availability, cacheRepo ReadModel, lock SlotLocker, events EventPublisher, clientOffset time.Duration, now func() time.Time) *AppointmentService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if lock == nil {
		lock = NoopSlotLock{}
	}
	return &AppointmentService{
		store:        store,
		directory:    directory,
		availability: availability,
		cache:        cacheRepo,
		lock:         lock,
		events:       events,
		clientOffset: clientOffset,
		now:          now,
	}
}

// CreateInput carries a booking request.  ServiceIDs may contain
// duplicates; they are de-duplicated before the duration is summed.
type CreateInput struct {
	CustomerID uint64
	BusinessID uint64
	StaffID    uint64
	ServiceIDs []uint64
	StartTime  time.Time
	Comment    string
}

// Create validates the request, checks availability under the per-staff
// lock, persists the appointment with status PENDING and refreshes
// every cache scope the new row belongs to.
func (s *AppointmentService) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	staff, services, err := s.resolve(ctx, in.BusinessID, in.StaffID, in.ServiceIDs)
	if err != nil {
		return model.Appointment{}, err
	}
	total := totalDuration(services)
	if total <= 0 {
		return model.Appointment{}, validationError("service_ids", "selected services have no bookable duration")
	}
	start := in.StartTime.UTC().Add(-s.clientOffset)
	if start.Before(s.now()) {
		return model.Appointment{}, fmt.Errorf("start time %s is in the past: %w", start.Format(time.RFC3339), ErrNotAvailable)
	}

	release, err := s.lock.Acquire(ctx, staff.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	ok, err := s.availability.IsStaffAvailable(ctx, staff.ID, start, total, 0)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("availability check: %w", err)
	}
	if !ok {
		return model.Appointment{}, ErrNotAvailable
	}

	appt := model.Appointment{
		CustomerID:  in.CustomerID,
		BusinessID:  in.BusinessID,
		StartTime:   start,
		DurationMin: uint32(total / time.Minute),
		Status:      model.StatusPending,
		Comment:     in.Comment,
	}
	for _, svc := range services {
		appt.Assignments = append(appt.Assignments, model.ServiceAssignment{
			ServiceID: svc.ID,
			StaffID:   staff.ID,
		})
	}
	if err := s.store.Create(ctx, &appt); err != nil {
		return model.Appointment{}, fmt.Errorf("persist appointment: %w", err)
	}

	// The write is committed; a caller cancellation from here on must
	// not skip the refresh, or the cache stays stale for a full TTL.
	post := context.WithoutCancel(ctx)
	s.cache.Refresh(post, appt.ID, appt.CustomerID, appt.BusinessID, appt.StaffIDs(), false)
	if s.events != nil {
		if err := s.events.PublishAppointmentBooked(post, appt); err != nil {
			log.Printf("appointments: publish booked event for id=%d failed: %v", appt.ID, err)
		}
	}
	return appt, nil
}

// UpdateInput carries a rebooking request for an existing appointment.
// Customer and business are immutable; time, comment, staff and the
// service set are replaced wholesale.
type UpdateInput struct {
	StaffID    uint64
	ServiceIDs []uint64
	StartTime  time.Time
	Comment    string
}

// Update re-validates and re-checks availability exactly as Create,
// excluding the appointment's own id from the overlap check, then
// replaces the stored time, comment and assignment set.  The cache
// refresh covers the staff assigned both before and after the change.
func (s *AppointmentService) Update(ctx context.Context, id uint64, in UpdateInput) (model.Appointment, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if existing.Status.Terminal() {
		return model.Appointment{}, fmt.Errorf("appointment %d is %s: %w", id, existing.Status, ErrInvalidTransition)
	}
	staff, services, err := s.resolve(ctx, existing.BusinessID, in.StaffID, in.ServiceIDs)
	if err != nil {
		return model.Appointment{}, err
	}
	total := totalDuration(services)
	if total <= 0 {
		return model.Appointment{}, validationError("service_ids", "selected services have no bookable duration")
	}
	start := in.StartTime.UTC().Add(-s.clientOffset)
	if start.Before(s.now()) {
		return model.Appointment{}, fmt.Errorf("start time %s is in the past: %w", start.Format(time.RFC3339), ErrNotAvailable)
	}

	release, err := s.lock.Acquire(ctx, staff.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	ok, err := s.availability.IsStaffAvailable(ctx, staff.ID, start, total, id)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("availability check: %w", err)
	}
	if !ok {
		return model.Appointment{}, ErrNotAvailable
	}

	updated := existing
	updated.StartTime = start
	updated.DurationMin = uint32(total / time.Minute)
	updated.Comment = in.Comment
	updated.Assignments = nil
	for _, svc := range services {
		updated.Assignments = append(updated.Assignments, model.ServiceAssignment{
			AppointmentID: id,
			ServiceID:     svc.ID,
			StaffID:       staff.ID,
		})
	}
	if err := s.store.Update(ctx, &updated); err != nil {
		return model.Appointment{}, fmt.Errorf("persist appointment update: %w", err)
	}

	s.cache.Refresh(context.WithoutCancel(ctx), id, updated.CustomerID, updated.BusinessID,
		unionStaff(existing.StaffIDs(), updated.StaffIDs()), false)
	return updated, nil
}

// UpdateStatus applies a status-only transition.  It does not re-run
// availability checks and touches only status and updated_at.  Illegal
// transitions are rejected before any write.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id uint64, next model.Status) (model.Appointment, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if !existing.Status.CanTransition(next) {
		return model.Appointment{}, fmt.Errorf("cannot move %s to %s: %w", existing.Status, next, ErrInvalidTransition)
	}
	updatedAt, err := s.store.UpdateStatus(ctx, id, next)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("persist status change: %w", err)
	}
	existing.Status = next
	existing.UpdatedAt = updatedAt

	post := context.WithoutCancel(ctx)
	s.cache.Refresh(post, id, existing.CustomerID, existing.BusinessID, existing.StaffIDs(), false)
	if next == model.StatusCancelled && s.events != nil {
		if err := s.events.PublishAppointmentCancelled(post, existing); err != nil {
			log.Printf("appointments: publish cancelled event for id=%d failed: %v", id, err)
		}
	}
	return existing, nil
}

// Delete hard-deletes an appointment and its assignments, then drops
// or patches every cache scope that could still contain it.
func (s *AppointmentService) Delete(ctx context.Context, id uint64) error {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Refresh(context.WithoutCancel(ctx), id, existing.CustomerID, existing.BusinessID, existing.StaffIDs(), true)
	return nil
}

// DeleteBefore removes every appointment starting before the cutoff.
// It returns whether anything was deleted; an empty sweep is not an
// error and leaves the cache untouched.
func (s *AppointmentService) DeleteBefore(ctx context.Context, cutoff time.Time) (bool, error) {
	deleted, err := s.store.DeleteBefore(ctx, cutoff.UTC())
	if err != nil {
		return false, err
	}
	if deleted {
		s.cache.RefreshAll(context.WithoutCancel(ctx))
	}
	return deleted, nil
}

// Read operations delegate to the cache read model.

func (s *AppointmentService) GetByID(ctx context.Context, id uint64) (model.Appointment, error) {
	return s.cache.GetByID(ctx, id)
}

func (s *AppointmentService) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Appointment, error) {
	return s.cache.ListByCustomer(ctx, customerID)
}

func (s *AppointmentService) ListByBusiness(ctx context.Context, businessID uint64) ([]model.Appointment, error) {
	return s.cache.ListByBusiness(ctx, businessID)
}

func (s *AppointmentService) ListByStaff(ctx context.Context, staffID uint64) ([]model.Appointment, error) {
	return s.cache.ListByStaff(ctx, staffID)
}

func (s *AppointmentService) ListAll(ctx context.Context) ([]model.Appointment, error) {
	return s.cache.ListAll(ctx)
}

// resolve validates business existence, staff membership and service
// membership, returning the staff row and the de-duplicated services.
func (s *AppointmentService) resolve(ctx context.Context, businessID, staffID uint64, serviceIDs []uint64) (model.Staff, []model.Service, error) {
	if _, err := s.directory.GetByID(ctx, businessID); err != nil {
		if errorsIsNotFound(err) {
			return model.Staff{}, nil, validationError("business_id", fmt.Sprintf("business %d does not exist", businessID))
		}
		return model.Staff{}, nil, err
	}
	staff, err := s.directory.GetStaff(ctx, staffID)
	if err != nil {
		if errorsIsNotFound(err) {
			return model.Staff{}, nil, validationError("staff_id", fmt.Sprintf("staff %d does not exist", staffID))
		}
		return model.Staff{}, nil, err
	}
	if staff.BusinessID != businessID {
		return model.Staff{}, nil, validationError("staff_id", fmt.Sprintf("staff %d does not belong to business %d", staffID, businessID))
	}
	if !staff.Active {
		return model.Staff{}, nil, validationError("staff_id", fmt.Sprintf("staff %d is not bookable", staffID))
	}

	deduped := dedupeIDs(serviceIDs)
	if len(deduped) == 0 {
		return model.Staff{}, nil, validationError("service_ids", "at least one service is required")
	}
	services, err := s.directory.ServicesByIDs(ctx, deduped)
	if err != nil {
		return model.Staff{}, nil, err
	}
	found := make(map[uint64]model.Service, len(services))
	for _, svc := range services {
		found[svc.ID] = svc
	}
	resolved := make([]model.Service, 0, len(deduped))
	for _, id := range deduped {
		svc, ok := found[id]
		if !ok {
			return model.Staff{}, nil, validationError("service_ids", fmt.Sprintf("service %d does not exist", id))
		}
		if svc.BusinessID != businessID {
			return model.Staff{}, nil, validationError("service_ids", fmt.Sprintf("service %d is not offered by business %d", id, businessID))
		}
		resolved = append(resolved, svc)
	}
	return staff, resolved, nil
}

func totalDuration(services []model.Service) time.Duration {
	var total time.Duration
	for _, svc := range services {
		total += time.Duration(svc.DurationMin) * time.Minute
	}
	return total
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func unionStaff(a, b []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(a)+len(b))
	out := make([]uint64, 0, len(a)+len(b))
	for _, id := range append(append([]uint64{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
