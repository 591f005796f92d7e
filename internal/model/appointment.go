package model

import "time"

// Status enumerates the lifecycle states of an appointment.  The zero
// value is not a valid status; rows are always written with one of the
// constants below.  Transitions are validated through CanTransition so
// an invalid state never reaches storage.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusDone      Status = "DONE"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus converts a raw string into a Status.  It returns false
// when the string is not a member of the enum.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusDone, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// CanTransition reports whether moving from the receiver to next is a
// legal forward transition.  PENDING may become CONFIRMED or CANCELLED,
// CONFIRMED may become DONE or CANCELLED.  DONE and CANCELLED are
// terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusDone || next == StatusCancelled
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCancelled
}

// Appointment is a booked time window for a customer against a business.
// DurationMin always equals the sum of the durations of the distinct
// services in Assignments. StartTime is a UTC instant.
type Appointment struct {
	ID          uint64              `json:"id"`           // appointments.id
	CustomerID  uint64              `json:"customer_id"`  // appointments.customer_id
	BusinessID  uint64              `json:"business_id"`  // appointments.business_id
	StartTime   time.Time           `json:"start_time"`   // appointments.start_time (UTC)
	DurationMin uint32              `json:"duration_min"` // appointments.duration_min
	Status      Status              `json:"status"`       // appointments.status
	Comment     string              `json:"comment,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Assignments []ServiceAssignment `json:"assignments"`
}

// EndTime returns the exclusive end of the appointment's time window.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMin) * time.Minute)
}

// StaffIDs returns the distinct staff ids across the appointment's
// assignments, in first-seen order.
func (a *Appointment) StaffIDs() []uint64 {
	seen := make(map[uint64]struct{}, len(a.Assignments))
	ids := make([]uint64, 0, len(a.Assignments))
	for _, as := range a.Assignments {
		if _, ok := seen[as.StaffID]; ok {
			continue
		}
		seen[as.StaffID] = struct{}{}
		ids = append(ids, as.StaffID)
	}
	return ids
}

// ServiceAssignment associates one service, and the staff member
// performing it, with an appointment.  The (appointment, service, staff)
// triple is the composite key; there are no further attributes.
type ServiceAssignment struct {
	AppointmentID uint64 `json:"appointment_id"` // appointment_services.appointment_id
	ServiceID     uint64 `json:"service_id"`     // appointment_services.service_id
	StaffID       uint64 `json:"staff_id"`       // appointment_services.staff_id
}
