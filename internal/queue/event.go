// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// AppointmentBookedEvent is published when an appointment is created.
// It carries enough information for downstream consumers to notify or
// log without querying the primary database.
type AppointmentBookedEvent struct {
	AppointmentID uint64   `json:"appointment_id"`
	CustomerID    uint64   `json:"customer_id"`
	BusinessID    uint64   `json:"business_id"`
	StaffIDs      []uint64 `json:"staff_ids"`
	StartTime     string   `json:"start_time"`
	DurationMin   uint32   `json:"duration_min"`
	Status        string   `json:"status"`
	BookedAt      string   `json:"booked_at"`
}

// AppointmentCancelledEvent is published when an appointment moves to
// the CANCELLED state.
type AppointmentCancelledEvent struct {
	AppointmentID uint64 `json:"appointment_id"`
	CustomerID    uint64 `json:"customer_id"`
	BusinessID    uint64 `json:"business_id"`
	StartTime     string `json:"start_time"`
	CancelledAt   string `json:"cancelled_at"`
}
