package model

import "time"

// Business is a bookable service business owned by a registered user.
type Business struct {
	ID        uint64    `json:"id"`       // businesses.id
	OwnerID   uint64    `json:"owner_id"` // businesses.owner_id -> users.id
	Name      string    `json:"name"`     // businesses.name
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Staff is a bookable member of a business.  Inactive staff are kept for
// historical appointments but cannot receive new bookings.
type Staff struct {
	ID         uint64 `json:"id"`          // staff.id
	BusinessID uint64 `json:"business_id"` // staff.business_id
	Name       string `json:"name"`        // staff.name
	Active     bool   `json:"active"`      // staff.is_active
}

// Service is an offering of a business with a fixed duration and price.
type Service struct {
	ID          uint64 `json:"id"`           // services.id
	BusinessID  uint64 `json:"business_id"`  // services.business_id
	Name        string `json:"name"`         // services.name
	DurationMin uint32 `json:"duration_min"` // services.duration_min
	PriceCents  uint32 `json:"price_cents"`  // services.price_cents
}

// OpeningHour describes when a business accepts bookings on one weekday.
// Open and Close are minutes from midnight; a weekday without a row means
// the business is closed that day.  MinAdvanceMin, when non-zero, is the
// minimum number of minutes between "now" and a bookable start time.
type OpeningHour struct {
	BusinessID    uint64       `json:"business_id"` // opening_hours.business_id
	Weekday       time.Weekday `json:"weekday"`     // opening_hours.weekday (0=Sunday..6)
	OpenMin       uint16       `json:"open_min"`    // opening_hours.open_min
	CloseMin      uint16       `json:"close_min"`   // opening_hours.close_min
	MinAdvanceMin uint32       `json:"min_advance_min"`
}
