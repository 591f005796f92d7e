package model

import "time"

// User represents an account in the `users` table.  A user is either a
// CUSTOMER booking appointments or the OWNER of a business.  Only the
// bcrypt hash of the password is stored.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role (CUSTOMER or OWNER)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Customer is the booking profile attached to a CUSTOMER user.
type Customer struct {
	ID     uint64 `json:"id"`      // customers.id
	UserID uint64 `json:"user_id"` // customers.user_id
	Name   string `json:"name"`    // customers.name
	Phone  string `json:"phone"`   // customers.phone
}

// RefreshToken models a row in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA-256 hex digest.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
