// Package repository implements SQL data access for the booking engine.
// Sentinel errors defined here are shared across repositories so higher
// layers can distinguish failure scenarios with errors.Is without
// depending on database/sql directly.
package repository

import "errors"

// ErrNotFound is returned when a lookup targets a row that does not
// exist. Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by someone else. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state, such as two requests racing for the same slot.
// Handlers translate this into 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidStatus is returned when a status string outside the
// Appointment enum would reach storage.
var ErrInvalidStatus = errors.New("invalid appointment status")

// ErrEmailExists is returned by the user repository when registering a
// duplicate email address.
var ErrEmailExists = errors.New("email already exists")
