// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as the auth service and handlers to distinguish between
// failure scenarios without string matching: ErrEmailExists and
// ErrPhoneExists surface unique-constraint violations on signup,
// ErrSessionNotFound covers both never-existed and already-revoked
// sessions, and ErrConflict signals violated state preconditions
// (such as a checkout session that already produced a booking).
package repository

import "errors"

// ErrEmailExists is returned when an insert or update collides with
// the unique email constraint on users.
var ErrEmailExists = errors.New("email already exists")

// ErrPhoneExists is returned when an insert or update collides with
// the unique phone constraint on users.
var ErrPhoneExists = errors.New("phone number already exists")

// ErrSessionNotFound is returned when a session token resolves to no
// row, either because it never existed or because a logout deleted it.
var ErrSessionNotFound = errors.New("session does not exist")

// ErrCodeNotFound is returned when no unused verification code matches
// a lookup.
var ErrCodeNotFound = errors.New("verification code not found")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state. Handlers should translate this into an HTTP
// 409 response.
var ErrConflict = errors.New("conflict")
