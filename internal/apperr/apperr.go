// Package apperr defines the structured error type shared by the
// service and handler layers. Each error carries a Kind that handlers
// translate into an HTTP status, plus optional structured fields for
// the cases where the caller needs data to act (reverification,
// rate-limit countdowns, field-level validation problems).
package apperr

import (
    "errors"
    "fmt"
)

// Kind classifies an application error.
type Kind int

const (
    // Validation marks malformed or out-of-range input; recoverable by
    // the caller correcting the input. Fields holds per-field messages.
    Validation Kind = iota
    // Unauthorized marks a missing, expired or invalid credential.
    // Cryptographic verification failures always collapse to this kind
    // with no further detail.
    Unauthorized
    // ForbiddenReverify marks a valid identity whose session has been
    // anomaly-flagged; the caller must complete a code challenge.
    // SessionID and UserID are always set.
    ForbiddenReverify
    // NotFound marks an absent referenced entity.
    NotFound
    // Conflict marks a violated state precondition, such as advancing
    // past the terminal checkout step or a payment amount mismatch.
    Conflict
    // RateLimited tells the caller to wait RetryAfter seconds.
    RateLimited
    // Upstream marks a collaborator failure (email, payment provider).
    // Internal detail is logged, never echoed to the client.
    Upstream
)

// Error is the structured application error.
type Error struct {
    Kind       Kind
    Message    string
    Fields     map[string]string // field-level validation messages
    SessionID  uint64            // set for ForbiddenReverify
    UserID     uint64            // set for ForbiddenReverify
    RetryAfter int               // seconds, set for RateLimited
    Err        error             // wrapped cause, for logs only
}

func (e *Error) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %v", e.Message, e.Err)
    }
    return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind with a caller-facing message.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches a cause for logging while keeping the caller-facing
// message generic.
func Wrap(kind Kind, msg string, err error) *Error {
    return &Error{Kind: kind, Message: msg, Err: err}
}

// NewValidation returns a Validation error carrying per-field messages.
func NewValidation(fields map[string]string) *Error {
    return &Error{Kind: Validation, Message: "validation failed", Fields: fields}
}

// NewReverify returns the structured "forbidden, must reverify" signal
// carrying the session and user so the caller can redirect into the
// reverification flow.
func NewReverify(sessionID, userID uint64) *Error {
    return &Error{
        Kind:      ForbiddenReverify,
        Message:   "session requires verification",
        SessionID: sessionID,
        UserID:    userID,
    }
}

// NewRateLimited returns a RateLimited error with the remaining
// cooldown in seconds.
func NewRateLimited(retryAfter int) *Error {
    return &Error{Kind: RateLimited, Message: "too many requests", RetryAfter: retryAfter}
}

// From extracts an *Error from err, or nil when err is not one.
func From(err error) *Error {
    var ae *Error
    if errors.As(err, &ae) {
        return ae
    }
    return nil
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
    ae := From(err)
    return ae != nil && ae.Kind == kind
}
