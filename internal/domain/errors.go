package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrBadRequest      = errors.New("bad request")
	ErrGone            = errors.New("gone")
	ErrTooManyRequests = errors.New("too many requests")
)

// Passcode lifecycle errors.
var (
	ErrInvalidPolicyLength = errors.New("passcode length below policy minimum")
	ErrEmailExist          = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrInvalidPasscode     = fmt.Errorf("invalid passcode: %w", ErrUnauthorized)
)

// PendingVerificationError is returned when an unexpired passcode was already
// issued for the email. Timestamps are unix seconds.
type PendingVerificationError struct {
	ResendAvailable bool
	SentAt          int64
	ExpiresAt       int64
	RemainingMs     int64
}

func (e *PendingVerificationError) Error() string {
	return fmt.Sprintf("email already pending verification (resend available: %t, remaining %dms)",
		e.ResendAvailable, e.RemainingMs)
}

func (e *PendingVerificationError) Unwrap() error { return ErrTooManyRequests }

// PendingExpiredError is returned when a passcode exists but its lifetime has
// elapsed. A new passcode may always be requested in that state.
type PendingExpiredError struct {
	ResendAvailable bool
	ExpiredAt       int64
	SentAt          int64
}

func (e *PendingExpiredError) Error() string {
	return fmt.Sprintf("verification passcode expired at %d", e.ExpiredAt)
}

func (e *PendingExpiredError) Unwrap() error { return ErrGone }
