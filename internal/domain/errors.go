package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthenticated is returned when no caller identity is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the caller lacks admin rights.
	ErrForbidden = errors.New("admin access required")
	// ErrInvalidInput indicates a malformed request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidLevel indicates an unknown or inactive level identifier.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrOutOfSequence is returned when a phase other than the current one is attempted.
	ErrOutOfSequence = errors.New("phase out of sequence")
	// ErrParticipantNotFound indicates no record exists for the participant.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrChallengeNotFound indicates the challenge content could not be loaded.
	ErrChallengeNotFound = errors.New("challenge not found")
)

// RateLimitError rejects an attempt that exceeded the sliding-window limit.
// RetryAfter is the time remaining until the window resets.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %ds", int(e.RetryAfter.Seconds()))
}

// LockoutError rejects an attempt while the cumulative-failure lockout is
// active. Remaining is the time left until the lockout expires.
type LockoutError struct {
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("locked out for %ds after repeated failures", int(e.Remaining.Seconds()))
}
