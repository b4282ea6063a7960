package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for missing or malformed user input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrEventFull is returned when an event has no remaining capacity.
	// This is a normal business rejection, not a fault.
	ErrEventFull = errors.New("event is fully booked")
	// ErrArtifactPending marks a registration that was durably recorded but
	// whose printable credential could not be produced or stored. The
	// client retries artifact retrieval; admission is never re-run.
	ErrArtifactPending = errors.New("registration recorded, ticket artifact pending")
	// ErrPaymentsDisabled is returned when no payment provider is configured.
	ErrPaymentsDisabled = errors.New("payments are not enabled")
)

// ArtifactPendingError carries the identifiers of a committed registration
// whose artifact pipeline failed, so the caller can retry safely.
type ArtifactPendingError struct {
	RegistrationID string
	TicketID       string
	Err            error
}

func (e *ArtifactPendingError) Error() string {
	return fmt.Sprintf("%v (registration %s, ticket %s): %v",
		ErrArtifactPending, e.RegistrationID, e.TicketID, e.Err)
}

func (e *ArtifactPendingError) Is(target error) bool {
	return target == ErrArtifactPending
}

func (e *ArtifactPendingError) Unwrap() error {
	return e.Err
}
