package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Caller errors. Handlers map these to 4xx statuses; none of them are
// retryable.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrNotFound           = errors.New("not found")
)

// Admission rejections raised by the capacity workflow.
var (
	ErrEventNotPublished = errors.New("event not published")
	ErrSectionRequired   = errors.New("section required")
	ErrUnknownSection    = errors.New("unknown section")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
)

// Infrastructure failures. Safe to retry at the caller's discretion; never
// retried internally.
var (
	ErrAvailabilityCheck = errors.New("availability check failed")
	ErrPersistence       = errors.New("persistence error")
)

// NotPublishedError reports the status the events service returned for an
// event that is not accepting ticket generation.
type NotPublishedError struct {
	EventID uuid.UUID
	Status  string
}

func (e *NotPublishedError) Error() string {
	return fmt.Sprintf("event %s is not published (status: %s)", e.EventID, e.Status)
}

func (e *NotPublishedError) Unwrap() error { return ErrEventNotPublished }

// UnknownSectionError reports a requested section absent from the event's
// declared section list.
type UnknownSectionError struct {
	EventID uuid.UUID
	Section string
}

func (e *UnknownSectionError) Error() string {
	return fmt.Sprintf("section %q does not exist on event %s", e.Section, e.EventID)
}

func (e *UnknownSectionError) Unwrap() error { return ErrUnknownSection }

// CapacityExceededError carries the exact shortfall so callers can act
// without re-querying.
type CapacityExceededError struct {
	Section   string
	Remaining int
	Requested int
}

func (e *CapacityExceededError) Error() string {
	section := e.Section
	if section == "" {
		section = "General"
	}
	return fmt.Sprintf("not enough capacity in %q: remaining %d, requested %d", section, e.Remaining, e.Requested)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }
