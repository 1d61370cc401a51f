package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Event errors
	ErrEventNotFound    = errors.New("event not found")
	ErrEventHasTickets  = errors.New("event still owns tickets")
	ErrInvalidDateRange = errors.New("end date must be after start date")
	ErrInvalidEventName = errors.New("event name is required")

	// Ticket errors
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrInvalidTicketCode = errors.New("ticket code must be at least 3 characters")
	ErrMissingHolderName = errors.New("name and surname are required")
	ErrMissingEventID    = errors.New("event id is required")
	ErrInvalidTicketID   = errors.New("invalid ticket id")
	ErrInvalidEventID    = errors.New("invalid event id")

	// ErrTicketStateChanged means a redemption toggle kept losing to
	// concurrent toggles of the same ticket
	ErrTicketStateChanged = errors.New("ticket state changed concurrently, try again")

	// Code uniqueness errors
	ErrDuplicateCode    = errors.New("ticket code already exists")
	ErrExhaustedRetries = errors.New("failed to generate unique ticket code")
)

// ValidationError carries a human-readable reason for rejected input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// EventHasTicketsError blocks an event delete and names the blocking count
type EventHasTicketsError struct {
	EventID     string
	TicketCount int64
}

func (e *EventHasTicketsError) Error() string {
	if e.TicketCount == 1 {
		return "cannot delete event: 1 ticket still belongs to it"
	}
	return fmt.Sprintf("cannot delete event: %d tickets still belong to it", e.TicketCount)
}

func (e *EventHasTicketsError) Is(target error) bool {
	return target == ErrEventHasTickets
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrTicketNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidEventName) ||
		errors.Is(err, ErrInvalidTicketCode) ||
		errors.Is(err, ErrMissingHolderName) ||
		errors.Is(err, ErrMissingEventID) ||
		errors.Is(err, ErrInvalidTicketID) ||
		errors.Is(err, ErrInvalidEventID)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrEventHasTickets) ||
		errors.Is(err, ErrDuplicateCode) ||
		errors.Is(err, ErrTicketStateChanged)
}
