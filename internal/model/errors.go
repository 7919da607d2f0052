package model

import (
	"errors"
	"fmt"
)

var (
	// Input related errors
	ErrValidation = errors.New("validation failed")

	// Lookup and state related errors
	ErrNotFound           = errors.New("not found")
	ErrConflictOrNotFound = errors.New("request not found or already processed")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Store related errors
	ErrStore = errors.New("store error")

	// Cleanup related errors
	ErrCleanupInProgress   = errors.New("archive cleanup already running")
	ErrOrganizationChanged = errors.New("organization is no longer archived")
)

// ValidationError reports a missing or malformed input field. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field string, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StoreError wraps an underlying database failure so callers can match it
// with errors.Is(err, ErrStore) while keeping the driver error reachable.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
