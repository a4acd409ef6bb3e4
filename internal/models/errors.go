package models

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrInvalidCart        = errors.New("cart is empty or invalid")
	ErrInvalidQuantity    = errors.New("quantity must not be negative")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrSessionExpired     = errors.New("checkout session has expired")
	ErrInvalidTransition  = errors.New("invalid checkout session transition")
	ErrSubmitInFlight     = errors.New("a submission is already in progress")
)

// ValidationError reports a field-level validation failure. These are
// recoverable: the caller surfaces the reason next to the field and the
// shopper corrects and resubmits.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a field-level validation error.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PaymentError reports a payment confirmation failure. The Reason is for
// diagnostics only and must never be shown to the shopper verbatim.
type PaymentError struct {
	Reason string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

// NewPaymentError creates a payment error with a diagnostic reason.
func NewPaymentError(reason string) *PaymentError {
	return &PaymentError{Reason: reason}
}
