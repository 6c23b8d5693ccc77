package model

import (
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeDeliveryFailure   = "DELIVERY_FAILURE"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation        = NewDomainError(ErrCodeValidation, "Invalid or missing required field")
	ErrNotFound          = NewDomainError(ErrCodeNotFound, "Document not found")
	ErrConflict          = NewDomainError(ErrCodeConflict, "Document revision conflict")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "Order status transition not allowed")
	ErrDeliveryFailure   = NewDomainError(ErrCodeDeliveryFailure, "Event delivery to viewer failed")
)

// NewValidationError reports a missing or malformed input field.
// The result matches ErrValidation with errors.Is.
func NewValidationError(field, reason string) error {
	return fmt.Errorf("%s %s: %w", field, reason, ErrValidation)
}
