// Package apperrors defines the error taxonomy shared by repositories,
// services and handlers. Sentinel values and typed errors let handlers
// translate failures into HTTP status codes without string matching:
// ErrNotFound -> 404, ErrConflict -> 409, ValidationError -> 400,
// GatewayError -> 502.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced booking, agent, payment or
// transaction does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a transition is not permitted from the
// current status, or for the losing side of a concurrent update race.
// The winner's result is never overwritten.
var ErrConflict = errors.New("conflict")

// ValidationError reports malformed input: amount mismatch, lead-time
// violation, empty cart. A ValidationError never mutates state.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation creates a ValidationError with a formatted message
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GatewayError reports a payment gateway timeout or failure. The caller
// may retry; no booking or payment state is left half-created behind it.
type GatewayError struct {
	Op  string // gateway operation, e.g. "create_intent"
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsGateway reports whether err is a GatewayError
func IsGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
