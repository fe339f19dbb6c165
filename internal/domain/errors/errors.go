package errors

import (
	"errors"
	"fmt"
)

// Re-export the standard library helpers so callers only import one package.
var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
)

// Error extends the basic error interface with a stable code.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError is the default Error implementation.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

func (e *AppError) Unwrap() error {
	return e.err
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// Wrap wraps an existing error, keeping the code when it already has one.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}

	return NewAppError(ErrInternal, message, err)
}

// CodeOf returns the code of an error, or ErrInternal for plain errors.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}

// Validation marks a malformed or semantically invalid request.
func Validation(message string) *AppError {
	return NewAppError(ErrValidation, message, nil)
}

// NotFound marks a missing booking, payment or webhook event.
func NotFound(message string) *AppError {
	return NewAppError(ErrNotFound, message, nil)
}

// UnsupportedGateway marks a gateway identifier outside the supported set.
func UnsupportedGateway(gateway string) *AppError {
	return NewAppError(ErrUnsupportedGateway, fmt.Sprintf("gateway '%s' is not supported", gateway), nil)
}

// Gateway wraps a provider failure.
func Gateway(message string, err error) *AppError {
	return NewAppError(ErrGateway, message, err)
}

// GatewayUnavailable marks a short-circuited or declined-by-policy provider
// call (open circuit, refund unavailable).
func GatewayUnavailable(message string, err error) *AppError {
	return NewAppError(ErrGatewayUnavailable, message, err)
}

// Signature marks a webhook authenticity failure.
func Signature(message string, err error) *AppError {
	return NewAppError(ErrSignature, message, err)
}

// InvalidState marks an operation not permitted for the record's status.
func InvalidState(message string) *AppError {
	return NewAppError(ErrInvalidState, message, nil)
}

// Conflict marks a lost optimistic-concurrency race.
func Conflict(message string) *AppError {
	return NewAppError(ErrConflict, message, nil)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *AppError {
	return NewAppError(ErrInternal, message, err)
}
