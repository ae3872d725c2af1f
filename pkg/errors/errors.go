// Package errors carries typed application errors from the adapters up to the
// HTTP layer, where the type decides the status code and the `code` field of
// the error envelope.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType is the stable, client-visible kind of an error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	// ErrorTypeInternal covers persistence and programming failures. Its
	// message never reaches the client.
	ErrorTypeInternal ErrorType = "INTERNAL"
	// ErrorTypeExternal is a failing dependency such as Redis or the
	// messaging provider.
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// HTTPStatus maps the type to its response status
func (t ErrorType) HTTPStatus() int {
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is an error with a type and a message safe to show callers
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// PublicMessage is the message for the response body. Server-side failures
// are reported generically.
func (e *AppError) PublicMessage() string {
	switch e.Type.HTTPStatus() {
	case http.StatusBadGateway:
		return "upstream service unavailable"
	case http.StatusInternalServerError:
		return "internal server error"
	}
	return e.Message
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

func NewNotFoundError(message string) *AppError {
	return newError(ErrorTypeNotFound, message, nil)
}

func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

// NewValidationErrorf formats the message like fmt.Sprintf
func NewValidationErrorf(format string, args ...interface{}) *AppError {
	return newError(ErrorTypeValidation, fmt.Sprintf(format, args...), nil)
}

func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message, nil)
}

func NewUnauthorizedError(message string) *AppError {
	return newError(ErrorTypeUnauthorized, message, nil)
}

func NewRateLimitedError(message string) *AppError {
	return newError(ErrorTypeRateLimited, message, nil)
}

func NewInternalError(message string, err error) *AppError {
	return newError(ErrorTypeInternal, message, err)
}

func NewExternalError(message string, err error) *AppError {
	return newError(ErrorTypeExternal, message, err)
}

// As extracts an *AppError from err, if there is one in the chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// TypeOf returns the type of the first AppError in err's chain, or
// ErrorTypeInternal for plain errors.
func TypeOf(err error) ErrorType {
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsNotFound reports whether err carries a NOT_FOUND AppError.
func IsNotFound(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeNotFound
}
