package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeUnavailable     = "SERVICE_UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError reports malformed input. details maps field names to messages.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewInvalidToken(message string) error {
	return NewDomainError(CodeInvalidToken, message, http.StatusUnauthorized, nil)
}

func NewTokenExpired(message string) error {
	return NewDomainError(CodeTokenExpired, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewRateLimited(message string, details map[string]any) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, details)
}

func NewUnavailable(message string) error {
	return NewDomainError(CodeUnavailable, message, http.StatusServiceUnavailable, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func fromFiberError(err *fiber.Error) *DomainError {
	switch err.Code {
	case http.StatusNotFound:
		return &DomainError{Code: CodeNotFound, Message: "route not found", HTTPStatus: http.StatusNotFound}
	case http.StatusMethodNotAllowed:
		return &DomainError{Code: CodeNotFound, Message: "route not found", HTTPStatus: http.StatusNotFound}
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return &DomainError{Code: CodeValidation, Message: err.Message, HTTPStatus: err.Code}
	case http.StatusUnauthorized:
		return &DomainError{Code: CodeUnauthenticated, Message: err.Message, HTTPStatus: err.Code}
	case http.StatusForbidden:
		return &DomainError{Code: CodeForbidden, Message: err.Message, HTTPStatus: err.Code}
	case http.StatusTooManyRequests:
		return &DomainError{Code: CodeRateLimited, Message: err.Message, HTTPStatus: err.Code}
	}
	if err.Code >= 500 {
		return &DomainError{Code: CodeInternal, Message: "internal server error", HTTPStatus: err.Code, Err: err}
	}
	return &DomainError{Code: CodeValidation, Message: err.Message, HTTPStatus: err.Code}
}
