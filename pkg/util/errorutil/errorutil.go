package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes used across the auth core. Token and secret failures are
// deliberately coarse: callers must not be able to tell expiry from
// tampering from malformation.
const (
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeInvalidOrExpiredSecret = "INVALID_OR_EXPIRED_SECRET"
	CodeStoreUnavailable       = "STORE_UNAVAILABLE"
	CodeSigningError           = "SIGNING_ERROR"
	CodeValidationFailed       = "VALIDATION_FAILED"
	CodeNotFound               = "NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeInternal               = "INTERNAL_ERROR"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
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

// NewUnauthenticated signals a missing or unresolvable caller identity.
func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

// NewUnauthorized signals an authenticated caller lacking permission.
func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusForbidden, nil)
}

// NewInvalidToken covers signature, expiry and malformed-structure failures
// with a single external code.
func NewInvalidToken() error {
	return NewDomainError(CodeInvalidToken, "invalid or expired token", http.StatusUnauthorized, nil)
}

// NewInvalidOrExpiredSecret covers absent, consumed, expired and mismatched
// verification secrets with a single external code.
func NewInvalidOrExpiredSecret() error {
	return NewDomainError(CodeInvalidOrExpiredSecret, "link or code invalid or expired", http.StatusBadRequest, nil)
}

// NewStoreUnavailable wraps an infrastructure failure of the secret store.
// It is fatal to the calling operation and never silently bypassed.
func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "secret store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewSigningError wraps a key-management fault during token issuance.
func NewSigningError(err error) error {
	return &DomainError{
		Code:       CodeSigningError,
		Message:    "token signing failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
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
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsCode reports whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
