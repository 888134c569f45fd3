package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and services use these instead of
// hardcoded strings so the HTTP mapping stays in one place.
const (
	// Validation (400)
	ErrCodeValidationInvalidJSON   ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationFailed        ErrorCode = "validation_failed"
	ErrCodeValidationEmptyWindow   ErrorCode = "validation_empty_weather_window"
	ErrCodeFeatureExtractionFailed ErrorCode = "feature_extraction_failed"

	// Auth (401)
	ErrCodeAuthTrainSecretInvalid ErrorCode = "auth_train_secret_invalid"

	// Conflict (409)
	ErrCodeTrainingInProgress ErrorCode = "training_in_progress"

	// Internal (500)
	ErrCodeTrainingFailed     ErrorCode = "training_failed"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"),
		c == ErrCodeFeatureExtractionFailed:
		return http.StatusBadRequest
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized
	case c == ErrCodeTrainingInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All errors that cross a
// package boundary are expressed as AppError to enable consistent HTTP
// mapping and error chain support. Recovered conditions (model-load
// failures, data-acquisition failures) are logged where they occur and
// never become AppErrors.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details
// that are safe to return to the caller.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
