package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Validation errors
	CodeBadRequest   = "BAD_REQUEST"
	CodeMissingField = "MISSING_FIELD"

	// Pipeline stage errors
	CodeParseError                = "PARSE_ERROR"
	CodeClassificationUnavailable = "CLASSIFICATION_UNAVAILABLE"
	CodeRoutingError              = "ROUTING_ERROR"
	CodeGenerationError           = "GENERATION_ERROR"
	CodePublishError              = "PUBLISH_ERROR"
	CodePersistenceError          = "PERSISTENCE_ERROR"

	// External errors
	CodeCalendarUnavailable = "CALENDAR_UNAVAILABLE"
	CodeExternalError       = "EXTERNAL_ERROR"
	CodeExternalTimeout     = "EXTERNAL_TIMEOUT"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Validation errors
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Pipeline stage errors
func ParseError(reason string, err error) *AppError {
	return &AppError{
		Code:    CodeParseError,
		Message: fmt.Sprintf("malformed message: %s", reason),
		Status:  http.StatusUnprocessableEntity,
		Err:     err,
	}
}

func ClassificationUnavailable(err error) *AppError {
	return &AppError{
		Code:    CodeClassificationUnavailable,
		Message: "classification service unavailable",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func RoutingError(category string) *AppError {
	return &AppError{
		Code:    CodeRoutingError,
		Message: fmt.Sprintf("no responder registered for category: %s", category),
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"category": category},
	}
}

func GenerationError(err error) *AppError {
	return &AppError{
		Code:    CodeGenerationError,
		Message: "response generation failed",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func PublishError(err error) *AppError {
	return &AppError{
		Code:    CodePublishError,
		Message: "draft publishing failed",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func PersistenceError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodePersistenceError,
		Message: fmt.Sprintf("persistence failed: %s", operation),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// External errors
func CalendarUnavailable(err error) *AppError {
	return &AppError{
		Code:    CodeCalendarUnavailable,
		Message: "calendar service unavailable",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

func ExternalError(service string, err error) *AppError {
	return &AppError{
		Code:    CodeExternalError,
		Message: fmt.Sprintf("external service error: %s", service),
		Status:  http.StatusBadGateway,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

func ExternalTimeout(service string, err error) *AppError {
	return &AppError{
		Code:    CodeExternalTimeout,
		Message: fmt.Sprintf("external call timed out: %s", service),
		Status:  http.StatusGatewayTimeout,
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{
		Code:    CodeConfigError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
