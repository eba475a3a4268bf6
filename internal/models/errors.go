package models

import "fmt"

type ErrorType string

const (
	ErrorTypeProvider       ErrorType = "provider_unavailable"
	ErrorTypeConfiguration  ErrorType = "configuration_missing"
	ErrorTypeValidation     ErrorType = "validation_error"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeNotInitialized ErrorType = "not_initialized"
	ErrorTypeInternal       ErrorType = "internal"
)

// AppError is the error shape services return to callers. Component-level
// failures are converted to degraded data before reaching the handler
// boundary, so only request-level failures surface as AppError responses.
type AppError struct {
	Code    string
	Message string
	Type    ErrorType
	Cause   error
}

func (appError *AppError) Error() string {
	if appError.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", appError.Code, appError.Message, appError.Cause)
	}
	return fmt.Sprintf("%s: %s", appError.Code, appError.Message)
}

func (appError *AppError) Unwrap() error {
	return appError.Cause
}

func (appError *AppError) WithCause(cause error) *AppError {
	appError.Cause = cause
	return appError
}

func NewTimeoutError(code, message string) *AppError {
	return &AppError{Code: code, Message: message, Type: ErrorTypeTimeout}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: "VALIDATION", Message: message, Type: ErrorTypeValidation}
}

func NewConfigError(message string) *AppError {
	return &AppError{Code: "CONFIG", Message: message, Type: ErrorTypeConfiguration}
}

func NewNotInitializedError(message string) *AppError {
	return &AppError{Code: "NOT_INITIALIZED", Message: message, Type: ErrorTypeNotInitialized}
}

// WrapExternalError tags any remote provider failure so callers can decide
// degrade-vs-propagate per call site.
func WrapExternalError(provider string, cause error) *AppError {
	return &AppError{
		Code:    provider + "_UNAVAILABLE",
		Message: fmt.Sprintf("%s provider call failed", provider),
		Type:    ErrorTypeProvider,
		Cause:   cause,
	}
}
