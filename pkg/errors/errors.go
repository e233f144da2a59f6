package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error that carries the code and HTTP status shown to API callers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeDeviceNotFound     = "DEVICE_NOT_FOUND"
	CodeReminderNotFound   = "REMINDER_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeRecipientNotFound  = "RECIPIENT_NOT_FOUND"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

var (
	ErrUnauthorized = &AppError{
		Code:       CodeUnauthorized,
		Message:    "Unauthorized",
		StatusCode: http.StatusUnauthorized,
	}

	ErrTokenExpired = &AppError{
		Code:       CodeTokenExpired,
		Message:    "Token has expired",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidToken = &AppError{
		Code:       CodeInvalidToken,
		Message:    "Invalid token",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid email or password",
		StatusCode: http.StatusUnauthorized,
	}

	ErrEmailTaken = &AppError{
		Code:       CodeEmailTaken,
		Message:    "An account with this email already exists",
		StatusCode: http.StatusConflict,
	}

	ErrReminderNotFound = &AppError{
		Code:       CodeReminderNotFound,
		Message:    "Reminder not found",
		StatusCode: http.StatusNotFound,
	}

	ErrUserNotFound = &AppError{
		Code:       CodeUserNotFound,
		Message:    "User not found",
		StatusCode: http.StatusNotFound,
	}

	ErrRecipientNotFound = &AppError{
		Code:       CodeRecipientNotFound,
		Message:    "No account exists for the recipient email",
		StatusCode: http.StatusNotFound,
	}

	ErrDeviceNotFound = &AppError{
		Code:       CodeDeviceNotFound,
		Message:    "Device not found",
		StatusCode: http.StatusNotFound,
	}
)

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// Internal wraps err as a 500 with the given message.
func Internal(err error, message string) *AppError {
	return Wrap(err, CodeInternalError, message, http.StatusInternalServerError)
}

// ValidationError creates a validation error
func ValidationError(message string) *AppError {
	return &AppError{
		Code:       CodeValidationError,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}
