package apperror

import (
	"errors"
	"net/http"
)

// AppError classifies a failure and carries the HTTP status it maps to.
type AppError struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError is a validation error scoped to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// Taxonomy of caller-facing failures. Anything that is not one of these is
// an internal error: logged with context, surfaced as ErrInternalServer.
var (
	ErrNotFound          = &AppError{Code: http.StatusNotFound, Message: "Data not found"}
	ErrInsufficientStock = &AppError{Code: http.StatusConflict, Message: "Insufficient stock"}
	ErrBusy              = &AppError{Code: http.StatusServiceUnavailable, Message: "Resource busy, please retry"}
	ErrUnauthorized      = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrInternalServer    = &AppError{Code: http.StatusInternalServerError, Message: "An unexpected error occurred. Please try again."}
)

func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NewNotFound(resource string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: resource + " not found"}
}

func NewConflict(message string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: message}
}

func NewValidation(fieldErrors []FieldError) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Errors:  fieldErrors,
	}
}

// Get unwraps err into an *AppError, falling back to a generic internal
// error so database and driver details never leak to the caller.
func Get(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer
}

func Is(err error, target *AppError) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr == target
}
