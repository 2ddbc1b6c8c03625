package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeInvalidTimeFormat   = "INVALID_TIME_FORMAT"
	CodeUnknownTimezone     = "UNKNOWN_TIMEZONE"
	CodeInvalidDateFormat   = "INVALID_DATE_FORMAT"
	CodeDateInPast          = "DATE_IN_PAST"
	CodeSlotUnavailable     = "SLOT_UNAVAILABLE"
	CodeNotFound            = "NOT_FOUND"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeNoChangeRequested   = "NO_CHANGE_REQUESTED"
	CodeExternalSyncFailure = "EXTERNAL_SYNC_FAILURE"
	CodeCompensationFailure = "COMPENSATION_FAILURE"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInternal            = "INTERNAL_ERROR"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func InvalidTimeFormat(value string) *AppError {
	return &AppError{
		Code:       CodeInvalidTimeFormat,
		Message:    "Time value could not be parsed as an ISO date-time",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"value": value},
	}
}

func UnknownTimezone(name string) *AppError {
	return &AppError{
		Code:       CodeUnknownTimezone,
		Message:    fmt.Sprintf("%q is not a recognized IANA timezone", name),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"timezone": name},
	}
}

func InvalidDateFormat(value string) *AppError {
	return &AppError{
		Code:       CodeInvalidDateFormat,
		Message:    "Date must be in YYYY-MM-DD format",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"value": value},
	}
}

func DateInPast(value string) *AppError {
	return &AppError{
		Code:       CodeDateInPast,
		Message:    "The requested date is in the past",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"date": value},
	}
}

func SlotUnavailable(message string) *AppError {
	return &AppError{
		Code:       CodeSlotUnavailable,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func PermissionDenied(message string) *AppError {
	return &AppError{
		Code:       CodePermissionDenied,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func NoChangeRequested() *AppError {
	return &AppError{
		Code:       CodeNoChangeRequested,
		Message:    "A new start time or a new summary is required to update the event",
		HTTPStatus: http.StatusBadRequest,
	}
}

// ExternalSync reports a calendar-provider failure. compensated records whether
// the local rollback completed, so callers can tell a clean failure from a
// half-rolled-back one.
func ExternalSync(message string, cause error, compensated bool) *AppError {
	return &AppError{
		Code:       CodeExternalSyncFailure,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"compensated": compensated},
		Err:        cause,
	}
}

// Compensation reports that the rollback after a sync failure itself failed.
// Both causes are preserved; this must never be silently absorbed.
func Compensation(message string, syncCause, rollbackCause error) *AppError {
	return &AppError{
		Code:       CodeCompensationFailure,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"sync_error": syncCause.Error()},
		Err:        rollbackCause,
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
