// Package apperr defines the error taxonomy shared across the engine.
package apperr

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	// Validation failures surface synchronously at construction/add time.
	ErrEmptyName    = &AppError{Code: "VALID_001", Message: "medication name is empty"}
	ErrBadFrequency = &AppError{Code: "VALID_002", Message: "frequency must be at least 1"}
	ErrBadTimeOfDay = &AppError{Code: "VALID_003", Message: "hour or minute out of range"}
	ErrBadCondition = &AppError{Code: "VALID_004", Message: "unknown intake condition"}

	// Unknown ids are handled as silent no-ops by the tracker; the
	// sentinel exists for internal checks only.
	ErrMedicationNotFound = &AppError{Code: "MED_001", Message: "medication not found"}

	// No further dose slot remains today. Distinct from a computation
	// error so callers never fall back to "now".
	ErrNoDoseRemaining = &AppError{Code: "SCHED_001", Message: "no dose remaining today"}

	ErrPersistence = &AppError{Code: "STORE_001", Message: "persistence failure"}
	ErrDecode      = &AppError{Code: "STORE_002", Message: "stored data undecodable"}

	ErrRegistration     = &AppError{Code: "NOTIF_001", Message: "alert registration failed"}
	ErrPermissionDenied = &AppError{Code: "NOTIF_002", Message: "notification permission denied"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
