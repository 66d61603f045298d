package apperrors

import (
	"errors"
	"fmt"
)

// Code is a stable error code returned to callers.
type Code string

// Error codes surfaced by the housing core
const (
	CodeInvalidInput           Code = "INVALID_INPUT"
	CodeNotFound               Code = "NOT_FOUND"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeAlreadyResolved        Code = "ALREADY_RESOLVED"
	CodeRoomFull               Code = "ROOM_FULL"
	CodeRoomNotEmpty           Code = "ROOM_NOT_EMPTY"
	CodeTierMismatch           Code = "TIER_MISMATCH"
	CodeStudentAlreadyAssigned Code = "STUDENT_ALREADY_ASSIGNED"
	CodeStudentNotAssigned     Code = "STUDENT_NOT_ASSIGNED"
	CodeLastManager            Code = "LAST_MANAGER"
	CodeSelfDeactivation       Code = "SELF_DEACTIVATION"
	CodeEmailExists            Code = "EMAIL_EXISTS"
	CodeStorageError           Code = "STORAGE_ERROR"
)

// Sentinel errors, one per code. CustomError unwraps to these so callers can use errors.Is.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAlreadyResolved        = errors.New("request already resolved")
	ErrRoomFull               = errors.New("room is full")
	ErrRoomNotEmpty           = errors.New("room is not empty")
	ErrTierMismatch           = errors.New("housing tier mismatch")
	ErrStudentAlreadyAssigned = errors.New("student already assigned to a room")
	ErrStudentNotAssigned     = errors.New("student is not assigned to a room")
	ErrLastManager            = errors.New("operation would remove the last active manager")
	ErrSelfDeactivation       = errors.New("users cannot deactivate themselves")
	ErrEmailExists            = errors.New("email already exists")
	ErrStorage                = errors.New("storage error")
)

var sentinels = map[Code]error{
	CodeInvalidInput:           ErrInvalidInput,
	CodeNotFound:               ErrNotFound,
	CodeUnauthorized:           ErrUnauthorized,
	CodeAlreadyResolved:        ErrAlreadyResolved,
	CodeRoomFull:               ErrRoomFull,
	CodeRoomNotEmpty:           ErrRoomNotEmpty,
	CodeTierMismatch:           ErrTierMismatch,
	CodeStudentAlreadyAssigned: ErrStudentAlreadyAssigned,
	CodeStudentNotAssigned:     ErrStudentNotAssigned,
	CodeLastManager:            ErrLastManager,
	CodeSelfDeactivation:       ErrSelfDeactivation,
	CodeEmailExists:            ErrEmailExists,
	CodeStorageError:           ErrStorage,
}

// Sentinel returns the sentinel error registered for code.
func Sentinel(code Code) error {
	if err, ok := sentinels[code]; ok {
		return err
	}
	return ErrStorage
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    Code
	Details map[string]interface{}
	cause   error
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap exposes both the code sentinel and the underlying cause.
func (e *CustomError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Cause returns the wrapped lower-level error, if any.
func (e *CustomError) Cause() error {
	return e.cause
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithDetail adds a single context detail
func (e *CustomError) WithDetail(key string, value interface{}) *CustomError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a CustomError for code with a message.
func New(code Code, message string) *CustomError {
	return &CustomError{
		Err:     Sentinel(code),
		Message: message,
		Code:    code,
	}
}

// Newf is New with a format string.
func Newf(code Code, format string, args ...interface{}) *CustomError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to a lower-level error.
func Wrap(code Code, err error, message string) *CustomError {
	ce := New(code, message)
	ce.cause = err
	return ce
}

// Storage wraps an unexpected backend failure. The message is safe to show callers.
func Storage(err error) *CustomError {
	return Wrap(CodeStorageError, err, "storage operation failed")
}

// CodeOf returns the code carried by err. Errors without a code map to STORAGE_ERROR.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ce *CustomError
	if errors.As(err, &ce) && ce.Code != "" {
		return ce.Code
	}
	for code, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeStorageError
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// PublicMessage returns a message that can be shown to callers without leaking storage detail.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *CustomError
	if errors.As(err, &ce) {
		if ce.Code == CodeStorageError {
			return ErrStorage.Error()
		}
		return ce.Error()
	}
	code := CodeOf(err)
	if code == CodeStorageError {
		return ErrStorage.Error()
	}
	return err.Error()
}

// Is returns whether target matches any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}
