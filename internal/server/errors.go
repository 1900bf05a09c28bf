package server

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of service failure. Codes are stable and
// appear verbatim in JSON error bodies.
type ErrorCode string

const (
	CodeNotFound       ErrorCode = "not_found"
	CodeDuplicateName  ErrorCode = "duplicate_name"
	CodeDuplicatePhone ErrorCode = "duplicate_phone"
	CodeValidation     ErrorCode = "validation_error"
	CodeSessionExpired ErrorCode = "session_expired"
	CodeSessionActive  ErrorCode = "session_active"
	CodeNoContacts     ErrorCode = "no_contacts"
	CodeRemoteFailure  ErrorCode = "remote_failure"
)

// HTTPStatus maps the code to the response status used by the API.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateName, CodeDuplicatePhone, CodeSessionActive, CodeNoContacts:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeSessionExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by every SessionService operation that fails.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func validationError(format string, args ...any) *Error {
	return newError(CodeValidation, fmt.Sprintf(format, args...), nil)
}

// CodeOf returns the code carried by err, or CodeRemoteFailure for anything else.
func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeRemoteFailure
}
