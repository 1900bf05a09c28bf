package client

import (
	"errors"
	"fmt"

	"github.com/wolfeidau/contactgain/internal/store"
)

// Sentinels for the lifecycle gates reported by the API.
var (
	ErrSessionExpired = errors.New("session expired")
	ErrSessionActive  = errors.New("session still active")
	ErrNoContacts     = errors.New("session has no contacts")
	ErrValidation     = errors.New("invalid request")
)

// APIError is a non-2xx response decoded from the server's JSON error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Is lets callers match API errors against store and client sentinels with errors.Is.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case "not_found":
		return target == store.ErrSessionNotFound
	case "duplicate_name":
		return target == store.ErrDuplicateName
	case "duplicate_phone":
		return target == store.ErrDuplicatePhone
	case "session_expired":
		return target == ErrSessionExpired
	case "session_active":
		return target == ErrSessionActive
	case "no_contacts":
		return target == ErrNoContacts
	case "validation_error":
		return target == ErrValidation
	}
	return false
}

// retryable reports whether a failed request is worth repeating.
func (e *APIError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
