package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when login credentials are rejected
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned when the bearer token is missing or rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when the backend has no such record
	ErrNotFound = errors.New("not found")

	// ErrNoSession is returned when an action needs a logged-in user
	ErrNoSession = errors.New("no active session")

	// ErrValidation is wrapped by every client-side validation failure
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPayload is returned when a backend record fails boundary validation
	ErrInvalidPayload = errors.New("invalid payload")

	ErrNotConnected   = errors.New("realtime connection is not open")
	ErrAlreadyDecided = errors.New("album access request already decided")
	ErrNotAlbumOwner  = errors.New("only the album owner can decide this request")
	ErrBanned         = errors.New("account banned")
)

// ValidationError describes a client-side validation failure caught before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
