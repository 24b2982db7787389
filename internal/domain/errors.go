package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUserExists is returned when the email or username is already taken.
	ErrUserExists = errors.New("email or username already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers both unknown identifiers and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a malformed, wrongly signed or expired token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedSubject is an ErrInvalidToken whose subject is not a user id.
	ErrMalformedSubject = fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	// ErrTokenRevoked indicates a token whose jti was revoked by logout.
	ErrTokenRevoked = errors.New("token has been revoked")
	// ErrStoreUnavailable wraps unexpected credential store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrInternal wraps failures of the hashing or token primitives.
	ErrInternal = errors.New("internal error")
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field level input errors.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// ErrOrNil returns e when it holds at least one field error.
func (e *ValidationError) ErrOrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
