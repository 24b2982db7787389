// Package auth holds the credential and session primitives: password policy,
// password hashing, access tokens and the revocation registry.
package auth

import (
	"errors"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters in a password.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort         = errors.New("password must be at least 8 characters")
	ErrPasswordMissingLowercase = errors.New("password must contain a lowercase letter")
	ErrPasswordMissingUppercase = errors.New("password must contain an uppercase letter")
	ErrPasswordMissingDigit     = errors.New("password must contain a digit")
)

// ValidatePassword checks the password against the strength rules in order
// and returns the first violation.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	var lower, upper, digit bool
	for i := 0; i < len(password); i++ {
		switch c := password[i]; {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}

	switch {
	case !lower:
		return ErrPasswordMissingLowercase
	case !upper:
		return ErrPasswordMissingUppercase
	case !digit:
		return ErrPasswordMissingDigit
	}
	return nil
}
