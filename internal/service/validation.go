package service

import (
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"session-auth/internal/auth"
	"session-auth/internal/domain"
)

const (
	minFullNameLength = 3
	minUsernameLength = 3
)

var validate = validator.New()

// validateRegistration checks the shape of every field and reports all violations at once.
func validateRegistration(in RegisterInput) error {
	verr := &domain.ValidationError{}
	if utf8.RuneCountInString(in.FullName) < minFullNameLength {
		verr.Add("full_name", "must be at least 3 characters")
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		verr.Add("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(in.Username) < minUsernameLength {
		verr.Add("username", "must be at least 3 characters")
	}
	return verr.ErrOrNil()
}

// validateNewPassword reports the first password policy violation, then
// rejects inputs the hasher cannot take.
func validateNewPassword(password string) error {
	err := auth.ValidatePassword(password)
	if err == nil && len(password) > auth.MaxPasswordBytes {
		err = auth.ErrPasswordTooLong
	}
	if err != nil {
		verr := &domain.ValidationError{}
		verr.Add("password", err.Error())
		return verr
	}
	return nil
}

func validateLogin(in LoginInput) error {
	verr := &domain.ValidationError{}
	if in.Identifier == "" {
		verr.Add("identifier", "is required")
	}
	if in.Password == "" {
		verr.Add("password", "is required")
	}
	return verr.ErrOrNil()
}
