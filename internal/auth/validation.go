package auth

import (
	"regexp"
	"strings"
	"unicode"
)

// emailPattern is a pragmatic email format check: one @, no spaces, a dot in
// the domain. Full RFC 5322 validation is not attempted.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Input length limits.
const (
	maxNameLength  = 100
	maxEmailLength = 254
	minPasswordLen = 6
)

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return email != "" && len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// NormalizeEmail lowercases and trims an email address. Emails are compared
// case-insensitively everywhere; storing them normalised keeps the unique
// index honest.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkPassword applies the password strength policy: at least 6 characters
// with at least one letter and one digit. Returns field errors for the given
// field name, or nil if the password passes.
func checkPassword(field, password string) []FieldError {
	var errs []FieldError

	if len(password) < minPasswordLen {
		errs = append(errs, FieldError{Field: field, Message: "must be at least 6 characters"})
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		errs = append(errs, FieldError{Field: field, Message: "must contain at least one letter and one digit"})
	}

	return errs
}

// ValidateRegistration checks registration input and returns a
// *ValidationError listing every failed field, or nil if the input is valid.
func ValidateRegistration(in RegisterInput) error {
	var errs []FieldError

	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "is required"})
	} else if len(in.Name) > maxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: "must be at most 100 characters"})
	}

	if !IsValidEmail(NormalizeEmail(in.Email)) {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}

	errs = append(errs, checkPassword("password", in.Password)...)

	if in.Password != in.ConfirmPassword {
		errs = append(errs, FieldError{Field: "confirm_password", Message: "does not match password"})
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidatePasswordChange checks a new password against the strength policy
// and its confirmation. The current-password check is a credential check,
// not validation, and happens in the service.
func ValidatePasswordChange(newPassword, confirmPassword string) error {
	errs := checkPassword("new_password", newPassword)

	if newPassword != confirmPassword {
		errs = append(errs, FieldError{Field: "confirm_new_password", Message: "does not match new password"})
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
