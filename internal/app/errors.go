package app

import "errors"

var (
	// ErrInvalidCredentials is returned for any login failure. The same
	// message covers unknown email and wrong password so responses do not
	// reveal which part failed.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	ErrMessageRequired          = errors.New("Message is required")
	ErrUserNotFound             = errors.New("User not found")
	ErrCurrentPasswordIncorrect = errors.New("Current password is incorrect")
)

// ValidationError carries the field-keyed errors map returned on 400s.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }
