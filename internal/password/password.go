// Package password contains utilities for managing passwords.
package password

import (
	"errors"

	passwordvalidator "github.com/wagslane/go-password-validator"
)

const (
	minimumLength      = 8
	minimumEntropyBits = 50
)

var (
	ErrTooShort = errors.New("password must be at least 8 characters long")
	ErrTooWeak  = errors.New("password is too weak")
)

func ValidatePassword(password string) error {
	if len(password) < minimumLength {
		return ErrTooShort
	}

	if err := passwordvalidator.Validate(password, minimumEntropyBits); err != nil {
		return errors.Join(ErrTooWeak, err)
	}

	return nil
}
