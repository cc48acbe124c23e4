package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution failures. Each is a distinct, inspectable outcome because the
// handler layer renders different status codes and messages for each.
var (
	ErrNoSuchUser         = errors.New("no user found")
	ErrNoPasswordSet      = errors.New("account has no local password")
	ErrInvalidCredentials = errors.New("email or password incorrect")
	ErrEmailTaken         = errors.New("email address is taken")
	ErrStoreUnavailable   = errors.New("identity store unavailable")
	ErrValidation         = errors.New("validation failed")
)

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// ValidationMessage returns the user-facing part of a validation error.
func ValidationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}
