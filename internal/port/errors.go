package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrValidation             = errors.New("validation error")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidState           = errors.New("invalid oauth state")
)

// Validation wraps ErrValidation with a client-facing reason.
func Validation(reason string) error {
	return &validationError{reason: reason}
}

type validationError struct {
	reason string
}

func (e *validationError) Error() string { return e.reason }

func (e *validationError) Unwrap() error { return ErrValidation }
