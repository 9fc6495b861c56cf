package services

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("slot is not available")
	ErrRefundRequired         = fmt.Errorf("%w: slot was taken before payment cleared, refund required", ErrConflict)
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrTutorNotFound          = errors.New("tutor not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrSessionNotFound        = errors.New("session not found")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailTaken             = errors.New("email already registered")
	ErrInvalidResetToken      = errors.New("invalid or expired reset token")
	ErrStorageUnavailable     = errors.New("storage is not configured")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
