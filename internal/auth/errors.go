package auth

import (
	"errors"
	"fmt"
)

// Wholesale access denials
var (
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrBoundToOtherDevice = errors.New("credential bound to another device")
	ErrInactive           = errors.New("credential inactive")
	ErrDeviceRequired     = errors.New("device id is required")
	ErrInvalidSession     = errors.New("invalid session")
	ErrLabelRequired      = errors.New("owner label is required for exclusive credentials")
)

// Phone verification outcomes
var (
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrDeliveryFailed = errors.New("code delivery failed")
	ErrNoSuchCode     = errors.New("no pending code")
	ErrCodeExpired    = errors.New("code expired")
	ErrCodeLocked     = errors.New("too many attempts")
)

// MismatchError reports a wrong code while attempts remain on the pending record.
type MismatchError struct {
	Remaining int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("code mismatch, %d attempts remaining", e.Remaining)
}
