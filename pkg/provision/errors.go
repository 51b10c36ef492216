package provision

import (
	"errors"
	"fmt"

	"github.com/espprov/espprov-go/pkg/wire"
)

// Errors returned by Device operations.
var (
	// ErrNotConnected is returned when no session is established or the
	// device was disconnected while an operation was running.
	ErrNotConnected = errors.New("provision: not connected")

	// ErrCapabilityMismatch means the requested security mode or feature is
	// not offered by the device.
	ErrCapabilityMismatch = errors.New("provision: capability mismatch")

	// ErrUsernameRequired means scheme 2 was selected, no username was
	// available and the default username is disabled.
	ErrUsernameRequired = errors.New("provision: username required")

	// ErrNoNetworks is returned by scans that found nothing.
	ErrNoNetworks = errors.New("provision: no networks found")

	// ErrStatus wraps a non-success status returned by the device.
	ErrStatus = errors.New("provision: device status")

	// ErrDecode means a decrypted payload did not parse.
	ErrDecode = errors.New("provision: decode")

	// ErrConnectionFailed is returned when the device reports a terminal
	// failure while joining the provisioned network.
	ErrConnectionFailed = errors.New("provision: network connection failed")
)

func statusError(op string, status wire.Status) error {
	return fmt.Errorf("%w: %w", ErrStatus, &wire.StatusError{Op: op, Status: status})
}

func decodeError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDecode, what, err)
}
