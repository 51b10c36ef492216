package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Transport errors.
var (
	// ErrTransport is the kind shared by every error returned from a
	// Transport.
	ErrTransport = errors.New("transport error")

	// ErrNetworkUnreachable marks a dropped SoftAP association: the request
	// can be replayed once the access point is joined again.
	ErrNetworkUnreachable = errors.New("network unreachable")

	// ErrTimeout indicates the exchange did not complete in time.
	ErrTimeout = errors.New("transport timeout")

	// ErrDisconnected indicates the BLE link went down during an exchange.
	ErrDisconnected = errors.New("device disconnected")

	// ErrUnknownPath indicates the device does not expose the path.
	ErrUnknownPath = errors.New("unknown path")
)

// Error describes a failed exchange.
type Error struct {
	Path string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrTransport and the underlying cause.
func (e *Error) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// unreachableErrnos are the socket errors seen while the SoftAP association
// is down or being rebuilt.
var unreachableErrnos = []syscall.Errno{
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	syscall.ECONNABORTED,
}

// classify maps a low-level failure onto the transport error kinds.
func classify(path, op string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	switch {
	case isUnreachable(err):
		err = fmt.Errorf("%w: %w", ErrNetworkUnreachable, err)
	case isTimeout(err):
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &Error{Path: path, Op: op, Err: err}
}

func isUnreachable(err error) bool {
	if errors.Is(err, ErrNetworkUnreachable) {
		return true
	}
	for _, errno := range unreachableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
