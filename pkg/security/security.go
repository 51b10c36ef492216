package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Security is a session security scheme.
type Security interface {
	// NextHandshakeMessage consumes the previous device response (nil on the
	// first call) and returns the next request to send, or nil once the
	// handshake is complete.
	NextHandshakeMessage(response []byte) ([]byte, error)

	// Encrypt protects an outgoing payload. It fails before the handshake
	// completes.
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt recovers an incoming payload. It fails before the handshake
	// completes.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Security errors.
var (
	// ErrSecurityMismatch means a cryptographic verification failed: a wrong
	// proof of possession, a proof mismatch, or the device rejecting ours.
	ErrSecurityMismatch = errors.New("security: verification failed")

	// ErrMalformedMessage means a handshake message could not be decoded or
	// did not match the expected step.
	ErrMalformedMessage = errors.New("security: malformed handshake message")

	// ErrDeviceRejected means the device answered a handshake step with a
	// non-success status before any proof was exchanged.
	ErrDeviceRejected = errors.New("security: device rejected handshake")

	// ErrHandshakeFailed is returned by every call after a failure.
	ErrHandshakeFailed = errors.New("security: handshake failed")

	// ErrNotEstablished is returned by Encrypt and Decrypt before the
	// handshake completes.
	ErrNotEstablished = errors.New("security: session not established")
)

// State is the handshake state of a scheme.
type State uint8

const (
	// StateIdle is the state before the first request is produced.
	StateIdle State = iota
	// StateAwaitingDeviceHello waits for the device public key.
	StateAwaitingDeviceHello
	// StateAwaitingDeviceVerify waits for the scheme 1 device verifier.
	StateAwaitingDeviceVerify
	// StateAwaitingDeviceProof waits for the scheme 2 device proof.
	StateAwaitingDeviceProof
	// StateEstablished means the channel keys are in place.
	StateEstablished
	// StateFailed is terminal; no further requests are produced.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingDeviceHello:
		return "AWAITING_DEVICE_HELLO"
	case StateAwaitingDeviceVerify:
		return "AWAITING_DEVICE_VERIFY"
	case StateAwaitingDeviceProof:
		return "AWAITING_DEVICE_PROOF"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Option configures a scheme.
type Option func(*options)

type options struct {
	rand io.Reader
}

// WithRandom sets the source of ephemeral keys and nonces.
// The default is crypto/rand.Reader.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

func buildOptions(opts []Option) options {
	o := options{rand: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// handshake holds the state shared by the stateful schemes.
type handshake struct {
	state State
	err   error
}

// State returns the current handshake state.
func (h *handshake) State() State {
	return h.state
}

// fail moves to StateFailed and remembers err.
func (h *handshake) fail(err error) error {
	h.state = StateFailed
	h.err = err
	return err
}

// failed returns the sticky error for calls after a failure.
func (h *handshake) failed() error {
	return fmt.Errorf("%w: %w", ErrHandshakeFailed, h.err)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
}
