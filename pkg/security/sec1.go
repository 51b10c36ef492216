package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"

	"github.com/espprov/espprov-go/pkg/wire"
)

// Sec1 sizes.
const (
	Sec1PublicKeySize    = curve25519.PointSize
	Sec1DeviceRandomSize = 16
)

// Sec1 is the Curve25519 scheme with an optional proof of possession.
type Sec1 struct {
	handshake

	pop  []byte
	rand io.Reader

	privateKey   []byte
	publicKey    []byte
	devicePubKey []byte
	ch           *channel
}

// NewSec1 creates the scheme 1 client. An empty pop disables the proof of
// possession.
func NewSec1(pop []byte, opts ...Option) *Sec1 {
	o := buildOptions(opts)
	return &Sec1{pop: pop, rand: o.rand}
}

// NextHandshakeMessage advances the handshake.
//
// Step 1: send the client public key.
// Step 2: derive the key from the device public key, send the verifier.
// Step 3: check the device verifier and establish the channel.
func (s *Sec1) NextHandshakeMessage(response []byte) ([]byte, error) {
	switch s.state {
	case StateIdle:
		return s.hello()
	case StateAwaitingDeviceHello:
		return s.verify(response)
	case StateAwaitingDeviceVerify:
		return nil, s.finish(response)
	case StateEstablished:
		return nil, nil
	default:
		return nil, s.failed()
	}
}

func (s *Sec1) hello() ([]byte, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(s.rand, priv); err != nil {
		return nil, s.fail(fmt.Errorf("security: generate key: %w", err))
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, s.fail(fmt.Errorf("security: derive public key: %w", err))
	}
	s.privateKey = priv
	s.publicKey = pub

	s.state = StateAwaitingDeviceHello
	return wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme1,
		Sec1: &wire.Sec1Payload{
			Msg:  wire.Sec1SessionCommand0,
			Cmd0: &wire.Sec1Cmd0{ClientPubKey: pub},
		},
	}), nil
}

func (s *Sec1) verify(response []byte) ([]byte, error) {
	p, err := decodeSec1(response, wire.Sec1SessionResponse0)
	if err != nil {
		return nil, s.fail(err)
	}
	r := p.Resp0
	if r == nil {
		return nil, s.fail(malformed("missing response 0"))
	}
	if r.Status != wire.StatusSuccess {
		return nil, s.fail(fmt.Errorf("%w: %s", ErrDeviceRejected, r.Status))
	}
	if len(r.DevicePubKey) != Sec1PublicKeySize {
		return nil, s.fail(malformed("device public key length %d", len(r.DevicePubKey)))
	}
	if len(r.DeviceRandom) != Sec1DeviceRandomSize {
		return nil, s.fail(malformed("device random length %d", len(r.DeviceRandom)))
	}

	key, err := sec1Key(s.privateKey, r.DevicePubKey, s.pop)
	if err != nil {
		return nil, s.fail(err)
	}
	ch, err := newChannel(key, r.DeviceRandom, true)
	if err != nil {
		return nil, s.fail(err)
	}
	s.ch = ch
	s.devicePubKey = r.DevicePubKey

	s.state = StateAwaitingDeviceVerify
	return wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme1,
		Sec1: &wire.Sec1Payload{
			Msg:  wire.Sec1SessionCommand1,
			Cmd1: &wire.Sec1Cmd1{ClientVerifyData: ch.Encrypt(r.DevicePubKey)},
		},
	}), nil
}

func (s *Sec1) finish(response []byte) error {
	p, err := decodeSec1(response, wire.Sec1SessionResponse1)
	if err != nil {
		return s.fail(err)
	}
	r := p.Resp1
	if r == nil {
		return s.fail(malformed("missing response 1"))
	}
	if r.Status != wire.StatusSuccess {
		return s.fail(fmt.Errorf("%w: device status %s", ErrSecurityMismatch, r.Status))
	}
	got := s.ch.Decrypt(r.DeviceVerifyData)
	if subtle.ConstantTimeCompare(got, s.publicKey) != 1 {
		return s.fail(fmt.Errorf("%w: device verifier does not match", ErrSecurityMismatch))
	}
	s.privateKey = nil
	s.state = StateEstablished
	return nil
}

// Encrypt protects an outgoing payload.
func (s *Sec1) Encrypt(plaintext []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, ErrNotEstablished
	}
	return s.ch.Encrypt(plaintext), nil
}

// Decrypt recovers an incoming payload.
func (s *Sec1) Decrypt(ciphertext []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, ErrNotEstablished
	}
	return s.ch.Decrypt(ciphertext), nil
}

// sec1Key computes X25519(priv, peer), XORed with SHA-256(pop) when a proof
// of possession is set.
func sec1Key(priv, peer, pop []byte) ([]byte, error) {
	shared, err := curve25519.X25519(priv, peer)
	if err != nil {
		return nil, fmt.Errorf("%w: key agreement: %v", ErrMalformedMessage, err)
	}
	if len(pop) > 0 {
		digest := sha256.Sum256(pop)
		subtle.XORBytes(shared, shared, digest[:])
	}
	return shared, nil
}

func decodeSec1(data []byte, want wire.Sec1MsgType) (*wire.Sec1Payload, error) {
	m, err := wire.DecodeSessionData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if m.SecVer != wire.SecScheme1 || m.Sec1 == nil {
		return nil, malformed("expected scheme 1 payload, got %s", m.SecVer)
	}
	if m.Sec1.Msg != want {
		return nil, malformed("unexpected message type %d", m.Sec1.Msg)
	}
	return m.Sec1, nil
}

var _ Security = (*Sec1)(nil)
