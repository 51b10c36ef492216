package security

import (
	"fmt"
	"io"

	"github.com/espprov/espprov-go/pkg/wire"
)

// DefaultUsername is the SRP identity used when none is configured.
const DefaultUsername = "wifiprov"

// Accepted device nonce sizes. A short nonce is zero-extended to the IV size.
const (
	sec2ShortNonceSize = 12
	sec2NonceSize      = IVSize
)

// Sec2 is the SRP6a scheme. The proof of possession is the SRP password.
type Sec2 struct {
	handshake

	username []byte
	password []byte
	rand     io.Reader

	srp *srpClient
	ch  *channel
}

// NewSec2 creates the scheme 2 client. An empty username selects
// DefaultUsername.
func NewSec2(username, password string, opts ...Option) *Sec2 {
	o := buildOptions(opts)
	if username == "" {
		username = DefaultUsername
	}
	return &Sec2{username: []byte(username), password: []byte(password), rand: o.rand}
}

// NextHandshakeMessage advances the handshake.
//
// Step 1: send the username and A.
// Step 2: derive the session key from the salt and B, send the proof M.
// Step 3: check the device proof and establish the channel with its nonce.
func (s *Sec2) NextHandshakeMessage(response []byte) ([]byte, error) {
	switch s.state {
	case StateIdle:
		return s.hello()
	case StateAwaitingDeviceHello:
		return s.prove(response)
	case StateAwaitingDeviceProof:
		return nil, s.finish(response)
	case StateEstablished:
		return nil, nil
	default:
		return nil, s.failed()
	}
}

func (s *Sec2) hello() ([]byte, error) {
	c, err := newSRPClient(srp3072, s.username, s.password, s.rand)
	if err != nil {
		return nil, s.fail(err)
	}
	s.srp = c

	s.state = StateAwaitingDeviceHello
	return wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme2,
		Sec2: &wire.Sec2Payload{
			Msg: wire.Sec2SessionCommand0,
			Cmd0: &wire.Sec2Cmd0{
				ClientUsername: s.username,
				ClientPubKey:   c.aBytes,
			},
		},
	}), nil
}

func (s *Sec2) prove(response []byte) ([]byte, error) {
	p, err := decodeSec2(response, wire.Sec2SessionResponse0)
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
	if len(r.DevicePubKey) == 0 || len(r.DeviceSalt) == 0 {
		return nil, s.fail(malformed("empty device public value or salt"))
	}
	m, err := s.srp.processChallenge(r.DeviceSalt, r.DevicePubKey)
	if err != nil {
		return nil, s.fail(err)
	}

	s.state = StateAwaitingDeviceProof
	return wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme2,
		Sec2: &wire.Sec2Payload{
			Msg:  wire.Sec2SessionCommand1,
			Cmd1: &wire.Sec2Cmd1{ClientProof: m},
		},
	}), nil
}

func (s *Sec2) finish(response []byte) error {
	p, err := decodeSec2(response, wire.Sec2SessionResponse1)
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
	if !s.srp.verifyServer(r.DeviceProof) {
		return s.fail(fmt.Errorf("%w: device proof does not match", ErrSecurityMismatch))
	}
	iv, err := sec2IV(r.DeviceNonce)
	if err != nil {
		return s.fail(err)
	}
	ch, err := newChannel(s.srp.key[:KeySize], iv, true)
	if err != nil {
		return s.fail(err)
	}
	s.ch = ch
	s.srp = nil
	s.state = StateEstablished
	return nil
}

// Encrypt protects an outgoing payload.
func (s *Sec2) Encrypt(plaintext []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, ErrNotEstablished
	}
	return s.ch.Encrypt(plaintext), nil
}

// Decrypt recovers an incoming payload.
func (s *Sec2) Decrypt(ciphertext []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, ErrNotEstablished
	}
	return s.ch.Decrypt(ciphertext), nil
}

func sec2IV(nonce []byte) ([]byte, error) {
	switch len(nonce) {
	case sec2NonceSize:
		return nonce, nil
	case sec2ShortNonceSize:
		iv := make([]byte, IVSize)
		copy(iv, nonce)
		return iv, nil
	default:
		return nil, malformed("device nonce length %d", len(nonce))
	}
}

func decodeSec2(data []byte, want wire.Sec2MsgType) (*wire.Sec2Payload, error) {
	m, err := wire.DecodeSessionData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if m.SecVer != wire.SecScheme2 || m.Sec2 == nil {
		return nil, malformed("expected scheme 2 payload, got %s", m.SecVer)
	}
	if m.Sec2.Msg != want {
		return nil, malformed("unexpected message type %d", m.Sec2.Msg)
	}
	return m.Sec2, nil
}

var _ Security = (*Sec2)(nil)
