package security

import (
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"

	"github.com/espprov/espprov-go/pkg/biguint"
	"github.com/espprov/espprov-go/pkg/wire"
)

// Responder is the device side of a security scheme.
//
// HandleSession answers one handshake request. A command 0 always starts a
// new session. Protocol violations are answered with a failure status; an
// error is only returned when no response can be produced at all.
type Responder interface {
	HandleSession(request []byte) ([]byte, error)
	Established() bool
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Sec0Responder accepts unsecured sessions. Clients running scheme 0 send
// no handshake, so the channel is open from the start; a session command
// with the wrong scheme closes it.
type Sec0Responder struct {
	established bool
}

// NewSec0Responder creates the unsecured device responder.
func NewSec0Responder() *Sec0Responder {
	return &Sec0Responder{established: true}
}

// HandleSession answers an explicit scheme 0 session command.
func (r *Sec0Responder) HandleSession(request []byte) ([]byte, error) {
	m, err := wire.DecodeSessionData(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	status := wire.StatusSuccess
	if m.SecVer != wire.SecScheme0 || m.Sec0 == nil {
		status = wire.StatusInvalidSecScheme
	}
	r.established = status == wire.StatusSuccess
	return wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme0,
		Sec0: &wire.Sec0Payload{
			Msg:  wire.Sec0SessionResponse,
			Resp: &wire.S0SessionResp{Status: status},
		},
	}), nil
}

// Established reports whether a session is open.
func (r *Sec0Responder) Established() bool { return r.established }

// Encrypt returns plaintext unchanged.
func (r *Sec0Responder) Encrypt(plaintext []byte) ([]byte, error) {
	if !r.established {
		return nil, ErrNotEstablished
	}
	return plaintext, nil
}

// Decrypt returns ciphertext unchanged.
func (r *Sec0Responder) Decrypt(ciphertext []byte) ([]byte, error) {
	if !r.established {
		return nil, ErrNotEstablished
	}
	return ciphertext, nil
}

// Sec1Responder is the device side of scheme 1.
type Sec1Responder struct {
	pop  []byte
	rand io.Reader

	privateKey   []byte
	publicKey    []byte
	clientPubKey []byte
	pending      *channel
	ch           *channel
}

// NewSec1Responder creates a scheme 1 device responder for pop.
func NewSec1Responder(pop []byte, opts ...Option) *Sec1Responder {
	o := buildOptions(opts)
	return &Sec1Responder{pop: pop, rand: o.rand}
}

// HandleSession answers one scheme 1 handshake message.
func (r *Sec1Responder) HandleSession(request []byte) ([]byte, error) {
	m, err := wire.DecodeSessionData(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if m.SecVer != wire.SecScheme1 || m.Sec1 == nil {
		return sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse0,
			Resp0: &wire.Sec1Resp0{Status: wire.StatusInvalidSecScheme},
		}), nil
	}
	switch p := m.Sec1; {
	case p.Msg == wire.Sec1SessionCommand0 && p.Cmd0 != nil:
		return r.hello(p.Cmd0)
	case p.Msg == wire.Sec1SessionCommand1 && p.Cmd1 != nil:
		return r.verify(p.Cmd1), nil
	default:
		return sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse0,
			Resp0: &wire.Sec1Resp0{Status: wire.StatusInvalidProto},
		}), nil
	}
}

func (r *Sec1Responder) hello(cmd *wire.Sec1Cmd0) ([]byte, error) {
	r.ch, r.pending = nil, nil
	if len(cmd.ClientPubKey) != Sec1PublicKeySize {
		return sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse0,
			Resp0: &wire.Sec1Resp0{Status: wire.StatusInvalidArgument},
		}), nil
	}
	priv := make([]byte, curve25519.ScalarSize)
	random := make([]byte, Sec1DeviceRandomSize)
	if _, err := io.ReadFull(r.rand, priv); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r.rand, random); err != nil {
		return nil, err
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	key, err := sec1Key(priv, cmd.ClientPubKey, r.pop)
	if err != nil {
		return sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse0,
			Resp0: &wire.Sec1Resp0{Status: wire.StatusCryptoError},
		}), nil
	}
	ch, err := newChannel(key, random, false)
	if err != nil {
		return nil, err
	}
	r.privateKey, r.publicKey = priv, pub
	r.clientPubKey = cmd.ClientPubKey
	r.pending = ch
	return sec1Reply(&wire.Sec1Payload{
		Msg: wire.Sec1SessionResponse0,
		Resp0: &wire.Sec1Resp0{
			Status:       wire.StatusSuccess,
			DevicePubKey: pub,
			DeviceRandom: random,
		},
	}), nil
}

func (r *Sec1Responder) verify(cmd *wire.Sec1Cmd1) []byte {
	if r.pending == nil {
		return sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse1,
			Resp1: &wire.Sec1Resp1{Status: wire.StatusInvalidSession},
		})
	}
	ch := r.pending
	r.pending = nil
	got := ch.Decrypt(cmd.ClientVerifyData)
	if subtle.ConstantTimeCompare(got, r.publicKey) != 1 {
		return sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse1,
			Resp1: &wire.Sec1Resp1{Status: wire.StatusCryptoError},
		})
	}
	r.ch = ch
	return sec1Reply(&wire.Sec1Payload{
		Msg: wire.Sec1SessionResponse1,
		Resp1: &wire.Sec1Resp1{
			Status:           wire.StatusSuccess,
			DeviceVerifyData: ch.Encrypt(r.clientPubKey),
		},
	})
}

func sec1Reply(p *wire.Sec1Payload) []byte {
	return wire.EncodeSessionData(&wire.SessionData{SecVer: wire.SecScheme1, Sec1: p})
}

// Established reports whether a session is open.
func (r *Sec1Responder) Established() bool { return r.ch != nil }

// Encrypt protects a device response.
func (r *Sec1Responder) Encrypt(plaintext []byte) ([]byte, error) {
	if r.ch == nil {
		return nil, ErrNotEstablished
	}
	return r.ch.Encrypt(plaintext), nil
}

// Decrypt recovers a client request.
func (r *Sec1Responder) Decrypt(ciphertext []byte) ([]byte, error) {
	if r.ch == nil {
		return nil, ErrNotEstablished
	}
	return r.ch.Decrypt(ciphertext), nil
}

// Sec2Responder is the device side of scheme 2.
type Sec2Responder struct {
	username []byte
	salt     []byte
	verifier biguint.BigUInt
	rand     io.Reader

	srv      *srpServer
	expected []byte
	aBytes   []byte
	ch       *channel
}

// NewSec2Responder creates a scheme 2 device responder. The verifier is
// derived once from username and password. An empty username selects
// DefaultUsername.
func NewSec2Responder(username, password string, opts ...Option) (*Sec2Responder, error) {
	o := buildOptions(opts)
	if username == "" {
		username = DefaultUsername
	}
	salt, v, err := newSRPVerifier(srp3072, []byte(username), []byte(password), o.rand)
	if err != nil {
		return nil, err
	}
	return &Sec2Responder{username: []byte(username), salt: salt, verifier: v, rand: o.rand}, nil
}

// HandleSession answers one scheme 2 handshake message.
func (r *Sec2Responder) HandleSession(request []byte) ([]byte, error) {
	m, err := wire.DecodeSessionData(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if m.SecVer != wire.SecScheme2 || m.Sec2 == nil {
		return sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse0,
			Resp0: &wire.Sec2Resp0{Status: wire.StatusInvalidSecScheme},
		}), nil
	}
	switch p := m.Sec2; {
	case p.Msg == wire.Sec2SessionCommand0 && p.Cmd0 != nil:
		return r.hello(p.Cmd0)
	case p.Msg == wire.Sec2SessionCommand1 && p.Cmd1 != nil:
		return r.verify(p.Cmd1)
	default:
		return sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse0,
			Resp0: &wire.Sec2Resp0{Status: wire.StatusInvalidProto},
		}), nil
	}
}

func (r *Sec2Responder) hello(cmd *wire.Sec2Cmd0) ([]byte, error) {
	r.ch, r.srv, r.expected = nil, nil, nil
	if subtle.ConstantTimeCompare(cmd.ClientUsername, r.username) != 1 {
		return sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse0,
			Resp0: &wire.Sec2Resp0{Status: wire.StatusInvalidArgument},
		}), nil
	}
	srv, err := newSRPServer(srp3072, r.username, r.salt, r.verifier, r.rand)
	if err != nil {
		return nil, err
	}
	expected, err := srv.processClient(cmd.ClientPubKey)
	if err != nil {
		return sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse0,
			Resp0: &wire.Sec2Resp0{Status: wire.StatusCryptoError},
		}), nil
	}
	r.srv = srv
	r.expected = expected
	r.aBytes = cmd.ClientPubKey
	return sec2Reply(&wire.Sec2Payload{
		Msg: wire.Sec2SessionResponse0,
		Resp0: &wire.Sec2Resp0{
			Status:       wire.StatusSuccess,
			DevicePubKey: srv.bBytes,
			DeviceSalt:   r.salt,
		},
	}), nil
}

func (r *Sec2Responder) verify(cmd *wire.Sec2Cmd1) ([]byte, error) {
	if r.srv == nil {
		return sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse1,
			Resp1: &wire.Sec2Resp1{Status: wire.StatusInvalidSession},
		}), nil
	}
	srv, expected := r.srv, r.expected
	r.srv, r.expected = nil, nil
	if subtle.ConstantTimeCompare(cmd.ClientProof, expected) != 1 {
		return sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse1,
			Resp1: &wire.Sec2Resp1{Status: wire.StatusCryptoError},
		}), nil
	}
	nonce := make([]byte, sec2ShortNonceSize)
	if _, err := io.ReadFull(r.rand, nonce); err != nil {
		return nil, err
	}
	iv, err := sec2IV(nonce)
	if err != nil {
		return nil, err
	}
	ch, err := newChannel(srv.key[:KeySize], iv, false)
	if err != nil {
		return nil, err
	}
	r.ch = ch
	return sec2Reply(&wire.Sec2Payload{
		Msg: wire.Sec2SessionResponse1,
		Resp1: &wire.Sec2Resp1{
			Status:      wire.StatusSuccess,
			DeviceProof: srpServerProof(r.aBytes, cmd.ClientProof, srv.key),
			DeviceNonce: nonce,
		},
	}), nil
}

func sec2Reply(p *wire.Sec2Payload) []byte {
	return wire.EncodeSessionData(&wire.SessionData{SecVer: wire.SecScheme2, Sec2: p})
}

// Established reports whether a session is open.
func (r *Sec2Responder) Established() bool { return r.ch != nil }

// Encrypt protects a device response.
func (r *Sec2Responder) Encrypt(plaintext []byte) ([]byte, error) {
	if r.ch == nil {
		return nil, ErrNotEstablished
	}
	return r.ch.Encrypt(plaintext), nil
}

// Decrypt recovers a client request.
func (r *Sec2Responder) Decrypt(ciphertext []byte) ([]byte, error) {
	if r.ch == nil {
		return nil, ErrNotEstablished
	}
	return r.ch.Decrypt(ciphertext), nil
}

var (
	_ Responder = (*Sec0Responder)(nil)
	_ Responder = (*Sec1Responder)(nil)
	_ Responder = (*Sec2Responder)(nil)
)
