package security

import (
	"bytes"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"golang.org/x/crypto/curve25519"

	"github.com/espprov/espprov-go/pkg/wire"
)

func seeded(seed int64) Option {
	return WithRandom(rand.New(rand.NewSource(seed)))
}

// runHandshake drives client against dev until the client stops producing
// requests.
func runHandshake(client Security, dev Responder) (reqs, resps [][]byte, err error) {
	var resp []byte
	for i := 0; i < 8; i++ {
		req, err := client.NextHandshakeMessage(resp)
		if err != nil {
			return reqs, resps, err
		}
		if req == nil {
			return reqs, resps, nil
		}
		reqs = append(reqs, req)
		resp, err = dev.HandleSession(req)
		if err != nil {
			return reqs, resps, err
		}
		resps = append(resps, resp)
	}
	return reqs, resps, errors.New("handshake did not finish")
}

// replay feeds recorded device responses to client.
func replay(client Security, resps [][]byte) error {
	var resp []byte
	for i := 0; ; i++ {
		req, err := client.NextHandshakeMessage(resp)
		if err != nil {
			return err
		}
		if req == nil {
			return nil
		}
		if i >= len(resps) {
			return errors.New("unexpected extra request")
		}
		resp = resps[i]
	}
}

func checkRoundTrip(t *testing.T, client Security, dev Responder) {
	t.Helper()
	for i, msg := range []string{"get-status", "", "set-config ssid=home", "apply"} {
		ct, err := client.Encrypt([]byte(msg))
		if err != nil {
			t.Fatalf("client Encrypt #%d: %v", i, err)
		}
		pt, err := dev.Decrypt(ct)
		if err != nil {
			t.Fatalf("device Decrypt #%d: %v", i, err)
		}
		if string(pt) != msg {
			t.Errorf("device got %q, want %q", pt, msg)
		}

		reply := "reply to " + msg
		ct, err = dev.Encrypt([]byte(reply))
		if err != nil {
			t.Fatalf("device Encrypt #%d: %v", i, err)
		}
		pt, err = client.Decrypt(ct)
		if err != nil {
			t.Fatalf("client Decrypt #%d: %v", i, err)
		}
		if string(pt) != reply {
			t.Errorf("client got %q, want %q", pt, reply)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:                 "IDLE",
		StateAwaitingDeviceHello:  "AWAITING_DEVICE_HELLO",
		StateAwaitingDeviceVerify: "AWAITING_DEVICE_VERIFY",
		StateAwaitingDeviceProof:  "AWAITING_DEVICE_PROOF",
		StateEstablished:          "ESTABLISHED",
		StateFailed:               "FAILED",
		State(42):                 "UNKNOWN",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestSec0(t *testing.T) {
	s := NewSec0()
	if _, err := s.Encrypt([]byte("x")); !errors.Is(err, ErrNotEstablished) {
		t.Fatalf("Encrypt before handshake: got %v, want ErrNotEstablished", err)
	}

	req, err := s.NextHandshakeMessage(nil)
	if err != nil || req != nil {
		t.Fatalf("NextHandshakeMessage = %x, %v; want nil, nil", req, err)
	}
	if s.State() != StateEstablished {
		t.Fatalf("state = %s, want ESTABLISHED", s.State())
	}

	in := []byte("plain payload")
	ct, _ := s.Encrypt(in)
	pt, _ := s.Decrypt(ct)
	if !bytes.Equal(ct, in) || !bytes.Equal(pt, in) {
		t.Errorf("Sec0 should pass payloads through unchanged")
	}
}

func TestSec0Responder(t *testing.T) {
	dev := NewSec0Responder()
	if !dev.Established() {
		t.Fatal("scheme 0 responder should accept traffic without a handshake")
	}
	if out, err := dev.Encrypt([]byte("x")); err != nil || string(out) != "x" {
		t.Fatalf("Encrypt = %q, %v", out, err)
	}

	req := wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme0,
		Sec0:   &wire.Sec0Payload{Msg: wire.Sec0SessionCommand, Cmd: &wire.S0SessionCmd{}},
	})
	resp, err := dev.HandleSession(req)
	if err != nil {
		t.Fatalf("HandleSession: %v", err)
	}
	m, err := wire.DecodeSessionData(resp)
	if err != nil {
		t.Fatalf("DecodeSessionData: %v", err)
	}
	if m.Sec0 == nil || m.Sec0.Resp == nil || m.Sec0.Resp.Status != wire.StatusSuccess {
		t.Fatalf("unexpected response %+v", m)
	}
	if !dev.Established() {
		t.Error("responder should be established")
	}

	bad := wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme1,
		Sec1:   &wire.Sec1Payload{Msg: wire.Sec1SessionCommand0, Cmd0: &wire.Sec1Cmd0{}},
	})
	if _, err := dev.HandleSession(bad); err != nil {
		t.Fatalf("HandleSession: %v", err)
	}
	if dev.Established() {
		t.Error("wrong scheme should close the session")
	}
}

func TestSec1Handshake(t *testing.T) {
	for _, pop := range []string{"abcd1234", ""} {
		client := NewSec1([]byte(pop), seeded(1))
		dev := NewSec1Responder([]byte(pop), seeded(2))

		reqs, _, err := runHandshake(client, dev)
		if err != nil {
			t.Fatalf("pop %q: handshake: %v", pop, err)
		}
		if len(reqs) != 2 {
			t.Errorf("pop %q: %d requests, want 2", pop, len(reqs))
		}
		if client.State() != StateEstablished || !dev.Established() {
			t.Fatalf("pop %q: not established", pop)
		}
		checkRoundTrip(t, client, dev)

		// Once established no further requests are produced.
		req, err := client.NextHandshakeMessage(nil)
		if req != nil || err != nil {
			t.Errorf("after establishment: %x, %v", req, err)
		}
	}
}

func TestSec1Deterministic(t *testing.T) {
	run := func() [][]byte {
		reqs, _, err := runHandshake(NewSec1([]byte("pop"), seeded(7)), NewSec1Responder([]byte("pop"), seeded(8)))
		if err != nil {
			t.Fatalf("handshake: %v", err)
		}
		return reqs
	}
	first, second := run(), run()
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Errorf("request %d differs between runs", i)
		}
	}

	// The opening request is the client public key behind a fixed header.
	priv := make([]byte, 32)
	rand.New(rand.NewSource(7)).Read(priv)
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte{0x10, 0x01, 0x5a, 0x25, 0xa2, 0x01, 0x22, 0x0a, 0x20}, pub...)
	if !bytes.Equal(first[0], want) {
		t.Errorf("first request:\ngot  %x\nwant %x", first[0], want)
	}
}

func TestSec1WrongPop(t *testing.T) {
	client := NewSec1([]byte("wrong"), seeded(1))
	dev := NewSec1Responder([]byte("right"), seeded(2))

	_, _, err := runHandshake(client, dev)
	if !errors.Is(err, ErrSecurityMismatch) {
		t.Fatalf("got %v, want ErrSecurityMismatch", err)
	}
	if client.State() != StateFailed {
		t.Errorf("state = %s, want FAILED", client.State())
	}

	// Failure is sticky.
	_, err = client.NextHandshakeMessage(nil)
	if !errors.Is(err, ErrHandshakeFailed) || !errors.Is(err, ErrSecurityMismatch) {
		t.Errorf("after failure: got %v", err)
	}
	if _, err := client.Encrypt([]byte("x")); !errors.Is(err, ErrNotEstablished) {
		t.Errorf("Encrypt after failure: got %v", err)
	}
}

func TestSec1DeviceRejected(t *testing.T) {
	client := NewSec1(nil, seeded(1))
	if _, err := client.NextHandshakeMessage(nil); err != nil {
		t.Fatal(err)
	}
	resp := sec1Reply(&wire.Sec1Payload{
		Msg:   wire.Sec1SessionResponse0,
		Resp0: &wire.Sec1Resp0{Status: wire.StatusTooManySessions},
	})
	if _, err := client.NextHandshakeMessage(resp); !errors.Is(err, ErrDeviceRejected) {
		t.Errorf("got %v, want ErrDeviceRejected", err)
	}
}

func TestSec1MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		resp []byte
	}{
		{"garbage", []byte{0xff, 0xff, 0xff}},
		{"wrong scheme", sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse0,
			Resp0: &wire.Sec2Resp0{DevicePubKey: []byte{1}, DeviceSalt: []byte{2}},
		})},
		{"wrong step", sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse1,
			Resp1: &wire.Sec1Resp1{},
		})},
		{"short public key", sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse0,
			Resp0: &wire.Sec1Resp0{DevicePubKey: make([]byte, 31), DeviceRandom: make([]byte, 16)},
		})},
		{"short random", sec1Reply(&wire.Sec1Payload{
			Msg:   wire.Sec1SessionResponse0,
			Resp0: &wire.Sec1Resp0{DevicePubKey: make([]byte, 32), DeviceRandom: make([]byte, 8)},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewSec1(nil, seeded(1))
			if _, err := client.NextHandshakeMessage(nil); err != nil {
				t.Fatal(err)
			}
			if _, err := client.NextHandshakeMessage(tt.resp); !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("got %v, want ErrMalformedMessage", err)
			}
		})
	}
}

func TestSec1TamperedResponses(t *testing.T) {
	_, resps, err := runHandshake(NewSec1([]byte("pop"), seeded(3)), NewSec1Responder([]byte("pop"), seeded(4)))
	if err != nil {
		t.Fatalf("honest handshake: %v", err)
	}
	if err := replay(NewSec1([]byte("pop"), seeded(3)), resps); err != nil {
		t.Fatalf("honest replay: %v", err)
	}

	for i := range resps {
		for j := range resps[i] {
			tampered := make([][]byte, len(resps))
			copy(tampered, resps)
			tampered[i] = bytes.Clone(resps[i])
			tampered[i][j] ^= 0x01

			if err := replay(NewSec1([]byte("pop"), seeded(3)), tampered); err == nil {
				t.Errorf("response %d byte %d: tampering was not detected", i, j)
			}
		}
	}
}

func TestSec2Handshake(t *testing.T) {
	client := NewSec2("", "abcd1234", seeded(1))
	dev, err := NewSec2Responder(DefaultUsername, "abcd1234", seeded(2))
	if err != nil {
		t.Fatal(err)
	}

	reqs, _, err := runHandshake(client, dev)
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if len(reqs) != 2 {
		t.Errorf("%d requests, want 2", len(reqs))
	}
	if client.State() != StateEstablished || !dev.Established() {
		t.Fatal("not established")
	}
	checkRoundTrip(t, client, dev)
}

func TestSec2Deterministic(t *testing.T) {
	run := func() [][]byte {
		dev, err := NewSec2Responder("user", "secret", seeded(8))
		if err != nil {
			t.Fatal(err)
		}
		reqs, _, err := runHandshake(NewSec2("user", "secret", seeded(7)), dev)
		if err != nil {
			t.Fatalf("handshake: %v", err)
		}
		return reqs
	}
	first, second := run(), run()
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Errorf("request %d differs between runs", i)
		}
	}

	// The opening request carries A = g^a mod N for the seeded a.
	a := make([]byte, SRPEphemeralSize)
	rand.New(rand.NewSource(7)).Read(a)
	n, _ := new(big.Int).SetString(srpPrimeHex, 16)
	A := new(big.Int).Exp(big.NewInt(srpGenerator), new(big.Int).SetBytes(a), n)
	want := wire.EncodeSessionData(&wire.SessionData{
		SecVer: wire.SecScheme2,
		Sec2: &wire.Sec2Payload{
			Msg:  wire.Sec2SessionCommand0,
			Cmd0: &wire.Sec2Cmd0{ClientUsername: []byte("user"), ClientPubKey: A.Bytes()},
		},
	})
	if !bytes.Equal(first[0], want) {
		t.Errorf("first request:\ngot  %x\nwant %x", first[0], want)
	}
}

func TestSec2WrongPassword(t *testing.T) {
	client := NewSec2("", "wrong", seeded(1))
	dev, err := NewSec2Responder("", "right", seeded(2))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = runHandshake(client, dev)
	if !errors.Is(err, ErrSecurityMismatch) {
		t.Fatalf("got %v, want ErrSecurityMismatch", err)
	}
	if dev.Established() {
		t.Error("device should not be established")
	}
}

func TestSec2WrongUsername(t *testing.T) {
	client := NewSec2("someone", "pw", seeded(1))
	dev, err := NewSec2Responder("wifiprov", "pw", seeded(2))
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = runHandshake(client, dev)
	if !errors.Is(err, ErrDeviceRejected) {
		t.Fatalf("got %v, want ErrDeviceRejected", err)
	}
}

func TestSec2RejectsDegeneratePublicValue(t *testing.T) {
	for name, b := range map[string][]byte{
		"zero":  {0},
		"prime": srp3072.n.Bytes(),
	} {
		client := NewSec2("", "pw", seeded(1))
		if _, err := client.NextHandshakeMessage(nil); err != nil {
			t.Fatal(err)
		}
		resp := sec2Reply(&wire.Sec2Payload{
			Msg:   wire.Sec2SessionResponse0,
			Resp0: &wire.Sec2Resp0{DevicePubKey: b, DeviceSalt: []byte{1, 2, 3}},
		})
		if _, err := client.NextHandshakeMessage(resp); !errors.Is(err, ErrSecurityMismatch) {
			t.Errorf("%s: got %v, want ErrSecurityMismatch", name, err)
		}
	}
}

func TestSec2TamperedResponses(t *testing.T) {
	newClient := func() *Sec2 { return NewSec2("", "pop", seeded(3)) }
	dev, err := NewSec2Responder("", "pop", seeded(4))
	if err != nil {
		t.Fatal(err)
	}
	_, resps, err := runHandshake(newClient(), dev)
	if err != nil {
		t.Fatalf("honest handshake: %v", err)
	}
	sealed, err := dev.Encrypt([]byte("device status"))
	if err != nil {
		t.Fatal(err)
	}

	stride := 1
	if testing.Short() {
		stride = 13
	}
	for i := range resps {
		for j := 0; j < len(resps[i]); j += stride {
			tampered := make([][]byte, len(resps))
			copy(tampered, resps)
			tampered[i] = bytes.Clone(resps[i])
			tampered[i][j] ^= 0x01

			client := newClient()
			if err := replay(client, tampered); err != nil {
				continue
			}
			// The nonce is not covered by the proofs; tampering with it
			// must still break the channel.
			pt, err := client.Decrypt(sealed)
			if err == nil && string(pt) == "device status" {
				t.Errorf("response %d byte %d: tampering was not detected", i, j)
			}
		}
	}
}

func TestSec2ShortNonce(t *testing.T) {
	iv, err := sec2IV(bytes.Repeat([]byte{0xab}, 12))
	if err != nil {
		t.Fatal(err)
	}
	want := append(bytes.Repeat([]byte{0xab}, 12), 0, 0, 0, 0)
	if !bytes.Equal(iv, want) {
		t.Errorf("iv = %x, want %x", iv, want)
	}
	if _, err := sec2IV(make([]byte, 8)); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("8 byte nonce: got %v", err)
	}
}
