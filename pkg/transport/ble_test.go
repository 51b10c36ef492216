package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePeripheral answers each request with handler(path, request).
type fakePeripheral struct {
	mu      sync.Mutex
	chars   []Characteristic
	mtu     int
	framed  bool
	handler func(path string, req []byte) []byte

	writes  [][]byte
	pending []byte
	out     [][]byte
	gone    chan struct{}
	onRead  func()
	readErr error
}

func newFakePeripheral(framed bool, handler func(string, []byte) []byte) *fakePeripheral {
	return &fakePeripheral{
		chars: []Characteristic{
			{UUID: "ff50", Description: "proto-ver"},
			{UUID: "ff51", Description: "prov-session\x00"},
			{UUID: "ff52", Description: "prov-config"},
			{UUID: "ff53", Description: ""},
		},
		mtu:     23,
		framed:  framed,
		handler: handler,
		gone:    make(chan struct{}),
	}
}

func (f *fakePeripheral) path(c Characteristic) string {
	for _, fc := range f.chars {
		if fc.UUID == c.UUID {
			return string(bytes.TrimRight([]byte(fc.Description), "\x00"))
		}
	}
	return ""
}

func (f *fakePeripheral) Characteristics(context.Context) ([]Characteristic, error) {
	return f.chars, nil
}

func (f *fakePeripheral) MTU() int { return f.mtu }

func (f *fakePeripheral) Write(_ context.Context, c Characteristic, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, bytes.Clone(value))
	if !f.framed {
		f.out = [][]byte{f.handler(f.path(c), value)}
		return nil
	}
	f.pending = append(f.pending, value...)
	if len(f.pending) < LengthPrefixSize {
		return nil
	}
	n := int(binary.BigEndian.Uint32(f.pending))
	if len(f.pending) < LengthPrefixSize+n {
		return nil
	}
	resp := f.handler(f.path(c), f.pending[LengthPrefixSize:LengthPrefixSize+n])
	f.pending = nil
	frame, _ := AppendFrame(nil, resp, DefaultMaxMessageSize)
	f.out = splitChunks(frame, chunkSize(f.mtu))
	return nil
}

func (f *fakePeripheral) Read(context.Context, Characteristic) ([]byte, error) {
	if f.onRead != nil {
		f.onRead()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.out) == 0 {
		return nil, nil
	}
	chunk := f.out[0]
	f.out = f.out[1:]
	return chunk, nil
}

func (f *fakePeripheral) Disconnected() <-chan struct{} { return f.gone }

func (f *fakePeripheral) Close() error { return nil }

func echoUpper(path string, req []byte) []byte {
	return append([]byte(path+":"), bytes.ToUpper(req)...)
}

func TestBLEMapsPathsFromDescriptions(t *testing.T) {
	tr, err := NewBLE(context.Background(), newFakePeripheral(false, echoUpper), BLEConfig{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"proto-ver", "prov-session", "prov-config"}, tr.Paths())

	_, err = tr.SendReceive(context.Background(), PathScan, []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownPath)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestBLENoDescribedCharacteristics(t *testing.T) {
	p := newFakePeripheral(false, echoUpper)
	p.chars = []Characteristic{{UUID: "ff51"}}
	_, err := NewBLE(context.Background(), p, BLEConfig{})
	assert.ErrorIs(t, err, ErrUnknownPath)
}

func TestBLEUnframedExchange(t *testing.T) {
	p := newFakePeripheral(false, echoUpper)
	tr, err := NewBLE(context.Background(), p, BLEConfig{})
	require.NoError(t, err)

	resp, err := tr.SendReceive(context.Background(), PathSession, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "prov-session:HELLO", string(resp))
	assert.Len(t, p.writes, 1)
}

func TestBLEUnframedRejectsPayloadAboveMTU(t *testing.T) {
	p := newFakePeripheral(false, echoUpper)
	tr, err := NewBLE(context.Background(), p, BLEConfig{})
	require.NoError(t, err)

	_, err = tr.SendReceive(context.Background(), PathSession, make([]byte, 400))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.ErrorIs(t, err, ErrTransport)

	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "write", te.Op)
	assert.Empty(t, p.writes, "nothing may reach the peripheral")

	// Exactly MTU-3 still fits one write.
	p.mtu = 103
	_, err = tr.SendReceive(context.Background(), PathSession, make([]byte, 100))
	require.NoError(t, err)
	assert.Len(t, p.writes, 1)
}

func TestBLEFramedExchangeChunksLargePayloads(t *testing.T) {
	p := newFakePeripheral(true, echoUpper)
	tr, err := NewBLE(context.Background(), p, BLEConfig{Framed: true})
	require.NoError(t, err)

	req := bytes.Repeat([]byte("abcdefgh"), 20)
	resp, err := tr.SendReceive(context.Background(), PathConfig, req)
	require.NoError(t, err)
	assert.Equal(t, "prov-config:"+string(bytes.ToUpper(req)), string(resp))

	// 4 + 160 bytes in 20 byte writes.
	assert.Len(t, p.writes, 9)
	for _, w := range p.writes {
		assert.LessOrEqual(t, len(w), 20)
	}
}

func TestBLEFramedTruncatedResponse(t *testing.T) {
	p := newFakePeripheral(true, func(string, []byte) []byte { return make([]byte, 100) })
	tr, err := NewBLE(context.Background(), p, BLEConfig{Framed: true})
	require.NoError(t, err)

	// Drop the tail of the response.
	p.onRead = func() {
		p.mu.Lock()
		if len(p.out) > 2 {
			p.out = p.out[:2]
		}
		p.mu.Unlock()
	}
	_, err = tr.SendReceive(context.Background(), PathConfig, []byte{1})
	assert.ErrorIs(t, err, ErrFrameTruncated)
}

func TestBLEDisconnectDuringRead(t *testing.T) {
	p := newFakePeripheral(false, echoUpper)
	tr, err := NewBLE(context.Background(), p, BLEConfig{})
	require.NoError(t, err)

	p.onRead = func() { close(p.gone) }
	p.readErr = errors.New("hci: connection terminated")

	_, err = tr.SendReceive(context.Background(), PathSession, []byte{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	// The read error may race the disconnect notification; once the link is
	// down every further exchange reports ErrDisconnected.
	_, err = tr.SendReceive(context.Background(), PathSession, []byte{1})
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestChunkReaderStopsOnEmptyRead(t *testing.T) {
	p := newFakePeripheral(false, echoUpper)
	r := &chunkReader{ctx: context.Background(), p: p, c: p.chars[0]}
	buf := make([]byte, 4)
	_, err := r.Read(buf)
	assert.Error(t, err)
}
