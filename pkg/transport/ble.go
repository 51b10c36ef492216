package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Characteristic identifies a GATT characteristic by UUID together with its
// user description, which names the logical path it serves.
type Characteristic struct {
	UUID        string
	Description string
}

// Peripheral is the GATT surface the BLE transport needs from a connected
// device.
type Peripheral interface {
	// Characteristics lists the provisioning characteristics.
	Characteristics(ctx context.Context) ([]Characteristic, error)

	// MTU returns the negotiated ATT MTU.
	MTU() int

	// Write writes one value with response.
	Write(ctx context.Context, c Characteristic, value []byte) error

	// Read reads the characteristic value.
	Read(ctx context.Context, c Characteristic) ([]byte, error)

	// Disconnected is closed when the link goes down.
	Disconnected() <-chan struct{}

	// Close terminates the connection.
	Close() error
}

// BLEConfig configures a BLE transport.
type BLEConfig struct {
	// Framed enables length-prefixed chunking for payloads in both
	// directions.
	Framed bool

	// MaxMessageSize bounds reassembled responses. Default: 64 KB.
	MaxMessageSize uint32
}

// BLE exchanges requests over GATT characteristics.
type BLE struct {
	p      Peripheral
	config BLEConfig
	paths  map[string]Characteristic

	mu sync.Mutex
}

// NewBLE discovers the path characteristics of a connected peripheral.
func NewBLE(ctx context.Context, p Peripheral, config BLEConfig) (*BLE, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	chars, err := p.Characteristics(ctx)
	if err != nil {
		return nil, classify("", "discover", err)
	}
	paths := make(map[string]Characteristic, len(chars))
	for _, c := range chars {
		name := strings.TrimRight(strings.TrimSpace(c.Description), "\x00")
		if name != "" {
			paths[name] = c
		}
	}
	if len(paths) == 0 {
		return nil, &Error{Op: "discover", Err: fmt.Errorf("%w: no described characteristics", ErrUnknownPath)}
	}
	return &BLE{p: p, config: config, paths: paths}, nil
}

// Paths returns the logical paths the device exposes.
func (b *BLE) Paths() []string {
	out := make([]string, 0, len(b.paths))
	for p := range b.paths {
		out = append(out, p)
	}
	return out
}

// SendReceive writes data to the path characteristic and reads the response.
func (b *BLE) SendReceive(ctx context.Context, path string, data []byte) ([]byte, error) {
	c, ok := b.paths[path]
	if !ok {
		return nil, &Error{Path: path, Op: "send", Err: ErrUnknownPath}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.p.Disconnected():
		return nil, &Error{Path: path, Op: "send", Err: ErrDisconnected}
	default:
	}

	// Link loss cancels the in-flight GATT operation.
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-b.p.Disconnected():
			cancel(ErrDisconnected)
		case <-ctx.Done():
		}
	}()

	if err := b.write(ctx, c, data); err != nil {
		return nil, b.fail(ctx, path, "write", err)
	}
	resp, err := b.read(ctx, c)
	if err != nil {
		return nil, b.fail(ctx, path, "read", err)
	}
	return resp, nil
}

func (b *BLE) write(ctx context.Context, c Characteristic, data []byte) error {
	if !b.config.Framed {
		// A single ATT write carries at most MTU-3 bytes; larger values need
		// framing.
		if limit := chunkSize(b.p.MTU()); len(data) > limit {
			return fmt.Errorf("%w: %d bytes exceed the %d byte ATT write limit (enable framing)",
				ErrMessageTooLarge, len(data), limit)
		}
		return b.p.Write(ctx, c, data)
	}
	frame, err := AppendFrame(nil, data, b.config.MaxMessageSize)
	if err != nil {
		return err
	}
	for _, chunk := range splitChunks(frame, chunkSize(b.p.MTU())) {
		if err := b.p.Write(ctx, c, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (b *BLE) read(ctx context.Context, c Characteristic) ([]byte, error) {
	if !b.config.Framed {
		return b.p.Read(ctx, c)
	}
	r := &chunkReader{ctx: ctx, p: b.p, c: c}
	return NewFrameReaderWithMaxSize(r, b.config.MaxMessageSize).ReadFrame()
}

// fail attributes an error to link loss when the link went down meanwhile.
func (b *BLE) fail(ctx context.Context, path, op string, err error) error {
	if cause := context.Cause(ctx); cause == ErrDisconnected {
		return &Error{Path: path, Op: op, Err: fmt.Errorf("%w: %w", ErrDisconnected, err)}
	}
	return classify(path, op, err)
}

// Close disconnects the peripheral.
func (b *BLE) Close() error {
	return b.p.Close()
}

// chunkReader presents successive characteristic reads as a byte stream.
type chunkReader struct {
	ctx context.Context
	p   Peripheral
	c   Characteristic
	buf []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}
		chunk, err := r.p.Read(r.ctx, r.c)
		if err != nil {
			return 0, err
		}
		if len(chunk) == 0 {
			return 0, io.EOF
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

var _ Transport = (*BLE)(nil)
