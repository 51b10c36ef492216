package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
)

// DefaultServiceUUID is the provisioning service of ESP devices.
const DefaultServiceUUID = "021a9004-0382-4aea-bff4-6b3f1c5adfb4"

// requestedMTU is the largest ATT MTU (512 bytes of value plus header).
const requestedMTU = 517

var userDescriptionUUID = ble.UUID16(0x2901)

// GoBLE adapts a go-ble client to Peripheral.
type GoBLE struct {
	client  ble.Client
	service ble.UUID
	mtu     int

	mu    sync.Mutex
	chars map[string]*ble.Characteristic
}

// NewGoBLE wraps a connected client. An empty service matches every service.
func NewGoBLE(client ble.Client, service string, mtu int) (*GoBLE, error) {
	g := &GoBLE{client: client, mtu: mtu, chars: make(map[string]*ble.Characteristic)}
	if service != "" {
		u, err := ble.Parse(service)
		if err != nil {
			return nil, fmt.Errorf("transport: service uuid %q: %w", service, err)
		}
		g.service = u
	}
	if g.mtu == 0 {
		g.mtu = ble.DefaultMTU
	}
	return g, nil
}

// Characteristics discovers the profile and reads each characteristic's user
// description.
func (g *GoBLE) Characteristics(ctx context.Context) ([]Characteristic, error) {
	profile, err := callCtx(ctx, func() (*ble.Profile, error) {
		return g.client.DiscoverProfile(true)
	})
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Characteristic
	for _, svc := range profile.Services {
		if g.service != nil && !svc.UUID.Equal(g.service) {
			continue
		}
		for _, c := range svc.Characteristics {
			desc, err := g.describe(ctx, c)
			if err != nil {
				return nil, err
			}
			uuid := c.UUID.String()
			g.chars[uuid] = c
			out = append(out, Characteristic{UUID: uuid, Description: desc})
		}
	}
	return out, nil
}

func (g *GoBLE) describe(ctx context.Context, c *ble.Characteristic) (string, error) {
	for _, d := range c.Descriptors {
		if !d.UUID.Equal(userDescriptionUUID) {
			continue
		}
		v, err := callCtx(ctx, func() ([]byte, error) {
			return g.client.ReadDescriptor(d)
		})
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(v), "\x00"), nil
	}
	return "", nil
}

// MTU returns the negotiated ATT MTU.
func (g *GoBLE) MTU() int {
	return g.mtu
}

func (g *GoBLE) lookup(c Characteristic) (*ble.Characteristic, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bc, ok := g.chars[c.UUID]
	if !ok {
		return nil, fmt.Errorf("%w: characteristic %s", ErrUnknownPath, c.UUID)
	}
	return bc, nil
}

// Write writes value with response.
func (g *GoBLE) Write(ctx context.Context, c Characteristic, value []byte) error {
	bc, err := g.lookup(c)
	if err != nil {
		return err
	}
	_, err = callCtx(ctx, func() (struct{}, error) {
		return struct{}{}, g.client.WriteCharacteristic(bc, value, false)
	})
	return err
}

// Read reads the full characteristic value using blob reads.
func (g *GoBLE) Read(ctx context.Context, c Characteristic) ([]byte, error) {
	bc, err := g.lookup(c)
	if err != nil {
		return nil, err
	}
	return callCtx(ctx, func() ([]byte, error) {
		return g.client.ReadLongCharacteristic(bc)
	})
}

// Disconnected is closed when the link goes down.
func (g *GoBLE) Disconnected() <-chan struct{} {
	return g.client.Disconnected()
}

// Close cancels the connection.
func (g *GoBLE) Close() error {
	return g.client.CancelConnection()
}

// callCtx runs a blocking go-ble call, returning early when ctx ends.
func callCtx[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, context.Cause(ctx)
	}
}

var _ Peripheral = (*GoBLE)(nil)
