package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

// DefaultPollInterval is the delay between network status queries.
const DefaultPollInterval = 5 * time.Second

// SecurityMode selects the security scheme. SecurityAuto follows the
// device's version info.
type SecurityMode int

const (
	SecurityAuto SecurityMode = iota
	Security0
	Security1
	Security2
)

// String returns "auto", "0", "1" or "2".
func (m SecurityMode) String() string {
	if m == SecurityAuto {
		return "auto"
	}
	return fmt.Sprintf("%d", int(m.scheme()))
}

func (m SecurityMode) scheme() wire.SecScheme {
	return wire.SecScheme(m - Security0)
}

// ParseSecurityMode parses "auto", "0", "1" or "2". The empty string is
// auto.
func ParseSecurityMode(s string) (SecurityMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SecurityAuto, nil
	case "0":
		return Security0, nil
	case "1":
		return Security1, nil
	case "2":
		return Security2, nil
	}
	return SecurityAuto, fmt.Errorf("provision: unknown security mode %q", s)
}

// Credentials supplies the proof of possession and the scheme 2 username
// for a device. It is consulted during Connect only when the selected
// scheme needs the value.
type Credentials interface {
	ProofOfPossession(ctx context.Context, device string) (string, error)
	Username(ctx context.Context, device string) (string, error)
}

// StaticCredentials returns fixed values for every device.
type StaticCredentials struct {
	PoP  string
	User string
}

// ProofOfPossession returns c.PoP.
func (c StaticCredentials) ProofOfPossession(context.Context, string) (string, error) {
	return c.PoP, nil
}

// Username returns c.User.
func (c StaticCredentials) Username(context.Context, string) (string, error) {
	return c.User, nil
}

// Config configures a Device.
type Config struct {
	// Name is the provisioning name of the device (e.g. PROV_1a2b3c).
	Name string

	// Transport carries requests to the device. Required.
	Transport transport.Transport

	// TransportKind names the link in protocol events ("softap", "ble").
	TransportKind string

	// Security is the requested scheme (SecurityAuto by default).
	Security SecurityMode

	// Username overrides the scheme 2 username. When empty Credentials is
	// asked, then DefaultUsername is used unless NoDefaultUsername is set.
	Username          string
	NoDefaultUsername bool

	// Credentials supplies the PoP and username. May be nil for scheme 0
	// and for devices advertising no_pop.
	Credentials Credentials

	// Reconnect rejoins the device access point after the association
	// dropped. When nil, network-unreachable failures are not retried.
	Reconnect func(ctx context.Context) error

	// PollInterval is the delay between status queries while the device
	// joins the network.
	PollInterval time.Duration

	// Sleep waits between polls. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// Rand is the randomness source for key generation (crypto/rand when
	// nil).
	Rand io.Reader

	// Logger receives operational logs.
	Logger *slog.Logger

	// ProtocolLogger receives protocol events from all layers.
	ProtocolLogger log.Logger
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.TransportKind == "" {
		c.TransportKind = "unknown"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}
