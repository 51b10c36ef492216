package simulator

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/wire"
)

// Defaults for a simulated device.
const (
	DefaultName     = "PROV_sim"
	DefaultVersion  = "v1.1"
	DefaultPoP      = "abcd1234"
	DefaultUsername = "wifiprov"
	DefaultIPv4     = "192.168.1.100"

	// DefaultConnectSteps is how many status queries report "connecting"
	// before the join resolves.
	DefaultConnectSteps = 1
)

// Config configures a simulated device.
type Config struct {
	// Name is the advertised device name.
	Name string

	// Version is the "ver" reported in the version info.
	Version string

	// Scheme is the security scheme. The zero value is scheme 0.
	Scheme wire.SecScheme

	// PoP is the proof of possession for schemes 1 and 2.
	PoP string

	// NoPoP advertises no_pop and runs the handshake with an empty PoP.
	NoPoP bool

	// Username is the scheme 2 SRP username.
	Username string

	// Capabilities are advertised in addition to those derived from the
	// other fields (wifi_scan, thread_scan, thread_prov, no_pop, no_sec).
	Capabilities []string

	// Thread enables Thread scanning and provisioning.
	Thread bool

	// WifiNetworks is returned by Wi-Fi scans.
	WifiNetworks []wire.WifiScanResult

	// ThreadNetworks is returned by Thread scans.
	ThreadNetworks []wire.ThreadScanResult

	// AccessPoints maps SSID to passphrase. When set, joins to an unknown
	// SSID fail with NetworkNotFound and a wrong passphrase fails with
	// AuthError. When nil every join succeeds.
	AccessPoints map[string]string

	// ConnectSteps is the number of "connecting" status answers after
	// apply. Negative means none.
	ConnectSteps int

	// IPv4 is reported once a Wi-Fi join succeeds.
	IPv4 string

	// ApplyStatus, when not success, is returned by apply commands.
	ApplyStatus wire.Status

	// Registry receives the device metrics. Nil means a private registry.
	Registry *prometheus.Registry

	Logger *slog.Logger

	// ProtocolLogger captures every request and response as seen by the
	// device. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a scheme 2 device with the default credentials.
func DefaultConfig() Config {
	return Config{
		Name:     DefaultName,
		Version:  DefaultVersion,
		Scheme:   wire.SecScheme2,
		PoP:      DefaultPoP,
		Username: DefaultUsername,
	}
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.IPv4 == "" {
		c.IPv4 = DefaultIPv4
	}
	if c.ConnectSteps == 0 {
		c.ConnectSteps = DefaultConnectSteps
	}
	if c.ConnectSteps < 0 {
		c.ConnectSteps = 0
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.ProtocolLogger = log.OrNoop(c.ProtocolLogger)
	if c.NoPoP {
		c.PoP = ""
	}
}

// capabilities lists the advertised capabilities.
func (c *Config) capabilities() []string {
	caps := []string{wire.CapWifiScan}
	if c.Thread {
		caps = append(caps, wire.CapThreadScan, wire.CapThreadProv)
	}
	if c.NoPoP {
		caps = append(caps, wire.CapNoPoP)
	}
	if c.Scheme == wire.SecScheme0 {
		caps = append(caps, wire.CapNoSec)
	}
	return append(caps, c.Capabilities...)
}
