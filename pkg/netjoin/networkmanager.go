package netjoin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/espprov/espprov-go/pkg/connection"
)

// D-Bus names used on the NetworkManager service.
const (
	nmBus              = "org.freedesktop.NetworkManager"
	nmPath             = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmIface            = "org.freedesktop.NetworkManager"
	nmDeviceIface      = "org.freedesktop.NetworkManager.Device"
	nmActiveConnIface  = "org.freedesktop.NetworkManager.Connection.Active"
	nmDeviceTypeWifi   = uint32(2)
	nmActiveActivated  = uint32(2)
	nmActiveDeactivate = uint32(4)
)

// DefaultJoinAttempts bounds how often the activation state is polled.
const DefaultJoinAttempts = 20

var (
	// ErrNoWifiDevice is returned when no Wi-Fi device is managed.
	ErrNoWifiDevice = errors.New("netjoin: no wifi device")

	// ErrActivationFailed is returned when NetworkManager gives up on the
	// connection.
	ErrActivationFailed = errors.New("netjoin: activation failed")
)

// Joiner associates the host with an access point.
type Joiner interface {
	Join(ctx context.Context, ssid, passphrase string) error
}

// Bus is the part of a D-Bus connection the joiner uses. *dbus.Conn
// implements it.
type Bus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// Config configures a NetworkManager joiner.
type Config struct {
	// Interface is the Wi-Fi interface to use. Empty picks the first Wi-Fi
	// device NetworkManager reports.
	Interface string

	// Attempts bounds activation polling. Zero means DefaultJoinAttempts.
	Attempts int

	// Backoff spaces activation polls.
	Backoff connection.BackoffConfig

	Logger *slog.Logger
}

// NetworkManager joins access points by adding and activating a transient
// connection profile.
type NetworkManager struct {
	bus    Bus
	closer func() error
	cfg    Config
	logger *slog.Logger
}

// NewNetworkManager connects to the system bus.
func NewNetworkManager(cfg Config) (*NetworkManager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system DBus: %w", err)
	}
	nm := NewNetworkManagerWithBus(conn, cfg)
	nm.closer = conn.Close
	return nm, nil
}

// NewNetworkManagerWithBus uses an existing bus connection. Close does not
// close bus.
func NewNetworkManagerWithBus(bus Bus, cfg Config) *NetworkManager {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultJoinAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkManager{bus: bus, cfg: cfg, logger: logger}
}

// Close releases the bus connection if NewNetworkManager opened it.
func (n *NetworkManager) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}

// Join activates a connection to ssid and waits until NetworkManager
// reports it activated.
func (n *NetworkManager) Join(ctx context.Context, ssid, passphrase string) error {
	device, err := n.device(ctx)
	if err != nil {
		return err
	}

	var settingsPath, activePath dbus.ObjectPath
	nm := n.bus.Object(nmBus, nmPath)
	err = nm.CallWithContext(ctx, nmIface+".AddAndActivateConnection", 0,
		connectionSettings(ssid, passphrase), device, dbus.ObjectPath("/")).
		Store(&settingsPath, &activePath)
	if err != nil {
		return fmt.Errorf("activate %q: %w", ssid, err)
	}
	n.logger.Debug("netjoin: activating", "ssid", ssid, "active", activePath)

	backoff := connection.NewBackoffWithConfig(n.cfg.Backoff)
	err = connection.Until(ctx, backoff, n.cfg.Attempts, func(ctx context.Context) (bool, error) {
		state, err := n.activeState(activePath)
		if err != nil {
			return false, err
		}
		switch state {
		case nmActiveActivated:
			return true, nil
		case nmActiveDeactivate:
			return false, fmt.Errorf("%w: %s", ErrActivationFailed, ssid)
		}
		return false, nil
	})
	if errors.Is(err, connection.ErrGaveUp) {
		return fmt.Errorf("%w: %s not activated after %d polls", ErrActivationFailed, ssid, n.cfg.Attempts)
	}
	if err != nil {
		return err
	}
	n.logger.Info("netjoin: joined", "ssid", ssid)
	return nil
}

func (n *NetworkManager) device(ctx context.Context) (dbus.ObjectPath, error) {
	nm := n.bus.Object(nmBus, nmPath)

	if n.cfg.Interface != "" {
		var path dbus.ObjectPath
		if err := nm.CallWithContext(ctx, nmIface+".GetDeviceByIpIface", 0, n.cfg.Interface).Store(&path); err != nil {
			return "", fmt.Errorf("lookup %s: %w", n.cfg.Interface, err)
		}
		return path, nil
	}

	var devices []dbus.ObjectPath
	if err := nm.CallWithContext(ctx, nmIface+".GetDevices", 0).Store(&devices); err != nil {
		return "", fmt.Errorf("list devices: %w", err)
	}
	for _, path := range devices {
		v, err := n.bus.Object(nmBus, path).GetProperty(nmDeviceIface + ".DeviceType")
		if err != nil {
			continue
		}
		if t, ok := v.Value().(uint32); ok && t == nmDeviceTypeWifi {
			return path, nil
		}
	}
	return "", ErrNoWifiDevice
}

func (n *NetworkManager) activeState(path dbus.ObjectPath) (uint32, error) {
	v, err := n.bus.Object(nmBus, path).GetProperty(nmActiveConnIface + ".State")
	if err != nil {
		return 0, fmt.Errorf("read activation state: %w", err)
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("activation state has unexpected type %T", v.Value())
	}
	return state, nil
}

// connectionSettings builds the a{sa{sv}} profile for a transient,
// non-autoconnecting Wi-Fi connection. An empty passphrase means an open
// network.
func connectionSettings(ssid, passphrase string) map[string]map[string]dbus.Variant {
	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant(ssid),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
		"ipv4": {"method": dbus.MakeVariant("auto")},
		"ipv6": {"method": dbus.MakeVariant("ignore")},
	}
	if passphrase != "" {
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(passphrase),
		}
	}
	return settings
}

// Rejoin returns a reconnect hook that joins ssid with j.
func Rejoin(j Joiner, ssid, passphrase string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return j.Join(ctx, ssid, passphrase)
	}
}

var _ Joiner = (*NetworkManager)(nil)
