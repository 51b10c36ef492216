package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
	"go.uber.org/multierr"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/netjoin"
	"github.com/espprov/espprov-go/pkg/persistence"
	"github.com/espprov/espprov-go/pkg/provision"
	"github.com/espprov/espprov-go/pkg/transport"
)

// KeyringService is the keyring service under which PoPs are stored.
const KeyringService = "espprov"

// ErrNoPoP is returned when a device needs a proof of possession and none
// was configured.
var ErrNoPoP = errors.New("no proof of possession")

// keyringCredentials prefers the configured PoP and falls back to the
// system keyring, keyed by device name.
type keyringCredentials struct {
	pop      string
	username string
}

func (c keyringCredentials) ProofOfPossession(_ context.Context, device string) (string, error) {
	if c.pop != "" {
		return c.pop, nil
	}
	pop, err := keyring.Get(KeyringService, device)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w for %s: pass --pop or run 'espprov pop set'", ErrNoPoP, device)
	}
	if err != nil {
		return "", fmt.Errorf("keyring: %w", err)
	}
	return pop, nil
}

func (c keyringCredentials) Username(context.Context, string) (string, error) {
	return c.username, nil
}

var _ provision.Credentials = keyringCredentials{}

// conn is an open provisioning session plus everything that has to be
// released with it.
type conn struct {
	*provision.Device
	kind    string
	address string
	closers []func() error
}

// Close disconnects and releases the protocol log and the bus connection.
func (c *conn) Close() error {
	return multierr.Append(c.Disconnect(), c.release())
}

func (c *conn) release() error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i]())
	}
	c.closers = nil
	return err
}

// deviceName resolves the device name from --name, then the SoftAP SSID,
// then the address.
func (e *Env) deviceName(cmd *cli.Command) string {
	if name := cmd.String("name"); name != "" {
		return name
	}
	if e.cfg.Transport == TransportBLE {
		return e.cfg.BLE.Address
	}
	if e.cfg.SoftAP.SSID != "" {
		return e.cfg.SoftAP.SSID
	}
	if e.cfg.SoftAP.Address != "" {
		return e.cfg.SoftAP.Address
	}
	return transport.DefaultSoftAPAddress
}

func (e *Env) dial(ctx context.Context) (transport.Transport, error) {
	if e.Dial != nil {
		return e.Dial(ctx, e.cfg)
	}
	switch e.cfg.Transport {
	case TransportBLE:
		service := e.cfg.BLE.Service
		if service == "" {
			service = transport.DefaultServiceUUID
		}
		return transport.DialBLE(ctx, e.cfg.BLE.Address, service, transport.BLEConfig{Framed: e.cfg.BLE.Framed})
	default:
		return transport.NewSoftAP(transport.SoftAPConfig{
			Address: e.cfg.SoftAP.Address,
			Timeout: e.cfg.SoftAP.Timeout,
			Logger:  e.logger,
		})
	}
}

// connect dials the device named on the command line and establishes a
// secure session.
func (e *Env) connect(ctx context.Context, cmd *cli.Command) (*conn, error) {
	return e.connectAs(ctx, e.deviceName(cmd), e.cfg.Security, keyringCredentials{pop: e.cfg.PoP, username: e.cfg.Username})
}

func (e *Env) connectAs(ctx context.Context, name, security string, creds provision.Credentials) (_ *conn, err error) {
	mode, err := provision.ParseSecurityMode(security)
	if err != nil {
		return nil, usageError("%v", err)
	}

	c := &conn{kind: e.cfg.Transport, address: e.cfg.SoftAP.Address}
	if c.kind == TransportBLE {
		c.address = e.cfg.BLE.Address
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, c.release())
		}
	}()

	var sinks []log.Logger
	if e.logger.Enabled(ctx, slog.LevelDebug) {
		sinks = append(sinks, log.NewSlogAdapter(e.logger))
	}
	if e.cfg.ProtocolLog != "" {
		fl, err := log.NewFileLoggerFs(e.Fs, e.cfg.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		c.closers = append(c.closers, fl.Close)
		sinks = append(sinks, fl)
	}
	var plog log.Logger
	if len(sinks) > 0 {
		plog = log.NewMultiLogger(sinks...)
	}

	reconnect, err := e.reconnectHook(c)
	if err != nil {
		return nil, err
	}

	tr, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	// Once connected, Disconnect closes the transport.
	defer func() {
		if closer, ok := tr.(io.Closer); ok && err != nil {
			err = multierr.Append(err, closer.Close())
		}
	}()

	dev, err := provision.New(provision.Config{
		Name:           name,
		Transport:      tr,
		TransportKind:  c.kind,
		Security:       mode,
		Username:       e.cfg.Username,
		Credentials:    creds,
		Reconnect:      reconnect,
		PollInterval:   e.cfg.PollInterval,
		Logger:         e.logger,
		ProtocolLogger: plog,
	})
	if err != nil {
		return nil, err
	}
	if err := dev.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	c.Device = dev
	e.logger.Info("connected", "device", name, "transport", c.kind, "security", dev.Scheme().String())
	return c, nil
}

// reconnectHook returns the access point rejoin used after a dropped
// SoftAP association, or nil when no device SSID is configured.
func (e *Env) reconnectHook(c *conn) (func(context.Context) error, error) {
	if e.cfg.Transport != TransportSoftAP || e.cfg.SoftAP.SSID == "" {
		return nil, nil
	}
	joiner := e.Joiner
	if joiner == nil {
		nm, err := netjoin.NewNetworkManager(netjoin.Config{
			Interface: e.cfg.SoftAP.Interface,
			Logger:    e.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("networkmanager: %w", err)
		}
		c.closers = append(c.closers, nm.Close)
		joiner = nm
	}
	return netjoin.Rejoin(joiner, e.cfg.SoftAP.SSID, e.cfg.SoftAP.Passphrase), nil
}

// openStore opens the device record store named in the configuration.
func (e *Env) openStore() (persistence.Store, error) {
	path := e.cfg.Store
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return persistence.NewFileStore(e.Fs, path), nil
	}
	// bbolt works on the OS filesystem only.
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return persistence.OpenBoltStore(path)
}
