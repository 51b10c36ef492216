// Package commands implements the espprov command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/espprov/espprov-go/pkg/discovery"
	"github.com/espprov/espprov-go/pkg/netjoin"
	"github.com/espprov/espprov-go/pkg/transport"
)

// Env is the process environment the commands run in.
type Env struct {
	Fs     afero.Fs
	Stdin  io.ReadCloser
	Stdout io.Writer
	Stderr io.Writer

	// Dial opens the transport. Nil means the transport named in the
	// configuration.
	Dial func(ctx context.Context, cfg *Config) (transport.Transport, error)

	// Browser finds SoftAP devices. Nil means mDNS.
	Browser discovery.Browser

	// Joiner rejoins the device access point. Nil means NetworkManager.
	Joiner netjoin.Joiner

	cfg    *Config
	logger *slog.Logger
}

// DefaultEnv returns an environment bound to the OS.
func DefaultEnv() *Env {
	return &Env{
		Fs:     afero.NewOsFs(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// NewApp builds the espprov root command.
func NewApp(env *Env) *cli.Command {
	return &cli.Command{
		Name:      "espprov",
		Usage:     "Provision ESP32 devices onto Wi-Fi and Thread networks",
		Writer:    env.Stdout,
		ErrWriter: env.Stderr,
		Flags:     globalFlags(),
		Before:    env.before,
		Commands: []*cli.Command{
			discoverCommand(env),
			scanCommand(env),
			provisionCommand(env),
			statusCommand(env),
			sendCommand(env),
			devicesCommand(env),
			popCommand(env),
			logCommand(env),
			shellCommand(env),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "configuration file", Value: DefaultConfigPath(), Sources: cli.EnvVars("ESPPROV_CONFIG")},
		&cli.StringFlag{Name: "log-level", Usage: "log level: debug, info, warn, error", Value: "info"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "device name (BLE name or SoftAP SSID)"},
		&cli.StringFlag{Name: "transport", Aliases: []string{"t"}, Usage: "transport: softap or ble"},
		&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Usage: "device address (host:port for softap, MAC for ble)"},
		&cli.DurationFlag{Name: "timeout", Usage: "softap request timeout"},
		&cli.StringFlag{Name: "security", Aliases: []string{"s"}, Usage: "security scheme: auto, 0, 1 or 2"},
		&cli.StringFlag{Name: "pop", Usage: "proof of possession", Sources: cli.EnvVars("ESPPROV_POP")},
		&cli.StringFlag{Name: "username", Usage: "scheme 2 username"},
		&cli.StringFlag{Name: "softap-ssid", Usage: "device access point to rejoin when the association drops"},
		&cli.StringFlag{Name: "softap-passphrase", Usage: "device access point passphrase"},
		&cli.StringFlag{Name: "interface", Usage: "wifi interface used to rejoin the device access point"},
		&cli.StringFlag{Name: "ble-service", Usage: "BLE provisioning service UUID"},
		&cli.BoolFlag{Name: "ble-framed", Usage: "use length-prefixed framing on BLE"},
		&cli.StringFlag{Name: "store", Usage: "device record store (.db for bbolt, .json for a JSON file)"},
		&cli.StringFlag{Name: "protocol-log", Usage: "append protocol events to this CBOR log"},
		&cli.DurationFlag{Name: "poll-interval", Usage: "delay between status queries while the device joins"},
	}
}

// before loads the configuration, applies flag overrides and sets up
// logging.
func (e *Env) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	e.logger = newLogger(e.Stderr, cmd.String("log-level"))
	slog.SetDefault(e.logger)

	cfg, err := LoadConfig(e.Fs, cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	applyFlags(cfg, cmd)
	if cfg.Store == "" {
		cfg.Store = DefaultStorePath()
	}
	if err := cfg.validate(); err != nil {
		return ctx, err
	}
	e.cfg = cfg
	return ctx, nil
}

func applyFlags(cfg *Config, cmd *cli.Command) {
	str := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	dur := func(name string, dst *time.Duration) {
		if cmd.IsSet(name) {
			*dst = cmd.Duration(name)
		}
	}

	str("transport", &cfg.Transport)
	if cmd.IsSet("address") {
		if cfg.Transport == TransportBLE {
			cfg.BLE.Address = cmd.String("address")
		} else {
			cfg.SoftAP.Address = cmd.String("address")
		}
	}
	dur("timeout", &cfg.SoftAP.Timeout)
	str("security", &cfg.Security)
	str("pop", &cfg.PoP)
	str("username", &cfg.Username)
	str("softap-ssid", &cfg.SoftAP.SSID)
	str("softap-passphrase", &cfg.SoftAP.Passphrase)
	str("interface", &cfg.SoftAP.Interface)
	str("ble-service", &cfg.BLE.Service)
	if cmd.IsSet("ble-framed") {
		cfg.BLE.Framed = cmd.Bool("ble-framed")
	}
	str("store", &cfg.Store)
	str("protocol-log", &cfg.ProtocolLog)
	dur("poll-interval", &cfg.PollInterval)
	cfg.Transport = strings.ToLower(cfg.Transport)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

// errUsage marks invalid command line usage.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
