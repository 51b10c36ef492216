// Command espprov-sim runs a simulated provisioning device that speaks the
// SoftAP HTTP protocol and advertises itself over mDNS.
//
// Usage:
//
//	espprov-sim [flags]
//
// Flags:
//
//	-name string       Device name (default "PROV_sim")
//	-listen string     Listen address (default ":8080")
//	-security int      Security scheme 0, 1 or 2 (default 2)
//	-pop string        Proof of possession (default "abcd1234")
//	-no-pop            Advertise no_pop
//	-username string   Scheme 2 username (default "wifiprov")
//	-thread            Enable Thread scanning and provisioning
//	-scenario string   YAML file with the visible networks
//	-steps int         Status queries answered with "connecting" (default 1)
//	-advertise         Advertise the endpoint over mDNS (default true)
//	-interface string  Interface to advertise on
//	-log-level string  Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Capture device-side exchanges to this file
//
// Examples:
//
//	# Scheme 1 device with Thread support
//	espprov-sim -security 1 -thread
//
//	# Provision it from another terminal
//	espprov --address 127.0.0.1:8080 --pop abcd1234 provision --ssid home --passphrase secret
//
// Metrics are served on GET /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/espprov/espprov-go/pkg/discovery"
	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/simulator"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

// Config holds the command line configuration.
type Config struct {
	Name      string
	Listen    string
	Security  int
	PoP       string
	NoPoP     bool
	Username  string
	Thread    bool
	Scenario  string
	Steps     int
	Advertise bool
	Interface string
	LogLevel  string

	ProtocolLog string
}

var config Config

func init() {
	flag.StringVar(&config.Name, "name", simulator.DefaultName, "Device name")
	flag.StringVar(&config.Listen, "listen", ":8080", "Listen address")
	flag.IntVar(&config.Security, "security", 2, "Security scheme: 0, 1 or 2")
	flag.StringVar(&config.PoP, "pop", simulator.DefaultPoP, "Proof of possession")
	flag.BoolVar(&config.NoPoP, "no-pop", false, "Advertise no_pop and skip the PoP")
	flag.StringVar(&config.Username, "username", simulator.DefaultUsername, "Scheme 2 username")
	flag.BoolVar(&config.Thread, "thread", false, "Enable Thread scanning and provisioning")
	flag.StringVar(&config.Scenario, "scenario", "", "YAML file with the visible networks")
	flag.IntVar(&config.Steps, "steps", simulator.DefaultConnectSteps, "Status queries answered with connecting")
	flag.BoolVar(&config.Advertise, "advertise", true, "Advertise the endpoint over mDNS")
	flag.StringVar(&config.Interface, "interface", "", "Interface to advertise on")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Capture device-side exchanges to this file")
}

func main() {
	flag.Parse()
	logger := setupLogging(config.LogLevel)

	if err := run(logger); err != nil {
		logger.Error("espprov-sim failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := deviceConfig(logger)
	if err != nil {
		return err
	}
	if config.ProtocolLog != "" {
		fl, err := log.NewFileLogger(config.ProtocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fl.Close()
		cfg.ProtocolLogger = fl
	}
	dev, err := simulator.NewDevice(cfg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", config.Listen)
	if err != nil {
		return err
	}
	port := ln.Addr().(*net.TCPAddr).Port
	logger.Info("simulated device listening",
		"name", dev.Name(), "addr", ln.Addr().String(), "security", wire.SecScheme(config.Security).String())

	if config.Advertise {
		adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{
			Interface: config.Interface,
			TTL:       discovery.DefaultAdvertiserConfig().TTL,
		})
		err := adv.Advertise(ctx, &discovery.AdvertiseInfo{
			InstanceName: dev.Name(),
			Port:         uint16(port),
			Paths:        transport.Paths,
		})
		if err != nil {
			logger.Warn("mDNS advertising failed", "error", err)
		} else {
			defer adv.Stop()
		}
	}

	return simulator.NewServer(dev).Serve(ctx, ln)
}

func deviceConfig(logger *slog.Logger) (simulator.Config, error) {
	if config.Security < 0 || config.Security > 2 {
		return simulator.Config{}, fmt.Errorf("security must be 0, 1 or 2, got %d", config.Security)
	}
	scenario, err := loadScenario(config.Scenario)
	if err != nil {
		return simulator.Config{}, err
	}

	cfg := simulator.DefaultConfig()
	cfg.Name = config.Name
	cfg.Scheme = wire.SecScheme(config.Security)
	cfg.PoP = config.PoP
	cfg.NoPoP = config.NoPoP
	cfg.Username = config.Username
	cfg.Thread = config.Thread
	cfg.ConnectSteps = config.Steps
	if config.Steps == 0 {
		cfg.ConnectSteps = -1
	}
	cfg.Logger = logger
	if err := scenario.apply(&cfg); err != nil {
		return simulator.Config{}, err
	}
	return cfg, nil
}

func setupLogging(level string) *slog.Logger {
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
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}
