package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Transport names accepted in configuration.
const (
	TransportSoftAP = "softap"
	TransportBLE    = "ble"
)

// Config is the espprov configuration file. Command line flags override
// every field.
type Config struct {
	Transport string       `yaml:"transport"`
	SoftAP    SoftAPConfig `yaml:"softap"`
	BLE       BLEConfig    `yaml:"ble"`

	// Security is "auto", "0", "1" or "2".
	Security string `yaml:"security"`
	Username string `yaml:"username"`
	PoP      string `yaml:"pop"`

	// Store is the device record database. A path ending in .json selects
	// the JSON file store.
	Store string `yaml:"store"`

	// ProtocolLog is a CBOR protocol event log to append to.
	ProtocolLog string `yaml:"protocol_log"`

	PollInterval time.Duration `yaml:"poll_interval"`
}

// SoftAPConfig configures the SoftAP transport and the access point rejoin.
type SoftAPConfig struct {
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`

	// SSID and Passphrase identify the device access point. When SSID is
	// set, a dropped association is rejoined through NetworkManager.
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`
	Interface  string `yaml:"interface"`
}

// BLEConfig configures the BLE transport.
type BLEConfig struct {
	Address string `yaml:"address"`
	Service string `yaml:"service"`
	Framed  bool   `yaml:"framed"`
}

// DefaultConfigPath returns the per-user configuration file path.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "espprov.yaml"
	}
	return filepath.Join(dir, "espprov", "config.yaml")
}

// DefaultStorePath returns the per-user device store path.
func DefaultStorePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "espprov-devices.db"
	}
	return filepath.Join(dir, "espprov", "devices.db")
}

// LoadConfig reads the configuration at path. A missing file yields the
// defaults.
func LoadConfig(fsys afero.Fs, path string) (*Config, error) {
	cfg := &Config{
		Transport: TransportSoftAP,
		Security:  "auto",
	}
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportSoftAP, TransportBLE:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.Transport == TransportBLE && c.BLE.Address == "" {
		return errors.New("ble transport needs ble.address")
	}
	return nil
}
