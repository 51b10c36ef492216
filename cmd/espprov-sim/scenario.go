package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/espprov/espprov-go/pkg/simulator"
	"github.com/espprov/espprov-go/pkg/wire"
)

// Scenario describes the radio environment of the simulated device.
type Scenario struct {
	Wifi   []WifiAP        `yaml:"wifi"`
	Thread []ThreadNetwork `yaml:"thread"`
}

// WifiAP is an access point the device can see. A non-empty Passphrase
// makes the AP joinable with that passphrase.
type WifiAP struct {
	SSID       string `yaml:"ssid"`
	Passphrase string `yaml:"passphrase"`
	BSSID      string `yaml:"bssid"`
	Channel    uint32 `yaml:"channel"`
	RSSI       int32  `yaml:"rssi"`
	Auth       string `yaml:"auth"`
}

// ThreadNetwork is a Thread network the device can see.
type ThreadNetwork struct {
	Name     string `yaml:"name"`
	PanID    uint32 `yaml:"pan_id"`
	ExtPanID string `yaml:"ext_pan_id"`
	Channel  uint32 `yaml:"channel"`
	RSSI     int32  `yaml:"rssi"`
	LQI      uint32 `yaml:"lqi"`
}

var authModes = map[string]wire.WifiAuthMode{
	"open":          wire.WifiAuthOpen,
	"wep":           wire.WifiAuthWEP,
	"wpa_psk":       wire.WifiAuthWPAPSK,
	"wpa2_psk":      wire.WifiAuthWPA2PSK,
	"wpa_wpa2_psk":  wire.WifiAuthWPAWPA2PSK,
	"wpa2_ent":      wire.WifiAuthWPA2Ent,
	"wpa3_psk":      wire.WifiAuthWPA3PSK,
	"wpa2_wpa3_psk": wire.WifiAuthWPA2WPA3PSK,
}

// defaultScenario is used when no scenario file is given.
var defaultScenario = Scenario{
	Wifi: []WifiAP{
		{SSID: "home", Passphrase: "secret", BSSID: "24:0a:c4:00:00:01", Channel: 6, RSSI: -42, Auth: "wpa2_psk"},
		{SSID: "guest", Channel: 1, RSSI: -67, Auth: "open"},
	},
	Thread: []ThreadNetwork{
		{Name: "OpenThread-sim", PanID: 0x1234, ExtPanID: "dead00beef00cafe", Channel: 15, RSSI: -55, LQI: 3},
	},
}

func loadScenario(path string) (*Scenario, error) {
	if path == "" {
		return &Scenario{
			Wifi:   slices.Clone(defaultScenario.Wifi),
			Thread: slices.Clone(defaultScenario.Thread),
		}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &s, nil
}

// apply fills the network tables of cfg.
func (s *Scenario) apply(cfg *simulator.Config) error {
	for _, ap := range s.Wifi {
		auth := wire.WifiAuthWPA2PSK
		if ap.Auth != "" {
			m, ok := authModes[strings.ToLower(ap.Auth)]
			if !ok {
				return fmt.Errorf("wifi %s: unknown auth %q", ap.SSID, ap.Auth)
			}
			auth = m
		}
		entry := wire.WifiScanResult{SSID: []byte(ap.SSID), Channel: ap.Channel, RSSI: ap.RSSI, Auth: auth}
		if ap.BSSID != "" {
			mac, err := net.ParseMAC(ap.BSSID)
			if err != nil {
				return fmt.Errorf("wifi %s: %w", ap.SSID, err)
			}
			entry.BSSID = mac
		}
		cfg.WifiNetworks = append(cfg.WifiNetworks, entry)

		if cfg.AccessPoints == nil {
			cfg.AccessPoints = make(map[string]string)
		}
		cfg.AccessPoints[ap.SSID] = ap.Passphrase
	}

	for _, n := range s.Thread {
		ext, err := hex.DecodeString(n.ExtPanID)
		if err != nil {
			return fmt.Errorf("thread %s: ext_pan_id: %w", n.Name, err)
		}
		cfg.ThreadNetworks = append(cfg.ThreadNetworks, wire.ThreadScanResult{
			NetworkName: n.Name,
			PanID:       n.PanID,
			ExtPanID:    ext,
			Channel:     n.Channel,
			RSSI:        n.RSSI,
			LQI:         n.LQI,
		})
	}
	return nil
}
