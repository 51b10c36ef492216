package provision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQR is returned for QR payloads that cannot describe a device.
var ErrInvalidQR = errors.New("provision: invalid QR payload")

// Transport kinds named by QR payloads.
const (
	TransportBLE    = "ble"
	TransportSoftAP = "softap"
)

// Network kinds named by QR payloads.
const (
	NetworkWifi   = "wifi"
	NetworkThread = "thread"
)

// QRPayload is the JSON document printed as a QR code on provisionable
// devices, e.g.
//
//	{"ver":"v1","name":"PROV_1a2b3c","pop":"abcd1234","transport":"ble"}
type QRPayload struct {
	Version   string `json:"ver,omitempty"`
	Name      string `json:"name"`
	PoP       string `json:"pop,omitempty"`
	Username  string `json:"username,omitempty"`
	Transport string `json:"transport"`
	Security  string `json:"security,omitempty"`
	Network   string `json:"network,omitempty"`

	// Password is the passphrase of the device SoftAP.
	Password string `json:"password,omitempty"`
}

// ParseQRPayload parses and validates a QR payload. Transport and network
// names are normalized to lower case; a missing network means Wi-Fi.
func ParseQRPayload(data []byte) (*QRPayload, error) {
	var p QRPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQR, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidQR)
	}

	p.Transport = strings.ToLower(p.Transport)
	switch p.Transport {
	case TransportBLE, TransportSoftAP:
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidQR, p.Transport)
	}

	p.Network = strings.ToLower(p.Network)
	switch p.Network {
	case "":
		p.Network = NetworkWifi
	case NetworkWifi, NetworkThread:
	default:
		return nil, fmt.Errorf("%w: unknown network %q", ErrInvalidQR, p.Network)
	}

	if _, err := ParseSecurityMode(p.Security); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQR, err)
	}
	return &p, nil
}

// SecurityMode returns the requested security mode. A payload without a
// security key lets the device decide.
func (p *QRPayload) SecurityMode() SecurityMode {
	m, _ := ParseSecurityMode(p.Security)
	return m
}

// Credentials returns the PoP and username carried by the payload.
func (p *QRPayload) Credentials() StaticCredentials {
	return StaticCredentials{PoP: p.PoP, User: p.Username}
}
