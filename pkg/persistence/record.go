package persistence

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// RecordVersion is the current version of the stored record format.
const RecordVersion = 1

var (
	// ErrNotFound is returned when no record exists for a device name.
	ErrNotFound = errors.New("persistence: record not found")

	// ErrInvalidRecord is returned when a record has no device name.
	ErrInvalidRecord = errors.New("persistence: invalid record")

	// ErrClosed is returned by a store used after Close.
	ErrClosed = errors.New("persistence: store closed")
)

// Network kinds stored in Record.Network.
const (
	NetworkWifi   = "wifi"
	NetworkThread = "thread"
)

// Record describes one provisioned device.
type Record struct {
	// Version is the record format version.
	Version int `json:"version" cbor:"1,keyasint"`

	// Name is the device name as advertised (BLE name or SoftAP SSID).
	Name string `json:"name" cbor:"2,keyasint"`

	// Transport is "ble" or "softap".
	Transport string `json:"transport" cbor:"3,keyasint"`

	// Address is the transport address used during provisioning.
	Address string `json:"address,omitempty" cbor:"4,keyasint,omitempty"`

	// Security is the negotiated security scheme.
	Security uint8 `json:"security" cbor:"5,keyasint"`

	// Network is NetworkWifi or NetworkThread.
	Network string `json:"network" cbor:"6,keyasint"`

	// SSID is the Wi-Fi network name, empty for Thread.
	SSID string `json:"ssid,omitempty" cbor:"7,keyasint,omitempty"`

	// IPv4 is the station address reported by the device.
	IPv4 string `json:"ipv4,omitempty" cbor:"8,keyasint,omitempty"`

	// ProvisionedAt is when the device reported success.
	ProvisionedAt time.Time `json:"provisioned_at" cbor:"9,keyasint"`
}

// Store persists records keyed by device name. Names are compared
// case-insensitively.
type Store interface {
	// Put inserts or replaces the record for r.Name.
	Put(r Record) error

	// Get returns the record for name.
	Get(name string) (Record, error)

	// List returns all records ordered by name.
	List() ([]Record, error)

	// Delete removes the record for name. Deleting a missing record is
	// not an error.
	Delete(name string) error

	// Close releases the store.
	Close() error
}

func key(name string) string {
	return strings.ToLower(name)
}

// prepare validates r and fills version and timestamp.
func prepare(r *Record, now func() time.Time) error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidRecord
	}
	r.Version = RecordVersion
	if r.ProvisionedAt.IsZero() {
		r.ProvisionedAt = now()
	}
	return nil
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return key(records[i].Name) < key(records[j].Name)
	})
}
