//go:build !linux

package transport

import (
	"context"
	"errors"
)

// DialBLE is only available on Linux (BlueZ HCI).
func DialBLE(ctx context.Context, addr, service string, config BLEConfig) (*BLE, error) {
	return nil, errors.New("transport: BLE is only supported on linux")
}
