//go:build linux

package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

var (
	hciOnce sync.Once
	hciErr  error
)

// openHCI selects the default Linux HCI device once per process.
func openHCI() error {
	hciOnce.Do(func() {
		dev, err := linux.NewDevice()
		if err != nil {
			hciErr = fmt.Errorf("transport: open hci device: %w", err)
			return
		}
		ble.SetDefaultDevice(dev)
	})
	return hciErr
}

// DialBLE connects to the peripheral at addr, negotiates the MTU and returns
// a transport over its provisioning service.
func DialBLE(ctx context.Context, addr, service string, config BLEConfig) (*BLE, error) {
	if err := openHCI(); err != nil {
		return nil, err
	}
	client, err := ble.Dial(ctx, ble.NewAddr(addr))
	if err != nil {
		return nil, classify("", "connect", err)
	}
	mtu, err := client.ExchangeMTU(requestedMTU)
	if err != nil {
		mtu = ble.DefaultMTU
	}
	p, err := NewGoBLE(client, service, mtu)
	if err != nil {
		_ = client.CancelConnection()
		return nil, err
	}
	t, err := NewBLE(ctx, p, config)
	if err != nil {
		_ = client.CancelConnection()
		return nil, err
	}
	return t, nil
}
