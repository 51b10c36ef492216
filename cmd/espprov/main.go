// Command espprov provisions ESP32 devices onto Wi-Fi and Thread networks
// over SoftAP or BLE.
//
// Usage:
//
//	espprov [global flags] <command> [flags]
//
// Examples:
//
//	# Find devices advertising a SoftAP endpoint
//	espprov discover
//
//	# List access points seen by the device behind 192.168.4.1
//	espprov --pop abcd1234 scan
//
//	# Provision from the device QR code
//	espprov provision --qr @qr.json --ssid home --passphrase secret
//
//	# Provision over BLE with a PoP kept in the system keyring
//	espprov pop set PROV_1a2b3c abcd1234
//	espprov -t ble -a 7c:df:a1:00:00:01 -n PROV_1a2b3c provision --ssid home --passphrase secret
//
//	# Inspect the protocol log of a previous run
//	espprov log view --layer command espprov.plog
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/espprov/espprov-go/cmd/espprov/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := commands.NewApp(commands.DefaultEnv()).Run(ctx, os.Args)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "espprov: %v\n", err)
		stop()
		os.Exit(1)
	}
}
