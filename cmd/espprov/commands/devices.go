package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"

	"github.com/espprov/espprov-go/pkg/persistence"
)

func devicesCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "Manage provisioned device records",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List provisioned devices",
				Action: func(ctx context.Context, cmd *cli.Command) (err error) {
					store, err := env.openStore()
					if err != nil {
						return err
					}
					defer closeInto(store, &err)

					records, err := store.List()
					if err != nil {
						return err
					}
					printRecords(cmd.Root().Writer, records)
					return nil
				},
			},
			{
				Name:      "rm",
				Usage:     "Forget a device and its stored proof of possession",
				ArgsUsage: "NAME...",
				Action: func(ctx context.Context, cmd *cli.Command) (err error) {
					if cmd.Args().Len() == 0 {
						return usageError("device name required")
					}
					store, err := env.openStore()
					if err != nil {
						return err
					}
					defer closeInto(store, &err)

					for _, name := range cmd.Args().Slice() {
						if err := store.Delete(name); err != nil {
							return err
						}
						if err := deletePoP(name); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

func printRecords(w io.Writer, records []persistence.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no devices")
		return
	}
	fmt.Fprintf(w, "%-20s %-7s %-4s %-7s %-20s %-15s %s\n", "NAME", "LINK", "SEC", "NETWORK", "SSID", "IPV4", "PROVISIONED")
	for _, r := range records {
		fmt.Fprintf(w, "%-20s %-7s %-4d %-7s %-20s %-15s %s\n",
			r.Name, r.Transport, r.Security, r.Network, r.SSID, r.IPv4, r.ProvisionedAt.Local().Format(time.DateTime))
	}
}

func popCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "pop",
		Usage: "Store proofs of possession in the system keyring",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store the PoP for a device (read from stdin when omitted)",
				ArgsUsage: "NAME [POP]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().Get(0)
					if name == "" {
						return usageError("device name required")
					}
					pop := cmd.Args().Get(1)
					if pop == "" {
						data, err := io.ReadAll(io.LimitReader(env.Stdin, 1024))
						if err != nil {
							return err
						}
						pop = strings.TrimSpace(string(data))
					}
					if pop == "" {
						return usageError("empty proof of possession")
					}
					if err := keyring.Set(KeyringService, name, pop); err != nil {
						return fmt.Errorf("keyring: %w", err)
					}
					env.logger.Info("pop stored", "device", name)
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove the PoP of a device",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return usageError("device name required")
					}
					return deletePoP(name)
				},
			},
		},
	}
}

// deletePoP removes a stored PoP. A missing entry is not an error.
func deletePoP(name string) error {
	err := keyring.Delete(KeyringService, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring: %w", err)
	}
	return nil
}
