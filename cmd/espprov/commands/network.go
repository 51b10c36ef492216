package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/espprov/espprov-go/pkg/discovery"
	"github.com/espprov/espprov-go/pkg/persistence"
	"github.com/espprov/espprov-go/pkg/provision"
	"github.com/espprov/espprov-go/pkg/wire"
)

func discoverCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Browse for SoftAP provisioning endpoints over mDNS",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "for", Usage: "browse duration", Value: 3 * time.Second},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			b := env.Browser
			if b == nil {
				cfg := discovery.DefaultBrowserConfig()
				cfg.Interface = env.cfg.SoftAP.Interface
				b = discovery.NewMDNSBrowser(cfg)
			}
			services, err := discovery.Collect(ctx, b, cmd.Duration("for"))
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if len(services) == 0 {
				fmt.Fprintln(w, "no devices found")
				return nil
			}
			for _, svc := range services {
				fmt.Fprintf(w, "%-24s %s\n", svc.InstanceName, svc.Address())
			}
			return nil
		},
	}
}

func scanCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "List networks visible to the device",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "thread", Usage: "scan for Thread networks"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			c, err := env.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeInto(c, &err)

			if cmd.Bool("thread") {
				networks, err := c.ScanThread(ctx)
				if err != nil {
					return err
				}
				printThreadNetworks(cmd.Root().Writer, networks)
				return nil
			}
			networks, err := c.ScanWifi(ctx)
			if err != nil {
				return err
			}
			printWifiNetworks(cmd.Root().Writer, networks)
			return nil
		},
	}
}

func printWifiNetworks(w io.Writer, networks []provision.WifiNetwork) {
	fmt.Fprintf(w, "%-32s %-17s %4s %5s %s\n", "SSID", "BSSID", "CH", "RSSI", "AUTH")
	for _, n := range networks {
		fmt.Fprintf(w, "%-32s %-17s %4d %5d %s\n", n.SSID, net.HardwareAddr(n.BSSID), n.Channel, n.RSSI, n.Auth)
	}
}

func printThreadNetworks(w io.Writer, networks []provision.ThreadNetwork) {
	fmt.Fprintf(w, "%-16s %-6s %-16s %4s %5s %s\n", "NAME", "PANID", "EXTPANID", "CH", "RSSI", "LQI")
	for _, n := range networks {
		fmt.Fprintf(w, "%-16s 0x%04x %-16s %4d %5d %d\n", n.NetworkName, n.PanID, hex.EncodeToString(n.ExtPanID), n.Channel, n.RSSI, n.LQI)
	}
}

func provisionCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "provision",
		Usage: "Send network credentials and wait for the device to join",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ssid", Usage: "Wi-Fi network"},
			&cli.StringFlag{Name: "passphrase", Usage: "Wi-Fi passphrase", Sources: cli.EnvVars("ESPPROV_PASSPHRASE")},
			&cli.StringFlag{Name: "thread-dataset", Usage: "hex encoded Thread operational dataset"},
			&cli.StringFlag{Name: "qr", Usage: "QR payload JSON, or @file to read it from a file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			network, err := networkFromFlags(cmd)
			if err != nil {
				return err
			}

			var c *conn
			if qr := cmd.String("qr"); qr != "" {
				c, err = env.connectQR(ctx, qr)
			} else {
				c, err = env.connect(ctx, cmd)
			}
			if err != nil {
				return err
			}
			defer closeInto(c, &err)

			return env.provision(ctx, c, network, cmd.Root().Writer)
		},
	}
}

func networkFromFlags(cmd *cli.Command) (provision.Network, error) {
	n := provision.Network{SSID: cmd.String("ssid"), Passphrase: cmd.String("passphrase")}
	if ds := cmd.String("thread-dataset"); ds != "" {
		dataset, err := hex.DecodeString(strings.TrimSpace(ds))
		if err != nil {
			return n, usageError("thread dataset: %v", err)
		}
		n.ThreadDataset = dataset
	}
	if n.SSID == "" && len(n.ThreadDataset) == 0 {
		return n, usageError("--ssid or --thread-dataset required")
	}
	return n, nil
}

// connectQR connects using the device name, transport and credentials
// printed on the device QR code.
func (e *Env) connectQR(ctx context.Context, arg string) (*conn, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if data, err = afero.ReadFile(e.Fs, path); err != nil {
			return nil, err
		}
	}
	qr, err := provision.ParseQRPayload(data)
	if err != nil {
		return nil, err
	}

	e.cfg.Transport = qr.Transport
	if qr.Transport == TransportSoftAP && qr.Password != "" && e.cfg.SoftAP.SSID == "" {
		e.cfg.SoftAP.SSID = qr.Name
		e.cfg.SoftAP.Passphrase = qr.Password
	}
	if err := e.cfg.validate(); err != nil {
		return nil, err
	}

	creds := qr.Credentials()
	if creds.PoP == "" {
		creds.PoP = e.cfg.PoP
	}
	if creds.User == "" {
		creds.User = e.cfg.Username
	}
	return e.connectAs(ctx, qr.Name, qr.SecurityMode().String(), creds)
}

// provision runs the join and records the device on success.
func (e *Env) provision(ctx context.Context, c *conn, n provision.Network, w io.Writer) error {
	res, err := c.Provision(ctx, n)
	if res != nil {
		printResult(w, res)
	}
	if err != nil {
		return err
	}

	rec := persistence.Record{
		Name:      c.Name(),
		Transport: c.kind,
		Address:   c.address,
		Security:  uint8(c.Scheme()),
	}
	if res.Thread != nil {
		rec.Network = persistence.NetworkThread
		if res.Thread.Attached != nil {
			rec.SSID = res.Thread.Attached.NetworkName
		}
	} else {
		rec.Network = persistence.NetworkWifi
		rec.SSID = n.SSID
		rec.IPv4 = res.Wifi.IPv4()
	}
	return e.saveRecord(rec)
}

func (e *Env) saveRecord(rec persistence.Record) (err error) {
	store, err := e.openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeInto(store, &err)
	if err := store.Put(rec); err != nil {
		return fmt.Errorf("save %s: %w", rec.Name, err)
	}
	e.logger.Debug("device recorded", "device", rec.Name, "store", e.cfg.Store)
	return nil
}

func printResult(w io.Writer, res *provision.Result) {
	switch {
	case res.Wifi != nil:
		printWifiStatus(w, res.Wifi)
	case res.Thread != nil:
		printThreadStatus(w, res.Thread)
	}
}

func printWifiStatus(w io.Writer, st *provision.WifiStatus) {
	fmt.Fprintf(w, "Wi-Fi: %s\n", st.State)
	if st.State == wire.WifiStateConnectionFailed {
		fmt.Fprintf(w, "  Reason: %s\n", st.FailReason)
	}
	if c := st.Connected; c != nil {
		fmt.Fprintf(w, "  SSID: %s\n", c.SSID)
		fmt.Fprintf(w, "  IPv4: %s\n", c.IP4Addr)
		if len(c.BSSID) > 0 {
			fmt.Fprintf(w, "  BSSID: %s\n", net.HardwareAddr(c.BSSID))
		}
		fmt.Fprintf(w, "  Channel: %d\n", c.Channel)
		fmt.Fprintf(w, "  Auth: %s\n", c.AuthMode)
	}
}

func printThreadStatus(w io.Writer, st *provision.ThreadStatus) {
	fmt.Fprintf(w, "Thread: %s\n", st.State)
	if st.State == wire.ThreadStateAttachingFailed {
		fmt.Fprintf(w, "  Reason: %v\n", st.FailReason)
	}
	if a := st.Attached; a != nil {
		fmt.Fprintf(w, "  Network: %s\n", a.NetworkName)
		fmt.Fprintf(w, "  PAN ID: 0x%04x\n", a.PanID)
		fmt.Fprintf(w, "  Ext PAN ID: %s\n", hex.EncodeToString(a.ExtPanID))
		fmt.Fprintf(w, "  Channel: %d\n", a.Channel)
	}
}

func statusCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Query the device network state",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "thread", Usage: "query the Thread state"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			c, err := env.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeInto(c, &err)

			if cmd.Bool("thread") {
				st, err := c.GetThreadStatus(ctx)
				if err != nil {
					return err
				}
				printThreadStatus(cmd.Root().Writer, st)
				return nil
			}
			st, err := c.GetWifiStatus(ctx)
			if err != nil {
				return err
			}
			printWifiStatus(cmd.Root().Writer, st)
			return nil
		},
	}
}

func sendCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send data to a custom endpoint over the secure session",
		ArgsUsage: "PATH DATA",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "hex", Usage: "DATA and the response are hex encoded"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			if cmd.Args().Len() != 2 {
				return usageError("send needs PATH and DATA")
			}
			path, data := cmd.Args().Get(0), []byte(cmd.Args().Get(1))
			if cmd.Bool("hex") {
				if data, err = hex.DecodeString(string(data)); err != nil {
					return usageError("data: %v", err)
				}
			}

			c, err := env.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeInto(c, &err)

			resp, err := c.SendData(ctx, path, data)
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			if cmd.Bool("hex") {
				fmt.Fprintln(w, hex.EncodeToString(resp))
			} else {
				fmt.Fprintln(w, string(resp))
			}
			return nil
		},
	}
}

// closeInto closes c and folds its error into *err.
func closeInto(c io.Closer, err *error) {
	*err = multierr.Append(*err, c.Close())
}
