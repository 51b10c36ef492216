package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v3"

	"github.com/espprov/espprov-go/pkg/provision"
)

func shellCommand(env *Env) *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Keep a session open and issue commands interactively",
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			c, err := env.connect(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeInto(c, &err)

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          c.Name() + "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdin:           env.Stdin,
				Stdout:          env.Stdout,
				Stderr:          env.Stderr,
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			sh := &shell{env: env, conn: c, out: rl.Stdout()}
			sh.printHelp()
			for {
				if ctx.Err() != nil {
					return nil
				}
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if err != nil {
					return nil
				}
				if sh.exec(ctx, line) {
					return nil
				}
			}
		},
	}
}

// shell runs interactive commands on one open session.
type shell struct {
	env  *Env
	conn *conn
	out  io.Writer
}

// exec runs one input line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	args := parts[1:]

	var err error
	switch strings.ToLower(parts[0]) {
	case "help", "?":
		s.printHelp()
	case "exit", "quit", "q":
		return true
	case "info", "i":
		s.cmdInfo()
	case "scan", "s":
		err = s.cmdScan(ctx, args)
	case "status", "st":
		err = s.cmdStatus(ctx, args)
	case "wifi", "w":
		err = s.cmdWifi(ctx, args)
	case "thread", "t":
		err = s.cmdThread(ctx, args)
	case "send":
		err = s.cmdSend(ctx, args)
	default:
		fmt.Fprintf(s.out, "unknown command %q, type help\n", parts[0])
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  info                     session and version info")
	fmt.Fprintln(s.out, "  scan [thread]            list visible networks")
	fmt.Fprintln(s.out, "  status [thread]          query the network state")
	fmt.Fprintln(s.out, "  wifi SSID [PASSPHRASE]   provision Wi-Fi")
	fmt.Fprintln(s.out, "  thread DATASET           provision Thread (hex dataset)")
	fmt.Fprintln(s.out, "  send PATH DATA           exchange data on a custom endpoint")
	fmt.Fprintln(s.out, "  exit                     close the session")
}

func (s *shell) cmdInfo() {
	fmt.Fprintf(s.out, "Device:     %s\n", s.conn.Name())
	fmt.Fprintf(s.out, "Transport:  %s\n", s.conn.kind)
	fmt.Fprintf(s.out, "Security:   %s\n", s.conn.Scheme())
	fmt.Fprintf(s.out, "Connection: %s\n", s.conn.ConnectionID())
	if info := s.conn.VersionInfo(); info != nil && info.Prov != nil {
		fmt.Fprintf(s.out, "Version:    %s\n", info.Prov.Version)
		fmt.Fprintf(s.out, "Caps:       %s\n", strings.Join(info.Prov.Cap, ", "))
	}
}

func (s *shell) cmdScan(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "thread" {
		networks, err := s.conn.ScanThread(ctx)
		if err != nil {
			return err
		}
		printThreadNetworks(s.out, networks)
		return nil
	}
	networks, err := s.conn.ScanWifi(ctx)
	if err != nil {
		return err
	}
	printWifiNetworks(s.out, networks)
	return nil
}

func (s *shell) cmdStatus(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "thread" {
		st, err := s.conn.GetThreadStatus(ctx)
		if err != nil {
			return err
		}
		printThreadStatus(s.out, st)
		return nil
	}
	st, err := s.conn.GetWifiStatus(ctx)
	if err != nil {
		return err
	}
	printWifiStatus(s.out, st)
	return nil
}

func (s *shell) cmdWifi(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("wifi SSID [PASSPHRASE]")
	}
	n := provision.Network{SSID: args[0]}
	if len(args) > 1 {
		n.Passphrase = args[1]
	}
	return s.env.provision(ctx, s.conn, n, s.out)
}

func (s *shell) cmdThread(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("thread DATASET")
	}
	dataset, err := hex.DecodeString(args[0])
	if err != nil {
		return usageError("thread dataset: %v", err)
	}
	return s.env.provision(ctx, s.conn, provision.Network{ThreadDataset: dataset}, s.out)
}

func (s *shell) cmdSend(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("send PATH DATA")
	}
	resp, err := s.conn.SendData(ctx, args[0], []byte(strings.Join(args[1:], " ")))
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(resp))
	return nil
}
