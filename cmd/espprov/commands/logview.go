package commands

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/espprov/espprov-go/pkg/log"
)

func logCommand(env *Env) *cli.Command {
	filterFlags := []cli.Flag{
		&cli.StringFlag{Name: "conn", Usage: "connection ID"},
		&cli.StringFlag{Name: "device", Usage: "device name"},
		&cli.StringFlag{Name: "layer", Usage: "TRANSPORT, SESSION or COMMAND"},
		&cli.StringFlag{Name: "direction", Usage: "IN or OUT"},
		&cli.StringFlag{Name: "category", Usage: "MESSAGE, STATE or ERROR"},
		&cli.StringFlag{Name: "path", Usage: "endpoint path"},
		&cli.StringFlag{Name: "since", Usage: "RFC 3339 start time"},
		&cli.StringFlag{Name: "until", Usage: "RFC 3339 end time"},
	}
	return &cli.Command{
		Name:  "log",
		Usage: "Inspect protocol logs",
		Commands: []*cli.Command{
			{
				Name:      "view",
				Usage:     "Print protocol events",
				ArgsUsage: "FILE",
				Flags:     filterFlags,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path, filter, err := logArgs(cmd)
					if err != nil {
						return err
					}
					return RunView(env.Fs, path, filter, cmd.Root().Writer)
				},
			},
			{
				Name:      "stats",
				Usage:     "Summarize a protocol log",
				ArgsUsage: "FILE",
				Flags:     filterFlags,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path, filter, err := logArgs(cmd)
					if err != nil {
						return err
					}
					return RunStats(env.Fs, path, filter, cmd.Root().Writer)
				},
			},
			{
				Name:      "export",
				Usage:     "Export protocol events as JSON lines or CSV",
				ArgsUsage: "FILE",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "format", Usage: "jsonl or csv", Value: "jsonl"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (stdout when empty)"},
				}, filterFlags...),
				Action: func(ctx context.Context, cmd *cli.Command) (err error) {
					path, filter, err := logArgs(cmd)
					if err != nil {
						return err
					}
					w := cmd.Root().Writer
					if out := cmd.String("output"); out != "" {
						f, cerr := env.Fs.Create(out)
						if cerr != nil {
							return fmt.Errorf("failed to create output file: %w", cerr)
						}
						defer closeInto(f, &err)
						w = f
					}
					return RunExport(env.Fs, path, filter, cmd.String("format"), w)
				},
			},
			{
				Name:      "filter",
				Usage:     "Write matching events to a new protocol log",
				ArgsUsage: "FILE",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output log file", Required: true},
				}, filterFlags...),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path, filter, err := logArgs(cmd)
					if err != nil {
						return err
					}
					n, err := RunFilter(env.Fs, path, filter, cmd.String("output"))
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "Filtered %d events to %s\n", n, cmd.String("output"))
					return nil
				},
			},
		},
	}
}

func logArgs(cmd *cli.Command) (string, log.Filter, error) {
	path := cmd.Args().First()
	if path == "" {
		return "", log.Filter{}, usageError("log file required")
	}
	filter, err := buildFilter(FilterOptions{
		ConnID:    cmd.String("conn"),
		Device:    cmd.String("device"),
		Layer:     cmd.String("layer"),
		Direction: cmd.String("direction"),
		Category:  cmd.String("category"),
		Path:      cmd.String("path"),
		TimeStart: cmd.String("since"),
		TimeEnd:   cmd.String("until"),
	})
	return path, filter, err
}

// FilterOptions specifies event filtering criteria as given on the command
// line.
type FilterOptions struct {
	ConnID    string
	Device    string
	Layer     string
	Direction string
	Category  string
	Path      string
	TimeStart string
	TimeEnd   string
}

func buildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: opts.ConnID,
		DeviceName:   opts.Device,
		Path:         opts.Path,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid since: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid until: %w", err)
		}
		filter.TimeEnd = &t
	}
	if opts.Layer != "" {
		l, ok := log.ParseLayer(strings.ToUpper(opts.Layer))
		if !ok {
			return filter, fmt.Errorf("invalid layer %q", opts.Layer)
		}
		filter.Layer = &l
	}
	if opts.Direction != "" {
		var d log.Direction
		switch strings.ToUpper(opts.Direction) {
		case "IN":
			d = log.DirectionIn
		case "OUT":
			d = log.DirectionOut
		default:
			return filter, fmt.Errorf("invalid direction %q", opts.Direction)
		}
		filter.Direction = &d
	}
	if opts.Category != "" {
		var c log.Category
		switch strings.ToUpper(opts.Category) {
		case "MESSAGE":
			c = log.CategoryMessage
		case "STATE":
			c = log.CategoryState
		case "ERROR":
			c = log.CategoryError
		default:
			return filter, fmt.Errorf("invalid category %q", opts.Category)
		}
		filter.Category = &c
	}
	return filter, nil
}

// readEvents calls fn for every event in the file that matches filter.
func readEvents(fsys afero.Fs, path string, filter log.Filter, fn func(log.Event)) error {
	reader, err := log.NewFilteredReader(fsys, path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		fn(event)
	}
}

// RunView prints the matching events of a log file.
func RunView(fsys afero.Fs, path string, filter log.Filter, w io.Writer) error {
	return readEvents(fsys, path, filter, func(e log.Event) { formatEvent(w, e) })
}

// RunExport writes the matching events of a log file to w as JSON lines or
// CSV.
func RunExport(fsys afero.Fs, path string, filter log.Filter, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		var encErr error
		err := readEvents(fsys, path, filter, func(e log.Event) {
			if encErr == nil {
				encErr = enc.Encode(e)
			}
		})
		return multierr.Append(err, encErr)
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"timestamp", "connection_id", "device", "transport", "direction", "layer", "category", "type", "path", "status"}); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		err := readEvents(fsys, path, filter, func(e log.Event) {
			_ = cw.Write(csvRow(e))
		})
		cw.Flush()
		return multierr.Append(err, cw.Error())
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func csvRow(e log.Event) []string {
	typ, status := "unknown", ""
	switch {
	case e.Frame != nil:
		typ = "frame"
	case e.Command != nil:
		typ, status = e.Command.Type, e.Command.Status
	case e.StateChange != nil:
		typ, status = "state", e.StateChange.NewState
	case e.Error != nil:
		typ, status = "error", e.Error.Message
	}
	return []string{
		e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		e.ConnectionID,
		e.DeviceName,
		e.Transport,
		e.Direction.String(),
		e.Layer.String(),
		e.Category.String(),
		typ,
		eventPath(e),
		status,
	}
}

func eventPath(e log.Event) string {
	switch {
	case e.Frame != nil:
		return e.Frame.Path
	case e.Command != nil:
		return e.Command.Path
	}
	return ""
}

// RunFilter copies the matching events of a log file into a new log and
// returns how many were written.
func RunFilter(fsys afero.Fs, path string, filter log.Filter, output string) (n int, err error) {
	out, err := log.NewFileLoggerFs(fsys, output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer closeInto(out, &err)

	err = readEvents(fsys, path, filter, func(e log.Event) {
		out.Log(e)
		n++
	})
	return n, err
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame " + event.Frame.Path
	case event.Command != nil:
		typeLabel = event.Command.Type
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n", ts, shortenConnID(event.ConnectionID),
		event.Direction.String(), event.Layer.String(), typeLabel)
	if event.DeviceName != "" {
		fmt.Fprintf(w, "  Device: %s (%s)\n", event.DeviceName, event.Transport)
	}

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  Size: %d bytes\n", event.Frame.Size)
		if len(event.Frame.Data) > 0 {
			fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(event.Frame.Data))
			if event.Frame.Truncated {
				fmt.Fprint(w, " (truncated)")
			}
			fmt.Fprintln(w)
		}
	case event.Command != nil:
		fmt.Fprintf(w, "  Path: %s\n", event.Command.Path)
		if event.Command.Status != "" {
			fmt.Fprintf(w, "  Status: %s\n", event.Command.Status)
		}
		if event.Command.Duration != nil {
			fmt.Fprintf(w, "  Duration: %s\n", event.Command.Duration.Round(time.Microsecond))
		}
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Layer: %s\n", event.Error.Layer.String())
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}
	fmt.Fprintln(w)
}

func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Errors            int
	Start, End        time.Time
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Device    string
	Transport string
}

// RunStats summarizes the matching events of a log file.
func RunStats(fsys afero.Fs, path string, filter log.Filter, w io.Writer) error {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
	}
	err := readEvents(fsys, path, filter, func(event log.Event) {
		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.Start.IsZero() || event.Timestamp.Before(stats.Start) {
			stats.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.End) {
			stats.End = event.Timestamp
		}

		conn, ok := stats.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			stats.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
		if conn.Device == "" {
			conn.Device = event.DeviceName
			conn.Transport = event.Transport
		}
		if event.Error != nil {
			stats.Errors++
		}
	})
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Provisioning Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", stats.Start.Format(time.RFC3339), stats.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.End.Sub(stats.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerSession, log.LayerCommand} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	ids := make([]string, 0, len(stats.Connections))
	for id := range stats.Connections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return stats.Connections[ids[i]].FirstSeen.Before(stats.Connections[ids[j]].FirstSeen)
	})
	for _, id := range ids {
		c := stats.Connections[id]
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(id), c.Events,
			c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond))
		if c.Device != "" {
			fmt.Fprintf(w, "           Device: %s (%s)\n", c.Device, c.Transport)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
