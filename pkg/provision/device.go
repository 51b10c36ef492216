package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/security"
	"github.com/espprov/espprov-go/pkg/session"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

// Connection states reported in protocol events.
const (
	stateDisconnected = "DISCONNECTED"
	stateConnecting   = "CONNECTING"
	stateConnected    = "CONNECTED"
)

// Device is a client-side handle to one provisionable device.
//
// Operations are safe for concurrent use; exchanges on the encrypted
// channel are serialized by the underlying session.
type Device struct {
	cfg       Config
	connID    string
	transport transport.Transport
	logger    *slog.Logger
	plog      log.Logger

	mu       sync.Mutex
	sess     *session.Session
	info     *wire.VersionInfo
	scheme   wire.SecScheme
	pop      string
	username string

	// life is cancelled with ErrNotConnected by Disconnect. Every running
	// operation derives its context from it.
	life context.Context
	stop context.CancelCauseFunc
}

// New creates a Device. Nothing is sent until Connect.
func New(cfg Config) (*Device, error) {
	if cfg.Transport == nil {
		return nil, errors.New("provision: transport is required")
	}
	cfg.applyDefaults()

	connID := uuid.NewString()
	plog := &deviceLogger{next: log.OrNoop(cfg.ProtocolLogger), name: cfg.Name, kind: cfg.TransportKind}
	return &Device{
		cfg:       cfg,
		connID:    connID,
		transport: transport.NewLogged(cfg.Transport, plog, connID, cfg.TransportKind),
		logger:    cfg.Logger.With("device", cfg.Name, "conn_id", connID),
		plog:      plog,
	}, nil
}

// Name returns the device name.
func (d *Device) Name() string { return d.cfg.Name }

// ConnectionID returns the UUID stamped on this device's protocol events.
func (d *Device) ConnectionID() string { return d.connID }

// VersionInfo returns the version info read by Connect, or nil.
func (d *Device) VersionInfo() *wire.VersionInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info
}

// Scheme returns the security scheme selected by Connect.
func (d *Device) Scheme() wire.SecScheme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scheme
}

// IsConnected reports whether a session is established.
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess != nil
}

// Connect reads the version info, selects the security scheme, resolves
// credentials and runs the session handshake. Connecting an already
// connected device is a no-op.
func (d *Device) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sess != nil {
		return nil
	}
	d.emitState(stateDisconnected, stateConnecting, "")

	err := d.connectLocked(ctx)
	if err != nil {
		d.emitState(stateConnecting, stateDisconnected, err.Error())
		d.logger.Warn("connect failed", "error", err)
		return err
	}

	d.life, d.stop = context.WithCancelCause(context.Background())
	d.emitState(stateConnecting, stateConnected, d.scheme.String())
	d.logger.Info("connected", "scheme", d.scheme)
	return nil
}

func (d *Device) connectLocked(ctx context.Context) error {
	info, err := d.fetchVersion(ctx)
	if err != nil {
		return err
	}
	scheme, err := selectScheme(d.cfg.Security, info)
	if err != nil {
		return err
	}
	pop, username, err := d.resolveCredentials(ctx, scheme, info)
	if err != nil {
		return err
	}

	sess, err := d.handshake(ctx, scheme, pop, username)
	if err != nil {
		return err
	}
	d.sess, d.info, d.scheme = sess, info, scheme
	d.pop, d.username = pop, username
	return nil
}

// fetchVersion reads proto-ver. Transport errors abort the connect; an
// unparsable document is treated as an empty one.
func (d *Device) fetchVersion(ctx context.Context) (*wire.VersionInfo, error) {
	raw, err := d.transport.SendReceive(ctx, transport.PathVersion, wire.VersionRequest)
	if err != nil {
		return nil, fmt.Errorf("provision: version info: %w", err)
	}
	info, err := wire.DecodeVersionInfo(raw)
	if err != nil {
		d.logger.Warn("ignoring unparsable version info", "error", err)
		return &wire.VersionInfo{}, nil
	}
	return info, nil
}

// selectScheme picks the scheme the device runs. A requested mode only
// fails the connect when exactly one side is unsecured.
func selectScheme(requested SecurityMode, info *wire.VersionInfo) (wire.SecScheme, error) {
	device, ok := info.SecScheme()
	if !ok {
		device = wire.SecScheme1
		if info.HasCapability(wire.CapNoSec) {
			device = wire.SecScheme0
		}
	}
	if device > wire.SecScheme2 || device < wire.SecScheme0 {
		return 0, fmt.Errorf("%w: device requires %s", ErrCapabilityMismatch, device)
	}
	if requested == SecurityAuto {
		return device, nil
	}
	want := requested.scheme()
	if want != device && (want == wire.SecScheme0 || device == wire.SecScheme0) {
		return 0, fmt.Errorf("%w: requested %s, device requires %s", ErrCapabilityMismatch, want, device)
	}
	return device, nil
}

func (d *Device) resolveCredentials(ctx context.Context, scheme wire.SecScheme, info *wire.VersionInfo) (pop, username string, err error) {
	if scheme == wire.SecScheme0 {
		return "", "", nil
	}
	if !info.HasCapability(wire.CapNoPoP) && d.cfg.Credentials != nil {
		pop, err = d.cfg.Credentials.ProofOfPossession(ctx, d.cfg.Name)
		if err != nil {
			return "", "", fmt.Errorf("provision: proof of possession: %w", err)
		}
	}
	if scheme != wire.SecScheme2 {
		return pop, "", nil
	}

	username = d.cfg.Username
	if username == "" && d.cfg.Credentials != nil {
		username, err = d.cfg.Credentials.Username(ctx, d.cfg.Name)
		if err != nil {
			return "", "", fmt.Errorf("provision: username: %w", err)
		}
	}
	if username == "" {
		if d.cfg.NoDefaultUsername {
			return "", "", ErrUsernameRequired
		}
		username = security.DefaultUsername
	}
	return pop, username, nil
}

func (d *Device) handshake(ctx context.Context, scheme wire.SecScheme, pop, username string) (*session.Session, error) {
	var opts []security.Option
	if d.cfg.Rand != nil {
		opts = append(opts, security.WithRandom(d.cfg.Rand))
	}

	var sec security.Security
	switch scheme {
	case wire.SecScheme0:
		sec = security.NewSec0()
	case wire.SecScheme1:
		sec = security.NewSec1([]byte(pop), opts...)
	case wire.SecScheme2:
		sec = security.NewSec2(username, pop, opts...)
	}

	sess := session.New(d.transport, sec,
		session.WithLogger(d.plog),
		session.WithConnectionID(d.connID),
	)
	if err := sess.Initialize(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// reestablish rejoins the access point and replaces the session with a
// fresh one under the same scheme and credentials.
func (d *Device) reestablish(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sess == nil {
		return ErrNotConnected
	}
	if err := d.cfg.Reconnect(ctx); err != nil {
		return fmt.Errorf("provision: reconnect: %w", err)
	}
	sess, err := d.handshake(ctx, d.scheme, d.pop, d.username)
	if err != nil {
		return fmt.Errorf("provision: reconnect: %w", err)
	}
	d.sess = sess
	d.emitState(stateConnecting, stateConnected, "reconnected")
	return nil
}

// Disconnect cancels running operations, drops the session and closes the
// transport.
func (d *Device) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stop != nil {
		d.stop(ErrNotConnected)
		d.stop = nil
	}
	wasConnected := d.sess != nil
	d.sess, d.life = nil, nil
	if wasConnected {
		d.emitState(stateConnected, stateDisconnected, "")
	}

	if c, ok := d.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SendData encrypts data, sends it to an arbitrary path and returns the
// decrypted response.
func (d *Device) SendData(ctx context.Context, path string, data []byte) ([]byte, error) {
	start := time.Now()
	d.emitCommand(log.DirectionOut, path, "CustomData", "", nil)
	resp, err := d.exchange(ctx, path, data, false)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	d.emitCommand(log.DirectionIn, path, "CustomData", "", &elapsed)
	return resp, nil
}

// operation derives a context that is cancelled when the caller's context
// ends or the device is disconnected.
func (d *Device) operation(ctx context.Context) (context.Context, context.CancelFunc, error) {
	d.mu.Lock()
	life := d.life
	d.mu.Unlock()
	if life == nil {
		return nil, nil, ErrNotConnected
	}

	ctx, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(life, func() {
		cancel(context.Cause(life))
	})
	return ctx, func() {
		stop()
		cancel(nil)
	}, nil
}

func (d *Device) currentSession() (*session.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return nil, ErrNotConnected
	}
	return d.sess, nil
}

// exchange sends one encrypted request. With retryOnce, used by the config
// and scan commands, a network-unreachable failure is retried exactly once
// after the Reconnect hook rejoined the access point; the request is
// re-encrypted under the new session. Custom data is never replayed.
func (d *Device) exchange(ctx context.Context, path string, payload []byte, retryOnce bool) ([]byte, error) {
	ctx, done, err := d.operation(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	var (
		resp     []byte
		attempt  int
		attempts uint = 1
	)
	if retryOnce {
		attempts = 2
	}
	err = retry.Do(
		func() error {
			attempt++
			if attempt > 1 {
				d.logger.Warn("access point association dropped, reconnecting", "path", path)
				if err := d.reestablish(ctx); err != nil {
					return retry.Unrecoverable(err)
				}
			}
			sess, err := d.currentSession()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err = sess.Exchange(ctx, path, payload)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(d.retryable),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, err
	}
	return resp, nil
}

func (d *Device) retryable(err error) bool {
	return d.cfg.Reconnect != nil && retry.IsRecoverable(err) && errors.Is(err, transport.ErrNetworkUnreachable)
}

func (d *Device) emitState(oldState, newState, reason string) {
	d.plog.Log(log.NewStateEvent(d.connID, log.LayerSession, log.StateEntityConnection, oldState, newState, reason))
}

func (d *Device) emitCommand(dir log.Direction, path, typ, status string, elapsed *time.Duration) {
	d.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: d.connID,
		Direction:    dir,
		Layer:        log.LayerCommand,
		Category:     log.CategoryMessage,
		Transport:    d.cfg.TransportKind,
		Command: &log.CommandEvent{
			Path:     path,
			Type:     typ,
			Status:   status,
			Duration: elapsed,
		},
	})
}

// deviceLogger stamps the device name and link on every event.
type deviceLogger struct {
	next log.Logger
	name string
	kind string
}

func (l *deviceLogger) Log(e log.Event) {
	if e.DeviceName == "" {
		e.DeviceName = l.name
	}
	if e.Transport == "" {
		e.Transport = l.kind
	}
	l.next.Log(e)
}
