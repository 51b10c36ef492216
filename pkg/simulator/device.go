package simulator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/security"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

var (
	// ErrNoSession is returned for an encrypted request outside an
	// established session.
	ErrNoSession = errors.New("simulator: no established session")

	// ErrUnknownEndpoint is returned for a path nothing handles.
	ErrUnknownEndpoint = errors.New("simulator: unknown endpoint")
)

// EndpointFunc handles a decrypted request on a custom endpoint.
type EndpointFunc func(request []byte) ([]byte, error)

// Device is a simulated provisioning device. It is safe for concurrent use.
type Device struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics
	version []byte

	mu        sync.Mutex
	sessions  map[string]security.Responder
	endpoints map[string]EndpointFunc
	wifi      joinState
	thread    joinState
	scanned   map[wire.ScanMsgType]bool
}

// joinState tracks one network kind between set, apply and status queries.
type joinState struct {
	ssid       []byte
	passphrase []byte
	dataset    []byte
	configured bool
	applied    bool
	polls      int
	result     string
}

// NewDevice creates a simulated device.
func NewDevice(cfg Config) (*Device, error) {
	cfg.applyDefaults()
	if cfg.Scheme > wire.SecScheme2 || cfg.Scheme < wire.SecScheme0 {
		return nil, fmt.Errorf("simulator: unsupported security scheme %d", cfg.Scheme)
	}

	prov := &wire.ProvInfo{Version: cfg.Version, Cap: cfg.capabilities()}
	if cfg.Scheme != wire.SecScheme0 {
		secVer := int(cfg.Scheme)
		patch := 0
		prov.SecVer = &secVer
		prov.SecPatchVer = &patch
	}
	version, err := wire.EncodeVersionInfo(&wire.VersionInfo{Prov: prov})
	if err != nil {
		return nil, err
	}

	// Fail early on responder construction errors.
	if _, err := newResponder(&cfg); err != nil {
		return nil, err
	}

	return &Device{
		cfg:       cfg,
		logger:    cfg.Logger.With("device", cfg.Name),
		metrics:   newMetrics(cfg.Registry),
		version:   version,
		sessions:  make(map[string]security.Responder),
		endpoints: make(map[string]EndpointFunc),
		scanned:   make(map[wire.ScanMsgType]bool),
	}, nil
}

func newResponder(cfg *Config) (security.Responder, error) {
	switch cfg.Scheme {
	case wire.SecScheme0:
		return security.NewSec0Responder(), nil
	case wire.SecScheme1:
		return security.NewSec1Responder([]byte(cfg.PoP)), nil
	default:
		return security.NewSec2Responder(cfg.Username, cfg.PoP)
	}
}

// Name returns the device name.
func (d *Device) Name() string { return d.cfg.Name }

// Registry returns the registry holding the device metrics.
func (d *Device) Registry() *prometheus.Registry { return d.cfg.Registry }

// HandleEndpoint registers a custom endpoint. Requests on it are decrypted
// before fn runs and its response is encrypted.
func (d *Device) HandleEndpoint(path string, fn EndpointFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints[path] = fn
}

// CloseSession forgets a session.
func (d *Device) CloseSession(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sessions[id]; ok {
		delete(d.sessions, id)
		d.metrics.sessions.Dec()
	}
}

// Handle answers one request on path for the session id.
func (d *Device) Handle(id, path string, data []byte) ([]byte, error) {
	d.capture(id, path, log.DirectionIn, data)
	resp, err := d.handle(id, path, data)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		d.logger.Debug("simulator: request failed", "path", path, "error", err)
		d.cfg.ProtocolLogger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: id,
			Layer:        log.LayerTransport,
			Category:     log.CategoryError,
			LocalRole:    log.RoleDevice,
			DeviceName:   d.cfg.Name,
			Error:        &log.ErrorEventData{Layer: log.LayerTransport, Message: err.Error(), Context: path},
		})
	} else {
		d.capture(id, path, log.DirectionOut, resp)
	}
	d.metrics.requests.WithLabelValues(path, outcome).Inc()
	return resp, err
}

func (d *Device) capture(id, path string, dir log.Direction, data []byte) {
	e := log.NewFrameEvent(id, path, dir, data)
	e.LocalRole = log.RoleDevice
	e.DeviceName = d.cfg.Name
	d.cfg.ProtocolLogger.Log(e)
}

func (d *Device) handle(id, path string, data []byte) ([]byte, error) {
	if path == transport.PathVersion {
		return d.version, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	responder, err := d.session(id)
	if err != nil {
		return nil, err
	}

	if path == transport.PathSession {
		before := responder.Established()
		resp, err := responder.HandleSession(data)
		if err != nil {
			return nil, err
		}
		if responder.Established() && (!before || d.cfg.Scheme == wire.SecScheme0) {
			d.metrics.handshakes.WithLabelValues(strconv.Itoa(int(d.cfg.Scheme))).Inc()
			d.logger.Debug("simulator: session established", "session", id)
		}
		return resp, nil
	}

	if !responder.Established() {
		return nil, ErrNoSession
	}
	req, err := responder.Decrypt(data)
	if err != nil {
		return nil, err
	}

	var resp []byte
	switch path {
	case transport.PathConfig:
		resp, err = d.handleConfig(req)
	case transport.PathScan:
		resp, err = d.handleScan(req)
	default:
		fn, ok := d.endpoints[path]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, path)
		}
		resp, err = fn(req)
	}
	if err != nil {
		return nil, err
	}
	return responder.Encrypt(resp)
}

// session returns the responder for id, creating it on first use.
func (d *Device) session(id string) (security.Responder, error) {
	if r, ok := d.sessions[id]; ok {
		return r, nil
	}
	r, err := newResponder(&d.cfg)
	if err != nil {
		return nil, err
	}
	d.sessions[id] = r
	d.metrics.sessions.Inc()
	return r, nil
}

// Status reports the simulated network state.
type Status struct {
	WifiSSID     string
	WifiResult   string
	ThreadResult string
}

// Status returns the current join results: "connected", "auth_error",
// "not_found", "attached", "dataset_invalid" or empty while unresolved.
func (d *Device) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		WifiSSID:     string(d.wifi.ssid),
		WifiResult:   d.wifi.result,
		ThreadResult: d.thread.result,
	}
}

// Sessions returns the open session IDs.
func (d *Device) Sessions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.sessions))
	for id := range d.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
