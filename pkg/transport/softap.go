package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// SoftAP defaults.
const (
	DefaultSoftAPAddress = "192.168.4.1:80"
	DefaultSoftAPTimeout = 5 * time.Second

	softAPContentType = "application/x-www-form-urlencoded"
	softAPAccept      = "text/plain"
)

// SoftAPConfig configures a SoftAP transport.
type SoftAPConfig struct {
	// Address is host:port or a base URL of the device. Default: 192.168.4.1:80.
	Address string

	// Timeout bounds each exchange. Default: 5s.
	Timeout time.Duration

	// HTTPClient overrides the client; its Timeout and Jar are left as given.
	HTTPClient *http.Client

	// Logger receives operational messages. Default: slog.Default().
	Logger *slog.Logger
}

// SoftAP sends requests to the device HTTP server on its access point.
type SoftAP struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// NewSoftAP creates a SoftAP transport.
func NewSoftAP(cfg SoftAPConfig) (*SoftAP, error) {
	if cfg.Address == "" {
		cfg.Address = DefaultSoftAPAddress
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultSoftAPTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	raw := cfg.Address
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid softap address %q: %w", cfg.Address, err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("transport: invalid softap address %q: missing host", cfg.Address)
	}

	client := cfg.HTTPClient
	if client == nil {
		// The device tracks the protocomm session by cookie.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		client = &http.Client{Timeout: cfg.Timeout, Jar: jar}
	}

	return &SoftAP{base: base, client: client, logger: cfg.Logger}, nil
}

// Address returns the device base URL.
func (s *SoftAP) Address() string {
	return s.base.String()
}

// SendReceive POSTs data to the path and returns the response body.
// A non-200 status is logged and the body is still returned.
func (s *SoftAP) SendReceive(ctx context.Context, path string, data []byte) ([]byte, error) {
	if path == "" {
		return nil, &Error{Path: path, Op: "send", Err: ErrUnknownPath}
	}
	target := s.base.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Path: path, Op: "send", Err: err}
	}
	req.Header.Set("Content-Type", softAPContentType)
	req.Header.Set("Accept", softAPAccept)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classify(path, "send", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(path, "receive", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("softap: unexpected status", "path", path, "status", resp.StatusCode, "bytes", len(body))
	}
	return body, nil
}

// Close drops idle connections to the device.
func (s *SoftAP) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

var _ Transport = (*SoftAP)(nil)
