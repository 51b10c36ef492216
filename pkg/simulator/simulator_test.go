package simulator

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/provision"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newDevice(t *testing.T, mutate func(*Config)) *Device {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WifiNetworks = []wire.WifiScanResult{
		{SSID: []byte("home"), Channel: 6, RSSI: -48, BSSID: []byte{1, 2, 3, 4, 5, 6}, Auth: wire.WifiAuthWPA2PSK},
		{SSID: []byte("office"), Channel: 11, RSSI: -70, Auth: wire.WifiAuthWPA3PSK},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := NewDevice(cfg)
	require.NoError(t, err)
	return d
}

func connectClient(t *testing.T, tr transport.Transport, pop string) *provision.Device {
	t.Helper()
	c, err := provision.New(provision.Config{
		Name:        "PROV_sim",
		Transport:   tr,
		Credentials: provision.StaticCredentials{PoP: pop},
		Sleep:       noSleep,
	})
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Disconnect() })
	return c
}

func TestProvisionWifiAllSchemes(t *testing.T) {
	for _, scheme := range []wire.SecScheme{wire.SecScheme0, wire.SecScheme1, wire.SecScheme2} {
		t.Run(scheme.String(), func(t *testing.T) {
			dev := newDevice(t, func(c *Config) { c.Scheme = scheme })
			client := connectClient(t, dev.Local(), DefaultPoP)
			assert.Equal(t, scheme, client.Scheme())

			networks, err := client.ScanWifi(context.Background())
			require.NoError(t, err)
			require.Len(t, networks, 2)

			st, err := client.ProvisionWifi(context.Background(), "home", "secret")
			require.NoError(t, err)
			assert.Equal(t, wire.WifiStateConnected, st.State)
			assert.Equal(t, DefaultIPv4, st.IPv4())
			assert.Equal(t, int32(6), st.Connected.Channel)
			assert.Equal(t, ResultConnected, dev.Status().WifiResult)

			if scheme != wire.SecScheme0 {
				assert.Equal(t, 1.0, testutil.ToFloat64(dev.metrics.handshakes.WithLabelValues(strconv.Itoa(int(scheme)))))
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(dev.metrics.joins.WithLabelValues("wifi", ResultConnected)))
		})
	}
}

func TestProvisionWifiJoinFailures(t *testing.T) {
	tests := []struct {
		name       string
		ssid, pass string
		reason     wire.WifiFailReason
		result     string
	}{
		{"wrong passphrase", "home", "nope", wire.WifiFailAuthError, ResultAuthError},
		{"unknown ssid", "elsewhere", "secret", wire.WifiFailNetworkNotFound, ResultNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newDevice(t, func(c *Config) {
				c.AccessPoints = map[string]string{"home": "secret"}
				c.ConnectSteps = 3
			})
			client := connectClient(t, dev.Local(), DefaultPoP)

			st, err := client.ProvisionWifi(context.Background(), tt.ssid, tt.pass)
			assert.ErrorIs(t, err, provision.ErrConnectionFailed)
			require.NotNil(t, st)
			assert.Equal(t, wire.WifiStateConnectionFailed, st.State)
			assert.Equal(t, tt.reason, st.FailReason)
			assert.Equal(t, tt.result, dev.Status().WifiResult)
		})
	}
}

func TestStatusBeforeApply(t *testing.T) {
	dev := newDevice(t, nil)
	client := connectClient(t, dev.Local(), DefaultPoP)

	st, err := client.GetWifiStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wire.WifiStateDisconnected, st.State)
}

func TestApplyStatusInjected(t *testing.T) {
	dev := newDevice(t, func(c *Config) { c.ApplyStatus = wire.StatusInternalError })
	client := connectClient(t, dev.Local(), DefaultPoP)

	_, err := client.ProvisionWifi(context.Background(), "home", "secret")
	assert.ErrorIs(t, err, provision.ErrStatus)
}

func TestProvisionThread(t *testing.T) {
	dev := newDevice(t, func(c *Config) {
		c.Thread = true
		c.ThreadNetworks = []wire.ThreadScanResult{{PanID: 0xface, Channel: 20, RSSI: -60, NetworkName: "Home-Thread", ExtPanID: []byte{1, 2, 3, 4, 5, 6, 7, 8}}}
	})
	client := connectClient(t, dev.Local(), DefaultPoP)

	networks, err := client.ScanThread(context.Background())
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.Equal(t, "Home-Thread", networks[0].NetworkName)

	st, err := client.ProvisionThread(context.Background(), []byte{0x0e, 0x08, 0, 0, 0, 0, 0, 1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, wire.ThreadStateAttached, st.State)
	assert.Equal(t, uint32(0xface), st.Attached.PanID)
	assert.Equal(t, ResultAttached, dev.Status().ThreadResult)
}

func TestThreadDisabled(t *testing.T) {
	dev := newDevice(t, nil)
	client := connectClient(t, dev.Local(), DefaultPoP)

	_, err := client.ScanThread(context.Background())
	assert.ErrorIs(t, err, provision.ErrCapabilityMismatch)
}

func TestCustomEndpoint(t *testing.T) {
	dev := newDevice(t, nil)
	dev.HandleEndpoint("custom-data", func(req []byte) ([]byte, error) {
		return bytes.ToUpper(req), nil
	})
	client := connectClient(t, dev.Local(), DefaultPoP)

	resp, err := client.SendData(context.Background(), "custom-data", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(resp))

	_, err = client.SendData(context.Background(), "nothing-here", []byte("x"))
	assert.ErrorIs(t, err, transport.ErrUnknownPath)
}

func TestWrongPoP(t *testing.T) {
	dev := newDevice(t, nil)
	c, err := provision.New(provision.Config{
		Transport:   dev.Local(),
		Credentials: provision.StaticCredentials{PoP: "wrong"},
	})
	require.NoError(t, err)
	assert.Error(t, c.Connect(context.Background()))
}

func TestEncryptedRequestWithoutSession(t *testing.T) {
	dev := newDevice(t, func(c *Config) { c.Scheme = wire.SecScheme1 })
	_, err := dev.Handle("s1", transport.PathConfig, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 1.0, testutil.ToFloat64(dev.metrics.requests.WithLabelValues(transport.PathConfig, "error")))
}

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestProtocolCapture(t *testing.T) {
	capture := &captureLogger{}
	dev := newDevice(t, func(c *Config) {
		c.Scheme = wire.SecScheme1
		c.ProtocolLogger = capture
	})
	_, err := dev.Handle("s1", transport.PathVersion, wire.VersionRequest)
	require.NoError(t, err)
	_, err = dev.Handle("s1", transport.PathConfig, []byte{1})
	require.Error(t, err)

	require.Len(t, capture.events, 4)
	for _, e := range capture.events {
		assert.Equal(t, log.RoleDevice, e.LocalRole)
		assert.Equal(t, "s1", e.ConnectionID)
		assert.Equal(t, DefaultName, e.DeviceName)
	}
	assert.Equal(t, log.DirectionIn, capture.events[0].Direction)
	assert.Equal(t, transport.PathVersion, capture.events[1].Frame.Path)
	assert.Equal(t, log.DirectionOut, capture.events[1].Direction)
	require.NotNil(t, capture.events[3].Error)
	assert.Equal(t, transport.PathConfig, capture.events[3].Error.Context)
}

func TestVersionInfo(t *testing.T) {
	dev := newDevice(t, func(c *Config) {
		c.Scheme = wire.SecScheme0
		c.NoPoP = true
		c.Capabilities = []string{"custom"}
	})
	raw, err := dev.Handle("", transport.PathVersion, wire.VersionRequest)
	require.NoError(t, err)

	info, err := wire.DecodeVersionInfo(raw)
	require.NoError(t, err)
	_, hasSecVer := info.SecScheme()
	assert.False(t, hasSecVer)
	for _, c := range []string{wire.CapWifiScan, wire.CapNoSec, wire.CapNoPoP, "custom"} {
		assert.True(t, info.HasCapability(c), c)
	}
}

func TestLocalCloseDropsSession(t *testing.T) {
	dev := newDevice(t, nil)
	client := connectClient(t, dev.Local(), DefaultPoP)
	require.Len(t, dev.Sessions(), 1)

	require.NoError(t, client.Disconnect())
	assert.Empty(t, dev.Sessions())
	assert.Equal(t, 0.0, testutil.ToFloat64(dev.metrics.sessions))
}

func TestServerOverSoftAP(t *testing.T) {
	dev := newDevice(t, nil)
	srv := httptest.NewServer(NewServer(dev).Handler())
	defer srv.Close()

	tr, err := transport.NewSoftAP(transport.SoftAPConfig{Address: srv.URL})
	require.NoError(t, err)
	client := connectClient(t, tr, DefaultPoP)

	st, err := client.ProvisionWifi(context.Background(), "home", "secret")
	require.NoError(t, err)
	assert.Equal(t, DefaultIPv4, st.IPv4())
	assert.Len(t, dev.Sessions(), 1, "the cookie keeps every request on one session")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `espprov_sim_network_joins_total{network="wifi",result="connected"} 1`)
}

func TestServerErrors(t *testing.T) {
	dev := newDevice(t, nil)
	srv := httptest.NewServer(NewServer(dev).Handler())
	defer srv.Close()

	post := func(path string) *http.Response {
		resp, err := http.Post(srv.URL+"/"+path, "application/x-www-form-urlencoded", strings.NewReader("x"))
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusBadRequest, post(transport.PathConfig).StatusCode)

	resp := post(transport.PathVersion)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Cookies())

	getResp, err := http.Get(srv.URL + "/" + transport.PathConfig)
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestNewDeviceRejectsScheme(t *testing.T) {
	_, err := NewDevice(Config{Scheme: 3})
	assert.Error(t, err)
}
