package provision_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/provision"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

func sec1Config(sleep *noSleep) provision.Config {
	return provision.Config{
		Credentials:  provision.StaticCredentials{PoP: "abcd1234"},
		PollInterval: 5 * time.Second,
		Sleep:        sleep.Sleep,
	}
}

func TestProvisionWifiPollsUntilConnected(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	dev.wifiStates = []wire.WifiStationState{
		wire.WifiStateConnecting,
		wire.WifiStateConnecting,
		wire.WifiStateConnecting,
		wire.WifiStateConnected,
	}
	sleep := &noSleep{}
	d := connect(t, dev, sec1Config(sleep))

	st, err := d.ProvisionWifi(context.Background(), "home", "secret")
	require.NoError(t, err)
	assert.Equal(t, wire.WifiStateConnected, st.State)
	assert.Equal(t, "192.168.1.42", st.IPv4())
	assert.Equal(t, 4, dev.statusCalls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, sleep.calls)
}

func TestProvisionWifiFailure(t *testing.T) {
	tests := []struct {
		name  string
		state wire.WifiStationState
	}{
		{"connection failed", wire.WifiStateConnectionFailed},
		{"disconnected", wire.WifiStateDisconnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
			dev.wifiStates = []wire.WifiStationState{wire.WifiStateConnecting, tt.state}
			d := connect(t, dev, sec1Config(&noSleep{}))

			st, err := d.ProvisionWifi(context.Background(), "home", "wrong")
			assert.ErrorIs(t, err, provision.ErrConnectionFailed)
			require.NotNil(t, st)
			assert.Equal(t, tt.state, st.State)
			assert.Equal(t, 2, dev.statusCalls)
		})
	}
}

func TestProvisionWifiAuthFailReason(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	dev.wifiStates = []wire.WifiStationState{wire.WifiStateConnectionFailed}
	d := connect(t, dev, sec1Config(&noSleep{}))

	st, err := d.ProvisionWifi(context.Background(), "home", "wrong")
	require.Error(t, err)
	assert.Equal(t, wire.WifiFailAuthError, st.FailReason)
	assert.Contains(t, err.Error(), "AuthError")
}

func TestProvisionApplyRejected(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	dev.applyStatus = wire.StatusInternalError
	d := connect(t, dev, sec1Config(&noSleep{}))

	_, err := d.ProvisionWifi(context.Background(), "home", "secret")
	assert.ErrorIs(t, err, provision.ErrStatus)
	var se *wire.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, wire.StatusInternalError, se.Status)
	assert.Zero(t, dev.statusCalls)
}

func TestProvisionPollCancelledByDisconnect(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	dev.wifiStates = []wire.WifiStationState{wire.WifiStateConnecting}

	var d *provision.Device
	cfg := sec1Config(nil)
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error {
		go func() { _ = d.Disconnect() }()
		<-ctx.Done()
		return ctx.Err()
	}
	d = connect(t, dev, cfg)

	_, err := d.ProvisionWifi(context.Background(), "home", "secret")
	assert.ErrorIs(t, err, provision.ErrNotConnected)
	assert.Equal(t, 1, dev.statusCalls)
}

func TestProvisionPollCancelledByCaller(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	dev.wifiStates = []wire.WifiStationState{wire.WifiStateConnecting}
	ctx, cancel := context.WithCancel(context.Background())

	cfg := sec1Config(nil)
	cfg.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	d := connect(t, dev, cfg)

	_, err := d.ProvisionWifi(ctx, "home", "secret")
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, d.IsConnected())
}

func TestProvisionThread(t *testing.T) {
	dev := newTestDevice(versionSec2, sec2Device(t, "wifiprov", "abcd1234"))
	dev.threadStates = []wire.ThreadNetworkState{wire.ThreadStateAttaching, wire.ThreadStateAttached}
	d := connect(t, dev, sec1Config(&noSleep{}))

	res, err := d.Provision(context.Background(), provision.Network{ThreadDataset: []byte{0x0e, 0x08, 0x00}})
	require.NoError(t, err)
	require.NotNil(t, res.Thread)
	assert.Nil(t, res.Wifi)
	assert.Equal(t, wire.ThreadStateAttached, res.Thread.State)
	assert.Equal(t, "OpenThread", res.Thread.Attached.NetworkName)
	assert.Equal(t, 2, dev.statusCalls)
}

func TestProvisionThreadFailure(t *testing.T) {
	dev := newTestDevice(versionSec2, sec2Device(t, "wifiprov", "abcd1234"))
	dev.threadStates = []wire.ThreadNetworkState{wire.ThreadStateAttachingFailed}
	d := connect(t, dev, sec1Config(&noSleep{}))

	st, err := d.ProvisionThread(context.Background(), []byte{0x01})
	assert.ErrorIs(t, err, provision.ErrConnectionFailed)
	assert.Equal(t, wire.ThreadStateAttachingFailed, st.State)
}

func TestProvisionThreadNeedsCapability(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	d := connect(t, dev, sec1Config(&noSleep{}))

	_, err := d.ProvisionThread(context.Background(), []byte{0x01})
	assert.ErrorIs(t, err, provision.ErrCapabilityMismatch)
}

func TestProvisionDispatchesWifi(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	d := connect(t, dev, sec1Config(&noSleep{}))

	res, err := d.Provision(context.Background(), provision.Network{SSID: "home", Passphrase: "secret"})
	require.NoError(t, err)
	require.NotNil(t, res.Wifi)
	assert.Nil(t, res.Thread)
}

func TestProvisionRetriesAfterAssociationDrop(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	cfg := sec1Config(&noSleep{})
	reconnects := 0
	cfg.Reconnect = func(context.Context) error {
		reconnects++
		return nil
	}
	d := connect(t, dev, cfg)
	dev.unreachable[transport.PathConfig] = 1

	st, err := d.ProvisionWifi(context.Background(), "home", "secret")
	require.NoError(t, err)
	assert.Equal(t, wire.WifiStateConnected, st.State)
	assert.Equal(t, 1, reconnects)
}

func TestProvisioningStateEvents(t *testing.T) {
	dev := newTestDevice(versionSec1, sec1Device("abcd1234"))
	dev.wifiStates = []wire.WifiStationState{
		wire.WifiStateConnecting,
		wire.WifiStateConnecting,
		wire.WifiStateConnected,
	}
	events := &captureLogger{}
	cfg := sec1Config(&noSleep{})
	cfg.ProtocolLogger = events
	d := connect(t, dev, cfg)

	_, err := d.ProvisionWifi(context.Background(), "home", "secret")
	require.NoError(t, err)

	var states []string
	for _, e := range events.layer(log.LayerCommand) {
		if e.StateChange != nil && e.StateChange.Entity == log.StateEntityProvisioning {
			states = append(states, e.StateChange.NewState)
		}
	}
	assert.Equal(t, []string{"Connecting", "Connected"}, states)
}
