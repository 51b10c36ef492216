package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

// Network describes the network to provision. A non-empty ThreadDataset
// selects Thread; otherwise SSID and Passphrase are sent as Wi-Fi
// credentials.
type Network struct {
	SSID          string
	Passphrase    string
	ThreadDataset []byte
}

// Result is the terminal state reported by the device. Exactly one of
// Wifi and Thread is set.
type Result struct {
	Wifi   *WifiStatus
	Thread *ThreadStatus
}

// WifiStatus is the station state reported by the device.
type WifiStatus struct {
	State      wire.WifiStationState
	FailReason wire.WifiFailReason
	Connected  *wire.WifiConnectedState
}

// IPv4 returns the station address once connected.
func (s *WifiStatus) IPv4() string {
	if s == nil || s.Connected == nil {
		return ""
	}
	return s.Connected.IP4Addr
}

// ThreadStatus is the Thread attach state reported by the device.
type ThreadStatus struct {
	State      wire.ThreadNetworkState
	FailReason wire.ThreadFailReason
	Attached   *wire.ThreadAttachState
}

// Provision sends the network credentials, applies them and waits until
// the device reports a terminal state.
func (d *Device) Provision(ctx context.Context, n Network) (*Result, error) {
	if len(n.ThreadDataset) > 0 {
		st, err := d.ProvisionThread(ctx, n.ThreadDataset)
		return &Result{Thread: st}, err
	}
	st, err := d.ProvisionWifi(ctx, n.SSID, n.Passphrase)
	return &Result{Wifi: st}, err
}

// ProvisionWifi sets and applies Wi-Fi credentials, then polls the station
// state. A connected device returns its status and nil. A terminal failure
// returns the status together with ErrConnectionFailed.
func (d *Device) ProvisionWifi(ctx context.Context, ssid, passphrase string) (*WifiStatus, error) {
	ctx, done, err := d.operation(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	_, err = d.configCommand(ctx, &wire.NetworkConfigPayload{
		Msg: wire.TypeCmdSetWifiConfig,
		SetWifiConfig: &wire.CmdSetWifiConfig{
			SSID:       []byte(ssid),
			Passphrase: []byte(passphrase),
		},
	}, wire.TypeRespSetWifiConfig)
	if err != nil {
		return nil, err
	}
	if _, err := d.configCommand(ctx, &wire.NetworkConfigPayload{Msg: wire.TypeCmdApplyWifiConfig}, wire.TypeRespApplyWifiConfig); err != nil {
		return nil, err
	}
	d.logger.Info("wifi config applied", "ssid", ssid)
	return d.pollWifi(ctx)
}

// ProvisionThread sets and applies a Thread operational dataset, then polls
// the attach state.
func (d *Device) ProvisionThread(ctx context.Context, dataset []byte) (*ThreadStatus, error) {
	ctx, done, err := d.operation(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := d.requireCapability(wire.CapThreadProv); err != nil {
		return nil, err
	}
	_, err = d.configCommand(ctx, &wire.NetworkConfigPayload{
		Msg:             wire.TypeCmdSetThreadConfig,
		SetThreadConfig: &wire.CmdSetThreadConfig{Dataset: dataset},
	}, wire.TypeRespSetThreadConfig)
	if err != nil {
		return nil, err
	}
	if _, err := d.configCommand(ctx, &wire.NetworkConfigPayload{Msg: wire.TypeCmdApplyThreadConfig}, wire.TypeRespApplyThreadConfig); err != nil {
		return nil, err
	}
	d.logger.Info("thread config applied", "dataset_len", len(dataset))
	return d.pollThread(ctx)
}

// GetWifiStatus queries the station state once.
func (d *Device) GetWifiStatus(ctx context.Context) (*WifiStatus, error) {
	resp, err := d.configCommand(ctx, &wire.NetworkConfigPayload{Msg: wire.TypeCmdGetWifiStatus}, wire.TypeRespGetWifiStatus)
	if err != nil {
		return nil, err
	}
	r := resp.WifiStatus
	if r == nil {
		return nil, decodeError("wifi status", fmt.Errorf("missing payload"))
	}
	if r.Status != wire.StatusSuccess {
		return nil, statusError(wire.TypeCmdGetWifiStatus.String(), r.Status)
	}
	return &WifiStatus{State: r.StaState, FailReason: r.FailReason, Connected: r.Connected}, nil
}

// GetThreadStatus queries the Thread attach state once.
func (d *Device) GetThreadStatus(ctx context.Context) (*ThreadStatus, error) {
	resp, err := d.configCommand(ctx, &wire.NetworkConfigPayload{Msg: wire.TypeCmdGetThreadStatus}, wire.TypeRespGetThreadStatus)
	if err != nil {
		return nil, err
	}
	r := resp.ThreadStatus
	if r == nil {
		return nil, decodeError("thread status", fmt.Errorf("missing payload"))
	}
	if r.Status != wire.StatusSuccess {
		return nil, statusError(wire.TypeCmdGetThreadStatus.String(), r.Status)
	}
	return &ThreadStatus{State: r.ThreadState, FailReason: r.FailReason, Attached: r.Attached}, nil
}

func (d *Device) pollWifi(ctx context.Context) (*WifiStatus, error) {
	last := ""
	for {
		st, err := d.GetWifiStatus(ctx)
		if err != nil {
			return nil, err
		}
		d.emitProvisioning(&last, st.State.String())

		switch st.State {
		case wire.WifiStateConnected:
			d.logger.Info("wifi connected", "ip", st.IPv4())
			return st, nil
		case wire.WifiStateConnecting:
			if err := d.wait(ctx); err != nil {
				return nil, err
			}
		case wire.WifiStateConnectionFailed:
			return st, fmt.Errorf("%w: wifi %s", ErrConnectionFailed, st.FailReason)
		default:
			return st, fmt.Errorf("%w: wifi %s", ErrConnectionFailed, st.State)
		}
	}
}

func (d *Device) pollThread(ctx context.Context) (*ThreadStatus, error) {
	last := ""
	for {
		st, err := d.GetThreadStatus(ctx)
		if err != nil {
			return nil, err
		}
		d.emitProvisioning(&last, st.State.String())

		switch st.State {
		case wire.ThreadStateAttached:
			d.logger.Info("thread attached")
			return st, nil
		case wire.ThreadStateAttaching:
			if err := d.wait(ctx); err != nil {
				return nil, err
			}
		case wire.ThreadStateAttachingFailed:
			return st, fmt.Errorf("%w: thread %s", ErrConnectionFailed, st.FailReason)
		default:
			return st, fmt.Errorf("%w: thread %s", ErrConnectionFailed, st.State)
		}
	}
}

func (d *Device) wait(ctx context.Context) error {
	if err := d.cfg.Sleep(ctx, d.cfg.PollInterval); err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return err
	}
	return nil
}

func (d *Device) emitProvisioning(last *string, state string) {
	if *last == state {
		return
	}
	d.plog.Log(log.NewStateEvent(d.connID, log.LayerCommand, log.StateEntityProvisioning, *last, state, ""))
	*last = state
}

// configCommand runs one exchange on the config path and checks the
// response type and, for set and apply, the response status.
func (d *Device) configCommand(ctx context.Context, req *wire.NetworkConfigPayload, want wire.ConfigMsgType) (*wire.NetworkConfigPayload, error) {
	start := time.Now()
	d.emitCommand(log.DirectionOut, transport.PathConfig, req.Msg.String(), "", nil)

	raw, err := d.exchange(ctx, transport.PathConfig, wire.EncodeNetworkConfig(req), true)
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeNetworkConfig(raw)
	if err != nil {
		return nil, decodeError(want.String(), err)
	}
	if resp.Msg != want {
		return nil, decodeError(want.String(), fmt.Errorf("unexpected message %s", resp.Msg))
	}

	status := resp.Status
	switch {
	case resp.WifiStatus != nil:
		status = resp.WifiStatus.Status
	case resp.ThreadStatus != nil:
		status = resp.ThreadStatus.Status
	}
	elapsed := time.Since(start)
	d.emitCommand(log.DirectionIn, transport.PathConfig, resp.Msg.String(), status.String(), &elapsed)

	if resp.WifiStatus == nil && resp.ThreadStatus == nil && status != wire.StatusSuccess {
		return nil, statusError(req.Msg.String(), status)
	}
	return resp, nil
}

func (d *Device) requireCapability(c string) error {
	if !d.VersionInfo().HasCapability(c) {
		return fmt.Errorf("%w: device does not advertise %s", ErrCapabilityMismatch, c)
	}
	return nil
}
