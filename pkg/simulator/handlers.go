package simulator

import (
	"bytes"

	"github.com/espprov/espprov-go/pkg/wire"
)

// Join results reported by Status.
const (
	ResultConnected      = "connected"
	ResultAuthError      = "auth_error"
	ResultNotFound       = "not_found"
	ResultAttached       = "attached"
	ResultDatasetInvalid = "dataset_invalid"
)

func (d *Device) handleConfig(data []byte) ([]byte, error) {
	req, err := wire.DecodeNetworkConfig(data)
	if err != nil {
		return nil, err
	}
	resp := &wire.NetworkConfigPayload{Msg: req.Msg + 1}

	switch req.Msg {
	case wire.TypeCmdSetWifiConfig:
		resp.Status = d.setWifi(req.SetWifiConfig)
	case wire.TypeCmdApplyWifiConfig:
		resp.Status = d.apply(&d.wifi)
	case wire.TypeCmdGetWifiStatus:
		resp.WifiStatus = d.wifiStatus()
	case wire.TypeCmdSetThreadConfig:
		resp.Status = d.setThread(req.SetThreadConfig)
	case wire.TypeCmdApplyThreadConfig:
		resp.Status = d.apply(&d.thread)
	case wire.TypeCmdGetThreadStatus:
		resp.ThreadStatus = d.threadStatus()
	default:
		resp.Status = wire.StatusInvalidProto
	}
	return wire.EncodeNetworkConfig(resp), nil
}

func (d *Device) setWifi(cmd *wire.CmdSetWifiConfig) wire.Status {
	if cmd == nil || len(cmd.SSID) == 0 {
		return wire.StatusInvalidArgument
	}
	d.wifi = joinState{
		ssid:       bytes.Clone(cmd.SSID),
		passphrase: bytes.Clone(cmd.Passphrase),
		configured: true,
	}
	d.logger.Info("simulator: wifi credentials set", "ssid", string(cmd.SSID))
	return wire.StatusSuccess
}

func (d *Device) setThread(cmd *wire.CmdSetThreadConfig) wire.Status {
	if !d.cfg.Thread || cmd == nil {
		return wire.StatusInvalidArgument
	}
	d.thread = joinState{dataset: bytes.Clone(cmd.Dataset), configured: true}
	d.logger.Info("simulator: thread dataset set", "bytes", len(cmd.Dataset))
	return wire.StatusSuccess
}

func (d *Device) apply(s *joinState) wire.Status {
	if d.cfg.ApplyStatus != wire.StatusSuccess {
		return d.cfg.ApplyStatus
	}
	if !s.configured {
		return wire.StatusInvalidArgument
	}
	s.applied = true
	s.polls = 0
	s.result = ""
	return wire.StatusSuccess
}

// pending advances the status script and reports whether the join is still
// in progress.
func (d *Device) pending(s *joinState) bool {
	s.polls++
	return s.polls <= d.cfg.ConnectSteps
}

func (d *Device) wifiStatus() *wire.RespGetWifiStatus {
	s := &d.wifi
	if !s.applied {
		return &wire.RespGetWifiStatus{StaState: wire.WifiStateDisconnected}
	}
	if s.result == "" && d.pending(s) {
		return &wire.RespGetWifiStatus{StaState: wire.WifiStateConnecting}
	}
	if s.result == "" {
		s.result = d.resolveWifi(s)
		d.metrics.joins.WithLabelValues("wifi", s.result).Inc()
		d.logger.Info("simulator: wifi join resolved", "ssid", string(s.ssid), "result", s.result)
	}

	switch s.result {
	case ResultAuthError:
		return &wire.RespGetWifiStatus{StaState: wire.WifiStateConnectionFailed, FailReason: wire.WifiFailAuthError}
	case ResultNotFound:
		return &wire.RespGetWifiStatus{StaState: wire.WifiStateConnectionFailed, FailReason: wire.WifiFailNetworkNotFound}
	}

	connected := &wire.WifiConnectedState{
		IP4Addr:  d.cfg.IPv4,
		AuthMode: wire.WifiAuthWPA2PSK,
		SSID:     s.ssid,
	}
	if len(s.passphrase) == 0 {
		connected.AuthMode = wire.WifiAuthOpen
	}
	if ap, ok := d.scanEntry(s.ssid); ok {
		connected.AuthMode = ap.Auth
		connected.BSSID = ap.BSSID
		connected.Channel = int32(ap.Channel)
	}
	return &wire.RespGetWifiStatus{StaState: wire.WifiStateConnected, Connected: connected}
}

func (d *Device) resolveWifi(s *joinState) string {
	if d.cfg.AccessPoints == nil {
		return ResultConnected
	}
	pass, ok := d.cfg.AccessPoints[string(s.ssid)]
	switch {
	case !ok:
		return ResultNotFound
	case pass != string(s.passphrase):
		return ResultAuthError
	}
	return ResultConnected
}

func (d *Device) scanEntry(ssid []byte) (wire.WifiScanResult, bool) {
	for _, ap := range d.cfg.WifiNetworks {
		if bytes.Equal(ap.SSID, ssid) {
			return ap, true
		}
	}
	return wire.WifiScanResult{}, false
}

func (d *Device) threadStatus() *wire.RespGetThreadStatus {
	s := &d.thread
	if !s.applied {
		return &wire.RespGetThreadStatus{ThreadState: wire.ThreadStateDetached}
	}
	if s.result == "" && d.pending(s) {
		return &wire.RespGetThreadStatus{ThreadState: wire.ThreadStateAttaching}
	}
	if s.result == "" {
		s.result = ResultAttached
		if len(s.dataset) == 0 {
			s.result = ResultDatasetInvalid
		}
		d.metrics.joins.WithLabelValues("thread", s.result).Inc()
		d.logger.Info("simulator: thread attach resolved", "result", s.result)
	}

	if s.result == ResultDatasetInvalid {
		return &wire.RespGetThreadStatus{ThreadState: wire.ThreadStateAttachingFailed, FailReason: wire.ThreadFailDatasetInvalid}
	}
	attached := &wire.ThreadAttachState{NetworkName: "OpenThread-sim", PanID: 0x1234, Channel: 15}
	if len(d.cfg.ThreadNetworks) > 0 {
		n := d.cfg.ThreadNetworks[0]
		attached = &wire.ThreadAttachState{PanID: n.PanID, ExtPanID: n.ExtPanID, Channel: n.Channel, NetworkName: n.NetworkName}
	}
	return &wire.RespGetThreadStatus{ThreadState: wire.ThreadStateAttached, Attached: attached}
}

func (d *Device) handleScan(data []byte) ([]byte, error) {
	req, err := wire.DecodeNetworkScan(data)
	if err != nil {
		return nil, err
	}
	resp := &wire.NetworkScanPayload{Msg: req.Msg + 1}

	switch req.Msg {
	case wire.TypeCmdScanWifiStart:
		d.scanned[wire.TypeCmdScanWifiStart] = true
	case wire.TypeCmdScanThreadStart:
		if !d.cfg.Thread {
			resp.Status = wire.StatusInvalidArgument
			break
		}
		d.scanned[wire.TypeCmdScanThreadStart] = true
	case wire.TypeCmdScanWifiStatus:
		resp.ScanStatus = d.scanStatus(wire.TypeCmdScanWifiStart, len(d.cfg.WifiNetworks))
	case wire.TypeCmdScanThreadStatus:
		resp.ScanStatus = d.scanStatus(wire.TypeCmdScanThreadStart, len(d.cfg.ThreadNetworks))
	case wire.TypeCmdScanWifiResult:
		lo, hi, ok := page(req.Result, len(d.cfg.WifiNetworks))
		if !ok {
			resp.Status = wire.StatusInvalidArgument
			break
		}
		resp.WifiResults = d.cfg.WifiNetworks[lo:hi]
	case wire.TypeCmdScanThreadResult:
		lo, hi, ok := page(req.Result, len(d.cfg.ThreadNetworks))
		if !ok {
			resp.Status = wire.StatusInvalidArgument
			break
		}
		resp.ThreadResults = d.cfg.ThreadNetworks[lo:hi]
	default:
		resp.Status = wire.StatusInvalidProto
	}
	return wire.EncodeNetworkScan(resp), nil
}

func (d *Device) scanStatus(start wire.ScanMsgType, count int) *wire.RespScanStatus {
	if !d.scanned[start] {
		return &wire.RespScanStatus{}
	}
	return &wire.RespScanStatus{ScanFinished: true, ResultCount: uint32(count)}
}

func page(r *wire.CmdScanResult, n int) (lo, hi int, ok bool) {
	if r == nil || int(r.StartIndex) > n {
		return 0, 0, false
	}
	lo = int(r.StartIndex)
	hi = min(lo+int(r.Count), n)
	return lo, hi, true
}
