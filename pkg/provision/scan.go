package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/transport"
	"github.com/espprov/espprov-go/pkg/wire"
)

// Scan parameters.
const (
	scanBatchSize    = 4
	wifiScanPeriodMs = 120

	// maxScanResults bounds the result count a device may report.
	maxScanResults = 256
)

// WifiNetwork is one access point found by a Wi-Fi scan.
type WifiNetwork struct {
	SSID    string
	BSSID   []byte
	Channel uint32
	RSSI    int32
	Auth    wire.WifiAuthMode
}

// ThreadNetwork is one network found by a Thread scan.
type ThreadNetwork struct {
	NetworkName string
	PanID       uint32
	ExtPanID    []byte
	ExtAddr     []byte
	Channel     uint32
	RSSI        int32
	LQI         uint32
}

// ScanWifi asks the device to scan for access points and returns them,
// one entry per SSID with the strongest signal. It returns ErrNoNetworks
// when nothing was found.
func (d *Device) ScanWifi(ctx context.Context) ([]WifiNetwork, error) {
	ctx, done, err := d.operation(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	count, err := d.startScan(ctx, &wire.NetworkScanPayload{
		Msg: wire.TypeCmdScanWifiStart,
		WifiStart: &wire.CmdScanWifiStart{
			Blocking: true,
			PeriodMs: wifiScanPeriodMs,
		},
	}, wire.TypeRespScanWifiStart, wire.TypeCmdScanWifiStatus, wire.TypeRespScanWifiStatus)
	if err != nil {
		return nil, err
	}

	var networks []WifiNetwork
	index := make(map[string]int)
	for start := uint32(0); start < count; start += scanBatchSize {
		resp, err := d.scanCommand(ctx, &wire.NetworkScanPayload{
			Msg:    wire.TypeCmdScanWifiResult,
			Result: &wire.CmdScanResult{StartIndex: start, Count: min(scanBatchSize, count-start)},
		}, wire.TypeRespScanWifiResult)
		if err != nil {
			return nil, err
		}
		if len(resp.WifiResults) == 0 {
			break
		}
		for _, e := range resp.WifiResults {
			n := WifiNetwork{SSID: string(e.SSID), BSSID: e.BSSID, Channel: e.Channel, RSSI: e.RSSI, Auth: e.Auth}
			if i, ok := index[n.SSID]; ok {
				if n.RSSI > networks[i].RSSI {
					networks[i] = n
				}
				continue
			}
			index[n.SSID] = len(networks)
			networks = append(networks, n)
		}
	}
	if len(networks) == 0 {
		return nil, ErrNoNetworks
	}
	d.logger.Info("wifi scan finished", "networks", len(networks))
	return networks, nil
}

// ScanThread asks the device to scan for Thread networks, one entry per
// network name with the strongest signal.
func (d *Device) ScanThread(ctx context.Context) ([]ThreadNetwork, error) {
	ctx, done, err := d.operation(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := d.requireCapability(wire.CapThreadScan); err != nil {
		return nil, err
	}
	count, err := d.startScan(ctx, &wire.NetworkScanPayload{
		Msg:         wire.TypeCmdScanThreadStart,
		ThreadStart: &wire.CmdScanThreadStart{Blocking: true},
	}, wire.TypeRespScanThreadStart, wire.TypeCmdScanThreadStatus, wire.TypeRespScanThreadStatus)
	if err != nil {
		return nil, err
	}

	var networks []ThreadNetwork
	index := make(map[string]int)
	for start := uint32(0); start < count; start += scanBatchSize {
		resp, err := d.scanCommand(ctx, &wire.NetworkScanPayload{
			Msg:    wire.TypeCmdScanThreadResult,
			Result: &wire.CmdScanResult{StartIndex: start, Count: min(scanBatchSize, count-start)},
		}, wire.TypeRespScanThreadResult)
		if err != nil {
			return nil, err
		}
		if len(resp.ThreadResults) == 0 {
			break
		}
		for _, e := range resp.ThreadResults {
			n := ThreadNetwork{
				NetworkName: e.NetworkName,
				PanID:       e.PanID,
				ExtPanID:    e.ExtPanID,
				ExtAddr:     e.ExtAddr,
				Channel:     e.Channel,
				RSSI:        e.RSSI,
				LQI:         e.LQI,
			}
			if i, ok := index[n.NetworkName]; ok {
				if n.RSSI > networks[i].RSSI {
					networks[i] = n
				}
				continue
			}
			index[n.NetworkName] = len(networks)
			networks = append(networks, n)
		}
	}
	if len(networks) == 0 {
		return nil, ErrNoNetworks
	}
	d.logger.Info("thread scan finished", "networks", len(networks))
	return networks, nil
}

// startScan issues the blocking start command followed by a single status
// query and returns the result count, at most maxScanResults.
func (d *Device) startScan(ctx context.Context, start *wire.NetworkScanPayload, startResp, statusCmd, statusResp wire.ScanMsgType) (uint32, error) {
	if _, err := d.scanCommand(ctx, start, startResp); err != nil {
		return 0, err
	}
	resp, err := d.scanCommand(ctx, &wire.NetworkScanPayload{Msg: statusCmd}, statusResp)
	if err != nil {
		return 0, err
	}
	if resp.ScanStatus == nil || resp.ScanStatus.ResultCount == 0 {
		return 0, ErrNoNetworks
	}
	count := resp.ScanStatus.ResultCount
	if count > maxScanResults {
		d.logger.Warn("device reported implausible scan result count", "count", count, "limit", maxScanResults)
		count = maxScanResults
	}
	return count, nil
}

func (d *Device) scanCommand(ctx context.Context, req *wire.NetworkScanPayload, want wire.ScanMsgType) (*wire.NetworkScanPayload, error) {
	start := time.Now()
	d.emitCommand(log.DirectionOut, transport.PathScan, req.Msg.String(), "", nil)

	raw, err := d.exchange(ctx, transport.PathScan, wire.EncodeNetworkScan(req), true)
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeNetworkScan(raw)
	if err != nil {
		return nil, decodeError(want.String(), err)
	}
	if resp.Msg != want {
		return nil, decodeError(want.String(), fmt.Errorf("unexpected message %s", resp.Msg))
	}

	elapsed := time.Since(start)
	d.emitCommand(log.DirectionIn, transport.PathScan, resp.Msg.String(), resp.Status.String(), &elapsed)
	if resp.Status != wire.StatusSuccess {
		return nil, statusError(req.Msg.String(), resp.Status)
	}
	return resp, nil
}
