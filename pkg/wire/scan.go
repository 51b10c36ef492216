package wire

import "google.golang.org/protobuf/encoding/protowire"

// ScanMsgType identifies a network scan message.
type ScanMsgType int32

const (
	TypeCmdScanWifiStart     ScanMsgType = 0
	TypeRespScanWifiStart    ScanMsgType = 1
	TypeCmdScanWifiStatus    ScanMsgType = 2
	TypeRespScanWifiStatus   ScanMsgType = 3
	TypeCmdScanWifiResult    ScanMsgType = 4
	TypeRespScanWifiResult   ScanMsgType = 5
	TypeCmdScanThreadStart   ScanMsgType = 6
	TypeRespScanThreadStart  ScanMsgType = 7
	TypeCmdScanThreadStatus  ScanMsgType = 8
	TypeRespScanThreadStatus ScanMsgType = 9
	TypeCmdScanThreadResult  ScanMsgType = 10
	TypeRespScanThreadResult ScanMsgType = 11
)

// String returns the message type name.
func (t ScanMsgType) String() string {
	names := [...]string{
		"CmdScanWifiStart", "RespScanWifiStart",
		"CmdScanWifiStatus", "RespScanWifiStatus",
		"CmdScanWifiResult", "RespScanWifiResult",
		"CmdScanThreadStart", "RespScanThreadStart",
		"CmdScanThreadStatus", "RespScanThreadStatus",
		"CmdScanThreadResult", "RespScanThreadResult",
	}
	if t < 0 || int(t) >= len(names) {
		return "ScanMsgType(?)"
	}
	return names[t]
}

// NetworkScanPayload is the envelope exchanged on the scan path.
// Only the payload matching Msg is used.
type NetworkScanPayload struct {
	Msg    ScanMsgType
	Status Status

	WifiStart   *CmdScanWifiStart
	ThreadStart *CmdScanThreadStart

	// ScanStatus answers CmdScanWifiStatus and CmdScanThreadStatus.
	ScanStatus *RespScanStatus

	// Result requests a page of Wi-Fi or Thread results.
	Result *CmdScanResult

	WifiResults   []WifiScanResult
	ThreadResults []ThreadScanResult
}

// CmdScanWifiStart starts a Wi-Fi scan.
type CmdScanWifiStart struct {
	Blocking      bool
	Passive       bool
	GroupChannels uint32
	PeriodMs      uint32
}

// CmdScanThreadStart starts a Thread scan.
type CmdScanThreadStart struct {
	Blocking    bool
	ChannelMask uint32
}

// RespScanStatus reports scan progress.
type RespScanStatus struct {
	ScanFinished bool
	ResultCount  uint32
}

// CmdScanResult requests Count results starting at StartIndex.
type CmdScanResult struct {
	StartIndex uint32
	Count      uint32
}

// WifiScanResult is a single Wi-Fi scan entry.
type WifiScanResult struct {
	SSID    []byte
	Channel uint32
	RSSI    int32
	BSSID   []byte
	Auth    WifiAuthMode
}

// ThreadScanResult is a single Thread scan entry.
type ThreadScanResult struct {
	PanID       uint32
	Channel     uint32
	RSSI        int32
	LQI         uint32
	ExtAddr     []byte
	NetworkName string
	ExtPanID    []byte
}

func scanPayloadField(t ScanMsgType) protowire.Number {
	return protowire.Number(10 + t)
}

// EncodeNetworkScan encodes a NetworkScanPayload.
func EncodeNetworkScan(m *NetworkScanPayload) []byte {
	var b []byte
	b = appendInt32(b, 1, int32(m.Msg))
	b = appendInt32(b, 2, int32(m.Status))

	var sub []byte
	switch m.Msg {
	case TypeCmdScanWifiStart:
		if c := m.WifiStart; c != nil {
			sub = appendBool(sub, 1, c.Blocking)
			sub = appendBool(sub, 2, c.Passive)
			sub = appendUint32(sub, 3, c.GroupChannels)
			sub = appendUint32(sub, 4, c.PeriodMs)
		}
	case TypeCmdScanThreadStart:
		if c := m.ThreadStart; c != nil {
			sub = appendBool(sub, 1, c.Blocking)
			sub = appendUint32(sub, 2, c.ChannelMask)
		}
	case TypeRespScanWifiStatus, TypeRespScanThreadStatus:
		if s := m.ScanStatus; s != nil {
			sub = appendBool(sub, 1, s.ScanFinished)
			sub = appendUint32(sub, 2, s.ResultCount)
		}
	case TypeCmdScanWifiResult, TypeCmdScanThreadResult:
		if r := m.Result; r != nil {
			sub = appendUint32(sub, 1, r.StartIndex)
			sub = appendUint32(sub, 2, r.Count)
		}
	case TypeRespScanWifiResult:
		for _, e := range m.WifiResults {
			var entry []byte
			entry = appendBytes(entry, 1, e.SSID)
			entry = appendUint32(entry, 2, e.Channel)
			entry = appendInt32(entry, 3, e.RSSI)
			entry = appendBytes(entry, 4, e.BSSID)
			entry = appendInt32(entry, 5, int32(e.Auth))
			sub = appendMessage(sub, 1, entry)
		}
	case TypeRespScanThreadResult:
		for _, e := range m.ThreadResults {
			var entry []byte
			entry = appendUint32(entry, 1, e.PanID)
			entry = appendUint32(entry, 2, e.Channel)
			entry = appendInt32(entry, 3, e.RSSI)
			entry = appendUint32(entry, 4, e.LQI)
			entry = appendBytes(entry, 5, e.ExtAddr)
			entry = appendString(entry, 6, e.NetworkName)
			entry = appendBytes(entry, 7, e.ExtPanID)
			sub = appendMessage(sub, 1, entry)
		}
	}
	return appendMessage(b, scanPayloadField(m.Msg), sub)
}

// DecodeNetworkScan decodes a NetworkScanPayload.
func DecodeNetworkScan(data []byte) (*NetworkScanPayload, error) {
	m := &NetworkScanPayload{}
	var sub []byte
	var found bool
	payloads := make(map[protowire.Number][]byte)
	err := walk(data, func(f field) error {
		switch {
		case f.num == 1:
			v, err := f.int32Val()
			m.Msg = ScanMsgType(v)
			return err
		case f.num == 2:
			v, err := f.int32Val()
			m.Status = Status(v)
			return err
		case f.num >= 10 && f.num <= 21:
			if f.typ != protowire.BytesType {
				return f.wrongType()
			}
			payloads[f.num] = f.bytes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sub, found = payloads[scanPayloadField(m.Msg)]

	switch m.Msg {
	case TypeCmdScanWifiStart:
		c := &CmdScanWifiStart{}
		m.WifiStart = c
		err = walk(sub, func(f field) (err error) {
			switch f.num {
			case 1:
				c.Blocking, err = f.boolVal()
			case 2:
				c.Passive, err = f.boolVal()
			case 3:
				c.GroupChannels, err = f.uint32Val()
			case 4:
				c.PeriodMs, err = f.uint32Val()
			}
			return err
		})
	case TypeCmdScanThreadStart:
		c := &CmdScanThreadStart{}
		m.ThreadStart = c
		err = walk(sub, func(f field) (err error) {
			switch f.num {
			case 1:
				c.Blocking, err = f.boolVal()
			case 2:
				c.ChannelMask, err = f.uint32Val()
			}
			return err
		})
	case TypeRespScanWifiStatus, TypeRespScanThreadStatus:
		if !found {
			return nil, missing(m.Msg.String() + " payload")
		}
		s := &RespScanStatus{}
		m.ScanStatus = s
		err = walk(sub, func(f field) (err error) {
			switch f.num {
			case 1:
				s.ScanFinished, err = f.boolVal()
			case 2:
				s.ResultCount, err = f.uint32Val()
			}
			return err
		})
	case TypeCmdScanWifiResult, TypeCmdScanThreadResult:
		r := &CmdScanResult{}
		m.Result = r
		err = walk(sub, func(f field) (err error) {
			switch f.num {
			case 1:
				r.StartIndex, err = f.uint32Val()
			case 2:
				r.Count, err = f.uint32Val()
			}
			return err
		})
	case TypeRespScanWifiResult:
		if !found {
			return nil, missing(m.Msg.String() + " payload")
		}
		err = walk(sub, func(f field) error {
			if f.num != 1 {
				return nil
			}
			return f.message(func(b []byte) error {
				e, err := decodeWifiScanResult(b)
				if err == nil {
					m.WifiResults = append(m.WifiResults, e)
				}
				return err
			})
		})
	case TypeRespScanThreadResult:
		if !found {
			return nil, missing(m.Msg.String() + " payload")
		}
		err = walk(sub, func(f field) error {
			if f.num != 1 {
				return nil
			}
			return f.message(func(b []byte) error {
				e, err := decodeThreadScanResult(b)
				if err == nil {
					m.ThreadResults = append(m.ThreadResults, e)
				}
				return err
			})
		})
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeWifiScanResult(data []byte) (WifiScanResult, error) {
	var e WifiScanResult
	err := walk(data, func(f field) (err error) {
		switch f.num {
		case 1:
			e.SSID, err = f.bytesVal()
		case 2:
			e.Channel, err = f.uint32Val()
		case 3:
			e.RSSI, err = f.int32Val()
		case 4:
			e.BSSID, err = f.bytesVal()
		case 5:
			var v int32
			v, err = f.int32Val()
			e.Auth = WifiAuthMode(v)
		}
		return err
	})
	return e, err
}

func decodeThreadScanResult(data []byte) (ThreadScanResult, error) {
	var e ThreadScanResult
	err := walk(data, func(f field) (err error) {
		switch f.num {
		case 1:
			e.PanID, err = f.uint32Val()
		case 2:
			e.Channel, err = f.uint32Val()
		case 3:
			e.RSSI, err = f.int32Val()
		case 4:
			e.LQI, err = f.uint32Val()
		case 5:
			e.ExtAddr, err = f.bytesVal()
		case 6:
			e.NetworkName, err = f.stringVal()
		case 7:
			e.ExtPanID, err = f.bytesVal()
		}
		return err
	})
	return e, err
}
