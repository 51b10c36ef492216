package wire

import "google.golang.org/protobuf/encoding/protowire"

// ConfigMsgType identifies a network configuration message.
type ConfigMsgType int32

const (
	TypeCmdGetWifiStatus      ConfigMsgType = 0
	TypeRespGetWifiStatus     ConfigMsgType = 1
	TypeCmdSetWifiConfig      ConfigMsgType = 2
	TypeRespSetWifiConfig     ConfigMsgType = 3
	TypeCmdApplyWifiConfig    ConfigMsgType = 4
	TypeRespApplyWifiConfig   ConfigMsgType = 5
	TypeCmdGetThreadStatus    ConfigMsgType = 6
	TypeRespGetThreadStatus   ConfigMsgType = 7
	TypeCmdSetThreadConfig    ConfigMsgType = 8
	TypeRespSetThreadConfig   ConfigMsgType = 9
	TypeCmdApplyThreadConfig  ConfigMsgType = 10
	TypeRespApplyThreadConfig ConfigMsgType = 11
)

// String returns the message type name.
func (t ConfigMsgType) String() string {
	switch t {
	case TypeCmdGetWifiStatus:
		return "CmdGetWifiStatus"
	case TypeRespGetWifiStatus:
		return "RespGetWifiStatus"
	case TypeCmdSetWifiConfig:
		return "CmdSetWifiConfig"
	case TypeRespSetWifiConfig:
		return "RespSetWifiConfig"
	case TypeCmdApplyWifiConfig:
		return "CmdApplyWifiConfig"
	case TypeRespApplyWifiConfig:
		return "RespApplyWifiConfig"
	case TypeCmdGetThreadStatus:
		return "CmdGetThreadStatus"
	case TypeRespGetThreadStatus:
		return "RespGetThreadStatus"
	case TypeCmdSetThreadConfig:
		return "CmdSetThreadConfig"
	case TypeRespSetThreadConfig:
		return "RespSetThreadConfig"
	case TypeCmdApplyThreadConfig:
		return "CmdApplyThreadConfig"
	case TypeRespApplyThreadConfig:
		return "RespApplyThreadConfig"
	default:
		return "ConfigMsgType(?)"
	}
}

// The payload field number of each message type is 10 + its type value.
func configPayloadField(t ConfigMsgType) protowire.Number {
	return protowire.Number(10 + t)
}

// NetworkConfigPayload is the envelope exchanged on the config path.
// Only the payload matching Msg is used; the command payloads that carry no
// fields (get status, apply) are implied by Msg.
type NetworkConfigPayload struct {
	Msg ConfigMsgType

	SetWifiConfig   *CmdSetWifiConfig
	SetThreadConfig *CmdSetThreadConfig

	WifiStatus   *RespGetWifiStatus
	ThreadStatus *RespGetThreadStatus

	// Status is the status of a set or apply response.
	Status Status
}

// CmdSetWifiConfig carries Wi-Fi station credentials.
type CmdSetWifiConfig struct {
	SSID       []byte
	Passphrase []byte
	BSSID      []byte
	Channel    int32
}

// CmdSetThreadConfig carries a Thread active operational dataset (TLVs).
type CmdSetThreadConfig struct {
	Dataset []byte
}

// RespGetWifiStatus reports the station state.
type RespGetWifiStatus struct {
	Status     Status
	StaState   WifiStationState
	FailReason WifiFailReason
	Connected  *WifiConnectedState
}

// WifiConnectedState describes an established station connection.
type WifiConnectedState struct {
	IP4Addr  string
	AuthMode WifiAuthMode
	SSID     []byte
	BSSID    []byte
	Channel  int32
}

// RespGetThreadStatus reports the Thread attach state.
type RespGetThreadStatus struct {
	Status      Status
	ThreadState ThreadNetworkState
	FailReason  ThreadFailReason
	Attached    *ThreadAttachState
}

// ThreadAttachState describes an attached Thread network.
type ThreadAttachState struct {
	PanID       uint32
	ExtPanID    []byte
	Channel     uint32
	NetworkName string
}

// EncodeNetworkConfig encodes a NetworkConfigPayload.
func EncodeNetworkConfig(m *NetworkConfigPayload) []byte {
	var b []byte
	b = appendInt32(b, 1, int32(m.Msg))

	var sub []byte
	switch m.Msg {
	case TypeCmdSetWifiConfig:
		if c := m.SetWifiConfig; c != nil {
			sub = appendBytes(sub, 1, c.SSID)
			sub = appendBytes(sub, 2, c.Passphrase)
			sub = appendBytes(sub, 3, c.BSSID)
			sub = appendInt32(sub, 4, c.Channel)
		}
	case TypeCmdSetThreadConfig:
		if c := m.SetThreadConfig; c != nil {
			sub = appendBytes(sub, 1, c.Dataset)
		}
	case TypeRespGetWifiStatus:
		if r := m.WifiStatus; r != nil {
			sub = encodeWifiStatus(r)
		}
	case TypeRespGetThreadStatus:
		if r := m.ThreadStatus; r != nil {
			sub = encodeThreadStatus(r)
		}
	case TypeRespSetWifiConfig, TypeRespApplyWifiConfig, TypeRespSetThreadConfig, TypeRespApplyThreadConfig:
		sub = appendInt32(sub, 1, int32(m.Status))
	}
	return appendMessage(b, configPayloadField(m.Msg), sub)
}

func encodeWifiStatus(r *RespGetWifiStatus) []byte {
	var b []byte
	b = appendInt32(b, 1, int32(r.Status))
	b = appendInt32(b, 2, int32(r.StaState))
	switch r.StaState {
	case WifiStateConnectionFailed:
		b = protowire.AppendTag(b, 10, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.FailReason))
	case WifiStateConnected:
		if c := r.Connected; c != nil {
			var sub []byte
			sub = appendString(sub, 1, c.IP4Addr)
			sub = appendInt32(sub, 2, int32(c.AuthMode))
			sub = appendBytes(sub, 3, c.SSID)
			sub = appendBytes(sub, 4, c.BSSID)
			sub = appendInt32(sub, 5, c.Channel)
			b = appendMessage(b, 11, sub)
		}
	}
	return b
}

func encodeThreadStatus(r *RespGetThreadStatus) []byte {
	var b []byte
	b = appendInt32(b, 1, int32(r.Status))
	b = appendInt32(b, 2, int32(r.ThreadState))
	switch r.ThreadState {
	case ThreadStateAttachingFailed:
		b = protowire.AppendTag(b, 10, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.FailReason))
	case ThreadStateAttached:
		if a := r.Attached; a != nil {
			var sub []byte
			sub = appendUint32(sub, 1, a.PanID)
			sub = appendBytes(sub, 2, a.ExtPanID)
			sub = appendUint32(sub, 3, a.Channel)
			sub = appendString(sub, 4, a.NetworkName)
			b = appendMessage(b, 11, sub)
		}
	}
	return b
}

// DecodeNetworkConfig decodes a NetworkConfigPayload.
func DecodeNetworkConfig(data []byte) (*NetworkConfigPayload, error) {
	m := &NetworkConfigPayload{}
	payloads := make(map[protowire.Number][]byte)
	err := walk(data, func(f field) error {
		switch {
		case f.num == 1:
			v, err := f.int32Val()
			m.Msg = ConfigMsgType(v)
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

	sub, ok := payloads[configPayloadField(m.Msg)]
	if !ok {
		// Command payloads without fields may be omitted by other encoders.
		switch m.Msg {
		case TypeCmdGetWifiStatus, TypeCmdApplyWifiConfig, TypeCmdGetThreadStatus, TypeCmdApplyThreadConfig:
			return m, nil
		}
		return nil, missing(m.Msg.String() + " payload")
	}

	switch m.Msg {
	case TypeCmdSetWifiConfig:
		c := &CmdSetWifiConfig{}
		m.SetWifiConfig = c
		err = walk(sub, func(f field) (err error) {
			switch f.num {
			case 1:
				c.SSID, err = f.bytesVal()
			case 2:
				c.Passphrase, err = f.bytesVal()
			case 3:
				c.BSSID, err = f.bytesVal()
			case 4:
				c.Channel, err = f.int32Val()
			}
			return err
		})
	case TypeCmdSetThreadConfig:
		c := &CmdSetThreadConfig{}
		m.SetThreadConfig = c
		err = walk(sub, func(f field) (err error) {
			if f.num == 1 {
				c.Dataset, err = f.bytesVal()
			}
			return err
		})
	case TypeRespGetWifiStatus:
		m.WifiStatus, err = decodeWifiStatus(sub)
	case TypeRespGetThreadStatus:
		m.ThreadStatus, err = decodeThreadStatus(sub)
	case TypeRespSetWifiConfig, TypeRespApplyWifiConfig, TypeRespSetThreadConfig, TypeRespApplyThreadConfig:
		err = walk(sub, func(f field) error {
			if f.num == 1 {
				v, err := f.int32Val()
				m.Status = Status(v)
				return err
			}
			return nil
		})
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeWifiStatus(data []byte) (*RespGetWifiStatus, error) {
	r := &RespGetWifiStatus{}
	err := walk(data, func(f field) (err error) {
		var v int32
		switch f.num {
		case 1:
			v, err = f.int32Val()
			r.Status = Status(v)
		case 2:
			v, err = f.int32Val()
			r.StaState = WifiStationState(v)
		case 10:
			v, err = f.int32Val()
			r.FailReason = WifiFailReason(v)
		case 11:
			c := &WifiConnectedState{}
			r.Connected = c
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					switch f.num {
					case 1:
						c.IP4Addr, err = f.stringVal()
					case 2:
						var v int32
						v, err = f.int32Val()
						c.AuthMode = WifiAuthMode(v)
					case 3:
						c.SSID, err = f.bytesVal()
					case 4:
						c.BSSID, err = f.bytesVal()
					case 5:
						c.Channel, err = f.int32Val()
					}
					return err
				})
			})
		}
		return err
	})
	return r, err
}

func decodeThreadStatus(data []byte) (*RespGetThreadStatus, error) {
	r := &RespGetThreadStatus{}
	err := walk(data, func(f field) (err error) {
		var v int32
		switch f.num {
		case 1:
			v, err = f.int32Val()
			r.Status = Status(v)
		case 2:
			v, err = f.int32Val()
			r.ThreadState = ThreadNetworkState(v)
		case 10:
			v, err = f.int32Val()
			r.FailReason = ThreadFailReason(v)
		case 11:
			a := &ThreadAttachState{}
			r.Attached = a
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					switch f.num {
					case 1:
						a.PanID, err = f.uint32Val()
					case 2:
						a.ExtPanID, err = f.bytesVal()
					case 3:
						a.Channel, err = f.uint32Val()
					case 4:
						a.NetworkName, err = f.stringVal()
					}
					return err
				})
			})
		}
		return err
	})
	return r, err
}
