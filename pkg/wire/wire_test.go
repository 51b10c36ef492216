package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeSessionDataKnownBytes(t *testing.T) {
	data := EncodeSessionData(&SessionData{
		SecVer: SecScheme1,
		Sec1: &Sec1Payload{
			Msg:  Sec1SessionCommand0,
			Cmd0: &Sec1Cmd0{ClientPubKey: []byte{1, 2}},
		},
	})
	want := []byte{
		0x10, 0x01, // sec_ver = 1
		0x5a, 0x07, // sec1, 7 bytes
		0xa2, 0x01, 0x04, // sc0, 4 bytes
		0x0a, 0x02, 0x01, 0x02, // client_pubkey
	}
	assert.Equal(t, want, data)
}

func TestSessionDataRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  *SessionData
	}{
		{"sec0 command", &SessionData{SecVer: SecScheme0, Sec0: &Sec0Payload{Cmd: &S0SessionCmd{}}}},
		{"sec0 response", &SessionData{SecVer: SecScheme0, Sec0: &Sec0Payload{
			Msg: Sec0SessionResponse, Resp: &S0SessionResp{Status: StatusInvalidSecScheme}}}},
		{"sec1 response0", &SessionData{SecVer: SecScheme1, Sec1: &Sec1Payload{
			Msg:   Sec1SessionResponse0,
			Resp0: &Sec1Resp0{DevicePubKey: []byte{9, 9}, DeviceRandom: []byte{7}},
		}}},
		{"sec1 command1", &SessionData{SecVer: SecScheme1, Sec1: &Sec1Payload{
			Msg: Sec1SessionCommand1, Cmd1: &Sec1Cmd1{ClientVerifyData: []byte{3, 4, 5}},
		}}},
		{"sec1 response1", &SessionData{SecVer: SecScheme1, Sec1: &Sec1Payload{
			Msg: Sec1SessionResponse1, Resp1: &Sec1Resp1{Status: StatusCryptoError, DeviceVerifyData: []byte{1}},
		}}},
		{"sec2 command0", &SessionData{SecVer: SecScheme2, Sec2: &Sec2Payload{
			Cmd0: &Sec2Cmd0{ClientUsername: []byte("wifiprov"), ClientPubKey: []byte{1, 2, 3}},
		}}},
		{"sec2 response0", &SessionData{SecVer: SecScheme2, Sec2: &Sec2Payload{
			Msg: Sec2SessionResponse0, Resp0: &Sec2Resp0{DevicePubKey: []byte{4}, DeviceSalt: []byte{5, 6}},
		}}},
		{"sec2 command1", &SessionData{SecVer: SecScheme2, Sec2: &Sec2Payload{
			Msg: Sec2SessionCommand1, Cmd1: &Sec2Cmd1{ClientProof: []byte{8}},
		}}},
		{"sec2 response1", &SessionData{SecVer: SecScheme2, Sec2: &Sec2Payload{
			Msg: Sec2SessionResponse1, Resp1: &Sec2Resp1{DeviceProof: []byte{1}, DeviceNonce: []byte{2}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSessionData(EncodeSessionData(tt.msg))
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	data := EncodeSessionData(&SessionData{SecVer: SecScheme0, Sec0: &Sec0Payload{Cmd: &S0SessionCmd{}}})
	data = protowire.AppendTag(data, 99, protowire.VarintType)
	data = protowire.AppendVarint(data, 12345)
	data = protowire.AppendTag(data, 100, protowire.Fixed32Type)
	data = protowire.AppendFixed32(data, 1)

	got, err := DecodeSessionData(data)
	require.NoError(t, err)
	assert.NotNil(t, got.Sec0)
}

func TestDecodeErrors(t *testing.T) {
	valid := EncodeSessionData(&SessionData{SecVer: SecScheme1, Sec1: &Sec1Payload{
		Msg: Sec1SessionResponse0, Resp0: &Sec1Resp0{DevicePubKey: make([]byte, 32)},
	}})

	t.Run("truncated", func(t *testing.T) {
		_, err := DecodeSessionData(valid[:len(valid)-3])
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("wrong wire type", func(t *testing.T) {
		var data []byte
		data = protowire.AppendTag(data, 11, protowire.VarintType)
		data = protowire.AppendVarint(data, 1)
		_, err := DecodeSessionData(data)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeNetworkConfig([]byte{0xff, 0xff, 0xff})
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestEncodeGetWifiStatusCommand(t *testing.T) {
	data := EncodeNetworkConfig(&NetworkConfigPayload{Msg: TypeCmdGetWifiStatus})
	// msg omitted (zero), cmd_get_status field 10 present and empty.
	assert.Equal(t, []byte{0x52, 0x00}, data)
}

func TestNetworkConfigRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  *NetworkConfigPayload
	}{
		{"set wifi", &NetworkConfigPayload{Msg: TypeCmdSetWifiConfig, SetWifiConfig: &CmdSetWifiConfig{
			SSID: []byte("home"), Passphrase: []byte("secret"), BSSID: []byte{1, 2, 3, 4, 5, 6}, Channel: 6,
		}}},
		{"set thread", &NetworkConfigPayload{Msg: TypeCmdSetThreadConfig, SetThreadConfig: &CmdSetThreadConfig{
			Dataset: []byte{0x0e, 0x08, 0, 0, 0, 0, 0, 1, 0, 0},
		}}},
		{"apply response", &NetworkConfigPayload{Msg: TypeRespApplyWifiConfig, Status: StatusInternalError}},
		{"wifi connected", &NetworkConfigPayload{Msg: TypeRespGetWifiStatus, WifiStatus: &RespGetWifiStatus{
			StaState: WifiStateConnected,
			Connected: &WifiConnectedState{
				IP4Addr: "192.168.1.20", AuthMode: WifiAuthWPA2PSK, SSID: []byte("home"), Channel: 11,
			},
		}}},
		{"wifi failed", &NetworkConfigPayload{Msg: TypeRespGetWifiStatus, WifiStatus: &RespGetWifiStatus{
			StaState: WifiStateConnectionFailed, FailReason: WifiFailNetworkNotFound,
		}}},
		{"thread attached", &NetworkConfigPayload{Msg: TypeRespGetThreadStatus, ThreadStatus: &RespGetThreadStatus{
			ThreadState: ThreadStateAttached,
			Attached:    &ThreadAttachState{PanID: 0x1234, ExtPanID: []byte{1, 2}, Channel: 15, NetworkName: "OpenThread"},
		}}},
		{"thread failed", &NetworkConfigPayload{Msg: TypeRespGetThreadStatus, ThreadStatus: &RespGetThreadStatus{
			ThreadState: ThreadStateAttachingFailed, FailReason: ThreadFailDatasetInvalid,
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNetworkConfig(EncodeNetworkConfig(tt.msg))
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestDecodeNetworkConfigMissingResponsePayload(t *testing.T) {
	var data []byte
	data = protowire.AppendTag(data, 1, protowire.VarintType)
	data = protowire.AppendVarint(data, uint64(TypeRespGetWifiStatus))

	_, err := DecodeNetworkConfig(data)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestNetworkScanRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  *NetworkScanPayload
	}{
		{"wifi start", &NetworkScanPayload{Msg: TypeCmdScanWifiStart, WifiStart: &CmdScanWifiStart{
			Blocking: true, PeriodMs: 120,
		}}},
		{"thread start", &NetworkScanPayload{Msg: TypeCmdScanThreadStart, ThreadStart: &CmdScanThreadStart{
			Blocking: true,
		}}},
		{"status", &NetworkScanPayload{Msg: TypeRespScanWifiStatus, ScanStatus: &RespScanStatus{
			ScanFinished: true, ResultCount: 9,
		}}},
		{"result request", &NetworkScanPayload{Msg: TypeCmdScanWifiResult, Result: &CmdScanResult{
			StartIndex: 4, Count: 4,
		}}},
		{"wifi results", &NetworkScanPayload{Msg: TypeRespScanWifiResult, WifiResults: []WifiScanResult{
			{SSID: []byte("a"), Channel: 1, RSSI: -40, BSSID: []byte{1}, Auth: WifiAuthWPA2PSK},
			{SSID: []byte("b"), Channel: 11, RSSI: -87},
		}}},
		{"thread results", &NetworkScanPayload{Msg: TypeRespScanThreadResult, ThreadResults: []ThreadScanResult{
			{PanID: 0xface, Channel: 15, RSSI: -60, LQI: 3, ExtAddr: []byte{1, 2}, NetworkName: "ot", ExtPanID: []byte{9}},
		}}},
		{"error status", &NetworkScanPayload{Msg: TypeRespScanWifiStart, Status: StatusInvalidArgument}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNetworkScan(EncodeNetworkScan(tt.msg))
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestNegativeRSSIUsesTenByteVarint(t *testing.T) {
	data := EncodeNetworkScan(&NetworkScanPayload{Msg: TypeRespScanWifiResult, WifiResults: []WifiScanResult{{RSSI: -1}}})
	got, err := DecodeNetworkScan(data)
	require.NoError(t, err)
	require.Len(t, got.WifiResults, 1)
	assert.Equal(t, int32(-1), got.WifiResults[0].RSSI)
}

func TestDecodeVersionInfo(t *testing.T) {
	info, err := DecodeVersionInfo([]byte(`{"prov":{"ver":"v1.1","sec_ver":2,"cap":["wifi_scan","no_pop"]},"my_app":{"ver":"1.0"}}`))
	require.NoError(t, err)

	scheme, ok := info.SecScheme()
	assert.True(t, ok)
	assert.Equal(t, SecScheme2, scheme)
	assert.True(t, info.HasCapability(CapWifiScan))
	assert.True(t, info.HasCapability(CapNoPoP))
	assert.False(t, info.HasCapability(CapNoSec))
	assert.Contains(t, info.Extra, "my_app")
}

func TestDecodeVersionInfoWithoutProv(t *testing.T) {
	info, err := DecodeVersionInfo([]byte(`{"other":1}`))
	require.NoError(t, err)

	_, ok := info.SecScheme()
	assert.False(t, ok)
	assert.False(t, info.HasCapability(CapWifiScan))
}

func TestDecodeVersionInfoInvalid(t *testing.T) {
	_, err := DecodeVersionInfo([]byte("ESP"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEncodeVersionInfo(t *testing.T) {
	secVer := 1
	data, err := EncodeVersionInfo(&VersionInfo{Prov: &ProvInfo{Version: "v1.1", SecVer: &secVer, Cap: []string{CapWifiScan}}})
	require.NoError(t, err)

	info, err := DecodeVersionInfo(data)
	require.NoError(t, err)
	assert.Equal(t, "v1.1", info.Prov.Version)
	assert.True(t, info.HasCapability(CapWifiScan))
}
