package wire

import "fmt"

// SecScheme identifies a session security scheme.
type SecScheme int32

const (
	// SecScheme0 is the unsecured scheme.
	SecScheme0 SecScheme = 0
	// SecScheme1 is Curve25519 key agreement with proof of possession.
	SecScheme1 SecScheme = 1
	// SecScheme2 is SRP6a.
	SecScheme2 SecScheme = 2
)

// String returns the scheme name.
func (s SecScheme) String() string {
	switch s {
	case SecScheme0:
		return "SEC0"
	case SecScheme1:
		return "SEC1"
	case SecScheme2:
		return "SEC2"
	default:
		return fmt.Sprintf("SEC(%d)", int32(s))
	}
}

// WifiAuthMode is the authentication mode of a Wi-Fi network.
type WifiAuthMode int32

const (
	WifiAuthOpen        WifiAuthMode = 0
	WifiAuthWEP         WifiAuthMode = 1
	WifiAuthWPAPSK      WifiAuthMode = 2
	WifiAuthWPA2PSK     WifiAuthMode = 3
	WifiAuthWPAWPA2PSK  WifiAuthMode = 4
	WifiAuthWPA2Ent     WifiAuthMode = 5
	WifiAuthWPA3PSK     WifiAuthMode = 6
	WifiAuthWPA2WPA3PSK WifiAuthMode = 7
)

// String returns the auth mode name.
func (m WifiAuthMode) String() string {
	switch m {
	case WifiAuthOpen:
		return "Open"
	case WifiAuthWEP:
		return "WEP"
	case WifiAuthWPAPSK:
		return "WPA_PSK"
	case WifiAuthWPA2PSK:
		return "WPA2_PSK"
	case WifiAuthWPAWPA2PSK:
		return "WPA_WPA2_PSK"
	case WifiAuthWPA2Ent:
		return "WPA2_ENTERPRISE"
	case WifiAuthWPA3PSK:
		return "WPA3_PSK"
	case WifiAuthWPA2WPA3PSK:
		return "WPA2_WPA3_PSK"
	default:
		return fmt.Sprintf("AUTH(%d)", int32(m))
	}
}

// WifiStationState is the station state reported by GetWifiStatus.
type WifiStationState int32

const (
	WifiStateConnected        WifiStationState = 0
	WifiStateConnecting       WifiStationState = 1
	WifiStateDisconnected     WifiStationState = 2
	WifiStateConnectionFailed WifiStationState = 3
)

// String returns the state name.
func (s WifiStationState) String() string {
	switch s {
	case WifiStateConnected:
		return "Connected"
	case WifiStateConnecting:
		return "Connecting"
	case WifiStateDisconnected:
		return "Disconnected"
	case WifiStateConnectionFailed:
		return "ConnectionFailed"
	default:
		return fmt.Sprintf("WifiState(%d)", int32(s))
	}
}

// WifiFailReason explains a ConnectionFailed state.
type WifiFailReason int32

const (
	WifiFailAuthError       WifiFailReason = 0
	WifiFailNetworkNotFound WifiFailReason = 1
)

// String returns the reason name.
func (r WifiFailReason) String() string {
	switch r {
	case WifiFailAuthError:
		return "AuthError"
	case WifiFailNetworkNotFound:
		return "NetworkNotFound"
	default:
		return fmt.Sprintf("WifiFailReason(%d)", int32(r))
	}
}

// ThreadNetworkState is the attach state reported by GetThreadStatus.
type ThreadNetworkState int32

const (
	ThreadStateAttached        ThreadNetworkState = 0
	ThreadStateAttaching       ThreadNetworkState = 1
	ThreadStateDetached        ThreadNetworkState = 2
	ThreadStateAttachingFailed ThreadNetworkState = 3
)

// String returns the state name.
func (s ThreadNetworkState) String() string {
	switch s {
	case ThreadStateAttached:
		return "Attached"
	case ThreadStateAttaching:
		return "Attaching"
	case ThreadStateDetached:
		return "Detached"
	case ThreadStateAttachingFailed:
		return "AttachingFailed"
	default:
		return fmt.Sprintf("ThreadState(%d)", int32(s))
	}
}

// ThreadFailReason explains an AttachingFailed state.
type ThreadFailReason int32

const (
	ThreadFailDatasetInvalid  ThreadFailReason = 0
	ThreadFailNetworkNotFound ThreadFailReason = 1
)

// String returns the reason name.
func (r ThreadFailReason) String() string {
	switch r {
	case ThreadFailDatasetInvalid:
		return "DatasetInvalid"
	case ThreadFailNetworkNotFound:
		return "NetworkNotFound"
	default:
		return fmt.Sprintf("ThreadFailReason(%d)", int32(r))
	}
}
