package wire

import (
	"encoding/json"
	"fmt"
	"slices"
)

// VersionRequest is the body sent to the version endpoint.
var VersionRequest = []byte("ESP")

// Capabilities advertised in the version info.
const (
	CapWifiScan   = "wifi_scan"
	CapThreadScan = "thread_scan"
	CapThreadProv = "thread_prov"
	CapNoPoP      = "no_pop"
	CapNoSec      = "no_sec"
)

// VersionInfo is the JSON document returned by the version endpoint.
// Firmware may add application-specific top-level keys; they are kept in
// Extra.
type VersionInfo struct {
	Prov  *ProvInfo                  `json:"prov,omitempty"`
	Extra map[string]json.RawMessage `json:"-"`
}

// ProvInfo is the "prov" section of the version info.
type ProvInfo struct {
	Version     string   `json:"ver,omitempty"`
	SecVer      *int     `json:"sec_ver,omitempty"`
	SecPatchVer *int     `json:"sec_patch_ver,omitempty"`
	Cap         []string `json:"cap,omitempty"`
}

// DecodeVersionInfo parses the version endpoint response.
func DecodeVersionInfo(data []byte) (*VersionInfo, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: version info: %v", ErrDecode, err)
	}
	info := &VersionInfo{Extra: make(map[string]json.RawMessage)}
	for k, v := range raw {
		if k != "prov" {
			info.Extra[k] = v
			continue
		}
		var prov ProvInfo
		if err := json.Unmarshal(v, &prov); err != nil {
			return nil, fmt.Errorf("%w: version info prov: %v", ErrDecode, err)
		}
		info.Prov = &prov
	}
	return info, nil
}

// EncodeVersionInfo renders the version info as JSON.
func EncodeVersionInfo(info *VersionInfo) ([]byte, error) {
	out := make(map[string]any, len(info.Extra)+1)
	for k, v := range info.Extra {
		out[k] = v
	}
	if info.Prov != nil {
		out["prov"] = info.Prov
	}
	return json.Marshal(out)
}

// HasCapability reports whether the device advertises capability c.
func (v *VersionInfo) HasCapability(c string) bool {
	if v == nil || v.Prov == nil {
		return false
	}
	return slices.Contains(v.Prov.Cap, c)
}

// SecScheme returns the scheme advertised by sec_ver, if present.
func (v *VersionInfo) SecScheme() (SecScheme, bool) {
	if v == nil || v.Prov == nil || v.Prov.SecVer == nil {
		return 0, false
	}
	return SecScheme(*v.Prov.SecVer), true
}
