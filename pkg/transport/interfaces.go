package transport

import "context"

// Default logical paths.
const (
	PathVersion     = "proto-ver"
	PathSession     = "prov-session"
	PathConfig      = "prov-config"
	PathScan        = "prov-scan"
	PathAssociation = "cloud_user_assoc"
)

// Paths lists the default logical paths.
var Paths = []string{PathVersion, PathSession, PathConfig, PathScan, PathAssociation}

// Transport exchanges one request for one response on a logical path.
// Implementations serve one exchange at a time per device.
type Transport interface {
	SendReceive(ctx context.Context, path string, data []byte) ([]byte, error)
}
