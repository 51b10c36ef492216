package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the service type of SoftAP provisioning endpoints.
	ServiceType = "_esp_wifi_prov._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// DefaultPort is the port of the provisioning HTTP server.
	DefaultPort = 80

	// BrowseTimeout is the default duration of a browse.
	BrowseTimeout = 5 * time.Second

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrNotFound            = errors.New("discovery: service not found")
	ErrInvalidInstanceName = errors.New("discovery: invalid instance name")
)

// Service is a discovered provisioning endpoint.
type Service struct {
	// InstanceName is the provisioning name of the device.
	InstanceName string

	Host      string
	Port      uint16
	Addresses []string

	// Endpoints maps protocomm paths (proto-ver, prov-session, ...) to
	// their advertised HTTP paths.
	Endpoints map[string]string
}

// Address returns host:port for the SoftAP transport, preferring an IPv4
// address. It falls back to the host name when no address was resolved.
func (s *Service) Address() string {
	port := strconv.Itoa(int(s.Port))
	var v6 string
	for _, addr := range s.Addresses {
		ip := net.ParseIP(addr)
		switch {
		case ip == nil:
		case ip.To4() != nil:
			return net.JoinHostPort(addr, port)
		case v6 == "":
			v6 = addr
		}
	}
	if v6 != "" {
		return net.JoinHostPort(v6, port)
	}
	return net.JoinHostPort(s.Host, port)
}
