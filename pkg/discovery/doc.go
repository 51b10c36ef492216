// Package discovery finds provisioning endpoints over mDNS/DNS-SD.
//
// A device running the SoftAP provisioning manager advertises itself as
// _esp_wifi_prov._tcp on the access point network. The instance name is
// the provisioning name (e.g. PROV_1a2b3c) and the TXT records map each
// protocomm path to its HTTP endpoint:
//
//	version_endpoint=/proto-ver
//	session_endpoint=/prov-session
//	config_endpoint=/prov-config
//
// The simulator advertises the same service so clients can be exercised
// without hardware.
package discovery
