// Package netjoin joins the host to a device's SoftAP through NetworkManager
// over the system D-Bus.
//
// The SoftAP transport needs the host to be associated with the device's
// access point. Association drops are common while the device reconfigures
// its radio, so provisioning rejoins through a Joiner before replaying the
// failed request:
//
//	nm, err := netjoin.NewNetworkManager(netjoin.Config{Interface: "wlan0"})
//	if err != nil {
//		return err
//	}
//	defer nm.Close()
//
//	cfg := provision.Config{
//		Reconnect: netjoin.Rejoin(nm, "PROV_1a2b3c", "ap-password"),
//	}
package netjoin
