// Package provision is the client facade for provisioning one device.
//
// A Device owns a transport, reads the device version info, picks the
// security scheme, runs the session handshake and then drives the network
// commands on top of the encrypted channel:
//
//	dev, err := provision.New(provision.Config{
//		Name:        "PROV_1a2b3c",
//		Transport:   softap,
//		Credentials: provision.StaticCredentials{PoP: "abcd1234"},
//	})
//	if err := dev.Connect(ctx); err != nil {
//		return err
//	}
//	defer dev.Disconnect()
//
//	networks, err := dev.ScanWifi(ctx)
//	status, err := dev.ProvisionWifi(ctx, "home", "secret")
//
// Config and scan exchanges that fail because the SoftAP association dropped
// are retried exactly once after the Reconnect hook rejoins the access point and a new
// session is established. Every other failure is returned as is.
package provision
