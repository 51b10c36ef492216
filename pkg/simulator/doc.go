// Package simulator implements a software provisioning device.
//
// A Device answers the same endpoints as ESP firmware running the
// provisioning manager: version info, the protocomm session handshake for
// security schemes 0, 1 and 2, network configuration, network scanning and
// application-defined custom endpoints. Network joins are simulated: an
// applied configuration reports "connecting" for a configurable number of
// status queries and then succeeds or fails depending on the configured
// access points.
//
// Server exposes a Device over HTTP the way the SoftAP transport expects,
// tracking protocomm sessions by cookie. Local gives an in-process transport
// bound to one session.
package simulator
