// Package transport moves opaque request bytes to named endpoints on a
// provisioning device and returns the response bytes.
//
// A device exposes a small set of logical paths:
//
//	proto-ver         version and capability JSON
//	prov-session      security handshake
//	prov-config       network configuration commands
//	prov-scan         network scan commands
//	cloud_user_assoc  user association (custom data)
//
// Two implementations are provided:
//   - SoftAP: HTTP POST to http://<device>/<path> on the device access point.
//   - BLE: GATT write then read on the characteristic whose user description
//     descriptor names the path.
//
// Transports are stateless with respect to security. They never retry a
// failed exchange; callers classify errors with errors.Is against
// ErrTransport, ErrNetworkUnreachable, ErrTimeout, ErrDisconnected and
// ErrUnknownPath and decide themselves.
//
// # BLE Framing
//
// When framing is enabled a payload is sent as a 4-byte big-endian length
// prefix followed by the payload, split into writes of at most MTU-3 bytes.
// Responses are read chunk by chunk until the announced length has arrived.
// Without framing each request is a single write and each response a single
// (long) read. A request longer than MTU-3 bytes fails with
// ErrMessageTooLarge before anything is written.
//
// # Logging
//
// Wrap any Transport with NewLogged to capture every exchange as
// TRANSPORT-layer protocol events.
package transport
