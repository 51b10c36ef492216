// Package wire defines the wire format of the ESP provisioning protocol.
//
// Session handshakes, network configuration and network scan commands are
// protocol buffer messages. They are encoded here field by field with
// protowire so the package has no generated code; field numbers follow the
// device firmware's .proto definitions.
//
// # Messages
//
//   - SessionData: security scheme handshakes on the "prov-session" path
//   - NetworkConfigPayload: Wi-Fi and Thread config/apply/status on "prov-config"
//   - NetworkScanPayload: Wi-Fi and Thread scan start/status/result on "prov-scan"
//
// The version endpoint ("proto-ver") answers with JSON instead; see VersionInfo.
//
// # Proto3 Semantics
//
// Scalar fields holding their zero value are omitted on encode and default to
// zero on decode. Unknown fields are skipped. Sub-messages selected by a oneof
// are always encoded, even when empty, so the receiver can tell which one was
// sent.
package wire
