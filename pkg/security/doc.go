// Package security implements the session security schemes of the ESP
// provisioning protocol.
//
// A Security value drives one handshake and then protects application
// payloads:
//
//	sec := security.NewSec1(pop)
//	req, err := sec.NextHandshakeMessage(nil)
//	for req != nil && err == nil {
//	    resp := send(req)
//	    req, err = sec.NextHandshakeMessage(resp)
//	}
//	ciphertext, err := sec.Encrypt(payload)
//
// # Schemes
//
//   - Scheme 0: no handshake, payloads pass through unchanged.
//   - Scheme 1: X25519 key agreement. The shared secret is XORed with
//     SHA-256(proof of possession) to form an AES-256 key; each side proves
//     the key by encrypting the peer's public key.
//   - Scheme 2: SRP6a over the RFC 5054 3072-bit group with SHA-512. The
//     first 32 bytes of the session key K key the channel.
//
// # Channel
//
// After the handshake both schemes 1 and 2 use AES-256-CTR. The send and
// receive directions keep independent message counters; message n in a
// direction is encrypted with the base IV whose high 64 bits are advanced by
// 2n plus a direction bit. A dropped message desynchronizes the counters and
// later payloads decrypt to garbage, which surfaces as a decode failure in
// the caller.
//
// A Security value is single-use and not safe for concurrent use. Create a
// new one for every handshake attempt.
//
// # Device Side
//
// Responder implementations play the device role for each scheme. They back
// the device simulator and the handshake tests.
package security
