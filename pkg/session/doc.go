// Package session drives a security handshake over a transport and then
// carries encrypted request/response exchanges.
//
// A Session pairs exactly one Transport with one Security scheme. Initialize
// runs the handshake to completion:
//
//	sess := session.New(tr, security.NewSec1(pop))
//	if err := sess.Initialize(ctx); err != nil { ... }
//	resp, err := sess.Exchange(ctx, transport.PathConfig, payload)
//
// Exchanges are strictly sequential. Concurrent callers are serialized
// because the channel counters of the security scheme do not tolerate
// interleaving. Retrying after a failure is the caller's business: a failed
// handshake leaves the Session unusable and a new one must be built.
package session
