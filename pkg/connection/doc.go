// Package connection paces attempts to bring a link to the device up.
//
// Joining a device access point is asynchronous: the OS accepts the
// request and the association becomes usable some time later. Callers poll
// with exponential backoff:
//
//	base delay: 250ms, doubling up to 4s
//	actual delay = base + random(0, base * 0.25)
//
// Until runs a check with that pacing until it succeeds, fails or the
// context ends.
package connection
