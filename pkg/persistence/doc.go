// Package persistence keeps records of provisioned devices.
//
// A Record is written after a device reports a successful connection to the
// target network, so that later runs can list what was provisioned and
// where it ended up. Three Store implementations are provided: MemoryStore
// for tests and one-shot use, BoltStore backed by a bbolt database, and
// FileStore which keeps a single JSON document on an afero filesystem.
package persistence
