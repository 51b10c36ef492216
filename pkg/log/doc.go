// Package log provides structured protocol logging for provisioning sessions.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at three layers (transport, session, command).
// It is separate from operational logging (slog): protocol capture provides
// a complete machine-readable trace of what was exchanged with a device.
//
// # Basic Usage
//
//	// Console output via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// Binary file
//	fileLogger, _ := log.NewFileLogger("/var/log/espprov/session.plog")
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fileLogger)
//
// # Event Types
//
//   - Transport: raw request and response bytes per path (FrameEvent)
//   - Session: handshake and connection state changes (StateChangeEvent)
//   - Command: decoded command type and device status (CommandEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys. The
// espprov log command reads and filters them.
package log
