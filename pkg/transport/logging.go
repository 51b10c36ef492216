package transport

import (
	"context"
	"time"

	"github.com/espprov/espprov-go/pkg/log"
)

// Logged wraps a Transport and records every exchange as protocol events.
type Logged struct {
	next   Transport
	logger log.Logger
	connID string
	kind   string
}

// NewLogged wraps next. kind names the link in events ("softap", "ble").
func NewLogged(next Transport, logger log.Logger, connID, kind string) *Logged {
	return &Logged{next: next, logger: log.OrNoop(logger), connID: connID, kind: kind}
}

// SendReceive logs the request, forwards it and logs the response or error.
func (l *Logged) SendReceive(ctx context.Context, path string, data []byte) ([]byte, error) {
	l.emit(log.NewFrameEvent(l.connID, path, log.DirectionOut, data))

	resp, err := l.next.SendReceive(ctx, path, data)
	if err != nil {
		l.emit(log.NewErrorEvent(l.connID, log.LayerTransport, err, path))
		return nil, err
	}

	l.emit(log.NewFrameEvent(l.connID, path, log.DirectionIn, resp))
	return resp, nil
}

func (l *Logged) emit(e log.Event) {
	e.Transport = l.kind
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l.logger.Log(e)
}

// Unwrap returns the wrapped transport.
func (l *Logged) Unwrap() Transport {
	return l.next
}

// Close closes the wrapped transport when it supports closing.
func (l *Logged) Close() error {
	if c, ok := l.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

var _ Transport = (*Logged)(nil)
