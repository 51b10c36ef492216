package simulator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/espprov/espprov-go/pkg/transport"
)

// Local is an in-process transport bound to one session of a Device.
type Local struct {
	device *Device
	id     string
}

// Local opens a new session on d.
func (d *Device) Local() *Local {
	return &Local{device: d, id: uuid.NewString()}
}

// SendReceive hands the request to the device.
func (l *Local) SendReceive(ctx context.Context, path string, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Path: path, Op: "send", Err: err}
	}
	resp, err := l.device.Handle(l.id, path, data)
	if errors.Is(err, ErrUnknownEndpoint) {
		return nil, &transport.Error{Path: path, Op: "send", Err: transport.ErrUnknownPath}
	}
	if err != nil {
		return nil, &transport.Error{Path: path, Op: "send", Err: err}
	}
	return resp, nil
}

// Close ends the session.
func (l *Local) Close() error {
	l.device.CloseSession(l.id)
	return nil
}

var _ transport.Transport = (*Local)(nil)
