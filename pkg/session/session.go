package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/espprov/espprov-go/pkg/log"
	"github.com/espprov/espprov-go/pkg/security"
	"github.com/espprov/espprov-go/pkg/transport"
)

// maxHandshakeSteps bounds the handshake loop. Every scheme finishes in at
// most four exchanges.
const maxHandshakeSteps = 8

// Session errors.
var (
	// ErrNotEstablished is returned by Exchange before Initialize succeeds.
	ErrNotEstablished = errors.New("session: not established")

	// ErrHandshakeTooLong means the scheme kept producing requests.
	ErrHandshakeTooLong = errors.New("session: handshake did not terminate")
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the protocol event logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithConnectionID sets the connection ID stamped on events.
func WithConnectionID(id string) Option {
	return func(s *Session) {
		s.connID = id
	}
}

// WithSessionPath overrides the handshake path (default prov-session).
func WithSessionPath(path string) Option {
	return func(s *Session) {
		s.sessionPath = path
	}
}

// Session is one secured conversation with a device.
type Session struct {
	transport   transport.Transport
	security    security.Security
	logger      log.Logger
	connID      string
	sessionPath string

	mu          sync.Mutex
	established bool
}

// New creates a Session. Nothing is sent until Initialize.
func New(t transport.Transport, sec security.Security, opts ...Option) *Session {
	s := &Session{
		transport:   t,
		security:    sec,
		sessionPath: transport.PathSession,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.OrNoop(s.logger)
	return s
}

// Transport returns the underlying transport.
func (s *Session) Transport() transport.Transport {
	return s.transport
}

// IsEstablished reports whether the handshake completed. It turns true once
// and never reverts.
func (s *Session) IsEstablished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.established
}

// Initialize runs the handshake: it feeds each device response back into the
// security scheme until the scheme has no further request. Transport and
// security errors abort the handshake and are returned unchanged.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.established {
		return nil
	}

	var response []byte
	for step := 0; step < maxHandshakeSteps; step++ {
		before := s.securityState()

		request, err := s.security.NextHandshakeMessage(response)
		s.logTransition(before, err)
		if err != nil {
			s.logger.Log(log.NewErrorEvent(s.connID, log.LayerSession, err, "handshake"))
			return err
		}
		if request == nil {
			s.established = true
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		response, err = s.transport.SendReceive(ctx, s.sessionPath, request)
		if err != nil {
			s.logger.Log(log.NewErrorEvent(s.connID, log.LayerSession, err, "handshake"))
			return fmt.Errorf("session: handshake step %d: %w", step+1, err)
		}
	}
	return ErrHandshakeTooLong
}

// Exchange encrypts payload, sends it on path and decrypts the response.
func (s *Session) Exchange(ctx context.Context, path string, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.established {
		return nil, ErrNotEstablished
	}

	sealed, err := s.security.Encrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("session: encrypt: %w", err)
	}
	resp, err := s.transport.SendReceive(ctx, path, sealed)
	if err != nil {
		return nil, err
	}
	plain, err := s.security.Decrypt(resp)
	if err != nil {
		return nil, fmt.Errorf("session: decrypt: %w", err)
	}
	return plain, nil
}

type stateful interface {
	State() security.State
}

func (s *Session) securityState() string {
	if st, ok := s.security.(stateful); ok {
		return st.State().String()
	}
	return ""
}

func (s *Session) logTransition(before string, err error) {
	after := s.securityState()
	if after == "" || after == before {
		return
	}
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	s.logger.Log(log.NewStateEvent(s.connID, log.LayerSession, log.StateEntitySession, before, after, reason))
}
