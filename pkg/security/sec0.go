package security

// Sec0 is the unsecured scheme. It has no handshake and passes payloads
// through unchanged once established.
type Sec0 struct {
	handshake
}

// NewSec0 creates the unsecured scheme.
func NewSec0() *Sec0 {
	return &Sec0{}
}

// NextHandshakeMessage completes immediately with no request.
func (s *Sec0) NextHandshakeMessage(response []byte) ([]byte, error) {
	if s.state == StateFailed {
		return nil, s.failed()
	}
	s.state = StateEstablished
	return nil, nil
}

// Encrypt returns plaintext unchanged.
func (s *Sec0) Encrypt(plaintext []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, ErrNotEstablished
	}
	return plaintext, nil
}

// Decrypt returns ciphertext unchanged.
func (s *Sec0) Decrypt(ciphertext []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, ErrNotEstablished
	}
	return ciphertext, nil
}

var _ Security = (*Sec0)(nil)
