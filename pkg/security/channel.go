package security

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// Key and IV sizes of the session channel.
const (
	KeySize = 32
	IVSize  = aes.BlockSize
)

// Direction bits mixed into the per-message IV.
const (
	dirClientToDevice = 0
	dirDeviceToClient = 1
)

// channel is an AES-256-CTR stream split into per-message IVs.
type channel struct {
	block   cipher.Block
	iv      [IVSize]byte
	sendDir uint64
	recvDir uint64
	sent    uint64
	recv    uint64
}

// newChannel builds a channel. client selects which direction is outgoing.
func newChannel(key, iv []byte, client bool) (*channel, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("security: key length %d, want %d", len(key), KeySize)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("security: iv length %d, want %d", len(iv), IVSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	c := &channel{block: block, sendDir: dirClientToDevice, recvDir: dirDeviceToClient}
	if !client {
		c.sendDir, c.recvDir = c.recvDir, c.sendDir
	}
	copy(c.iv[:], iv)
	return c, nil
}

// messageIV derives the IV of message n in direction dir. The low 64 bits
// stay free for the block counter within a message.
func (c *channel) messageIV(n, dir uint64) []byte {
	iv := c.iv
	hi := binary.BigEndian.Uint64(iv[:8])
	binary.BigEndian.PutUint64(iv[:8], hi+2*n+dir)
	return iv[:]
}

func (c *channel) xor(data []byte, n, dir uint64) []byte {
	out := make([]byte, len(data))
	cipher.NewCTR(c.block, c.messageIV(n, dir)).XORKeyStream(out, data)
	return out
}

// Encrypt protects the next outgoing message.
func (c *channel) Encrypt(plaintext []byte) []byte {
	out := c.xor(plaintext, c.sent, c.sendDir)
	c.sent++
	return out
}

// Decrypt recovers the next incoming message.
func (c *channel) Decrypt(ciphertext []byte) []byte {
	out := c.xor(ciphertext, c.recv, c.recvDir)
	c.recv++
	return out
}
