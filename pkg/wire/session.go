package wire

import "google.golang.org/protobuf/encoding/protowire"

// SessionData is the envelope of every handshake message.
// Exactly one of Sec0, Sec1 or Sec2 is set, matching SecVer.
type SessionData struct {
	SecVer SecScheme
	Sec0   *Sec0Payload
	Sec1   *Sec1Payload
	Sec2   *Sec2Payload
}

// SessionData field numbers.
const (
	fieldSessionSecVer protowire.Number = 2
	fieldSessionSec0   protowire.Number = 10
	fieldSessionSec1   protowire.Number = 11
	fieldSessionSec2   protowire.Number = 12
)

// EncodeSessionData encodes a SessionData message.
func EncodeSessionData(m *SessionData) []byte {
	var b []byte
	b = appendInt32(b, fieldSessionSecVer, int32(m.SecVer))
	switch {
	case m.Sec0 != nil:
		b = appendMessage(b, fieldSessionSec0, m.Sec0.encode())
	case m.Sec1 != nil:
		b = appendMessage(b, fieldSessionSec1, m.Sec1.encode())
	case m.Sec2 != nil:
		b = appendMessage(b, fieldSessionSec2, m.Sec2.encode())
	}
	return b
}

// DecodeSessionData decodes a SessionData message.
func DecodeSessionData(data []byte) (*SessionData, error) {
	m := &SessionData{}
	err := walk(data, func(f field) error {
		switch f.num {
		case fieldSessionSecVer:
			v, err := f.int32Val()
			m.SecVer = SecScheme(v)
			return err
		case fieldSessionSec0:
			m.Sec0 = &Sec0Payload{}
			return f.message(m.Sec0.decode)
		case fieldSessionSec1:
			m.Sec1 = &Sec1Payload{}
			return f.message(m.Sec1.decode)
		case fieldSessionSec2:
			m.Sec2 = &Sec2Payload{}
			return f.message(m.Sec2.decode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Sec0MsgType identifies a scheme 0 message.
type Sec0MsgType int32

const (
	Sec0SessionCommand  Sec0MsgType = 0
	Sec0SessionResponse Sec0MsgType = 1
)

// Sec0Payload carries the scheme 0 exchange.
type Sec0Payload struct {
	Msg Sec0MsgType
	Cmd *S0SessionCmd
	// Resp is set on the device answer.
	Resp *S0SessionResp
}

// S0SessionCmd has no fields.
type S0SessionCmd struct{}

// S0SessionResp reports whether the unsecured session was accepted.
type S0SessionResp struct {
	Status Status
}

func (m *Sec0Payload) encode() []byte {
	var b []byte
	b = appendInt32(b, 1, int32(m.Msg))
	if m.Cmd != nil {
		b = appendMessage(b, 20, nil)
	}
	if m.Resp != nil {
		b = appendMessage(b, 21, appendInt32(nil, 1, int32(m.Resp.Status)))
	}
	return b
}

func (m *Sec0Payload) decode(data []byte) error {
	return walk(data, func(f field) error {
		switch f.num {
		case 1:
			v, err := f.int32Val()
			m.Msg = Sec0MsgType(v)
			return err
		case 20:
			m.Cmd = &S0SessionCmd{}
			return f.message(func([]byte) error { return nil })
		case 21:
			m.Resp = &S0SessionResp{}
			return f.message(func(b []byte) error {
				return walk(b, func(f field) error {
					if f.num == 1 {
						v, err := f.int32Val()
						m.Resp.Status = Status(v)
						return err
					}
					return nil
				})
			})
		}
		return nil
	})
}

// Sec1MsgType identifies a scheme 1 message.
type Sec1MsgType int32

const (
	Sec1SessionCommand0  Sec1MsgType = 0
	Sec1SessionResponse0 Sec1MsgType = 1
	Sec1SessionCommand1  Sec1MsgType = 2
	Sec1SessionResponse1 Sec1MsgType = 3
)

// Sec1Payload carries one message of the scheme 1 handshake.
// The field matching Msg is set.
type Sec1Payload struct {
	Msg   Sec1MsgType
	Cmd0  *Sec1Cmd0
	Resp0 *Sec1Resp0
	Cmd1  *Sec1Cmd1
	Resp1 *Sec1Resp1
}

// Sec1Cmd0 opens the scheme 1 handshake with the client public key.
type Sec1Cmd0 struct {
	ClientPubKey []byte
}

// Sec1Resp0 carries the device public key and random.
type Sec1Resp0 struct {
	Status       Status
	DevicePubKey []byte
	DeviceRandom []byte
}

// Sec1Cmd1 carries the client verifier.
type Sec1Cmd1 struct {
	ClientVerifyData []byte
}

// Sec1Resp1 carries the device verifier.
type Sec1Resp1 struct {
	Status           Status
	DeviceVerifyData []byte
}

func (m *Sec1Payload) encode() []byte {
	var b []byte
	b = appendInt32(b, 1, int32(m.Msg))
	switch {
	case m.Cmd0 != nil:
		b = appendMessage(b, 20, appendBytes(nil, 1, m.Cmd0.ClientPubKey))
	case m.Resp0 != nil:
		var sub []byte
		sub = appendInt32(sub, 1, int32(m.Resp0.Status))
		sub = appendBytes(sub, 2, m.Resp0.DevicePubKey)
		sub = appendBytes(sub, 3, m.Resp0.DeviceRandom)
		b = appendMessage(b, 21, sub)
	case m.Cmd1 != nil:
		b = appendMessage(b, 22, appendBytes(nil, 2, m.Cmd1.ClientVerifyData))
	case m.Resp1 != nil:
		var sub []byte
		sub = appendInt32(sub, 1, int32(m.Resp1.Status))
		sub = appendBytes(sub, 3, m.Resp1.DeviceVerifyData)
		b = appendMessage(b, 23, sub)
	}
	return b
}

func (m *Sec1Payload) decode(data []byte) error {
	return walk(data, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32Val()
			m.Msg = Sec1MsgType(v)
		case 20:
			c := &Sec1Cmd0{}
			m.Cmd0 = c
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					if f.num == 1 {
						c.ClientPubKey, err = f.bytesVal()
					}
					return err
				})
			})
		case 21:
			r := &Sec1Resp0{}
			m.Resp0 = r
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					switch f.num {
					case 1:
						var v int32
						v, err = f.int32Val()
						r.Status = Status(v)
					case 2:
						r.DevicePubKey, err = f.bytesVal()
					case 3:
						r.DeviceRandom, err = f.bytesVal()
					}
					return err
				})
			})
		case 22:
			c := &Sec1Cmd1{}
			m.Cmd1 = c
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					if f.num == 2 {
						c.ClientVerifyData, err = f.bytesVal()
					}
					return err
				})
			})
		case 23:
			r := &Sec1Resp1{}
			m.Resp1 = r
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					switch f.num {
					case 1:
						var v int32
						v, err = f.int32Val()
						r.Status = Status(v)
					case 3:
						r.DeviceVerifyData, err = f.bytesVal()
					}
					return err
				})
			})
		}
		return err
	})
}

// Sec2MsgType identifies a scheme 2 message.
type Sec2MsgType int32

const (
	Sec2SessionCommand0  Sec2MsgType = 0
	Sec2SessionResponse0 Sec2MsgType = 1
	Sec2SessionCommand1  Sec2MsgType = 2
	Sec2SessionResponse1 Sec2MsgType = 3
)

// Sec2Payload carries one message of the SRP6a handshake.
// The field matching Msg is set.
type Sec2Payload struct {
	Msg   Sec2MsgType
	Cmd0  *Sec2Cmd0
	Resp0 *Sec2Resp0
	Cmd1  *Sec2Cmd1
	Resp1 *Sec2Resp1
}

// Sec2Cmd0 carries the username and client public value A.
type Sec2Cmd0 struct {
	ClientUsername []byte
	ClientPubKey   []byte
}

// Sec2Resp0 carries the device public value B and the salt.
type Sec2Resp0 struct {
	Status       Status
	DevicePubKey []byte
	DeviceSalt   []byte
}

// Sec2Cmd1 carries the client proof M.
type Sec2Cmd1 struct {
	ClientProof []byte
}

// Sec2Resp1 carries the device proof and the nonce used as the channel IV.
type Sec2Resp1 struct {
	Status      Status
	DeviceProof []byte
	DeviceNonce []byte
}

func (m *Sec2Payload) encode() []byte {
	var b []byte
	b = appendInt32(b, 1, int32(m.Msg))
	switch {
	case m.Cmd0 != nil:
		var sub []byte
		sub = appendBytes(sub, 1, m.Cmd0.ClientUsername)
		sub = appendBytes(sub, 2, m.Cmd0.ClientPubKey)
		b = appendMessage(b, 20, sub)
	case m.Resp0 != nil:
		var sub []byte
		sub = appendInt32(sub, 1, int32(m.Resp0.Status))
		sub = appendBytes(sub, 2, m.Resp0.DevicePubKey)
		sub = appendBytes(sub, 3, m.Resp0.DeviceSalt)
		b = appendMessage(b, 21, sub)
	case m.Cmd1 != nil:
		b = appendMessage(b, 22, appendBytes(nil, 1, m.Cmd1.ClientProof))
	case m.Resp1 != nil:
		var sub []byte
		sub = appendInt32(sub, 1, int32(m.Resp1.Status))
		sub = appendBytes(sub, 2, m.Resp1.DeviceProof)
		sub = appendBytes(sub, 3, m.Resp1.DeviceNonce)
		b = appendMessage(b, 23, sub)
	}
	return b
}

func (m *Sec2Payload) decode(data []byte) error {
	return walk(data, func(f field) error {
		var err error
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32Val()
			m.Msg = Sec2MsgType(v)
		case 20:
			c := &Sec2Cmd0{}
			m.Cmd0 = c
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					switch f.num {
					case 1:
						c.ClientUsername, err = f.bytesVal()
					case 2:
						c.ClientPubKey, err = f.bytesVal()
					}
					return err
				})
			})
		case 21:
			r := &Sec2Resp0{}
			m.Resp0 = r
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					switch f.num {
					case 1:
						var v int32
						v, err = f.int32Val()
						r.Status = Status(v)
					case 2:
						r.DevicePubKey, err = f.bytesVal()
					case 3:
						r.DeviceSalt, err = f.bytesVal()
					}
					return err
				})
			})
		case 22:
			c := &Sec2Cmd1{}
			m.Cmd1 = c
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					if f.num == 1 {
						c.ClientProof, err = f.bytesVal()
					}
					return err
				})
			})
		case 23:
			r := &Sec2Resp1{}
			m.Resp1 = r
			err = f.message(func(b []byte) error {
				return walk(b, func(f field) (err error) {
					switch f.num {
					case 1:
						var v int32
						v, err = f.int32Val()
						r.Status = Status(v)
					case 2:
						r.DeviceProof, err = f.bytesVal()
					case 3:
						r.DeviceNonce, err = f.bytesVal()
					}
					return err
				})
			})
		}
		return err
	})
}
