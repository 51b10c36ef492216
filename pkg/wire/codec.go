package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrDecode is returned when a payload is not a valid encoding of the
// expected message.
var ErrDecode = errors.New("wire: decode error")

// field is a single decoded protobuf field.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// walk calls fn for every varint and length-delimited field in b.
// Fields of other wire types are skipped.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrDecode, protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrDecode, num, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) wrongType() error {
	return fmt.Errorf("%w: field %d has unexpected wire type %d", ErrDecode, f.num, f.typ)
}

func (f field) bytesVal() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, f.wrongType()
	}
	return append([]byte(nil), f.bytes...), nil
}

func (f field) stringVal() (string, error) {
	if f.typ != protowire.BytesType {
		return "", f.wrongType()
	}
	return string(f.bytes), nil
}

func (f field) uint32Val() (uint32, error) {
	if f.typ != protowire.VarintType {
		return 0, f.wrongType()
	}
	return uint32(f.varint), nil
}

func (f field) int32Val() (int32, error) {
	if f.typ != protowire.VarintType {
		return 0, f.wrongType()
	}
	return int32(f.varint), nil
}

func (f field) boolVal() (bool, error) {
	if f.typ != protowire.VarintType {
		return false, f.wrongType()
	}
	return f.varint != 0, nil
}

// message decodes a sub-message with decode.
func (f field) message(decode func([]byte) error) error {
	if f.typ != protowire.BytesType {
		return f.wrongType()
	}
	return decode(f.bytes)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// appendInt32 encodes a proto int32; negative values take ten bytes.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// appendMessage always encodes the sub-message, even when it is empty.
func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// missing reports a oneof payload that the message type requires but that
// was not present.
func missing(what string) error {
	return fmt.Errorf("%w: missing %s", ErrDecode, what)
}
