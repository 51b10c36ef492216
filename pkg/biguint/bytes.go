package biguint

import "encoding/binary"

// FromBytes interprets b as a big-endian unsigned integer.
func FromBytes(b []byte) BigUInt {
	z := make([]uint64, (len(b)+7)/8)
	for i := range z {
		end := len(b) - i*8
		start := max(end-8, 0)
		var w uint64
		for _, c := range b[start:end] {
			w = w<<8 | uint64(c)
		}
		z[i] = w
	}
	return BigUInt{words: normalize(z)}
}

// Bytes returns the minimal big-endian encoding of x. 0 encodes as an empty
// slice.
func (x BigUInt) Bytes() []byte {
	buf := make([]byte, len(x.words)*8)
	for i, w := range x.words {
		binary.BigEndian.PutUint64(buf[len(buf)-(i+1)*8:], w)
	}
	i := 0
	for i < len(buf) && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

// PaddedBytes returns the big-endian encoding of x left-padded with zeros to
// n bytes. It panics if x needs more than n bytes.
func (x BigUInt) PaddedBytes(n int) []byte {
	b := x.Bytes()
	if len(b) > n {
		panic("biguint: value does not fit in padded width")
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
