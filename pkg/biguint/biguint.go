package biguint

import "math/bits"

// wordBits is the width of a single word.
const wordBits = 64

// BigUInt is an arbitrary-precision unsigned integer.
// The zero value represents 0 and is ready to use.
type BigUInt struct {
	// words holds the value least significant word first, without
	// most-significant zero words. It is never modified after construction.
	words []uint64
}

// Zero is the BigUInt 0.
var Zero = BigUInt{}

// One is the BigUInt 1.
var One = New(1)

// New returns a BigUInt holding v.
func New(v uint64) BigUInt {
	if v == 0 {
		return BigUInt{}
	}
	return BigUInt{words: []uint64{v}}
}

// FromWords returns a BigUInt from words ordered least significant first.
// The slice is copied.
func FromWords(words []uint64) BigUInt {
	return BigUInt{words: normalize(append([]uint64(nil), words...))}
}

// Words returns a copy of the words of x, least significant first.
func (x BigUInt) Words() []uint64 {
	return append([]uint64(nil), x.words...)
}

// IsZero reports whether x is 0.
func (x BigUInt) IsZero() bool {
	return len(x.words) == 0
}

// Uint64 returns the low 64 bits of x.
func (x BigUInt) Uint64() uint64 {
	if len(x.words) == 0 {
		return 0
	}
	return x.words[0]
}

// BitLen returns the number of significant bits in x. BitLen of 0 is 0.
func (x BigUInt) BitLen() int {
	if len(x.words) == 0 {
		return 0
	}
	top := x.words[len(x.words)-1]
	return (len(x.words)-1)*wordBits + bits.Len64(top)
}

// Bit returns the value of bit i of x.
func (x BigUInt) Bit(i int) uint {
	if i < 0 {
		panic("biguint: negative bit index")
	}
	w := i / wordBits
	if w >= len(x.words) {
		return 0
	}
	return uint(x.words[w]>>(uint(i)%wordBits)) & 1
}

// Cmp compares x and y and returns -1, 0 or +1.
func (x BigUInt) Cmp(y BigUInt) int {
	return cmpWords(x.words, y.words)
}

// Equal reports whether x == y.
func (x BigUInt) Equal(y BigUInt) bool {
	return cmpWords(x.words, y.words) == 0
}

// normalize trims most-significant zero words.
func normalize(z []uint64) []uint64 {
	n := len(z)
	for n > 0 && z[n-1] == 0 {
		n--
	}
	if n == 0 {
		return nil
	}
	return z[:n]
}

func cmpWords(x, y []uint64) int {
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	for i := len(x) - 1; i >= 0; i-- {
		switch {
		case x[i] < y[i]:
			return -1
		case x[i] > y[i]:
			return 1
		}
	}
	return 0
}
