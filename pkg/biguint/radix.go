package biguint

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	// ErrInvalidRadix is returned for a radix outside 2..36.
	ErrInvalidRadix = errors.New("biguint: radix must be between 2 and 36")

	// ErrSyntax is returned when a string holds a character outside the
	// radix alphabet or is empty.
	ErrSyntax = errors.New("biguint: invalid digit")
)

// wordChunk describes the largest power of a radix that fits in one word.
type wordChunk struct {
	n     int    // digits per word
	power uint64 // radix**n
}

var chunks [37]wordChunk

func init() {
	for radix := 2; radix <= 36; radix++ {
		c := wordChunk{n: 0, power: 1}
		for {
			hi, lo := bits.Mul64(c.power, uint64(radix))
			if hi != 0 {
				break
			}
			c.power = lo
			c.n++
		}
		chunks[radix] = c
	}
}

// Parse returns the value of s interpreted in the given radix. Letters are
// accepted in either case. Signs, prefixes and separators are rejected.
func Parse(s string, radix int) (BigUInt, error) {
	if radix < 2 || radix > 36 {
		return BigUInt{}, ErrInvalidRadix
	}
	if s == "" {
		return BigUInt{}, fmt.Errorf("%w: empty string", ErrSyntax)
	}

	chunk := chunks[radix]
	// The first group takes the leftover digits so the rest are full chunks.
	first := len(s) % chunk.n
	if first == 0 {
		first = chunk.n
	}

	var z []uint64
	for start, end := 0, first; start < len(s); start, end = end, end+chunk.n {
		group := s[start:end]
		var v uint64
		for i := 0; i < len(group); i++ {
			d := digitValue(group[i])
			if d >= radix {
				return BigUInt{}, fmt.Errorf("%w: %q at offset %d", ErrSyntax, group[i], start+i)
			}
			v = v*uint64(radix) + uint64(d)
		}
		mul := chunk.power
		if len(group) < chunk.n {
			mul = pow(uint64(radix), len(group))
		}
		z = mulAddWord(z, mul, v)
	}
	return BigUInt{words: normalize(z)}, nil
}

// MustParse is like Parse but panics on error. It is meant for constants.
func MustParse(s string, radix int) BigUInt {
	x, err := Parse(s, radix)
	if err != nil {
		panic(err)
	}
	return x
}

// Text returns x in the given radix using lower-case letters.
// It panics if radix is outside 2..36.
func (x BigUInt) Text(radix int) string {
	if radix < 2 || radix > 36 {
		panic(ErrInvalidRadix)
	}
	if len(x.words) == 0 {
		return "0"
	}

	chunk := chunks[radix]
	var groups []uint64
	rest := x.words
	for len(rest) > 0 {
		var r uint64
		rest, r = divWord(rest, chunk.power)
		groups = append(groups, r)
	}

	var sb strings.Builder
	buf := make([]byte, chunk.n)
	for i := len(groups) - 1; i >= 0; i-- {
		v := groups[i]
		for j := chunk.n - 1; j >= 0; j-- {
			buf[j] = digits[v%uint64(radix)]
			v /= uint64(radix)
		}
		if i == len(groups)-1 {
			sb.Write(trimZeros(buf))
		} else {
			sb.Write(buf)
		}
	}
	return sb.String()
}

// String returns x in base 10.
func (x BigUInt) String() string {
	return x.Text(10)
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 36
	}
}

func pow(b uint64, n int) uint64 {
	p := uint64(1)
	for range n {
		p *= b
	}
	return p
}

func trimZeros(b []byte) []byte {
	i := 0
	for i < len(b)-1 && b[i] == '0' {
		i++
	}
	return b[i:]
}
