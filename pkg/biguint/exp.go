package biguint

import "math/bits"

// Power returns x**e using binary exponentiation. 0**0 is 1.
func (x BigUInt) Power(e uint64) BigUInt {
	result := []uint64{1}
	base := x.words
	for e > 0 {
		if e&1 == 1 {
			result = mulWords(result, base)
		}
		e >>= 1
		if e > 0 {
			base = mulWords(base, base)
		}
	}
	return BigUInt{words: normalize(result)}
}

// PowerMod returns x**e mod m. It panics if m is 0 and returns 0 if m is 1.
func (x BigUInt) PowerMod(e, m BigUInt) BigUInt {
	if m.IsZero() {
		panic("biguint: zero modulus")
	}
	if len(m.words) == 1 && m.words[0] == 1 {
		return BigUInt{}
	}

	red := newReducer(m.words)
	result := []uint64{1}
	base := red.reduce(x.words)
	for i, bitLen := 0, e.BitLen(); i < bitLen; i++ {
		if e.Bit(i) == 1 {
			result = red.reduce(mulWords(result, base))
		}
		if i+1 < bitLen {
			base = red.reduce(mulWords(base, base))
		}
	}
	return BigUInt{words: red.reduce(result)}
}

// reducer computes remainders modulo a fixed modulus. The modulus is shifted
// left once so its top bit is set; operands are shifted by the same amount,
// reduced, and shifted back.
type reducer struct {
	shift uint
	norm  []uint64
	mod   []uint64
}

func newReducer(m []uint64) *reducer {
	s := uint(bits.LeadingZeros64(m[len(m)-1]))
	return &reducer{
		shift: s,
		norm:  shlInto(make([]uint64, len(m)), m, s),
		mod:   m,
	}
}

func (r *reducer) reduce(x []uint64) []uint64 {
	if cmpWords(x, r.mod) < 0 {
		return x
	}
	if r.shift == 0 {
		_, rem := divmodWords(x, r.norm)
		return rem
	}
	shifted := normalize(shlInto(make([]uint64, len(x)+1), x, r.shift))
	_, rem := divmodWords(shifted, r.norm)
	if len(rem) == 0 {
		return nil
	}
	out := make([]uint64, len(rem))
	shrInto(out, rem, r.shift)
	return normalize(out)
}
