package biguint

import "math/bits"

// Add returns x + y.
func (x BigUInt) Add(y BigUInt) BigUInt {
	a, b := x.words, y.words
	if len(a) < len(b) {
		a, b = b, a
	}
	z := make([]uint64, len(a)+1)
	var carry uint64
	for i := range a {
		var bi uint64
		if i < len(b) {
			bi = b[i]
		}
		z[i], carry = bits.Add64(a[i], bi, carry)
	}
	z[len(a)] = carry
	return BigUInt{words: normalize(z)}
}

// Sub returns x - y. When y > x the subtraction underflows: the result is the
// two's complement of y - x over the width of the longer operand and
// underflow is true.
func (x BigUInt) Sub(y BigUInt) (diff BigUInt, underflow bool) {
	n := max(len(x.words), len(y.words))
	z := make([]uint64, n)
	var borrow uint64
	for i := range n {
		var xi, yi uint64
		if i < len(x.words) {
			xi = x.words[i]
		}
		if i < len(y.words) {
			yi = y.words[i]
		}
		z[i], borrow = bits.Sub64(xi, yi, borrow)
	}
	return BigUInt{words: normalize(z)}, borrow != 0
}

// Mul returns x * y.
func (x BigUInt) Mul(y BigUInt) BigUInt {
	return BigUInt{words: mulWords(x.words, y.words)}
}

// DivMod returns the quotient and remainder of x / y. It panics if y is 0.
func (x BigUInt) DivMod(y BigUInt) (q, r BigUInt) {
	if y.IsZero() {
		panic("biguint: division by zero")
	}
	qw, rw := divmodWords(x.words, y.words)
	return BigUInt{words: qw}, BigUInt{words: rw}
}

// Div returns x / y rounded down. It panics if y is 0.
func (x BigUInt) Div(y BigUInt) BigUInt {
	q, _ := x.DivMod(y)
	return q
}

// Mod returns x mod y. It panics if y is 0.
func (x BigUInt) Mod(y BigUInt) BigUInt {
	_, r := x.DivMod(y)
	return r
}

func mulWords(x, y []uint64) []uint64 {
	if len(x) == 0 || len(y) == 0 {
		return nil
	}
	z := make([]uint64, len(x)+len(y))
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		var carry uint64
		for j, yj := range y {
			hi, lo := bits.Mul64(xi, yj)
			var c uint64
			lo, c = bits.Add64(lo, z[i+j], 0)
			hi += c
			lo, c = bits.Add64(lo, carry, 0)
			hi += c
			z[i+j] = lo
			carry = hi
		}
		z[i+len(y)] = carry
	}
	return normalize(z)
}

// mulAddWord returns x*m + a.
func mulAddWord(x []uint64, m, a uint64) []uint64 {
	z := make([]uint64, len(x)+1)
	carry := a
	for i, xi := range x {
		hi, lo := bits.Mul64(xi, m)
		var c uint64
		lo, c = bits.Add64(lo, carry, 0)
		z[i] = lo
		carry = hi + c
	}
	z[len(x)] = carry
	return normalize(z)
}

// divWord divides x by a single word d and returns quotient and remainder.
func divWord(x []uint64, d uint64) ([]uint64, uint64) {
	q := make([]uint64, len(x))
	var r uint64
	for i := len(x) - 1; i >= 0; i-- {
		q[i], r = bits.Div64(r, x[i], d)
	}
	return normalize(q), r
}

// divmodWords implements Knuth's algorithm D (TAOCP vol. 2, 4.3.1).
// Both inputs are canonical and v is non-empty.
func divmodWords(u, v []uint64) (q, r []uint64) {
	if cmpWords(u, v) < 0 {
		return nil, append([]uint64(nil), u...)
	}
	if len(v) == 1 {
		qw, rw := divWord(u, v[0])
		return qw, normalize([]uint64{rw})
	}

	n := len(v)
	m := len(u) - n
	s := uint(bits.LeadingZeros64(v[n-1]))
	vn := shlInto(make([]uint64, n), v, s)
	un := shlInto(make([]uint64, len(u)+1), u, s)

	q = make([]uint64, m+1)
	vTop, vNext := vn[n-1], vn[n-2]
	for j := m; j >= 0; j-- {
		qhat := ^uint64(0)
		if ujn := un[j+n]; ujn != vTop {
			var rhat uint64
			qhat, rhat = bits.Div64(ujn, un[j+n-1], vTop)
			for {
				hi, lo := bits.Mul64(qhat, vNext)
				if hi < rhat || (hi == rhat && lo <= un[j+n-2]) {
					break
				}
				qhat--
				prev := rhat
				rhat += vTop
				if rhat < prev {
					break
				}
			}
		}

		// un[j:j+n+1] -= qhat * vn
		var borrow, carry uint64
		for i := range n {
			hi, lo := bits.Mul64(qhat, vn[i])
			var c uint64
			lo, c = bits.Add64(lo, carry, 0)
			carry = hi + c
			un[j+i], borrow = bits.Sub64(un[j+i], lo, borrow)
		}
		un[j+n], borrow = bits.Sub64(un[j+n], carry, borrow)

		if borrow != 0 {
			qhat--
			var c uint64
			for i := range n {
				un[j+i], c = bits.Add64(un[j+i], vn[i], c)
			}
			un[j+n] += c
		}
		q[j] = qhat
	}

	r = make([]uint64, n)
	shrInto(r, un[:n+1], s)
	return normalize(q), normalize(r)
}

// shlInto writes x << s (s < 64) into z and returns z. z must have room for
// len(x) words, plus one when the shifted value spills over.
func shlInto(z, x []uint64, s uint) []uint64 {
	if s == 0 {
		copy(z, x)
		return z
	}
	var spill uint64
	for i, xi := range x {
		z[i] = xi<<s | spill
		spill = xi >> (wordBits - s)
	}
	if len(z) > len(x) {
		z[len(x)] = spill
	}
	return z
}

// shrInto writes the low len(z) words of x >> s (s < 64) into z.
func shrInto(z, x []uint64, s uint) {
	for i := range z {
		z[i] = x[i] >> s
		if s > 0 && i+1 < len(x) {
			z[i] |= x[i+1] << (wordBits - s)
		}
	}
}
