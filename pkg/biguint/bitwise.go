package biguint

// And returns x & y.
func (x BigUInt) And(y BigUInt) BigUInt {
	n := min(len(x.words), len(y.words))
	z := make([]uint64, n)
	for i := range n {
		z[i] = x.words[i] & y.words[i]
	}
	return BigUInt{words: normalize(z)}
}

// Or returns x | y.
func (x BigUInt) Or(y BigUInt) BigUInt {
	a, b := x.words, y.words
	if len(a) < len(b) {
		a, b = b, a
	}
	z := append([]uint64(nil), a...)
	for i, bi := range b {
		z[i] |= bi
	}
	return BigUInt{words: normalize(z)}
}

// Xor returns x ^ y.
func (x BigUInt) Xor(y BigUInt) BigUInt {
	a, b := x.words, y.words
	if len(a) < len(b) {
		a, b = b, a
	}
	z := append([]uint64(nil), a...)
	for i, bi := range b {
		z[i] ^= bi
	}
	return BigUInt{words: normalize(z)}
}

// Lsh returns x << n.
func (x BigUInt) Lsh(n uint) BigUInt {
	if len(x.words) == 0 {
		return x
	}
	shift := int(n / wordBits)
	z := make([]uint64, len(x.words)+shift+1)
	shlInto(z[shift:], x.words, n%wordBits)
	return BigUInt{words: normalize(z)}
}

// Rsh returns x >> n.
func (x BigUInt) Rsh(n uint) BigUInt {
	shift := int(n / wordBits)
	if shift >= len(x.words) {
		return BigUInt{}
	}
	src := x.words[shift:]
	z := make([]uint64, len(src))
	shrInto(z, src, n%wordBits)
	return BigUInt{words: normalize(z)}
}
