// Package biguint implements arbitrary-precision unsigned integers.
//
// A BigUInt is an immutable value made of 64-bit words stored least
// significant first. Every operation returns a new value in canonical form
// (no most-significant zero words), so values can be shared freely between
// goroutines.
//
// # Arithmetic
//
// Addition, multiplication, division and bitwise operations behave like their
// math/big counterparts restricted to non-negative values. Subtraction reports
// underflow instead of producing a negative value:
//
//	d, underflow := a.Sub(b)
//	if underflow {
//	    // d holds the two's complement of b-a
//	}
//
// # Exponentiation
//
// Power computes a^e by square-and-multiply. PowerMod computes a^e mod m with a
// right-to-left binary method, reducing against a normalized copy of the
// modulus after every multiplication. A zero modulus panics.
//
// # Encoding
//
// Parse and Text convert to and from strings in radix 2 through 36. FromBytes,
// Bytes and PaddedBytes use big-endian byte order.
package biguint
