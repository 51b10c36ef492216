package biguint

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"
)

// randBig returns a random value with up to maxWords words.
func randBig(rng *rand.Rand, maxWords int) *big.Int {
	n := rng.Intn(maxWords*8 + 1)
	b := make([]byte, n)
	rng.Read(b)
	return new(big.Int).SetBytes(b)
}

func fromBig(v *big.Int) BigUInt {
	return FromBytes(v.Bytes())
}

func toBig(x BigUInt) *big.Int {
	return new(big.Int).SetBytes(x.Bytes())
}

func TestZeroValue(t *testing.T) {
	var x BigUInt
	if !x.IsZero() {
		t.Fatal("zero value should be 0")
	}
	if x.String() != "0" {
		t.Errorf("String: got %q, want %q", x.String(), "0")
	}
	if x.BitLen() != 0 {
		t.Errorf("BitLen: got %d, want 0", x.BitLen())
	}
	if len(x.Bytes()) != 0 {
		t.Errorf("Bytes: got %x, want empty", x.Bytes())
	}
}

func TestCanonicalForm(t *testing.T) {
	x := FromWords([]uint64{5, 0, 0})
	if got := len(x.Words()); got != 1 {
		t.Fatalf("words: got %d, want 1", got)
	}
	if !x.Equal(New(5)) {
		t.Error("FromWords with leading zeros should equal New(5)")
	}

	a := FromWords([]uint64{0, 1})
	d, under := a.Sub(New(1))
	if under {
		t.Fatal("unexpected underflow")
	}
	if got := len(d.Words()); got != 1 {
		t.Errorf("2^64-1 should fit in one word, got %d", got)
	}
}

func TestImmutability(t *testing.T) {
	words := []uint64{1, 2, 3}
	x := FromWords(words)
	words[0] = 99
	if x.Words()[0] != 1 {
		t.Error("FromWords must copy its input")
	}

	out := x.Words()
	out[0] = 42
	if x.Words()[0] != 1 {
		t.Error("Words must return a copy")
	}

	y := New(7)
	_ = x.Add(y)
	_ = x.Mul(y)
	_ = x.Lsh(3)
	if x.Words()[0] != 1 || x.Words()[2] != 3 {
		t.Error("operations must not modify the receiver")
	}
}

func TestAddProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		a, b, c := fromBig(randBig(rng, 6)), fromBig(randBig(rng, 6)), fromBig(randBig(rng, 6))

		if !a.Add(b).Equal(b.Add(a)) {
			t.Fatalf("add not commutative for %s, %s", a, b)
		}
		if !a.Add(b).Add(c).Equal(a.Add(b.Add(c))) {
			t.Fatalf("add not associative for %s, %s, %s", a, b, c)
		}
		if !a.Add(Zero).Equal(a) {
			t.Fatalf("0 is not the identity for %s", a)
		}
	}
}

func TestArithmeticMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 300; i++ {
		ra, rb := randBig(rng, 8), randBig(rng, 5)
		a, b := fromBig(ra), fromBig(rb)

		if got, want := toBig(a.Add(b)), new(big.Int).Add(ra, rb); got.Cmp(want) != 0 {
			t.Fatalf("Add: got %s, want %s", got, want)
		}
		if got, want := toBig(a.Mul(b)), new(big.Int).Mul(ra, rb); got.Cmp(want) != 0 {
			t.Fatalf("Mul: got %s, want %s", got, want)
		}
		if rb.Sign() != 0 {
			q, r := a.DivMod(b)
			wq, wr := new(big.Int).QuoRem(ra, rb, new(big.Int))
			if toBig(q).Cmp(wq) != 0 || toBig(r).Cmp(wr) != 0 {
				t.Fatalf("DivMod(%s, %s): got (%s, %s), want (%s, %s)", ra, rb, q, r, wq, wr)
			}
		}
		if a.Cmp(b) != ra.Cmp(rb) {
			t.Fatalf("Cmp(%s, %s): got %d, want %d", ra, rb, a.Cmp(b), ra.Cmp(rb))
		}
	}
}

func TestDivModSingleWordDivisor(t *testing.T) {
	a := MustParse("123456789012345678901234567890", 10)
	q, r := a.DivMod(New(97))
	wq, wr := new(big.Int).QuoRem(toBig(a), big.NewInt(97), new(big.Int))
	if toBig(q).Cmp(wq) != 0 || toBig(r).Cmp(wr) != 0 {
		t.Errorf("got (%s, %s), want (%s, %s)", q, r, wq, wr)
	}
}

func TestDivModByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(1).DivMod(Zero)
}

func TestSubUnderflow(t *testing.T) {
	d, under := New(10).Sub(New(3))
	if under || !d.Equal(New(7)) {
		t.Errorf("10-3: got (%s, %v), want (7, false)", d, under)
	}

	d, under = New(3).Sub(New(3))
	if under || !d.IsZero() {
		t.Errorf("3-3: got (%s, %v), want (0, false)", d, under)
	}

	d, under = New(3).Sub(New(10))
	if !under {
		t.Fatal("3-10 should underflow")
	}
	// Two's complement of 7 over one word.
	if want := New(^uint64(0) - 6); !d.Equal(want) {
		t.Errorf("3-10: got %s, want %s", d, want)
	}

	// Two words wide: 1 - 2^64.
	d, under = New(1).Sub(FromWords([]uint64{0, 1}))
	if !under {
		t.Fatal("1-2^64 should underflow")
	}
	if want := FromWords([]uint64{1, ^uint64(0)}); !d.Equal(want) {
		t.Errorf("1-2^64: got %x, want %x", d.Words(), want.Words())
	}
}

func TestSubMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		ra, rb := randBig(rng, 6), randBig(rng, 6)
		if ra.Cmp(rb) < 0 {
			ra, rb = rb, ra
		}
		d, under := fromBig(ra).Sub(fromBig(rb))
		if under {
			t.Fatalf("unexpected underflow for %s - %s", ra, rb)
		}
		if want := new(big.Int).Sub(ra, rb); toBig(d).Cmp(want) != 0 {
			t.Fatalf("Sub: got %s, want %s", d, want)
		}
	}
}

func TestBitwise(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		ra, rb := randBig(rng, 5), randBig(rng, 5)
		a, b := fromBig(ra), fromBig(rb)
		n := uint(rng.Intn(200))

		if got, want := toBig(a.And(b)), new(big.Int).And(ra, rb); got.Cmp(want) != 0 {
			t.Fatalf("And: got %s, want %s", got, want)
		}
		if got, want := toBig(a.Or(b)), new(big.Int).Or(ra, rb); got.Cmp(want) != 0 {
			t.Fatalf("Or: got %s, want %s", got, want)
		}
		if got, want := toBig(a.Xor(b)), new(big.Int).Xor(ra, rb); got.Cmp(want) != 0 {
			t.Fatalf("Xor: got %s, want %s", got, want)
		}
		if got, want := toBig(a.Lsh(n)), new(big.Int).Lsh(ra, n); got.Cmp(want) != 0 {
			t.Fatalf("Lsh(%d): got %s, want %s", n, got, want)
		}
		if got, want := toBig(a.Rsh(n)), new(big.Int).Rsh(ra, n); got.Cmp(want) != 0 {
			t.Fatalf("Rsh(%d): got %s, want %s", n, got, want)
		}
		if a.BitLen() != ra.BitLen() {
			t.Fatalf("BitLen: got %d, want %d", a.BitLen(), ra.BitLen())
		}
		if a.Bit(int(n)) != ra.Bit(int(n)) {
			t.Fatalf("Bit(%d): got %d, want %d", n, a.Bit(int(n)), ra.Bit(int(n)))
		}
	}
}

func TestRadixRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, radix := range []int{2, 10, 16, 36} {
		for i := 0; i < 100; i++ {
			ref := randBig(rng, 6)
			x := fromBig(ref)

			s := x.Text(radix)
			if want := ref.Text(radix); s != want {
				t.Fatalf("Text(%d): got %q, want %q", radix, s, want)
			}
			back, err := Parse(s, radix)
			if err != nil {
				t.Fatalf("Parse(%q, %d): %v", s, radix, err)
			}
			if !back.Equal(x) {
				t.Fatalf("round trip radix %d: got %s, want %s", radix, back, x)
			}
		}
	}
}

func TestParseAllRadixes(t *testing.T) {
	ref, _ := new(big.Int).SetString("98765432109876543210987654321098765432109876543210", 10)
	for radix := 2; radix <= 36; radix++ {
		x, err := Parse(ref.Text(radix), radix)
		if err != nil {
			t.Fatalf("radix %d: %v", radix, err)
		}
		if toBig(x).Cmp(ref) != 0 {
			t.Fatalf("radix %d: got %s, want %s", radix, x, ref)
		}
	}
}

func TestParseUpperCase(t *testing.T) {
	x, err := Parse("DEADBEEF", 16)
	if err != nil {
		t.Fatal(err)
	}
	if !x.Equal(New(0xdeadbeef)) {
		t.Errorf("got %s, want %d", x, 0xdeadbeef)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		s     string
		radix int
		want  error
	}{
		{"", 10, ErrSyntax},
		{"12a", 10, ErrSyntax},
		{"102", 2, ErrSyntax},
		{"-1", 10, ErrSyntax},
		{"0x10", 16, ErrSyntax},
		{"zz", 36 + 1, ErrInvalidRadix},
		{"1", 1, ErrInvalidRadix},
	}
	for _, tt := range tests {
		_, err := Parse(tt.s, tt.radix)
		if !errors.Is(err, tt.want) {
			t.Errorf("Parse(%q, %d): got %v, want %v", tt.s, tt.radix, err, tt.want)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 200; i++ {
		ref := randBig(rng, 9)
		x := fromBig(ref)
		if got := x.Bytes(); string(got) != string(ref.Bytes()) {
			t.Fatalf("Bytes: got %x, want %x", got, ref.Bytes())
		}
		if !FromBytes(x.Bytes()).Equal(x) {
			t.Fatalf("round trip failed for %s", x)
		}
	}
}

func TestFromBytesLeadingZeros(t *testing.T) {
	x := FromBytes([]byte{0, 0, 0, 1, 2})
	if !x.Equal(New(0x0102)) {
		t.Errorf("got %s, want %d", x, 0x0102)
	}
}

func TestPaddedBytes(t *testing.T) {
	got := New(0x0102).PaddedBytes(4)
	want := []byte{0, 0, 1, 2}
	if string(got) != string(want) {
		t.Errorf("got %x, want %x", got, want)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic when value does not fit")
		}
	}()
	New(0x010203).PaddedBytes(2)
}
