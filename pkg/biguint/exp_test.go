package biguint

import (
	"math/big"
	"math/rand"
	"testing"
)

func TestPower(t *testing.T) {
	tests := []struct {
		base uint64
		exp  uint64
	}{
		{0, 0}, {0, 5}, {1, 1000}, {2, 0}, {2, 64}, {2, 200}, {3, 77}, {12345, 9},
	}
	for _, tt := range tests {
		got := New(tt.base).Power(tt.exp)
		want := new(big.Int).Exp(new(big.Int).SetUint64(tt.base), new(big.Int).SetUint64(tt.exp), nil)
		if toBig(got).Cmp(want) != 0 {
			t.Errorf("%d**%d: got %s, want %s", tt.base, tt.exp, got, want)
		}
	}
}

func TestPowerModSmallValues(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		base := uint64(rng.Intn(1000))
		exp := uint64(rng.Intn(1000))
		mod := uint64(rng.Intn(998) + 2)

		got := New(base).PowerMod(New(exp), New(mod))

		// (base mod m)^e mod m computed with a plain loop.
		want := uint64(1) % mod
		b := base % mod
		for e := exp; e > 0; e-- {
			want = want * b % mod
		}
		if got.Uint64() != want || len(got.Words()) > 1 {
			t.Fatalf("%d**%d mod %d: got %s, want %d", base, exp, mod, got, want)
		}
	}
}

func TestPowerModMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	for i := 0; i < 100; i++ {
		rb, re, rm := randBig(rng, 8), randBig(rng, 4), randBig(rng, 6)
		if rm.Cmp(big.NewInt(2)) < 0 {
			rm.SetInt64(2)
		}
		got := fromBig(rb).PowerMod(fromBig(re), fromBig(rm))
		want := new(big.Int).Exp(rb, re, rm)
		if toBig(got).Cmp(want) != 0 {
			t.Fatalf("PowerMod: got %s, want %s", got, want)
		}
	}
}

func TestPowerModLargeModulus(t *testing.T) {
	// 3072-bit SRP group prime with generator 5.
	n := MustParse(testGroupPrime, 16)
	e := MustParse("6b5c3f2a1e0d9c8b7a69584736251403f2e1d0c9b8a79685746352413f2e1d0c", 16)
	got := New(5).PowerMod(e, n)
	want := new(big.Int).Exp(big.NewInt(5), toBig(e), toBig(n))
	if toBig(got).Cmp(want) != 0 {
		t.Errorf("got %s, want %s", got.Text(16), want.Text(16))
	}
}

func TestPowerModEdgeCases(t *testing.T) {
	if got := New(12345).PowerMod(New(678), One); !got.IsZero() {
		t.Errorf("mod 1: got %s, want 0", got)
	}
	if got := New(12345).PowerMod(Zero, New(7)); !got.Equal(One) {
		t.Errorf("exp 0: got %s, want 1", got)
	}
	if got := Zero.PowerMod(New(5), New(7)); !got.IsZero() {
		t.Errorf("base 0: got %s, want 0", got)
	}
}

func TestPowerModZeroModulusPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New(2).PowerMod(New(3), Zero)
}

const testGroupPrime = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AAAC42DAD33170D04507A33A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
	"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864D87602733EC86A64521F2B18177B200C" +
	"BBE117577A615D6C770988C0BAD946E208E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"
