package security

import (
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/espprov/espprov-go/pkg/biguint"
)

// SRP6a parameters: the RFC 5054 3072-bit group with SHA-512.
const (
	srpPrimeHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
		"15728E5A8AAAC42DAD33170D04507A33A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
		"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864D87602733EC86A64521F2B18177B200C" +
		"BBE117577A615D6C770988C0BAD946E208E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"
	srpGenerator = 5

	// SRPEphemeralSize is the size of the private ephemeral values a and b.
	SRPEphemeralSize = 32
	// SRPSaltSize is the salt size used by the device responder.
	SRPSaltSize = 16
)

type srpGroup struct {
	n    biguint.BigUInt
	g    biguint.BigUInt
	k    biguint.BigUInt
	size int
}

var srp3072 = newSRPGroup(srpPrimeHex, srpGenerator)

func newSRPGroup(primeHex string, g uint64) *srpGroup {
	grp := &srpGroup{
		n: biguint.MustParse(primeHex, 16),
		g: biguint.New(g),
	}
	grp.size = (grp.n.BitLen() + 7) / 8
	grp.k = biguint.FromBytes(srpHash(grp.n.Bytes(), grp.pad(grp.g)))
	return grp
}

func srpHash(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// pad left-pads x to the byte length of N. x must be below N.
func (grp *srpGroup) pad(x biguint.BigUInt) []byte {
	return x.PaddedBytes(grp.size)
}

// exp computes g^x mod N.
func (grp *srpGroup) exp(x biguint.BigUInt) biguint.BigUInt {
	return grp.g.PowerMod(x, grp.n)
}

// scramble computes u = H(pad(A) | pad(B)).
func (grp *srpGroup) scramble(a, b biguint.BigUInt) biguint.BigUInt {
	return biguint.FromBytes(srpHash(grp.pad(a), grp.pad(b)))
}

// inGroup reports whether x is a usable public value: nonzero mod N.
func (grp *srpGroup) inGroup(x biguint.BigUInt) bool {
	return x.Cmp(grp.n) < 0 && !x.IsZero()
}

// privateKey computes x = H(salt | H(username ":" password)).
func srpPrivateKey(salt, username, password []byte) biguint.BigUInt {
	inner := srpHash(username, []byte(":"), password)
	return biguint.FromBytes(srpHash(salt, inner))
}

// clientProof computes M = H(H(N) xor H(g) | H(I) | salt | A | B | K).
func (grp *srpGroup) clientProof(username, salt, aBytes, bBytes, key []byte) []byte {
	hn := srpHash(grp.n.Bytes())
	hg := srpHash(grp.g.Bytes())
	subtle.XORBytes(hn, hn, hg)
	return srpHash(hn, srpHash(username), salt, aBytes, bBytes, key)
}

// serverProof computes H(A | M | K).
func srpServerProof(aBytes, m, key []byte) []byte {
	return srpHash(aBytes, m, key)
}

func randomScalar(r io.Reader) (biguint.BigUInt, error) {
	buf := make([]byte, SRPEphemeralSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return biguint.Zero, fmt.Errorf("security: generate ephemeral: %w", err)
	}
	return biguint.FromBytes(buf), nil
}

// srpClient is the client side of one SRP6a exchange.
type srpClient struct {
	grp      *srpGroup
	username []byte
	password []byte
	a        biguint.BigUInt
	A        biguint.BigUInt
	aBytes   []byte

	key  []byte
	m    []byte
	hamk []byte
}

func newSRPClient(grp *srpGroup, username, password []byte, r io.Reader) (*srpClient, error) {
	a, err := randomScalar(r)
	if err != nil {
		return nil, err
	}
	c := &srpClient{grp: grp, username: username, password: password, a: a}
	c.A = grp.exp(a)
	c.aBytes = c.A.Bytes()
	return c, nil
}

// processChallenge consumes the salt and B and returns the client proof M.
func (c *srpClient) processChallenge(salt, bBytes []byte) ([]byte, error) {
	grp := c.grp
	B := biguint.FromBytes(bBytes)
	if !grp.inGroup(B) {
		return nil, fmt.Errorf("%w: device public value out of range", ErrSecurityMismatch)
	}
	u := grp.scramble(c.A, B)
	if u.IsZero() {
		return nil, fmt.Errorf("%w: zero scrambling parameter", ErrSecurityMismatch)
	}
	x := srpPrivateKey(salt, c.username, c.password)
	v := grp.exp(x)

	// S = (B - k*v)^(a + u*x) mod N, kept non-negative by adding N.
	kv := grp.k.Mul(v).Mod(grp.n)
	base, _ := B.Add(grp.n).Sub(kv)
	base = base.Mod(grp.n)
	e := c.a.Add(u.Mul(x))
	S := base.PowerMod(e, grp.n)

	c.key = srpHash(S.Bytes())
	c.m = grp.clientProof(c.username, salt, c.aBytes, bBytes, c.key)
	c.hamk = srpServerProof(c.aBytes, c.m, c.key)
	return c.m, nil
}

// verifyServer checks the device proof H(A | M | K).
func (c *srpClient) verifyServer(proof []byte) bool {
	return subtle.ConstantTimeCompare(proof, c.hamk) == 1
}

// srpServer is the device side of one SRP6a exchange.
type srpServer struct {
	grp      *srpGroup
	username []byte
	salt     []byte
	v        biguint.BigUInt
	b        biguint.BigUInt
	B        biguint.BigUInt
	bBytes   []byte

	key []byte
}

// newSRPVerifier computes the salt and verifier v = g^x for a password.
func newSRPVerifier(grp *srpGroup, username, password []byte, r io.Reader) (salt []byte, v biguint.BigUInt, err error) {
	salt = make([]byte, SRPSaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, biguint.Zero, fmt.Errorf("security: generate salt: %w", err)
	}
	return salt, grp.exp(srpPrivateKey(salt, username, password)), nil
}

func newSRPServer(grp *srpGroup, username, salt []byte, v biguint.BigUInt, r io.Reader) (*srpServer, error) {
	b, err := randomScalar(r)
	if err != nil {
		return nil, err
	}
	s := &srpServer{grp: grp, username: username, salt: salt, v: v, b: b}
	// B = (k*v + g^b) mod N
	s.B = grp.k.Mul(v).Add(grp.exp(b)).Mod(grp.n)
	s.bBytes = s.B.Bytes()
	return s, nil
}

// processClient derives the session key from A and returns the expected
// client proof.
func (s *srpServer) processClient(aBytes []byte) ([]byte, error) {
	grp := s.grp
	A := biguint.FromBytes(aBytes)
	if !grp.inGroup(A) {
		return nil, fmt.Errorf("%w: client public value out of range", ErrSecurityMismatch)
	}
	u := grp.scramble(A, s.B)
	// S = (A * v^u)^b mod N
	S := A.Mul(s.v.PowerMod(u, grp.n)).Mod(grp.n).PowerMod(s.b, grp.n)
	s.key = srpHash(S.Bytes())
	return grp.clientProof(s.username, s.salt, aBytes, s.bBytes, s.key), nil
}
