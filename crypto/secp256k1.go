package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/eth2030/eth2030/core/types"
)

// secp256k1 domain parameters (SEC 2). The curve is y² = x³ + 7 over F_p.
var (
	secpP  = mustHexInt("fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f")
	secpN  = mustHexInt("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	secpGx = mustHexInt("79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	secpGy = mustHexInt("483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8")
	secpB  = big.NewInt(7)

	// halfN splits the order for the EIP-2 low-s rule.
	halfN = new(big.Int).Rsh(secpN, 1)
)

func mustHexInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("crypto: bad curve constant")
	}
	return v
}

var (
	ErrInvalidSignature  = errors.New("crypto: invalid signature values")
	ErrInvalidRecoveryID = errors.New("crypto: invalid recovery id")
	ErrRecoveryFailed    = errors.New("crypto: public key recovery failed")
	ErrInvalidPublicKey  = errors.New("crypto: invalid public key")
)

// secpCurve implements elliptic.Curve for secp256k1. The stdlib's generic
// curve machinery assumes the a = -3 Weierstrass polynomial, so every
// operation here carries its own a = 0 arithmetic. Affine coordinates with
// modular inversion keep the math auditable; speed is not a goal of this
// implementation.
type secpCurve struct {
	params *elliptic.CurveParams
}

var theCurve = &secpCurve{
	params: &elliptic.CurveParams{
		P: secpP, N: secpN, B: secpB,
		Gx: secpGx, Gy: secpGy,
		BitSize: 256, Name: "secp256k1",
	},
}

// S256 returns the secp256k1 curve.
func S256() elliptic.Curve {
	return theCurve
}

func (c *secpCurve) Params() *elliptic.CurveParams { return c.params }

func (c *secpCurve) IsOnCurve(x, y *big.Int) bool {
	if x == nil || y == nil || x.Sign() < 0 || y.Sign() < 0 ||
		x.Cmp(secpP) >= 0 || y.Cmp(secpP) >= 0 {
		return false
	}
	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, secpP)
	rhs := rhsOfCurve(x)
	return lhs.Cmp(rhs) == 0
}

// rhsOfCurve computes x³ + 7 mod p.
func rhsOfCurve(x *big.Int) *big.Int {
	r := new(big.Int).Mul(x, x)
	r.Mod(r, secpP)
	r.Mul(r, x)
	r.Add(r, secpB)
	r.Mod(r, secpP)
	return r
}

// Add performs affine point addition, treating (0,0) as the identity.
func (c *secpCurve) Add(x1, y1, x2, y2 *big.Int) (*big.Int, *big.Int) {
	if x1.Sign() == 0 && y1.Sign() == 0 {
		return new(big.Int).Set(x2), new(big.Int).Set(y2)
	}
	if x2.Sign() == 0 && y2.Sign() == 0 {
		return new(big.Int).Set(x1), new(big.Int).Set(y1)
	}
	if x1.Cmp(x2) == 0 {
		sum := new(big.Int).Add(y1, y2)
		sum.Mod(sum, secpP)
		if sum.Sign() == 0 {
			return new(big.Int), new(big.Int) // P + (−P) = O
		}
		return c.Double(x1, y1)
	}
	// λ = (y2 − y1) / (x2 − x1)
	num := new(big.Int).Sub(y2, y1)
	den := new(big.Int).Sub(x2, x1)
	den.ModInverse(den, secpP)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, secpP)
	return completeAddition(lambda, x1, y1, x2)
}

// Double performs affine point doubling.
func (c *secpCurve) Double(x1, y1 *big.Int) (*big.Int, *big.Int) {
	if y1.Sign() == 0 {
		return new(big.Int), new(big.Int)
	}
	// λ = 3x² / 2y  (a = 0 drops out of the numerator)
	num := new(big.Int).Mul(x1, x1)
	num.Mul(num, big.NewInt(3))
	den := new(big.Int).Lsh(y1, 1)
	den.ModInverse(den, secpP)
	lambda := num.Mul(num, den)
	lambda.Mod(lambda, secpP)
	return completeAddition(lambda, x1, y1, x1)
}

// completeAddition derives the result point from the chord/tangent slope:
// x3 = λ² − x1 − x2, y3 = λ(x1 − x3) − y1.
func completeAddition(lambda, x1, y1, x2 *big.Int) (*big.Int, *big.Int) {
	x3 := new(big.Int).Mul(lambda, lambda)
	x3.Sub(x3, x1)
	x3.Sub(x3, x2)
	x3.Mod(x3, secpP)
	if x3.Sign() < 0 {
		x3.Add(x3, secpP)
	}
	y3 := new(big.Int).Sub(x1, x3)
	y3.Mul(y3, lambda)
	y3.Sub(y3, y1)
	y3.Mod(y3, secpP)
	if y3.Sign() < 0 {
		y3.Add(y3, secpP)
	}
	return x3, y3
}

// ScalarMult computes k·(bx,by) by binary double-and-add.
func (c *secpCurve) ScalarMult(bx, by *big.Int, k []byte) (*big.Int, *big.Int) {
	rx, ry := new(big.Int), new(big.Int) // identity
	px, py := new(big.Int).Set(bx), new(big.Int).Set(by)
	for i := len(k) - 1; i >= 0; i-- {
		b := k[i]
		for bit := 0; bit < 8; bit++ {
			if b&1 == 1 {
				rx, ry = c.Add(rx, ry, px, py)
			}
			px, py = c.Double(px, py)
			b >>= 1
		}
	}
	return rx, ry
}

func (c *secpCurve) ScalarBaseMult(k []byte) (*big.Int, *big.Int) {
	return c.ScalarMult(secpGx, secpGy, k)
}

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(theCurve, rand.Reader)
}

// PrivateKeyFromBytes restores a private key from its 32-byte scalar.
func PrivateKeyFromBytes(d []byte) (*ecdsa.PrivateKey, error) {
	k := new(big.Int).SetBytes(d)
	if k.Sign() <= 0 || k.Cmp(secpN) >= 0 {
		return nil, errors.New("crypto: private key scalar out of range")
	}
	priv := &ecdsa.PrivateKey{D: k}
	priv.Curve = theCurve
	priv.X, priv.Y = theCurve.ScalarBaseMult(k.Bytes())
	return priv, nil
}

// Sign produces a 65-byte [R || S || V] signature over a 32-byte digest.
// S is normalized into the lower half order and V is the recovery id
// (0 or 1), determined by trial recovery.
func Sign(digest []byte, priv *ecdsa.PrivateKey) ([]byte, error) {
	if len(digest) != 32 {
		return nil, errors.New("crypto: digest must be 32 bytes")
	}
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	if err != nil {
		return nil, err
	}
	if s.Cmp(halfN) > 0 {
		s = new(big.Int).Sub(secpN, s)
	}
	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	for v := byte(0); v < 2; v++ {
		qx, qy, err := recoverPoint(digest, r, s, v)
		if err != nil {
			continue
		}
		if qx.Cmp(priv.X) == 0 && qy.Cmp(priv.Y) == 0 {
			sig[64] = v
			return sig, nil
		}
	}
	return nil, ErrRecoveryFailed
}

// Ecrecover returns the 65-byte uncompressed public key that produced the
// signature over the digest.
func Ecrecover(digest, sig []byte) ([]byte, error) {
	pub, err := SigToPub(digest, sig)
	if err != nil {
		return nil, err
	}
	return MarshalPubkey(pub), nil
}

// SigToPub recovers the signing public key from a 65-byte [R || S || V]
// signature. V must be the raw recovery id.
func SigToPub(digest, sig []byte) (*ecdsa.PublicKey, error) {
	if len(digest) != 32 {
		return nil, errors.New("crypto: digest must be 32 bytes")
	}
	if len(sig) != 65 {
		return nil, errors.New("crypto: signature must be 65 bytes")
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	v := sig[64]
	if v > 1 {
		return nil, ErrInvalidRecoveryID
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(secpN) >= 0 || s.Cmp(secpN) >= 0 {
		return nil, ErrInvalidSignature
	}
	x, y, err := recoverPoint(digest, r, s, v)
	if err != nil {
		return nil, err
	}
	return &ecdsa.PublicKey{Curve: theCurve, X: x, Y: y}, nil
}

// recoverPoint computes Q = r⁻¹(sR − eG) where R is the point with
// abscissa r whose ordinate parity matches v.
func recoverPoint(digest []byte, r, s *big.Int, v byte) (*big.Int, *big.Int, error) {
	if r.Cmp(secpP) >= 0 {
		return nil, nil, ErrInvalidSignature
	}
	ry := sqrtModP(rhsOfCurve(r))
	if ry == nil {
		return nil, nil, ErrRecoveryFailed
	}
	if ry.Bit(0) != uint(v) {
		ry.Sub(secpP, ry)
	}
	if !theCurve.IsOnCurve(r, ry) {
		return nil, nil, ErrRecoveryFailed
	}

	e := new(big.Int).SetBytes(digest)
	rInv := new(big.Int).ModInverse(r, secpN)
	if rInv == nil {
		return nil, nil, ErrRecoveryFailed
	}

	sRx, sRy := theCurve.ScalarMult(r, ry, s.Bytes())
	eGx, eGy := theCurve.ScalarBaseMult(e.Bytes())
	negEGy := new(big.Int).Sub(secpP, eGy)
	dx, dy := theCurve.Add(sRx, sRy, eGx, negEGy)
	qx, qy := theCurve.ScalarMult(dx, dy, rInv.Bytes())
	if qx.Sign() == 0 && qy.Sign() == 0 {
		return nil, nil, ErrRecoveryFailed
	}
	return qx, qy, nil
}

// sqrtModP returns a square root of a modulo p, or nil if none exists.
// p ≡ 3 (mod 4), so the root is a^((p+1)/4).
func sqrtModP(a *big.Int) *big.Int {
	exp := new(big.Int).Add(secpP, big.NewInt(1))
	exp.Rsh(exp, 2)
	root := new(big.Int).Exp(a, exp, secpP)
	check := new(big.Int).Mul(root, root)
	check.Mod(check, secpP)
	if check.Cmp(a) != 0 {
		return nil
	}
	return root
}

// ValidSignatureValues checks r, s and the raw recovery id against the
// curve order, applying the low-s rule when strictS is set (EIP-2).
func ValidSignatureValues(v byte, r, s *big.Int, strictS bool) bool {
	if r == nil || s == nil || v > 1 {
		return false
	}
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	if r.Cmp(secpN) >= 0 || s.Cmp(secpN) >= 0 {
		return false
	}
	if strictS && s.Cmp(halfN) > 0 {
		return false
	}
	return true
}

// MarshalPubkey encodes a public key as 65 bytes: 0x04 || X || Y.
func MarshalPubkey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	out := make([]byte, 65)
	out[0] = 4
	pub.X.FillBytes(out[1:33])
	pub.Y.FillBytes(out[33:65])
	return out
}

// UnmarshalPubkey parses a 65-byte uncompressed public key.
func UnmarshalPubkey(data []byte) (*ecdsa.PublicKey, error) {
	if len(data) != 65 || data[0] != 4 {
		return nil, ErrInvalidPublicKey
	}
	x := new(big.Int).SetBytes(data[1:33])
	y := new(big.Int).SetBytes(data[33:65])
	if !theCurve.IsOnCurve(x, y) {
		return nil, ErrInvalidPublicKey
	}
	return &ecdsa.PublicKey{Curve: theCurve, X: x, Y: y}, nil
}

// PubkeyToAddress derives the account address: the low 20 bytes of
// keccak(X || Y).
func PubkeyToAddress(pub *ecdsa.PublicKey) types.Address {
	raw := MarshalPubkey(pub)
	if raw == nil {
		return types.Address{}
	}
	return types.BytesToAddress(Keccak256(raw[1:])[12:])
}
