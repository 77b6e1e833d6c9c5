package crypto

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/eth2030/eth2030/core/types"
)

func TestKeccakEmptyString(t *testing.T) {
	// keccak("") is the well-known empty digest.
	want := types.HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if got := Keccak256Hash(nil); got != want {
		t.Fatalf("keccak(\"\") = %s, want %s", got.Hex(), want.Hex())
	}
}

func TestKeccakConcatenates(t *testing.T) {
	joined := Keccak256([]byte("foo"), []byte("bar"))
	whole := Keccak256([]byte("foobar"))
	if !bytes.Equal(joined, whole) {
		t.Fatal("Keccak256 over parts must equal the concatenated digest")
	}
}

func TestGeneratorOnCurve(t *testing.T) {
	p := S256().Params()
	if !S256().IsOnCurve(p.Gx, p.Gy) {
		t.Fatal("generator not on curve")
	}
}

func TestScalarBaseMultKnownPoint(t *testing.T) {
	// 2G, from the SEC 2 test vectors.
	wantX := mustHexInt("c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5")
	wantY := mustHexInt("1ae168fea63dc339a3c58419466ceaeef7f632653266d0e1236431a950cfe52a")
	x, y := S256().ScalarBaseMult([]byte{2})
	if x.Cmp(wantX) != 0 || y.Cmp(wantY) != 0 {
		t.Fatalf("2G = (%x, %x)", x, y)
	}
}

func TestPointAdditionAgreesWithDouble(t *testing.T) {
	p := S256().Params()
	ax, ay := S256().Add(p.Gx, p.Gy, p.Gx, p.Gy)
	dx, dy := theCurve.Double(p.Gx, p.Gy)
	if ax.Cmp(dx) != 0 || ay.Cmp(dy) != 0 {
		t.Fatal("G+G != 2G")
	}
}

func TestSignRecoverRoundTrip(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	digest := Keccak256([]byte("a message to sign"))

	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d", len(sig))
	}

	// Low-s is enforced.
	s := new(big.Int).SetBytes(sig[32:64])
	if s.Cmp(halfN) > 0 {
		t.Fatal("signature s not normalized to lower half")
	}

	pub, err := SigToPub(digest, sig)
	if err != nil {
		t.Fatalf("SigToPub: %v", err)
	}
	if pub.X.Cmp(priv.X) != 0 || pub.Y.Cmp(priv.Y) != 0 {
		t.Fatal("recovered key does not match signer")
	}

	if PubkeyToAddress(pub) != PubkeyToAddress(&priv.PublicKey) {
		t.Fatal("address mismatch after recovery")
	}
}

func TestRecoverRejectsBadInputs(t *testing.T) {
	digest := Keccak256([]byte("x"))
	good := make([]byte, 65)

	if _, err := SigToPub(digest[:31], good); err == nil {
		t.Error("short digest accepted")
	}
	if _, err := SigToPub(digest, good[:64]); err == nil {
		t.Error("short signature accepted")
	}

	bad := make([]byte, 65)
	bad[64] = 4
	if _, err := SigToPub(digest, bad); err == nil {
		t.Error("recovery id 4 accepted")
	}

	// Zero r/s is invalid.
	if _, err := SigToPub(digest, make([]byte, 65)); err == nil {
		t.Error("all-zero signature accepted")
	}
}

func TestValidSignatureValues(t *testing.T) {
	one := big.NewInt(1)
	highS := new(big.Int).Add(halfN, one)

	if !ValidSignatureValues(0, one, one, false) {
		t.Error("minimal signature rejected")
	}
	if ValidSignatureValues(2, one, one, false) {
		t.Error("v=2 accepted")
	}
	if ValidSignatureValues(0, new(big.Int), one, false) {
		t.Error("r=0 accepted")
	}
	if ValidSignatureValues(0, one, secpN, false) {
		t.Error("s=N accepted")
	}
	if !ValidSignatureValues(0, one, highS, false) {
		t.Error("high s rejected without strict rule")
	}
	if ValidSignatureValues(0, one, highS, true) {
		t.Error("high s accepted under EIP-2 rule")
	}
}

func TestSignatureMalleabilityFlipsSigner(t *testing.T) {
	priv, _ := GenerateKey()
	digest := Keccak256([]byte("malleability"))
	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// Flip s to N-s and the recovery id; the same key must come back.
	s := new(big.Int).SetBytes(sig[32:64])
	flipped := make([]byte, 65)
	copy(flipped, sig[:32])
	new(big.Int).Sub(secpN, s).FillBytes(flipped[32:64])
	flipped[64] = sig[64] ^ 1

	pub, err := SigToPub(digest, flipped)
	if err != nil {
		t.Fatalf("SigToPub(flipped): %v", err)
	}
	if pub.X.Cmp(priv.X) != 0 {
		t.Fatal("flipped signature recovered a different key")
	}
}

func TestPubkeyMarshalRoundTrip(t *testing.T) {
	priv, _ := GenerateKey()
	raw := MarshalPubkey(&priv.PublicKey)
	pub, err := UnmarshalPubkey(raw)
	if err != nil {
		t.Fatalf("UnmarshalPubkey: %v", err)
	}
	if pub.X.Cmp(priv.X) != 0 || pub.Y.Cmp(priv.Y) != 0 {
		t.Fatal("marshal round trip mismatch")
	}

	if _, err := UnmarshalPubkey(raw[:64]); err == nil {
		t.Error("short key accepted")
	}
	raw[1] ^= 0xff
	if _, err := UnmarshalPubkey(raw); err == nil {
		t.Error("off-curve key accepted")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	priv, _ := GenerateKey()
	d := make([]byte, 32)
	priv.D.FillBytes(d)

	restored, err := PrivateKeyFromBytes(d)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	if restored.X.Cmp(priv.X) != 0 || restored.Y.Cmp(priv.Y) != 0 {
		t.Fatal("restored key mismatch")
	}

	if _, err := PrivateKeyFromBytes(make([]byte, 32)); err == nil {
		t.Error("zero scalar accepted")
	}
}
