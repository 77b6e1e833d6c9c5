package vm

import (
	"crypto/sha256"
	"math/big"

	"golang.org/x/crypto/ripemd160"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
)

// precompiled is a native contract: a pricing function plus the
// operation itself. A failing precompile behaves like any exceptional
// halt, consuming all forwarded gas.
type precompiled interface {
	gas(input []byte) uint64
	run(input []byte) ([]byte, error)
}

// precompile resolves a precompiled contract address under the current
// fork, or nil.
func (evm *EVM) precompile(addr types.Address) precompiled {
	switch addr {
	case types.BytesToAddress([]byte{1}):
		return pcEcrecover{}
	case types.BytesToAddress([]byte{2}):
		return pcSha256{}
	case types.BytesToAddress([]byte{3}):
		return pcRipemd160{}
	case types.BytesToAddress([]byte{4}):
		return pcIdentity{}
	case types.BytesToAddress([]byte{5}):
		if evm.Config.HasModExp {
			return pcModExp{}
		}
	}
	return nil
}

// runPrecompile meters and executes a native contract.
func runPrecompile(pc precompiled, input []byte, gas uint64) ([]byte, uint64, error) {
	cost := pc.gas(input)
	if cost > gas {
		return nil, 0, ErrOutOfGas
	}
	out, err := pc.run(input)
	if err != nil {
		return nil, 0, err
	}
	return out, gas - cost, nil
}

// rightPad returns input extended with zeros to at least n bytes.
func rightPad(input []byte, n int) []byte {
	if len(input) >= n {
		return input
	}
	out := make([]byte, n)
	copy(out, input)
	return out
}

// pcEcrecover (0x01) recovers the signer address of a digest.
type pcEcrecover struct{}

func (pcEcrecover) gas([]byte) uint64 { return 3000 }

func (pcEcrecover) run(input []byte) ([]byte, error) {
	in := rightPad(input, 128)

	// v arrives as a 32-byte word holding 27 or 28.
	v := new(big.Int).SetBytes(in[32:64])
	if !v.IsUint64() || (v.Uint64() != 27 && v.Uint64() != 28) {
		return nil, nil // invalid input yields empty output, not failure
	}
	sig := make([]byte, 65)
	copy(sig[:32], in[64:96])
	copy(sig[32:64], in[96:128])
	sig[64] = byte(v.Uint64() - 27)

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !crypto.ValidSignatureValues(sig[64], r, s, false) {
		return nil, nil
	}

	pub, err := crypto.SigToPub(in[:32], sig)
	if err != nil {
		return nil, nil
	}
	return addrTo32(crypto.PubkeyToAddress(pub)), nil
}

// pcSha256 (0x02) hashes the input with SHA-256.
type pcSha256 struct{}

func (pcSha256) gas(input []byte) uint64 {
	return 60 + 12*wordsFor(uint64(len(input)))
}

func (pcSha256) run(input []byte) ([]byte, error) {
	sum := sha256.Sum256(input)
	return sum[:], nil
}

// pcRipemd160 (0x03) hashes the input with RIPEMD-160, left-padded to a
// word.
type pcRipemd160 struct{}

func (pcRipemd160) gas(input []byte) uint64 {
	return 600 + 120*wordsFor(uint64(len(input)))
}

func (pcRipemd160) run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	return leftPad32(h.Sum(nil)), nil
}

// pcIdentity (0x04) copies its input.
type pcIdentity struct{}

func (pcIdentity) gas(input []byte) uint64 {
	return 15 + 3*wordsFor(uint64(len(input)))
}

func (pcIdentity) run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// pcModExp (0x05) computes base^exp mod modulus over arbitrary-width
// operands.
type pcModExp struct{}

func (pcModExp) gas(input []byte) uint64 {
	in := rightPad(input, 96)
	baseLen := new(big.Int).SetBytes(in[:32])
	expLen := new(big.Int).SetBytes(in[32:64])
	modLen := new(big.Int).SetBytes(in[64:96])

	if !baseLen.IsUint64() || !expLen.IsUint64() || !modLen.IsUint64() {
		return ^uint64(0)
	}

	// Complexity of the multiplication at the widest operand.
	width := baseLen.Uint64()
	if modLen.Uint64() > width {
		width = modLen.Uint64()
	}
	var mult uint64
	switch {
	case width <= 64:
		mult = width * width
	case width <= 1024:
		mult = width*width/4 + 96*width - 3072
	default:
		mult = width*width/16 + 480*width - 199680
	}

	// Iterations driven by the exponent's leading word.
	adjExp := adjustedExponentLength(input, baseLen.Uint64(), expLen.Uint64())
	if adjExp == 0 {
		adjExp = 1
	}
	return mult * adjExp / 20
}

// adjustedExponentLength implements the EIP-198 exponent weighting.
func adjustedExponentLength(input []byte, baseLen, expLen uint64) uint64 {
	expStart := 96 + baseLen
	var head big.Int
	if expStart < uint64(len(input)) {
		n := expLen
		if n > 32 {
			n = 32
		}
		head.SetBytes(rightPad(input[expStart:], int(n))[:n])
	}
	bitlen := uint64(0)
	if head.BitLen() > 0 {
		bitlen = uint64(head.BitLen() - 1)
	}
	if expLen <= 32 {
		return bitlen
	}
	return 8*(expLen-32) + bitlen
}

func (pcModExp) run(input []byte) ([]byte, error) {
	in := rightPad(input, 96)
	baseLen := new(big.Int).SetBytes(in[:32]).Uint64()
	expLen := new(big.Int).SetBytes(in[32:64]).Uint64()
	modLen := new(big.Int).SetBytes(in[64:96]).Uint64()

	if baseLen == 0 && modLen == 0 {
		return nil, nil
	}

	body := input
	if len(body) > 96 {
		body = body[96:]
	} else {
		body = nil
	}
	readOperand := func(off, l uint64) *big.Int {
		if l == 0 {
			return new(big.Int)
		}
		return new(big.Int).SetBytes(rightPad(sliceFrom(body, off), int(l))[:l])
	}

	base := readOperand(0, baseLen)
	exp := readOperand(baseLen, expLen)
	mod := readOperand(baseLen+expLen, modLen)

	out := make([]byte, modLen)
	if mod.Sign() == 0 {
		return out, nil
	}
	new(big.Int).Exp(base, exp, mod).FillBytes(out)
	return out, nil
}

func sliceFrom(b []byte, off uint64) []byte {
	if off >= uint64(len(b)) {
		return nil
	}
	return b[off:]
}

// leftPad32 left-pads b to 32 bytes.
func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// addrTo32 widens an address to a 32-byte word.
func addrTo32(a types.Address) []byte {
	return leftPad32(a.Bytes())
}
