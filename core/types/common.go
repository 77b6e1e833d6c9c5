// Package types defines the consensus data structures of the chain:
// hashes, addresses, accounts, headers, transactions, receipts and
// blocks, together with their canonical RLP forms.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/eth2030/eth2030/rlp"
)

const (
	// HashLength is the byte length of a Keccak-256 digest.
	HashLength = 32

	// AddressLength is the byte length of an account address.
	AddressLength = 20
)

// Hash is a 32-byte Keccak-256 digest.
type Hash [HashLength]byte

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToHash right-aligns b into a Hash, truncating from the left when
// it is too long.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses a hex string, with or without 0x prefix.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether the hash is all zeroes.
func (h Hash) IsZero() bool { return h == Hash{} }

// BytesToAddress right-aligns b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a hex string, with or without 0x prefix.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }

// Hash widens the address into a 32-byte value, as storage keys do.
func (a Address) Hash() Hash { return BytesToHash(a[:]) }

func fromHex(s string) []byte {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("types: bad hex literal %q", s))
	}
	return b
}

// keccak computes a Keccak-256 digest. The package keeps its own copy so
// hashing the structures defined here introduces no import cycle with
// the crypto package.
func keccak(parts ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		d.Write(p)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// rlpHash is keccak(rlp(v)), the canonical identity of every consensus
// object.
func rlpHash(v interface{}) Hash {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		panic(fmt.Sprintf("types: cannot hash %T: %v", v, err))
	}
	return keccak(enc)
}

// Well-known sentinel hashes.
var (
	// EmptyRootHash is the root of an empty trie: keccak(rlp("")).
	EmptyRootHash = keccak([]byte{0x80})

	// EmptyCodeHash is keccak of zero-length code.
	EmptyCodeHash = keccak(nil)

	// EmptyOmmersHash is keccak(rlp([])), the ommers commitment of an
	// ommerless block.
	EmptyOmmersHash = keccak([]byte{0xc0})
)
