// Package crypto provides the two primitives the state-transition core
// consumes: Keccak-256 hashing and secp256k1 signatures with public-key
// recovery.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/eth2030/eth2030/core/types"
)

// Keccak256 returns the legacy Keccak-256 digest of the concatenation of
// the inputs.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash is Keccak256 returning a typed hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
