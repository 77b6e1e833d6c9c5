package types

import (
	"math/big"
)

// BlockNonce is the 8-byte proof-of-work nonce.
type BlockNonce [8]byte

// Header carries the consensus fields of a block.
type Header struct {
	ParentHash  Hash
	OmmersHash  Hash
	Beneficiary Address
	StateRoot   Hash
	TxRoot      Hash
	ReceiptRoot Hash
	Bloom       Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   Hash
	Nonce       BlockNonce
}

// Hash returns keccak(rlp(header)), the block identity.
func (h *Header) Hash() Hash {
	return rlpHash(h)
}

// NumberU64 returns the block number as uint64; nil means zero.
func (h *Header) NumberU64() uint64 {
	if h.Number == nil {
		return 0
	}
	return h.Number.Uint64()
}

// Copy returns a deep copy of the header.
func (h *Header) Copy() *Header {
	cp := *h
	if h.Difficulty != nil {
		cp.Difficulty = new(big.Int).Set(h.Difficulty)
	}
	if h.Number != nil {
		cp.Number = new(big.Int).Set(h.Number)
	}
	cp.Extra = append([]byte(nil), h.Extra...)
	return &cp
}
