package types

import (
	"math/big"
	"sync/atomic"

	"github.com/eth2030/eth2030/rlp"
)

// Block is (header, transactions, ommers).
type Block struct {
	header *Header
	txs    Transactions
	ommers []*Header

	hash atomic.Pointer[Hash]
}

// NewBlock assembles a block from its parts. The header is copied; the
// caller is responsible for its commitment fields (TxRoot, OmmersHash,
// ReceiptRoot) being consistent.
func NewBlock(header *Header, txs Transactions, ommers []*Header) *Block {
	b := &Block{
		header: header.Copy(),
		txs:    txs,
	}
	for _, o := range ommers {
		b.ommers = append(b.ommers, o.Copy())
	}
	return b
}

func (b *Block) Header() *Header          { return b.header.Copy() }
func (b *Block) Transactions() Transactions { return b.txs }
func (b *Block) Ommers() []*Header        { return b.ommers }

func (b *Block) ParentHash() Hash    { return b.header.ParentHash }
func (b *Block) Number() *big.Int    { return new(big.Int).Set(b.header.Number) }
func (b *Block) NumberU64() uint64   { return b.header.NumberU64() }
func (b *Block) Difficulty() *big.Int { return new(big.Int).Set(b.header.Difficulty) }
func (b *Block) GasLimit() uint64    { return b.header.GasLimit }
func (b *Block) GasUsed() uint64     { return b.header.GasUsed }
func (b *Block) Time() uint64        { return b.header.Time }
func (b *Block) Beneficiary() Address { return b.header.Beneficiary }
func (b *Block) StateRoot() Hash     { return b.header.StateRoot }

// Hash returns the header hash, cached after first use.
func (b *Block) Hash() Hash {
	if h := b.hash.Load(); h != nil {
		return *h
	}
	h := b.header.Hash()
	b.hash.Store(&h)
	return h
}

// blockWire is the canonical three-element block encoding.
type blockWire struct {
	Header *Header
	Txs    []txPayload
	Ommers []*Header
}

// EncodeRLP returns the canonical block encoding.
func (b *Block) EncodeRLP() ([]byte, error) {
	return rlp.EncodeToBytes(&blockWire{
		Header: b.header,
		Txs:    b.txs.payloads(),
		Ommers: b.ommers,
	})
}

// DecodeBlock parses a canonical block encoding.
func DecodeBlock(data []byte) (*Block, error) {
	var w blockWire
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return nil, err
	}
	return &Block{
		header: w.Header,
		txs:    transactionsFromPayloads(w.Txs),
		ommers: w.Ommers,
	}, nil
}

// OmmersCommitment hashes a set of ommer headers for the header field.
func OmmersCommitment(ommers []*Header) Hash {
	if len(ommers) == 0 {
		return EmptyOmmersHash
	}
	return rlpHash(ommers)
}
