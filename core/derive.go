package core

import (
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/rlp"
	"github.com/eth2030/eth2030/trie"
)

// deriveListRoot builds the index→item trie the header commits to for
// transactions and receipts: key i is rlp(i), value the item's
// canonical encoding.
func deriveListRoot(count int, encode func(i int) ([]byte, error)) (types.Hash, error) {
	t := trie.New()
	for i := 0; i < count; i++ {
		key, err := rlp.EncodeToBytes(uint64(i))
		if err != nil {
			return types.Hash{}, err
		}
		value, err := encode(i)
		if err != nil {
			return types.Hash{}, err
		}
		if err := t.Update(key, value); err != nil {
			return types.Hash{}, err
		}
	}
	return t.Hash(), nil
}

// DeriveTxRoot computes the transactions root of a block.
func DeriveTxRoot(txs types.Transactions) (types.Hash, error) {
	return deriveListRoot(len(txs), func(i int) ([]byte, error) {
		return txs[i].EncodeRLP()
	})
}

// DeriveReceiptRoot computes the receipts root of a block.
func DeriveReceiptRoot(receipts types.Receipts) (types.Hash, error) {
	return deriveListRoot(len(receipts), func(i int) ([]byte, error) {
		return receipts[i].EncodeRLP()
	})
}
