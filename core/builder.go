package core

import (
	"math/big"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/trie"
)

// BuildBlock assembles and fully executes a block on top of the tree's
// current best: transactions apply in the given order, the difficulty
// formula and all header commitments are filled in, and rewards are
// paid. The result passes AddBlock as-is (under a non-PoW seal
// verifier); a miner would still have to seal it.
func (bt *BlockTree) BuildBlock(beneficiary types.Address, txs types.Transactions, ommers []*types.Header, timeDelta uint64) (*types.Block, error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return bt.buildOn(bt.best, beneficiary, txs, ommers, timeDelta)
}

// BuildBlockOn is BuildBlock over an explicit parent, which is how
// competing branches are produced.
func (bt *BlockTree) BuildBlockOn(parentHash types.Hash, beneficiary types.Address, txs types.Transactions, ommers []*types.Header, timeDelta uint64) (*types.Block, error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if _, ok := bt.entries[parentHash]; !ok {
		return nil, ErrUnknownParent
	}
	return bt.buildOn(parentHash, beneficiary, txs, ommers, timeDelta)
}

func (bt *BlockTree) buildOn(parentHash types.Hash, beneficiary types.Address, txs types.Transactions, ommers []*types.Header, timeDelta uint64) (*types.Block, error) {
	parent := bt.entries[parentHash].block
	parentHeader := parent.Header()

	if timeDelta == 0 {
		timeDelta = 13
	}
	number := parent.NumberU64() + 1
	cfg := bt.chain.ConfigAt(number)

	header := &types.Header{
		ParentHash:  parent.Hash(),
		OmmersHash:  types.OmmersCommitment(ommers),
		Beneficiary: beneficiary,
		Number:      new(big.Int).SetUint64(number),
		GasLimit:    parentHeader.GasLimit,
		Time:        parentHeader.Time + timeDelta,
	}
	header.Difficulty = CalcDifficulty(cfg, header.Time, parentHeader)

	txRoot, err := DeriveTxRoot(txs)
	if err != nil {
		return nil, err
	}
	header.TxRoot = txRoot

	// Execute to derive the remaining commitments.
	store := trie.NewDatabaseTrieWithRaw(parent.StateRoot(), bt.nodes, bt.rawKV)
	statedb := state.New(store)

	candidate := types.NewBlock(header, txs, ommers)
	receipts, err := bt.validator.Process(candidate, statedb, bt.ancestorHashFn(parent))
	if err != nil {
		return nil, err
	}
	stateRoot, err := statedb.Commit()
	if err != nil {
		return nil, err
	}

	receiptRoot, err := DeriveReceiptRoot(receipts)
	if err != nil {
		return nil, err
	}
	header.StateRoot = stateRoot
	header.ReceiptRoot = receiptRoot
	header.GasUsed = receipts.GasUsedByBlock()
	header.Bloom = types.CreateBloom(receipts)

	return types.NewBlock(header, txs, ommers), nil
}
