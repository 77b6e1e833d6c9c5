package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/log"
	"github.com/eth2030/eth2030/metrics"
	"github.com/eth2030/eth2030/params"
	"github.com/eth2030/eth2030/trie"
)

var (
	// ErrKnownBlock marks a block the tree already holds.
	ErrKnownBlock = errors.New("core: block already known")
)

// blockEntry is one node of the block graph with its derived data.
type blockEntry struct {
	block     *types.Block
	totalDiff *big.Int
	receipts  types.Receipts
}

// BlockTree is the multi-branch block graph: every valid block links
// under its parent, and the best block is elected by cumulative
// difficulty with ties broken by lower number, then lexicographic hash.
// Consumers reading the canonical mapping see an atomic switch at each
// reorganization.
type BlockTree struct {
	mu sync.RWMutex

	chain     *params.Chain
	validator *Validator

	nodes  *trie.NodeDatabase
	rawKV  *trie.MemoryKV

	entries   map[types.Hash]*blockEntry
	children  map[types.Hash][]types.Hash
	canonical map[uint64]types.Hash // number → hash on the best chain
	best      types.Hash
	genesis   types.Hash

	logger *log.Logger
}

// NewBlockTree roots a tree at an executed genesis.
func NewBlockTree(chain *params.Chain, seal SealVerifier, gen *Genesis) (*BlockTree, error) {
	nodes := trie.NewNodeDatabase(trie.NewMemoryKV())
	rawKV := trie.NewMemoryKV()

	genesisBlock, err := gen.Commit(nodes, rawKV)
	if err != nil {
		return nil, err
	}

	bt := &BlockTree{
		chain:     chain,
		validator: NewValidator(chain, seal),
		nodes:     nodes,
		rawKV:     rawKV,
		entries:   make(map[types.Hash]*blockEntry),
		children:  make(map[types.Hash][]types.Hash),
		canonical: make(map[uint64]types.Hash),
		logger:    log.New(0).Named("blocktree"),
	}

	hash := genesisBlock.Hash()
	bt.entries[hash] = &blockEntry{
		block:     genesisBlock,
		totalDiff: new(big.Int).Set(genesisBlock.Difficulty()),
	}
	bt.best = hash
	bt.genesis = hash
	bt.canonical[0] = hash
	return bt, nil
}

// Genesis returns the genesis block.
func (bt *BlockTree) Genesis() *types.Block {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.entries[bt.genesis].block
}

// Best returns the current best block.
func (bt *BlockTree) Best() *types.Block {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.entries[bt.best].block
}

// TotalDifficulty returns the cumulative difficulty of a known block.
func (bt *BlockTree) TotalDifficulty(hash types.Hash) *big.Int {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	if e, ok := bt.entries[hash]; ok {
		return new(big.Int).Set(e.totalDiff)
	}
	return nil
}

// GetBlock returns a block by hash, canonical or not.
func (bt *BlockTree) GetBlock(hash types.Hash) *types.Block {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	if e, ok := bt.entries[hash]; ok {
		return e.block
	}
	return nil
}

// GetReceipts returns the receipts of a known block.
func (bt *BlockTree) GetReceipts(hash types.Hash) types.Receipts {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	if e, ok := bt.entries[hash]; ok {
		return e.receipts
	}
	return nil
}

// CanonicalBlock returns the block at the given height on the best
// chain.
func (bt *BlockTree) CanonicalBlock(number uint64) *types.Block {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	if hash, ok := bt.canonical[number]; ok {
		return bt.entries[hash].block
	}
	return nil
}

// StateAt opens the world state as of the given block.
func (bt *BlockTree) StateAt(hash types.Hash) (*state.StateDB, error) {
	bt.mu.RLock()
	entry, ok := bt.entries[hash]
	bt.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownParent
	}
	store := trie.NewDatabaseTrieWithRaw(entry.block.StateRoot(), bt.nodes, bt.rawKV)
	return state.New(store), nil
}

// AddBlock validates, executes and links a candidate block, advancing
// the best pointer when its cumulative difficulty wins. Protocol errors
// reject the block with the reason.
func (bt *BlockTree) AddBlock(block *types.Block) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	hash := block.Hash()
	if _, known := bt.entries[hash]; known {
		return ErrKnownBlock
	}
	parent, ok := bt.entries[block.ParentHash()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParent, block.ParentHash().Hex())
	}

	parentHeader := parent.block.Header()
	header := block.Header()
	if err := bt.validator.ValidateHeader(header, parentHeader); err != nil {
		return err
	}
	if err := bt.validator.ValidateBody(block); err != nil {
		return err
	}
	if err := VerifyOmmers(block, func(h types.Hash) *types.Block {
		if e, ok := bt.entries[h]; ok {
			return e.block
		}
		return nil
	}); err != nil {
		return err
	}

	// Execute against the parent's state.
	store := trie.NewDatabaseTrieWithRaw(parent.block.StateRoot(), bt.nodes, bt.rawKV)
	statedb := state.New(store)
	receipts, err := bt.validator.Process(block, statedb, bt.ancestorHashFn(parent.block))
	if err != nil {
		return err
	}
	stateRoot, err := statedb.Commit()
	if err != nil {
		return err
	}
	if err := bt.validator.ValidateExecuted(block, stateRoot, receipts); err != nil {
		return err
	}

	// Link the block and elect the best chain.
	entry := &blockEntry{
		block:     block,
		totalDiff: new(big.Int).Add(parent.totalDiff, block.Difficulty()),
		receipts:  receipts,
	}
	bt.entries[hash] = entry
	bt.children[block.ParentHash()] = append(bt.children[block.ParentHash()], hash)
	metrics.Default.Counter("chain/blocks/linked").Inc()

	if bt.betterThanBest(entry) {
		prev := bt.best
		bt.best = hash
		bt.rebuildCanonical()
		if block.ParentHash() != prev {
			metrics.Default.Counter("chain/reorgs").Inc()
			bt.logger.Info("chain reorganized",
				"number", block.NumberU64(), "hash", hash.Hex(),
				"prev", prev.Hex())
		}
	}
	metrics.Default.Gauge("chain/height").Set(int64(bt.entries[bt.best].block.NumberU64()))
	return nil
}

// betterThanBest applies the election rule: greater cumulative
// difficulty wins; ties prefer the lower block number, then the
// lexicographically smaller hash.
func (bt *BlockTree) betterThanBest(candidate *blockEntry) bool {
	best := bt.entries[bt.best]
	switch candidate.totalDiff.Cmp(best.totalDiff) {
	case 1:
		return true
	case -1:
		return false
	}
	if c, b := candidate.block.NumberU64(), best.block.NumberU64(); c != b {
		return c < b
	}
	ch, bh := candidate.block.Hash(), best.block.Hash()
	return string(ch[:]) < string(bh[:])
}

// rebuildCanonical rewrites the number→hash mapping to follow the best
// block back to genesis, dropping stale higher numbers. Readers see the
// switch atomically under the tree lock.
func (bt *BlockTree) rebuildCanonical() {
	fresh := make(map[uint64]types.Hash)
	cursor := bt.best
	for {
		entry := bt.entries[cursor]
		fresh[entry.block.NumberU64()] = cursor
		if cursor == bt.genesis {
			break
		}
		cursor = entry.block.ParentHash()
	}
	bt.canonical = fresh
}

// ancestorHashFn serves BLOCKHASH lookups along the branch the block
// extends, limited to the protocol's 256-ancestor window by the caller.
func (bt *BlockTree) ancestorHashFn(parent *types.Block) func(uint64) types.Hash {
	return func(number uint64) types.Hash {
		cursor := parent
		for cursor != nil {
			n := cursor.NumberU64()
			if n == number {
				return cursor.Hash()
			}
			if n < number || n == 0 {
				return types.Hash{}
			}
			entry, ok := bt.entries[cursor.ParentHash()]
			if !ok {
				return types.Hash{}
			}
			cursor = entry.block
		}
		return types.Hash{}
	}
}

// Config returns the chain definition the tree runs under.
func (bt *BlockTree) Config() *params.Chain { return bt.chain }
