package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/params"
)

// Ommer inclusion bounds are protocol constants, not configuration.
const (
	// MaxOmmerCount is the most ommers one block may carry.
	MaxOmmerCount = 2

	// MaxOmmerDepth is how many generations an ommer may sit below the
	// including block; its parent is one of the block's MaxOmmerDepth+1
	// nearest ancestors.
	MaxOmmerDepth = 6
)

var (
	ErrTooManyOmmers   = errors.New("core: too many ommers")
	ErrDuplicateOmmer  = errors.New("core: duplicate ommer")
	ErrOmmerIsAncestor = errors.New("core: ommer is an ancestor")
	ErrDanglingOmmer   = errors.New("core: ommer's parent is not a recent ancestor")
)

// VerifyOmmers checks a block's ommer headers: at most two, none seen
// before (in the block or along the recent chain), none an ancestor
// itself, and each the child of one of the block's MaxOmmerDepth+1
// nearest ancestors. getBlock returns nil for unknown hashes.
func VerifyOmmers(block *types.Block, getBlock func(types.Hash) *types.Block) error {
	ommers := block.Ommers()
	if len(ommers) == 0 {
		return nil
	}
	if len(ommers) > MaxOmmerCount {
		return fmt.Errorf("%w: %d > %d", ErrTooManyOmmers, len(ommers), MaxOmmerCount)
	}

	// Collect the ancestor window and every ommer already included in it.
	ancestors := make(map[types.Hash]struct{})
	included := make(map[types.Hash]struct{})
	cursor := block.ParentHash()
	for i := 0; i < MaxOmmerDepth+1; i++ {
		ancestor := getBlock(cursor)
		if ancestor == nil {
			break
		}
		ancestors[ancestor.Hash()] = struct{}{}
		for _, o := range ancestor.Ommers() {
			included[o.Hash()] = struct{}{}
		}
		cursor = ancestor.ParentHash()
	}

	seen := make(map[types.Hash]struct{})
	for _, ommer := range ommers {
		hash := ommer.Hash()
		if _, dup := seen[hash]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOmmer, hash.Hex())
		}
		seen[hash] = struct{}{}

		if _, dup := included[hash]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateOmmer, hash.Hex())
		}
		if _, isAncestor := ancestors[hash]; isAncestor || hash == block.Hash() {
			return fmt.Errorf("%w: %s", ErrOmmerIsAncestor, hash.Hex())
		}
		if _, kin := ancestors[ommer.ParentHash]; !kin {
			return fmt.Errorf("%w: %s", ErrDanglingOmmer, hash.Hex())
		}
	}
	return nil
}

// AccumulateRewards pays the block reward to the beneficiary plus the
// ommer bonuses: each ommer's miner earns the reward scaled by its
// distance from the including block, and the beneficiary collects 1/32
// of the reward per ommer.
func AccumulateRewards(cfg *params.Config, statedb *state.StateDB, header *types.Header, ommers []*types.Header) {
	blockReward := cfg.BlockReward
	if blockReward == nil || blockReward.Sign() == 0 {
		return
	}

	big8 := big.NewInt(8)
	big32 := big.NewInt(32)

	total := new(big.Int).Set(blockReward)
	for _, ommer := range ommers {
		// ommer reward = reward * (8 + ommer.number − block.number) / 8
		r := new(big.Int).Add(ommer.Number, big8)
		r.Sub(r, header.Number)
		r.Mul(r, blockReward)
		r.Div(r, big8)
		if r.Sign() > 0 {
			statedb.AddBalance(ommer.Beneficiary, r)
		}
		total.Add(total, new(big.Int).Div(blockReward, big32))
	}
	statedb.AddBalance(header.Beneficiary, total)
}
