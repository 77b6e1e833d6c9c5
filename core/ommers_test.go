package core

import (
	"errors"
	"math/big"
	"testing"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/params"
	"github.com/eth2030/eth2030/trie"
)

// ommerChain builds a linear chain of n+1 headers-only blocks and a
// lookup over them.
func ommerChain(n int) ([]*types.Block, func(types.Hash) *types.Block) {
	byHash := make(map[types.Hash]*types.Block)
	blocks := make([]*types.Block, 0, n+1)

	parent := types.Hash{}
	for i := 0; i <= n; i++ {
		header := &types.Header{
			ParentHash:  parent,
			OmmersHash:  types.EmptyOmmersHash,
			Beneficiary: types.BytesToAddress([]byte{byte(i + 1)}),
			Number:      big.NewInt(int64(i)),
			Time:        uint64(i * 13),
			Difficulty:  big.NewInt(131072),
			GasLimit:    8_000_000,
		}
		b := types.NewBlock(header, nil, nil)
		blocks = append(blocks, b)
		byHash[b.Hash()] = b
		parent = b.Hash()
	}
	return blocks, func(h types.Hash) *types.Block { return byHash[h] }
}

// siblingOf makes a header competing with the child of parent.
func siblingOf(parent *types.Block, height int64) *types.Header {
	return &types.Header{
		ParentHash:  parent.Hash(),
		OmmersHash:  types.EmptyOmmersHash,
		Beneficiary: types.BytesToAddress([]byte{0xee}),
		Number:      big.NewInt(height),
		Time:        uint64(height*13 + 1),
		Difficulty:  big.NewInt(131072),
		GasLimit:    8_000_000,
	}
}

func blockWithOmmers(parent *types.Block, ommers []*types.Header) *types.Block {
	header := &types.Header{
		ParentHash: parent.Hash(),
		OmmersHash: types.OmmersCommitment(ommers),
		Number:     new(big.Int).Add(parent.Number(), big.NewInt(1)),
		Time:       parent.Time() + 13,
		Difficulty: big.NewInt(131072),
		GasLimit:   8_000_000,
	}
	return types.NewBlock(header, nil, ommers)
}

func TestVerifyOmmersValid(t *testing.T) {
	blocks, getBlock := ommerChain(8)
	ommer := siblingOf(blocks[6], 7)
	block := blockWithOmmers(blocks[8], []*types.Header{ommer})
	if err := VerifyOmmers(block, getBlock); err != nil {
		t.Fatalf("valid ommer rejected: %v", err)
	}
}

func TestVerifyOmmersNone(t *testing.T) {
	blocks, getBlock := ommerChain(3)
	if err := VerifyOmmers(blockWithOmmers(blocks[3], nil), getBlock); err != nil {
		t.Fatalf("ommerless block rejected: %v", err)
	}
}

func TestVerifyOmmersTooMany(t *testing.T) {
	blocks, getBlock := ommerChain(8)
	ommers := []*types.Header{
		siblingOf(blocks[5], 6),
		siblingOf(blocks[6], 7),
		siblingOf(blocks[7], 8),
	}
	err := VerifyOmmers(blockWithOmmers(blocks[8], ommers), getBlock)
	if !errors.Is(err, ErrTooManyOmmers) {
		t.Fatalf("err = %v, want ErrTooManyOmmers", err)
	}
}

func TestVerifyOmmersDuplicateInBlock(t *testing.T) {
	blocks, getBlock := ommerChain(8)
	ommer := siblingOf(blocks[6], 7)
	err := VerifyOmmers(blockWithOmmers(blocks[8], []*types.Header{ommer, ommer}), getBlock)
	if !errors.Is(err, ErrDuplicateOmmer) {
		t.Fatalf("err = %v, want ErrDuplicateOmmer", err)
	}
}

func TestVerifyOmmersAncestorRejected(t *testing.T) {
	blocks, getBlock := ommerChain(8)
	err := VerifyOmmers(blockWithOmmers(blocks[8], []*types.Header{blocks[6].Header()}), getBlock)
	if !errors.Is(err, ErrOmmerIsAncestor) {
		t.Fatalf("err = %v, want ErrOmmerIsAncestor", err)
	}
}

func TestVerifyOmmersTooDeep(t *testing.T) {
	blocks, getBlock := ommerChain(10)
	ommer := siblingOf(blocks[1], 2) // nine generations back
	err := VerifyOmmers(blockWithOmmers(blocks[10], []*types.Header{ommer}), getBlock)
	if !errors.Is(err, ErrDanglingOmmer) {
		t.Fatalf("err = %v, want ErrDanglingOmmer", err)
	}
}

func TestVerifyOmmersAlreadyIncluded(t *testing.T) {
	blocks, getBlock := ommerChain(6)
	ommer := siblingOf(blocks[4], 5)
	withOmmer := blockWithOmmers(blocks[6], []*types.Header{ommer})

	lookup := func(h types.Hash) *types.Block {
		if h == withOmmer.Hash() {
			return withOmmer
		}
		return getBlock(h)
	}
	again := blockWithOmmers(withOmmer, []*types.Header{ommer})
	if err := VerifyOmmers(again, lookup); !errors.Is(err, ErrDuplicateOmmer) {
		t.Fatalf("err = %v, want ErrDuplicateOmmer", err)
	}
}

func TestAccumulateRewards(t *testing.T) {
	cfg := params.ForkConfig(params.Istanbul) // 2 ether reward
	statedb := state.New(trie.NewDatabaseTrie(types.Hash{}, trie.NewNodeDatabase(trie.NewMemoryKV())))

	beneficiary := types.BytesToAddress([]byte{0xaa})
	ommerMiner := types.BytesToAddress([]byte{0xbb})
	header := &types.Header{Number: big.NewInt(10), Beneficiary: beneficiary}
	ommer := &types.Header{Number: big.NewInt(9), Beneficiary: ommerMiner}

	AccumulateRewards(cfg, statedb, header, []*types.Header{ommer})

	reward := cfg.BlockReward

	// Depth-1 ommer: reward * 7/8.
	wantOmmer := new(big.Int).Div(new(big.Int).Mul(reward, big.NewInt(7)), big.NewInt(8))
	if got := statedb.GetBalance(ommerMiner); got.Cmp(wantOmmer) != 0 {
		t.Errorf("ommer miner = %v, want %v", got, wantOmmer)
	}
	// Beneficiary: full reward + 1/32 nephew bonus.
	wantMain := new(big.Int).Add(reward, new(big.Int).Div(reward, big.NewInt(32)))
	if got := statedb.GetBalance(beneficiary); got.Cmp(wantMain) != 0 {
		t.Errorf("beneficiary = %v, want %v", got, wantMain)
	}
}
