package core

import (
	"math/big"
	"sort"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/params"
	"github.com/eth2030/eth2030/trie"
)

// GenesisAccount pre-allocates state for one address at block zero.
type GenesisAccount struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Storage map[types.Hash]types.Hash
}

// Genesis declares block zero: chain parameters plus the account
// pre-allocations.
type Genesis struct {
	Chain *params.Chain
	Alloc map[types.Address]GenesisAccount

	// Optional header overrides; zero values fall back to the chain
	// definition.
	Time       uint64
	ExtraData  []byte
	GasLimit   uint64
	Difficulty *big.Int
	Beneficiary types.Address
}

// Commit materializes the pre-allocations into a fresh state and
// assembles the genesis block over the given storage backends.
func (g *Genesis) Commit(nodes *trie.NodeDatabase, rawKV *trie.MemoryKV) (*types.Block, error) {
	store := trie.NewDatabaseTrieWithRaw(types.Hash{}, nodes, rawKV)
	statedb := state.New(store)

	for _, addr := range sortedAllocKeys(g.Alloc) {
		account := g.Alloc[addr]
		statedb.CreateAccount(addr)
		if account.Balance != nil {
			statedb.AddBalance(addr, account.Balance)
		}
		if account.Nonce != 0 {
			statedb.SetNonce(addr, account.Nonce)
		}
		if len(account.Code) > 0 {
			statedb.SetCode(addr, account.Code)
		}
		for key, value := range account.Storage {
			statedb.SetState(addr, key, value)
		}
	}
	statedb.Finalise(false)
	root, err := statedb.Commit()
	if err != nil {
		return nil, err
	}

	header := &types.Header{
		OmmersHash:  types.EmptyOmmersHash,
		Beneficiary: g.Beneficiary,
		StateRoot:   root,
		TxRoot:      trie.EmptyRoot,
		ReceiptRoot: trie.EmptyRoot,
		Difficulty:  g.Difficulty,
		Number:      new(big.Int),
		GasLimit:    g.GasLimit,
		Time:        g.Time,
		Extra:       g.ExtraData,
	}
	if header.Difficulty == nil {
		header.Difficulty = new(big.Int).Set(g.Chain.GenesisDifficulty)
	}
	if header.GasLimit == 0 {
		header.GasLimit = g.Chain.GenesisGasLimit
	}
	if header.Extra == nil {
		header.Extra = g.Chain.GenesisExtraData
	}
	if header.Time == 0 {
		header.Time = g.Chain.GenesisTimestamp
	}
	return types.NewBlock(header, nil, nil), nil
}

func sortedAllocKeys(alloc map[types.Address]GenesisAccount) []types.Address {
	keys := make([]types.Address, 0, len(alloc))
	for a := range alloc {
		keys = append(keys, a)
	}
	sort.Slice(keys, func(i, j int) bool {
		return string(keys[i][:]) < string(keys[j][:])
	})
	return keys
}
