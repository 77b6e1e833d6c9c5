package params

import "math/big"

// Chain is a named-chain record: identity, fork activation heights, and
// the genesis parameters. Loading is purely declarative; the block
// validator reaches the fork rules through ConfigAt.
type Chain struct {
	Name      string
	ChainID   *big.Int
	NetworkID uint64

	// ForkBlocks maps hardfork name to its activation height. Forks
	// absent from the map never activate on this chain.
	ForkBlocks map[string]uint64

	// Genesis parameters.
	GenesisGasLimit    uint64
	GenesisDifficulty  *big.Int
	GenesisTimestamp   uint64
	GenesisExtraData   []byte
}

// ForkAt returns the name of the most recent hardfork active at the
// given block number.
func (ch *Chain) ForkAt(number uint64) string {
	active := Frontier
	for _, name := range forkOrder {
		height, scheduled := ch.ForkBlocks[name]
		if scheduled && height <= number {
			active = name
		}
	}
	return active
}

// ConfigAt returns the flat hardfork configuration governing the given
// block number.
func (ch *Chain) ConfigAt(number uint64) *Config {
	return ForkConfig(ch.ForkAt(number))
}

// ActivationBlock returns the height at which the named fork activates,
// and whether it is scheduled at all.
func (ch *Chain) ActivationBlock(name string) (uint64, bool) {
	h, ok := ch.ForkBlocks[name]
	return h, ok
}

// MainnetChain is the Ethereum main network with its historical
// activation heights.
var MainnetChain = &Chain{
	Name:      "mainnet",
	ChainID:   big.NewInt(1),
	NetworkID: 1,
	ForkBlocks: map[string]uint64{
		Frontier:         0,
		Homestead:        1_150_000,
		TangerineWhistle: 2_463_000,
		SpuriousDragon:   2_675_000,
		Byzantium:        4_370_000,
		Constantinople:   7_280_000,
		Petersburg:       7_280_000,
		Istanbul:         9_069_000,
		MuirGlacier:      9_200_000,
		London:           12_965_000,
	},
	GenesisGasLimit:   5000,
	GenesisDifficulty: big.NewInt(17_179_869_184),
}

// AllForksChain activates every known fork at genesis. It is the default
// for tests and development chains.
var AllForksChain = &Chain{
	Name:      "allforks",
	ChainID:   big.NewInt(1337),
	NetworkID: 1337,
	ForkBlocks: func() map[string]uint64 {
		m := make(map[string]uint64, len(forkOrder))
		for _, f := range forkOrder {
			m[f] = 0
		}
		return m
	}(),
	GenesisGasLimit:   10_000_000,
	GenesisDifficulty: new(big.Int).Set(MinimumDifficulty),
}

// SingleForkChain pins every block of a chain to one named hardfork,
// which is how consensus test vectors select their rule set.
func SingleForkChain(fork string, chainID *big.Int) *Chain {
	if !ForkKnown(fork) {
		return nil
	}
	blocks := make(map[string]uint64)
	idx := forkIndex(fork)
	for i := 0; i <= idx; i++ {
		blocks[forkOrder[i]] = 0
	}
	return &Chain{
		Name:              "single-" + fork,
		ChainID:           chainID,
		NetworkID:         chainID.Uint64(),
		ForkBlocks:        blocks,
		GenesisGasLimit:   10_000_000,
		GenesisDifficulty: new(big.Int).Set(MinimumDifficulty),
	}
}
