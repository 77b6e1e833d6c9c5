package params

import "math/big"

// Hardfork names, in activation order.
const (
	Frontier         = "Frontier"
	Homestead        = "Homestead"
	TangerineWhistle = "TangerineWhistle"
	SpuriousDragon   = "SpuriousDragon"
	Byzantium        = "Byzantium"
	Constantinople   = "Constantinople"
	Petersburg       = "Petersburg"
	Istanbul         = "Istanbul"
	MuirGlacier      = "MuirGlacier"
	London           = "London"
)

// forkOrder lists every known hardfork, oldest first. A fork's config is
// built by replaying each delta up to and including that fork.
var forkOrder = []string{
	Frontier, Homestead, TangerineWhistle, SpuriousDragon,
	Byzantium, Constantinople, Petersburg, Istanbul, MuirGlacier, London,
}

// Difficulty formula selectors.
type DifficultyRule int

const (
	DifficultyFrontier  DifficultyRule = iota // step by ±parent/2048 on 13s boundary
	DifficultyHomestead                       // continuous, delta/10
	DifficultyEIP100                          // delta/9 with ommer factor, delayed bomb
)

// Config is the flat hardfork record: one field per rule a fork ever
// changed, filled in completely for every fork by the builder below.
// Nothing consults "the previous fork" at run time.
type Config struct {
	Name string

	// Opcode and precompile availability.
	HasDelegateCall   bool // Homestead
	HasRevert         bool // Byzantium, with RETURNDATASIZE/RETURNDATACOPY
	HasStaticCall     bool // Byzantium
	HasShiftOps       bool // Constantinople
	HasExtCodeHash    bool // Constantinople
	HasCreate2        bool // Constantinople
	HasChainOps       bool // Istanbul: CHAINID, SELFBALANCE
	HasModExp         bool // Byzantium precompile 0x05

	// Code and signature limits.
	MaxCodeSize        int  // 0 means unlimited (pre-SpuriousDragon)
	StrictSignatureS   bool // EIP-2: s must be in the lower half order
	ReplayProtection   bool // EIP-155 chain-id signatures accepted
	RejectCodePrefixEF bool // deployed code may not begin with 0xEF

	// Repriced operations.
	TxGas               uint64
	TxCreateGas         uint64 // extra intrinsic gas for contract creation
	TxDataZeroGas       uint64
	TxDataNonZeroGas    uint64
	BalanceGas          uint64
	ExtcodeSizeGas      uint64
	ExtcodeCopyGas      uint64
	ExtcodeHashGas      uint64
	SloadGas            uint64
	CallGas             uint64
	ExpByteGas          uint64
	SelfdestructGas     uint64
	SelfdestructNewGas  uint64 // surcharge when the heir does not exist

	// Storage metering style.
	NetSstore bool // EIP-1283/2200 net gas metering

	// Behavioral toggles.
	CreatorNonceStartsAtOne bool // EIP-161: created contracts begin at nonce 1
	ClearEmptyAccounts      bool // EIP-158/161: touched empty accounts die
	TailCallGasRule         bool // EIP-150: forward at most 63/64 of remaining gas

	// Settlement.
	RefundQuotient uint64   // gas_used divisor capping refunds (2, then 5)
	BlockReward    *big.Int // static mining reward in wei

	// Consensus.
	Difficulty DifficultyRule
	BombDelay  *big.Int // subtracted from the bomb's block number
	SealPoW    bool     // whether the seal must satisfy proof-of-work
}

// forkDeltas maps each fork to the mutation it applies on top of its
// predecessor. This is the only place fall-back ordering exists; the
// emitted Config is flat.
var forkDeltas = map[string]func(*Config){
	Frontier: func(c *Config) {
		c.TxGas = 21000
		c.TxCreateGas = 0 // creation costs the same as a call at Frontier
		c.TxDataZeroGas = 4
		c.TxDataNonZeroGas = 68
		c.BalanceGas = 20
		c.ExtcodeSizeGas = 20
		c.ExtcodeCopyGas = 20
		c.SloadGas = 50
		c.CallGas = 40
		c.ExpByteGas = 10
		c.SelfdestructGas = 0
		c.RefundQuotient = 2
		c.BlockReward = new(big.Int).Mul(big.NewInt(5), Ether)
		c.Difficulty = DifficultyFrontier
		c.BombDelay = new(big.Int)
		c.SealPoW = true
	},
	Homestead: func(c *Config) {
		c.HasDelegateCall = true
		c.StrictSignatureS = true
		c.TxCreateGas = 32000
		c.Difficulty = DifficultyHomestead
	},
	TangerineWhistle: func(c *Config) { // EIP-150
		c.BalanceGas = 400
		c.ExtcodeSizeGas = 700
		c.ExtcodeCopyGas = 700
		c.SloadGas = 200
		c.CallGas = 700
		c.SelfdestructGas = 5000
		c.SelfdestructNewGas = 25000
		c.TailCallGasRule = true
	},
	SpuriousDragon: func(c *Config) { // EIP-155/158/160/170
		c.ReplayProtection = true
		c.ClearEmptyAccounts = true
		c.CreatorNonceStartsAtOne = true
		c.MaxCodeSize = 24576
		c.ExpByteGas = 50
	},
	Byzantium: func(c *Config) {
		c.HasRevert = true
		c.HasStaticCall = true
		c.HasModExp = true
		c.BlockReward = new(big.Int).Mul(big.NewInt(3), Ether)
		c.Difficulty = DifficultyEIP100
		c.BombDelay = big.NewInt(3_000_000)
	},
	Constantinople: func(c *Config) {
		c.HasShiftOps = true
		c.HasExtCodeHash = true
		c.ExtcodeHashGas = 400
		c.HasCreate2 = true
		c.NetSstore = true // EIP-1283
		c.BlockReward = new(big.Int).Mul(big.NewInt(2), Ether)
		c.BombDelay = big.NewInt(5_000_000)
	},
	Petersburg: func(c *Config) {
		c.NetSstore = false // EIP-1283 withdrawn
	},
	Istanbul: func(c *Config) { // EIP-1884/2200/1344
		c.HasChainOps = true
		c.NetSstore = true // EIP-2200
		c.BalanceGas = 700
		c.SloadGas = 800
		c.ExtcodeHashGas = 700
	},
	MuirGlacier: func(c *Config) {
		c.BombDelay = big.NewInt(9_000_000)
	},
	London: func(c *Config) { // the slice of London this core carries
		c.RefundQuotient = 5       // EIP-3529
		c.RejectCodePrefixEF = true // EIP-3541
		c.BombDelay = big.NewInt(9_700_000)
	},
}

// forkIndex returns the position of a fork in forkOrder, or -1.
func forkIndex(name string) int {
	for i, f := range forkOrder {
		if f == name {
			return i
		}
	}
	return -1
}

// ForkKnown reports whether name is a recognized hardfork.
func ForkKnown(name string) bool {
	return forkIndex(name) >= 0
}

// ForkConfig builds the flat configuration for the named hardfork by
// replaying every delta up to and including it. Unknown names yield nil.
func ForkConfig(name string) *Config {
	idx := forkIndex(name)
	if idx < 0 {
		return nil
	}
	c := &Config{Name: name}
	for i := 0; i <= idx; i++ {
		forkDeltas[forkOrder[i]](c)
	}
	return c
}

// AtLeast reports whether the config's fork is at or past other in the
// activation order.
func (c *Config) AtLeast(other string) bool {
	return forkIndex(c.Name) >= forkIndex(other)
}
