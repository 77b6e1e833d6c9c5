// Package params holds the protocol constants, the flat hardfork
// configuration record, and the named chain definitions.
package params

import "math/big"

// Protocol constants that never changed across hardforks. Anything a
// hardfork ever repriced lives in Config instead.
const (
	// StackLimit is the maximum depth of the EVM word stack.
	StackLimit = 1024

	// CallDepthLimit is the maximum nesting of message calls and creates.
	CallDepthLimit = 1024

	// CallStipend is the free gas handed to the callee of a value-bearing
	// call so it can at least log the payment.
	CallStipend = 2300

	// WordSize is the EVM word width in bytes.
	WordSize = 32

	// MemoryGasLinear and MemoryGasQuadDivisor parameterize the memory
	// expansion cost: words*3 + words*words/512.
	MemoryGasLinear      = 3
	MemoryGasQuadDivisor = 512

	// KeccakGas and KeccakWordGas price the KECCAK256 opcode.
	KeccakGas     = 30
	KeccakWordGas = 6

	// CopyWordGas prices the per-word component of the *COPY opcodes.
	CopyWordGas = 3

	// LogGas, LogTopicGas and LogDataGas price the LOG0..LOG4 opcodes.
	LogGas      = 375
	LogTopicGas = 375
	LogDataGas  = 8

	// ExpGas is the static part of the EXP opcode cost.
	ExpGas = 10

	// JumpdestGas prices the JUMPDEST marker itself.
	JumpdestGas = 1

	// CreateGas is the static cost of the CREATE/CREATE2 opcodes.
	CreateGas = 32000

	// CreateDataGas is charged per byte of deployed contract code.
	CreateDataGas = 200

	// CallValueTransferGas is the surcharge for a value-bearing call.
	CallValueTransferGas = 9000

	// CallNewAccountGas is the surcharge for calling into a non-existent
	// account with value.
	CallNewAccountGas = 25000

	// QuickStepGas through SlowStepGas are the static price tiers of the
	// simple opcodes.
	QuickStepGas   = 2
	FastestStepGas = 3
	FastStepGas    = 5
	MidStepGas     = 8
	SlowStepGas    = 10

	// SstoreSetGas, SstoreResetGas and SstoreClearRefund are the legacy
	// (pre-net-metering) storage prices.
	SstoreSetGas      = 20000
	SstoreResetGas    = 5000
	SstoreClearRefund = 15000

	// Net-metered SSTORE (EIP-2200) prices.
	SstoreSentryGas       = 2300
	NetSstoreNoopGas      = 800
	NetSstoreInitGas      = 20000
	NetSstoreCleanGas     = 5000
	NetSstoreDirtyGas     = 800
	NetSstoreClearRefund  = 15000
	NetSstoreResetRefund  = 4200
	NetSstoreResetClearRefund = 19200

	// SelfdestructRefund is credited when a contract self-destructs.
	SelfdestructRefund = 24000

	// GasLimitBoundDivisor bounds the per-block gas limit drift.
	GasLimitBoundDivisor = 1024

	// MinGasLimit is the floor of the block gas limit.
	MinGasLimit = 5000

	// MaximumExtraDataSize bounds the header extra-data field.
	MaximumExtraDataSize = 32

	// BlockHashWindow is how many ancestors the BLOCKHASH opcode reaches.
	BlockHashWindow = 256
)

// Difficulty adjustment constants.
var (
	// MinimumDifficulty is the floor the adjustment never crosses.
	MinimumDifficulty = big.NewInt(131072)

	// DifficultyBoundDivisor bounds each adjustment step to
	// parent_difficulty / 2048.
	DifficultyBoundDivisor = big.NewInt(2048)

	// DifficultyBombPeriod is the block count per doubling of the
	// ice-age term.
	DifficultyBombPeriod = big.NewInt(100000)
)

// Ether denominations in wei.
var (
	Wei   = big.NewInt(1)
	GWei  = big.NewInt(1e9)
	Ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)
