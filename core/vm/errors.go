package vm

import "errors"

// Exceptional halts consume all gas of the failing frame and discard its
// state changes. ErrRevert is the one exception: it discards state but
// refunds the remaining gas and surfaces the return data.
var (
	ErrOutOfGas            = errors.New("evm: out of gas")
	ErrStackUnderflow      = errors.New("evm: stack underflow")
	ErrStackOverflow       = errors.New("evm: stack overflow")
	ErrInvalidJump         = errors.New("evm: invalid jump destination")
	ErrInvalidOpcode       = errors.New("evm: invalid opcode")
	ErrWriteProtection     = errors.New("evm: state write inside static call")
	ErrDepth               = errors.New("evm: call depth limit reached")
	ErrInsufficientBalance = errors.New("evm: insufficient balance for transfer")
	ErrCodeSizeLimit       = errors.New("evm: deployed code exceeds size limit")
	ErrCodeStartsWithEF    = errors.New("evm: deployed code begins with 0xEF")
	ErrContractCollision   = errors.New("evm: contract address collision")
	ErrGasUintOverflow     = errors.New("evm: gas computation overflow")
	ErrReturnDataOutOfBounds = errors.New("evm: return data access out of bounds")

	// ErrRevert marks the intentional REVERT halt.
	ErrRevert = errors.New("evm: execution reverted")
)
