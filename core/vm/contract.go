package vm

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/eth2030/eth2030/core/types"
)

// frame is one level of the message-call stack: the executing account,
// its code, input, remaining gas and value, plus the jump-destination
// analysis of the code.
type frame struct {
	self   types.Address // executing address (storage context)
	caller types.Address
	value  *big.Int
	input  []byte
	code   []byte
	gas    uint64

	jumpdests bitmap

	// returnData holds the most recent child frame's output, the buffer
	// RETURNDATASIZE/RETURNDATACOPY read.
	returnData []byte

	// tmpCallGas carries the forwarded-gas amount from a call
	// instruction's gas function to its executor within one step.
	tmpCallGas uint64
}

func newFrame(caller, self types.Address, value *big.Int, input, code []byte, gas uint64) *frame {
	return &frame{
		self:   self,
		caller: caller,
		value:  value,
		input:  input,
		code:   code,
		gas:    gas,
	}
}

// useGas deducts amount, reporting whether enough remained.
func (f *frame) useGas(amount uint64) bool {
	if f.gas < amount {
		return false
	}
	f.gas -= amount
	return true
}

// opAt returns the opcode at pc, STOP past the end.
func (f *frame) opAt(pc uint64) OpCode {
	if pc >= uint64(len(f.code)) {
		return STOP
	}
	return OpCode(f.code[pc])
}

// validJumpdest reports whether dest is a JUMPDEST on an instruction
// boundary.
func (f *frame) validJumpdest(dest *uint256.Int) bool {
	n, overflow := dest.Uint64WithOverflow()
	if overflow || n >= uint64(len(f.code)) {
		return false
	}
	if OpCode(f.code[n]) != JUMPDEST {
		return false
	}
	if f.jumpdests == nil {
		f.jumpdests = analyzeJumpdests(f.code)
	}
	return f.jumpdests.isSet(n)
}

// bitmap marks code positions that are instruction starts holding a
// JUMPDEST.
type bitmap []byte

func (b bitmap) isSet(i uint64) bool {
	return b[i/8]&(1<<(i%8)) != 0
}

func (b bitmap) set(i uint64) {
	b[i/8] |= 1 << (i % 8)
}

// analyzeJumpdests walks the code once, skipping push immediates, and
// marks every reachable JUMPDEST.
func analyzeJumpdests(code []byte) bitmap {
	bits := make(bitmap, len(code)/8+1)
	for pc := uint64(0); pc < uint64(len(code)); pc++ {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			bits.set(pc)
		} else if op.IsPush() {
			pc += uint64(op - PUSH1 + 1)
		}
	}
	return bits
}
