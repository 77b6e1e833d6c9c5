package core

import (
	"errors"
	"fmt"
)

// ErrGasPoolExhausted is returned when a block cannot fit another
// transaction's gas.
var ErrGasPoolExhausted = errors.New("core: block gas pool exhausted")

// GasPool tracks the gas still available to transactions in one block.
type GasPool uint64

// NewGasPool starts a pool at the block gas limit.
func NewGasPool(limit uint64) *GasPool {
	gp := GasPool(limit)
	return &gp
}

// Reserve takes amount from the pool.
func (gp *GasPool) Reserve(amount uint64) error {
	if uint64(*gp) < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrGasPoolExhausted, uint64(*gp), amount)
	}
	*gp -= GasPool(amount)
	return nil
}

// Return gives unused gas back to the pool.
func (gp *GasPool) Return(amount uint64) {
	*gp += GasPool(amount)
}

// Remaining reports the gas left in the pool.
func (gp *GasPool) Remaining() uint64 {
	return uint64(*gp)
}
