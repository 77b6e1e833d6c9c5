package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/eth2030/params"
)

// Stack is the EVM word stack: up to 1024 256-bit values, top at the
// end of the slice.
type Stack struct {
	items []uint256.Int
}

func newStack() *Stack {
	return &Stack{items: make([]uint256.Int, 0, 16)}
}

func (st *Stack) len() int { return len(st.items) }

func (st *Stack) push(v *uint256.Int) {
	st.items = append(st.items, *v)
}

func (st *Stack) pop() uint256.Int {
	v := st.items[len(st.items)-1]
	st.items = st.items[:len(st.items)-1]
	return v
}

// peek returns the n-th word from the top (0 is the top) for in-place
// mutation.
func (st *Stack) peek(n int) *uint256.Int {
	return &st.items[len(st.items)-1-n]
}

func (st *Stack) swap(n int) {
	top := len(st.items) - 1
	st.items[top], st.items[top-n] = st.items[top-n], st.items[top]
}

func (st *Stack) dup(n int) {
	st.push(st.peek(n - 1))
}

// require reports whether the stack can pop in words and push out more
// without over- or underflowing.
func (st *Stack) require(in, out int) error {
	if len(st.items) < in {
		return ErrStackUnderflow
	}
	if len(st.items)-in+out > params.StackLimit {
		return ErrStackOverflow
	}
	return nil
}
