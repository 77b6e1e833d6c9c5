package vm

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/params"
)

// execFunc runs one instruction. The returned bytes are only meaningful
// for halting instructions (RETURN/REVERT output).
type execFunc func(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error)

// --- arithmetic ---

func opAdd(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).Add(&a, st.peek(0))
	return nil, nil
}

func opMul(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).Mul(&a, st.peek(0))
	return nil, nil
}

func opSub(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).Sub(&a, st.peek(0))
	return nil, nil
}

func opDiv(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).Div(&a, st.peek(0))
	return nil, nil
}

func opSdiv(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).SDiv(&a, st.peek(0))
	return nil, nil
}

func opMod(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).Mod(&a, st.peek(0))
	return nil, nil
}

func opSmod(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).SMod(&a, st.peek(0))
	return nil, nil
}

func opAddmod(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a, b := st.pop(), st.pop()
	st.peek(0).AddMod(&a, &b, st.peek(0))
	return nil, nil
}

func opMulmod(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a, b := st.pop(), st.pop()
	st.peek(0).MulMod(&a, &b, st.peek(0))
	return nil, nil
}

func opExp(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	base := st.pop()
	st.peek(0).Exp(&base, st.peek(0))
	return nil, nil
}

func opSignExtend(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	back := st.pop()
	st.peek(0).ExtendSign(st.peek(0), &back)
	return nil, nil
}

// --- comparison and bitwise ---

func boolWord(w *uint256.Int, v bool) {
	if v {
		w.SetOne()
	} else {
		w.Clear()
	}
}

func opLt(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	boolWord(st.peek(0), a.Lt(st.peek(0)))
	return nil, nil
}

func opGt(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	boolWord(st.peek(0), a.Gt(st.peek(0)))
	return nil, nil
}

func opSlt(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	boolWord(st.peek(0), a.Slt(st.peek(0)))
	return nil, nil
}

func opSgt(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	boolWord(st.peek(0), a.Sgt(st.peek(0)))
	return nil, nil
}

func opEq(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	boolWord(st.peek(0), a.Eq(st.peek(0)))
	return nil, nil
}

func opIszero(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	boolWord(st.peek(0), st.peek(0).IsZero())
	return nil, nil
}

func opAnd(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).And(&a, st.peek(0))
	return nil, nil
}

func opOr(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).Or(&a, st.peek(0))
	return nil, nil
}

func opXor(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a := st.pop()
	st.peek(0).Xor(&a, st.peek(0))
	return nil, nil
}

func opNot(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	st.peek(0).Not(st.peek(0))
	return nil, nil
}

func opByte(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	idx := st.pop()
	st.peek(0).Byte(&idx)
	return nil, nil
}

func opShl(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	shift := st.pop()
	if shift.LtUint64(256) {
		st.peek(0).Lsh(st.peek(0), uint(shift.Uint64()))
	} else {
		st.peek(0).Clear()
	}
	return nil, nil
}

func opShr(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	shift := st.pop()
	if shift.LtUint64(256) {
		st.peek(0).Rsh(st.peek(0), uint(shift.Uint64()))
	} else {
		st.peek(0).Clear()
	}
	return nil, nil
}

func opSar(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	shift := st.pop()
	if shift.LtUint64(256) {
		st.peek(0).SRsh(st.peek(0), uint(shift.Uint64()))
	} else if st.peek(0).Sign() < 0 {
		st.peek(0).SetAllOne()
	} else {
		st.peek(0).Clear()
	}
	return nil, nil
}

// --- hashing ---

func opKeccak256(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	off, l := st.pop(), st.pop()
	data := mem.view(off.Uint64(), l.Uint64())
	var out uint256.Int
	out.SetBytes(crypto.Keccak256(data))
	st.push(&out)
	return nil, nil
}

// --- environment ---

func pushAddress(st *Stack, a types.Address) {
	var w uint256.Int
	w.SetBytes(a.Bytes())
	st.push(&w)
}

func pushHash(st *Stack, h types.Hash) {
	var w uint256.Int
	w.SetBytes(h.Bytes())
	st.push(&w)
}

func pushBig(st *Stack, v *big.Int) {
	var w uint256.Int
	if v != nil {
		w.SetFromBig(v)
	}
	st.push(&w)
}

func opAddress(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushAddress(st, f.self)
	return nil, nil
}

func opBalance(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	addr := types.BytesToAddress(st.peek(0).Bytes())
	st.peek(0).SetFromBig(evm.State.GetBalance(addr))
	return nil, nil
}

func opOrigin(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushAddress(st, evm.Tx.Origin)
	return nil, nil
}

func opCaller(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushAddress(st, f.caller)
	return nil, nil
}

func opCallValue(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushBig(st, f.value)
	return nil, nil
}

func opCallDataLoad(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	off := st.peek(0)
	var word [32]byte
	if o, overflow := off.Uint64WithOverflow(); !overflow && o < uint64(len(f.input)) {
		copy(word[:], f.input[o:])
	}
	st.peek(0).SetBytes(word[:])
	return nil, nil
}

func opCallDataSize(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(uint64(len(f.input)))
	st.push(&w)
	return nil, nil
}

// boundedSlice reads [off, off+l) from data, zero-padded past the end.
func boundedSlice(data []byte, off, l uint64) []byte {
	out := make([]byte, l)
	if off < uint64(len(data)) {
		copy(out, data[off:])
	}
	return out
}

func opCallDataCopy(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	memOff, srcOff, l := st.pop(), st.pop(), st.pop()
	if l.IsZero() {
		return nil, nil
	}
	src := uint64(len(f.input)) // saturate: anything past the end reads zero
	if o, overflow := srcOff.Uint64WithOverflow(); !overflow {
		src = o
	}
	mem.set(memOff.Uint64(), boundedSlice(f.input, src, l.Uint64()))
	return nil, nil
}

func opCodeSize(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(uint64(len(f.code)))
	st.push(&w)
	return nil, nil
}

func opCodeCopy(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	memOff, srcOff, l := st.pop(), st.pop(), st.pop()
	if l.IsZero() {
		return nil, nil
	}
	src := uint64(len(f.code))
	if o, overflow := srcOff.Uint64WithOverflow(); !overflow {
		src = o
	}
	mem.set(memOff.Uint64(), boundedSlice(f.code, src, l.Uint64()))
	return nil, nil
}

func opGasPrice(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushBig(st, evm.Tx.GasPrice)
	return nil, nil
}

func opExtCodeSize(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	addr := types.BytesToAddress(st.peek(0).Bytes())
	st.peek(0).SetUint64(uint64(evm.State.GetCodeSize(addr)))
	return nil, nil
}

func opExtCodeCopy(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	a, memOff, srcOff, l := st.pop(), st.pop(), st.pop(), st.pop()
	if l.IsZero() {
		return nil, nil
	}
	code := evm.State.GetCode(types.BytesToAddress(a.Bytes()))
	src := uint64(len(code))
	if o, overflow := srcOff.Uint64WithOverflow(); !overflow {
		src = o
	}
	mem.set(memOff.Uint64(), boundedSlice(code, src, l.Uint64()))
	return nil, nil
}

func opExtCodeHash(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	addr := types.BytesToAddress(st.peek(0).Bytes())
	if evm.State.Empty(addr) {
		st.peek(0).Clear()
	} else {
		st.peek(0).SetBytes(evm.State.GetCodeHash(addr).Bytes())
	}
	return nil, nil
}

func opReturnDataSize(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(uint64(len(f.returnData)))
	st.push(&w)
	return nil, nil
}

func opReturnDataCopy(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	memOff, srcOff, l := st.pop(), st.pop(), st.pop()
	if l.IsZero() {
		return nil, nil
	}
	src, overflow := srcOff.Uint64WithOverflow()
	if overflow {
		return nil, ErrReturnDataOutOfBounds
	}
	end := src + l.Uint64()
	if end < src || end > uint64(len(f.returnData)) {
		return nil, ErrReturnDataOutOfBounds
	}
	mem.set(memOff.Uint64(), f.returnData[src:end])
	return nil, nil
}

// --- block context ---

func opBlockhash(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	req := st.peek(0)
	num, overflow := req.Uint64WithOverflow()
	st.peek(0).Clear()
	if overflow || evm.Block.GetHash == nil {
		return nil, nil
	}
	current := evm.Block.Number.Uint64()
	if num < current && current-num <= params.BlockHashWindow {
		st.peek(0).SetBytes(evm.Block.GetHash(num).Bytes())
	}
	return nil, nil
}

func opCoinbase(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushAddress(st, evm.Block.Coinbase)
	return nil, nil
}

func opTimestamp(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(evm.Block.Time)
	st.push(&w)
	return nil, nil
}

func opNumber(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushBig(st, evm.Block.Number)
	return nil, nil
}

func opDifficulty(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushBig(st, evm.Block.Difficulty)
	return nil, nil
}

func opGasLimit(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(evm.Block.GasLimit)
	st.push(&w)
	return nil, nil
}

func opChainID(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushBig(st, evm.ChainID)
	return nil, nil
}

func opSelfBalance(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	pushBig(st, evm.State.GetBalance(f.self))
	return nil, nil
}

// --- stack, memory, storage ---

func opPop(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	st.pop()
	return nil, nil
}

func opMload(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	off := st.peek(0).Uint64()
	mem.word(off, st.peek(0))
	return nil, nil
}

func opMstore(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	off, val := st.pop(), st.pop()
	mem.setWord(off.Uint64(), &val)
	return nil, nil
}

func opMstore8(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	off, val := st.pop(), st.pop()
	mem.setByte(off.Uint64(), byte(val.Uint64()))
	return nil, nil
}

func opSload(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	slot := types.BytesToHash(st.peek(0).Bytes())
	st.peek(0).SetBytes(evm.State.GetState(f.self, slot).Bytes())
	return nil, nil
}

func opSstore(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	slot, val := st.pop(), st.pop()
	evm.State.SetState(f.self,
		types.BytesToHash(slot.Bytes()),
		types.BytesToHash(val.Bytes()))
	return nil, nil
}

func opJump(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	dest := st.pop()
	if !f.validJumpdest(&dest) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, nil
}

func opJumpi(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	dest, cond := st.pop(), st.pop()
	if cond.IsZero() {
		*pc++
		return nil, nil
	}
	if !f.validJumpdest(&dest) {
		return nil, ErrInvalidJump
	}
	*pc = dest.Uint64()
	return nil, nil
}

func opPc(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(*pc)
	st.push(&w)
	return nil, nil
}

func opMsize(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(uint64(mem.Len()))
	st.push(&w)
	return nil, nil
}

func opGas(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	var w uint256.Int
	w.SetUint64(f.gas)
	st.push(&w)
	return nil, nil
}

func opJumpdest(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	return nil, nil
}

// opPush reads n immediate bytes after the opcode.
func opPush(n int) execFunc {
	return func(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
		var w uint256.Int
		start := *pc + 1
		end := start + uint64(n)
		if start < uint64(len(f.code)) {
			avail := uint64(len(f.code))
			if end <= avail {
				w.SetBytes(f.code[start:end])
			} else {
				// Immediates past the code end read as zero.
				padded := make([]byte, n)
				copy(padded, f.code[start:])
				w.SetBytes(padded)
			}
		}
		st.push(&w)
		*pc += uint64(n)
		return nil, nil
	}
}

func opDup(n int) execFunc {
	return func(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
		st.dup(n)
		return nil, nil
	}
}

func opSwap(n int) execFunc {
	return func(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
		st.swap(n)
		return nil, nil
	}
}

func opLog(topics int) execFunc {
	return func(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
		off, l := st.pop(), st.pop()
		entry := &types.Log{Address: f.self}
		for i := 0; i < topics; i++ {
			t := st.pop()
			entry.Topics = append(entry.Topics, types.BytesToHash(t.Bytes()))
		}
		entry.Data = mem.snapshot(off.Uint64(), l.Uint64())
		evm.State.AddLog(entry)
		return nil, nil
	}
}

// --- halting ---

func opStop(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	return nil, nil
}

func opReturn(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	off, l := st.pop(), st.pop()
	return mem.snapshot(off.Uint64(), l.Uint64()), nil
}

func opRevert(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	off, l := st.pop(), st.pop()
	return mem.snapshot(off.Uint64(), l.Uint64()), ErrRevert
}

func opInvalid(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	return nil, ErrInvalidOpcode
}

func opSelfdestruct(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	heir := st.pop()
	heirAddr := types.BytesToAddress(heir.Bytes())
	balance := evm.State.GetBalance(f.self)
	// The balance moves first; destroying into yourself burns it.
	evm.State.AddBalance(heirAddr, balance)
	evm.State.SelfDestruct(f.self)
	return nil, nil
}

// --- calls and creates ---

func opCreate(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	value, off, l := st.pop(), st.pop(), st.pop()
	initCode := mem.snapshot(off.Uint64(), l.Uint64())

	// The remaining gas follows the constructor; under EIP-150 one 64th
	// of it stays behind.
	gas := f.gas
	if evm.Config.TailCallGasRule {
		gas -= gas / 64
	}
	f.gas -= gas

	ret, addr, leftover, err := evm.Create(f.self, initCode, gas, value.ToBig())
	f.gas += leftover
	f.returnData = nil

	var out uint256.Int
	if err == nil {
		out.SetBytes(addr.Bytes())
	} else if err == ErrRevert {
		// A reverting constructor surfaces its output.
		f.returnData = ret
	}
	st.push(&out)
	return nil, nil
}

func opCreate2(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	value, off, l, salt := st.pop(), st.pop(), st.pop(), st.pop()
	initCode := mem.snapshot(off.Uint64(), l.Uint64())

	gas := f.gas
	gas -= gas / 64 // CREATE2 postdates EIP-150
	f.gas -= gas

	ret, addr, leftover, err := evm.Create2(f.self, initCode, types.BytesToHash(salt.Bytes()), gas, value.ToBig())
	f.gas += leftover
	f.returnData = nil

	var out uint256.Int
	if err == nil {
		out.SetBytes(addr.Bytes())
	} else if err == ErrRevert {
		f.returnData = ret
	}
	st.push(&out)
	return nil, nil
}

// writeCallOutput copies a child's output into the caller's designated
// window.
func writeCallOutput(mem *Memory, out []byte, offW, lenW *uint256.Int) {
	if lenW.IsZero() || len(out) == 0 {
		return
	}
	n := lenW.Uint64()
	if uint64(len(out)) < n {
		n = uint64(len(out))
	}
	mem.set(offW.Uint64(), out[:n])
}

func opCall(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	st.pop() // requested gas, settled by the gas function
	addrW, value, inOff, inLen, outOff, outLen := st.pop(), st.pop(), st.pop(), st.pop(), st.pop(), st.pop()
	addr := types.BytesToAddress(addrW.Bytes())

	if static && !value.IsZero() {
		return nil, ErrWriteProtection
	}

	gas := f.tmpCallGas
	if !value.IsZero() {
		gas += params.CallStipend
	}
	input := mem.snapshot(inOff.Uint64(), inLen.Uint64())

	out, leftover, err := evm.Call(f.self, addr, input, gas, value.ToBig(), static)
	f.gas += leftover
	f.returnData = out

	var ok uint256.Int
	if err == nil {
		ok.SetOne()
		writeCallOutput(mem, out, &outOff, &outLen)
	} else if err == ErrRevert {
		writeCallOutput(mem, out, &outOff, &outLen)
	}
	st.push(&ok)
	return nil, nil
}

func opCallCode(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	st.pop()
	addrW, value, inOff, inLen, outOff, outLen := st.pop(), st.pop(), st.pop(), st.pop(), st.pop(), st.pop()
	addr := types.BytesToAddress(addrW.Bytes())

	gas := f.tmpCallGas
	if !value.IsZero() {
		gas += params.CallStipend
	}
	input := mem.snapshot(inOff.Uint64(), inLen.Uint64())

	out, leftover, err := evm.CallCode(f.self, addr, input, gas, value.ToBig(), static)
	f.gas += leftover
	f.returnData = out

	var ok uint256.Int
	if err == nil {
		ok.SetOne()
		writeCallOutput(mem, out, &outOff, &outLen)
	} else if err == ErrRevert {
		writeCallOutput(mem, out, &outOff, &outLen)
	}
	st.push(&ok)
	return nil, nil
}

func opDelegateCall(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	st.pop()
	addrW, inOff, inLen, outOff, outLen := st.pop(), st.pop(), st.pop(), st.pop(), st.pop()
	addr := types.BytesToAddress(addrW.Bytes())

	input := mem.snapshot(inOff.Uint64(), inLen.Uint64())

	out, leftover, err := evm.DelegateCall(f.caller, f.self, addr, input, f.tmpCallGas, f.value, static)
	f.gas += leftover
	f.returnData = out

	var ok uint256.Int
	if err == nil {
		ok.SetOne()
		writeCallOutput(mem, out, &outOff, &outLen)
	} else if err == ErrRevert {
		writeCallOutput(mem, out, &outOff, &outLen)
	}
	st.push(&ok)
	return nil, nil
}

func opStaticCall(evm *EVM, f *frame, st *Stack, mem *Memory, pc *uint64, static bool) ([]byte, error) {
	st.pop()
	addrW, inOff, inLen, outOff, outLen := st.pop(), st.pop(), st.pop(), st.pop(), st.pop()
	addr := types.BytesToAddress(addrW.Bytes())

	input := mem.snapshot(inOff.Uint64(), inLen.Uint64())

	out, leftover, err := evm.StaticCall(f.self, addr, input, f.tmpCallGas)
	f.gas += leftover
	f.returnData = out

	var ok uint256.Int
	if err == nil {
		ok.SetOne()
		writeCallOutput(mem, out, &outOff, &outLen)
	} else if err == ErrRevert {
		writeCallOutput(mem, out, &outOff, &outLen)
	}
	st.push(&ok)
	return nil, nil
}
