package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/params"
)

// gasFunc computes an instruction's dynamic gas. fixed is what the step
// already costs (static price plus memory expansion), which the call
// family needs to know how much gas is actually available to forward.
type gasFunc func(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error)

// memFunc returns the memory span an instruction touches.
type memFunc func(st *Stack) (size uint64, overflow bool)

// wordsFor rounds a byte count up to 32-byte words.
func wordsFor(n uint64) uint64 {
	return (n + params.WordSize - 1) / params.WordSize
}

// spanEnd computes offset+length from two stack words, flagging overflow.
// A zero length never touches memory.
func spanEnd(offset, length *uint256.Int) (uint64, bool) {
	if length.IsZero() {
		return 0, false
	}
	off, overflow := offset.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	l, overflow := length.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	end := off + l
	if end < off {
		return 0, true
	}
	return end, false
}

// --- memory span functions ---

func memMLoad(st *Stack) (uint64, bool) {
	off, overflow := st.peek(0).Uint64WithOverflow()
	return off + params.WordSize, overflow || off+params.WordSize < off
}

func memMStore8(st *Stack) (uint64, bool) {
	off, overflow := st.peek(0).Uint64WithOverflow()
	return off + 1, overflow || off+1 == 0
}

func memOffLen(st *Stack) (uint64, bool) {
	return spanEnd(st.peek(0), st.peek(1))
}

// memCopy3 covers ops shaped (memOffset, srcOffset, length).
func memCopy3(st *Stack) (uint64, bool) {
	return spanEnd(st.peek(0), st.peek(2))
}

// memExtCodeCopy covers (addr, memOffset, srcOffset, length).
func memExtCodeCopy(st *Stack) (uint64, bool) {
	return spanEnd(st.peek(1), st.peek(3))
}

// memCreate covers (value, offset, length).
func memCreate(st *Stack) (uint64, bool) {
	return spanEnd(st.peek(1), st.peek(2))
}

// memCreate2 covers (value, offset, length, salt).
func memCreate2(st *Stack) (uint64, bool) {
	return spanEnd(st.peek(1), st.peek(2))
}

// memCall covers CALL/CALLCODE: the larger of the input and output
// spans. Stack: gas, addr, value, inOff, inLen, outOff, outLen.
func memCall(st *Stack) (uint64, bool) {
	in, overflow := spanEnd(st.peek(3), st.peek(4))
	if overflow {
		return 0, true
	}
	out, overflow := spanEnd(st.peek(5), st.peek(6))
	if overflow {
		return 0, true
	}
	if in > out {
		return in, false
	}
	return out, false
}

// memCallNoValue covers DELEGATECALL/STATICCALL: gas, addr, inOff,
// inLen, outOff, outLen.
func memCallNoValue(st *Stack) (uint64, bool) {
	in, overflow := spanEnd(st.peek(2), st.peek(3))
	if overflow {
		return 0, true
	}
	out, overflow := spanEnd(st.peek(4), st.peek(5))
	if overflow {
		return 0, true
	}
	if in > out {
		return in, false
	}
	return out, false
}

// --- dynamic gas functions ---

// gasKeccak prices hashing by input words.
func gasKeccak(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
	l, overflow := st.peek(1).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return wordsFor(l) * params.KeccakWordGas, nil
}

// gasCopyLen prices copies by their length word at the given stack
// position.
func gasCopyLen(pos int) gasFunc {
	return func(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
		l, overflow := st.peek(pos).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return wordsFor(l) * params.CopyWordGas, nil
	}
}

// gasExp prices EXP by the exponent's byte length.
func gasExp(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
	byteLen := uint64((st.peek(1).BitLen() + 7) / 8)
	return byteLen * evm.Config.ExpByteGas, nil
}

// gasLog prices LOGn by topic count and payload length.
func gasLog(topics uint64) gasFunc {
	return func(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
		l, overflow := st.peek(1).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return topics*params.LogTopicGas + l*params.LogDataGas, nil
	}
}

// gasSStore prices storage writes and maintains the refund counter.
// Legacy metering looks only at (current, new); net metering (the
// EIP-1283/2200 style selected by the hardfork record) prices the
// (original, current, new) triple and keeps the refund symmetric.
func gasSStore(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
	var (
		slot    = types.BytesToHash(st.peek(0).Bytes())
		newVal  = types.BytesToHash(st.peek(1).Bytes())
		current = evm.State.GetState(f.self, slot)
	)

	if !evm.Config.NetSstore {
		switch {
		case current.IsZero() && !newVal.IsZero():
			return params.SstoreSetGas, nil
		case !current.IsZero() && newVal.IsZero():
			evm.State.AddRefund(params.SstoreClearRefund)
			return params.SstoreResetGas, nil
		default:
			return params.SstoreResetGas, nil
		}
	}

	// Net metering refuses to run on fumes (EIP-2200 sentry).
	if f.gas <= fixed+params.SstoreSentryGas {
		return 0, ErrOutOfGas
	}

	if current == newVal {
		return params.NetSstoreNoopGas, nil
	}
	original := evm.State.GetCommittedState(f.self, slot)
	if original == current {
		if original.IsZero() {
			return params.NetSstoreInitGas, nil
		}
		if newVal.IsZero() {
			evm.State.AddRefund(params.NetSstoreClearRefund)
		}
		return params.NetSstoreCleanGas, nil
	}
	// Dirty slot: adjust refunds for every transition away from or back
	// to the original value.
	if !original.IsZero() {
		if current.IsZero() {
			evm.State.SubRefund(params.NetSstoreClearRefund)
		} else if newVal.IsZero() {
			evm.State.AddRefund(params.NetSstoreClearRefund)
		}
	}
	if original == newVal {
		if original.IsZero() {
			evm.State.AddRefund(params.NetSstoreResetClearRefund)
		} else {
			evm.State.AddRefund(params.NetSstoreResetRefund)
		}
	}
	return params.NetSstoreDirtyGas, nil
}

// gasSelfdestruct prices SELFDESTRUCT: the flat fork price, the
// new-account surcharge when the heir must be created, and the refund
// on the first destruction of this contract.
func gasSelfdestruct(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
	cost := evm.Config.SelfdestructGas
	heir := types.BytesToAddress(st.peek(0).Bytes())

	if evm.Config.SelfdestructNewGas > 0 {
		needsAccount := !evm.State.Exist(heir)
		if evm.Config.ClearEmptyAccounts {
			needsAccount = evm.State.Empty(heir) && evm.State.GetBalance(f.self).Sign() != 0
		}
		if needsAccount {
			cost += evm.Config.SelfdestructNewGas
		}
	}
	if !evm.State.HasSelfDestructed(f.self) {
		evm.State.AddRefund(params.SelfdestructRefund)
	}
	return cost, nil
}

// gasCall prices the CALL overhead and fixes the forwarded amount.
func gasCall(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
	var (
		addr     = types.BytesToAddress(st.peek(1).Bytes())
		value    = st.peek(2)
		overhead uint64
	)
	if !value.IsZero() {
		overhead += params.CallValueTransferGas
		newAccount := !evm.State.Exist(addr)
		if evm.Config.ClearEmptyAccounts {
			newAccount = evm.State.Empty(addr)
		}
		if newAccount {
			overhead += params.CallNewAccountGas
		}
	}
	return evm.reserveCallGas(f, st, fixed, overhead)
}

// gasCallCode prices CALLCODE: value surcharge but never a new account.
func gasCallCode(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
	var overhead uint64
	if !st.peek(2).IsZero() {
		overhead += params.CallValueTransferGas
	}
	return evm.reserveCallGas(f, st, fixed, overhead)
}

// gasCallThin prices DELEGATECALL and STATICCALL: no surcharges.
func gasCallThin(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
	return evm.reserveCallGas(f, st, fixed, 0)
}

// reserveCallGas settles how much gas follows a call: the requested
// amount capped by the 63/64 rule post-EIP-150, or taken literally
// before it. The result lands in f.tmpCallGas and is charged as part of
// this step, to be handed to the child frame.
func (evm *EVM) reserveCallGas(f *frame, st *Stack, fixed, overhead uint64) (uint64, error) {
	charged := fixed + overhead
	if f.gas < charged {
		return 0, ErrOutOfGas
	}
	available := f.gas - charged

	requested, overflow := st.peek(0).Uint64WithOverflow()
	if overflow {
		requested = ^uint64(0)
	}
	if evm.Config.TailCallGasRule {
		f.tmpCallGas = evm.callForwardGas(available, requested)
	} else {
		if requested > available {
			return 0, ErrOutOfGas
		}
		f.tmpCallGas = requested
	}
	return overhead + f.tmpCallGas, nil
}
