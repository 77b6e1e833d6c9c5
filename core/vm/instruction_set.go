package vm

import "github.com/eth2030/eth2030/params"

// instruction binds an opcode's executor to its stack discipline and
// pricing: inputs popped, outputs pushed, static price, dynamic gas and
// memory span.
type instruction struct {
	exec     execFunc
	baseGas  uint64
	gas      gasFunc
	mem      memFunc
	stackIn  int
	stackOut int

	halts  bool // ends the frame (return value from exec)
	jumps  bool // manages pc itself
	writes bool // mutates state, forbidden inside static calls
}

// instructionSet maps each opcode tag to its instruction under one
// hardfork configuration.
type instructionSet [256]*instruction

// instructionsFor builds the dispatch table for a flat hardfork record.
// Availability and prices come off the record, so no per-fork table
// chaining exists at run time.
func instructionsFor(cfg *params.Config) *instructionSet {
	var t instructionSet

	// Arithmetic.
	t[STOP] = &instruction{exec: opStop, halts: true}
	t[ADD] = &instruction{exec: opAdd, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[MUL] = &instruction{exec: opMul, baseGas: params.FastStepGas, stackIn: 2, stackOut: 1}
	t[SUB] = &instruction{exec: opSub, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[DIV] = &instruction{exec: opDiv, baseGas: params.FastStepGas, stackIn: 2, stackOut: 1}
	t[SDIV] = &instruction{exec: opSdiv, baseGas: params.FastStepGas, stackIn: 2, stackOut: 1}
	t[MOD] = &instruction{exec: opMod, baseGas: params.FastStepGas, stackIn: 2, stackOut: 1}
	t[SMOD] = &instruction{exec: opSmod, baseGas: params.FastStepGas, stackIn: 2, stackOut: 1}
	t[ADDMOD] = &instruction{exec: opAddmod, baseGas: params.MidStepGas, stackIn: 3, stackOut: 1}
	t[MULMOD] = &instruction{exec: opMulmod, baseGas: params.MidStepGas, stackIn: 3, stackOut: 1}
	t[EXP] = &instruction{exec: opExp, baseGas: params.ExpGas, gas: gasExp, stackIn: 2, stackOut: 1}
	t[SIGNEXTEND] = &instruction{exec: opSignExtend, baseGas: params.FastStepGas, stackIn: 2, stackOut: 1}

	// Comparison and bitwise.
	t[LT] = &instruction{exec: opLt, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[GT] = &instruction{exec: opGt, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[SLT] = &instruction{exec: opSlt, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[SGT] = &instruction{exec: opSgt, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[EQ] = &instruction{exec: opEq, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[ISZERO] = &instruction{exec: opIszero, baseGas: params.FastestStepGas, stackIn: 1, stackOut: 1}
	t[AND] = &instruction{exec: opAnd, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[OR] = &instruction{exec: opOr, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[XOR] = &instruction{exec: opXor, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	t[NOT] = &instruction{exec: opNot, baseGas: params.FastestStepGas, stackIn: 1, stackOut: 1}
	t[BYTE] = &instruction{exec: opByte, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}

	t[KECCAK256] = &instruction{exec: opKeccak256, baseGas: params.KeccakGas, gas: gasKeccak, mem: memOffLen, stackIn: 2, stackOut: 1}

	// Environment.
	t[ADDRESS] = &instruction{exec: opAddress, baseGas: params.QuickStepGas, stackOut: 1}
	t[BALANCE] = &instruction{exec: opBalance, baseGas: cfg.BalanceGas, stackIn: 1, stackOut: 1}
	t[ORIGIN] = &instruction{exec: opOrigin, baseGas: params.QuickStepGas, stackOut: 1}
	t[CALLER] = &instruction{exec: opCaller, baseGas: params.QuickStepGas, stackOut: 1}
	t[CALLVALUE] = &instruction{exec: opCallValue, baseGas: params.QuickStepGas, stackOut: 1}
	t[CALLDATALOAD] = &instruction{exec: opCallDataLoad, baseGas: params.FastestStepGas, stackIn: 1, stackOut: 1}
	t[CALLDATASIZE] = &instruction{exec: opCallDataSize, baseGas: params.QuickStepGas, stackOut: 1}
	t[CALLDATACOPY] = &instruction{exec: opCallDataCopy, baseGas: params.FastestStepGas, gas: gasCopyLen(2), mem: memCopy3, stackIn: 3}
	t[CODESIZE] = &instruction{exec: opCodeSize, baseGas: params.QuickStepGas, stackOut: 1}
	t[CODECOPY] = &instruction{exec: opCodeCopy, baseGas: params.FastestStepGas, gas: gasCopyLen(2), mem: memCopy3, stackIn: 3}
	t[GASPRICE] = &instruction{exec: opGasPrice, baseGas: params.QuickStepGas, stackOut: 1}
	t[EXTCODESIZE] = &instruction{exec: opExtCodeSize, baseGas: cfg.ExtcodeSizeGas, stackIn: 1, stackOut: 1}
	t[EXTCODECOPY] = &instruction{exec: opExtCodeCopy, baseGas: cfg.ExtcodeCopyGas, gas: gasCopyLen(3), mem: memExtCodeCopy, stackIn: 4}

	// Block context.
	t[BLOCKHASH] = &instruction{exec: opBlockhash, baseGas: 20, stackIn: 1, stackOut: 1}
	t[COINBASE] = &instruction{exec: opCoinbase, baseGas: params.QuickStepGas, stackOut: 1}
	t[TIMESTAMP] = &instruction{exec: opTimestamp, baseGas: params.QuickStepGas, stackOut: 1}
	t[NUMBER] = &instruction{exec: opNumber, baseGas: params.QuickStepGas, stackOut: 1}
	t[DIFFICULTY] = &instruction{exec: opDifficulty, baseGas: params.QuickStepGas, stackOut: 1}
	t[GASLIMIT] = &instruction{exec: opGasLimit, baseGas: params.QuickStepGas, stackOut: 1}

	// Stack, memory and storage.
	t[POP] = &instruction{exec: opPop, baseGas: params.QuickStepGas, stackIn: 1}
	t[MLOAD] = &instruction{exec: opMload, baseGas: params.FastestStepGas, mem: memMLoad, stackIn: 1, stackOut: 1}
	t[MSTORE] = &instruction{exec: opMstore, baseGas: params.FastestStepGas, mem: memMLoad, stackIn: 2}
	t[MSTORE8] = &instruction{exec: opMstore8, baseGas: params.FastestStepGas, mem: memMStore8, stackIn: 2}
	t[SLOAD] = &instruction{exec: opSload, baseGas: cfg.SloadGas, stackIn: 1, stackOut: 1}
	t[SSTORE] = &instruction{exec: opSstore, gas: gasSStore, stackIn: 2, writes: true}
	t[JUMP] = &instruction{exec: opJump, baseGas: params.MidStepGas, stackIn: 1, jumps: true}
	t[JUMPI] = &instruction{exec: opJumpi, baseGas: params.SlowStepGas, stackIn: 2, jumps: true}
	t[PC] = &instruction{exec: opPc, baseGas: params.QuickStepGas, stackOut: 1}
	t[MSIZE] = &instruction{exec: opMsize, baseGas: params.QuickStepGas, stackOut: 1}
	t[GAS] = &instruction{exec: opGas, baseGas: params.QuickStepGas, stackOut: 1}
	t[JUMPDEST] = &instruction{exec: opJumpdest, baseGas: params.JumpdestGas}

	// Pushes, dups, swaps.
	for i := 0; i < 32; i++ {
		t[int(PUSH1)+i] = &instruction{exec: opPush(i + 1), baseGas: params.FastestStepGas, stackOut: 1}
	}
	for i := 0; i < 16; i++ {
		n := i + 1
		t[int(DUP1)+i] = &instruction{exec: opDup(n), baseGas: params.FastestStepGas, stackIn: n, stackOut: n + 1}
		t[int(SWAP1)+i] = &instruction{exec: opSwap(n), baseGas: params.FastestStepGas, stackIn: n + 1, stackOut: n + 1}
	}

	// Logs.
	for i := 0; i <= 4; i++ {
		t[int(LOG0)+i] = &instruction{
			exec: opLog(i), baseGas: params.LogGas, gas: gasLog(uint64(i)),
			mem: memOffLen, stackIn: 2 + i, writes: true,
		}
	}

	// Calls and creates.
	t[CREATE] = &instruction{exec: opCreate, baseGas: params.CreateGas, mem: memCreate, stackIn: 3, stackOut: 1, writes: true}
	t[CALL] = &instruction{exec: opCall, baseGas: cfg.CallGas, gas: gasCall, mem: memCall, stackIn: 7, stackOut: 1}
	t[CALLCODE] = &instruction{exec: opCallCode, baseGas: cfg.CallGas, gas: gasCallCode, mem: memCall, stackIn: 7, stackOut: 1}
	t[RETURN] = &instruction{exec: opReturn, mem: memOffLen, stackIn: 2, halts: true}
	t[INVALID] = &instruction{exec: opInvalid}
	t[SELFDESTRUCT] = &instruction{exec: opSelfdestruct, gas: gasSelfdestruct, stackIn: 1, halts: true, writes: true}

	// Hardfork-gated opcodes.
	if cfg.HasDelegateCall {
		t[DELEGATECALL] = &instruction{exec: opDelegateCall, baseGas: cfg.CallGas, gas: gasCallThin, mem: memCallNoValue, stackIn: 6, stackOut: 1}
	}
	if cfg.HasRevert {
		t[REVERT] = &instruction{exec: opRevert, mem: memOffLen, stackIn: 2, halts: true}
		t[RETURNDATASIZE] = &instruction{exec: opReturnDataSize, baseGas: params.QuickStepGas, stackOut: 1}
		t[RETURNDATACOPY] = &instruction{exec: opReturnDataCopy, baseGas: params.FastestStepGas, gas: gasCopyLen(2), mem: memCopy3, stackIn: 3}
	}
	if cfg.HasStaticCall {
		t[STATICCALL] = &instruction{exec: opStaticCall, baseGas: cfg.CallGas, gas: gasCallThin, mem: memCallNoValue, stackIn: 6, stackOut: 1}
	}
	if cfg.HasShiftOps {
		t[SHL] = &instruction{exec: opShl, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
		t[SHR] = &instruction{exec: opShr, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
		t[SAR] = &instruction{exec: opSar, baseGas: params.FastestStepGas, stackIn: 2, stackOut: 1}
	}
	if cfg.HasExtCodeHash {
		t[EXTCODEHASH] = &instruction{exec: opExtCodeHash, baseGas: cfg.ExtcodeHashGas, stackIn: 1, stackOut: 1}
	}
	if cfg.HasCreate2 {
		t[CREATE2] = &instruction{
			exec: opCreate2, baseGas: params.CreateGas, gas: gasKeccakWords(2),
			mem: memCreate2, stackIn: 4, stackOut: 1, writes: true,
		}
	}
	if cfg.HasChainOps {
		t[CHAINID] = &instruction{exec: opChainID, baseGas: params.QuickStepGas, stackOut: 1}
		t[SELFBALANCE] = &instruction{exec: opSelfBalance, baseGas: params.FastStepGas, stackOut: 1}
	}

	return &t
}

// gasKeccakWords prices the init-code hashing of CREATE2 by the length
// word at the given stack position.
func gasKeccakWords(pos int) gasFunc {
	return func(evm *EVM, f *frame, st *Stack, mem *Memory, memSize, fixed uint64) (uint64, error) {
		l, overflow := st.peek(pos).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return wordsFor(l) * params.KeccakWordGas, nil
	}
}
