package vm

// interpret is the fetch-price-execute loop over one frame. It returns
// the frame's output and its halt condition: nil for a normal halt,
// ErrRevert for REVERT, any other error for an exceptional halt. The
// caller decides what each condition means for gas and state.
func (evm *EVM) interpret(f *frame, static bool) ([]byte, error) {
	var (
		pc  uint64
		st  = newStack()
		mem = newMemory()
	)

	for {
		op := f.opAt(pc)
		instr := evm.table[op]
		if instr == nil {
			f.gas = 0
			return nil, ErrInvalidOpcode
		}

		if err := st.require(instr.stackIn, instr.stackOut); err != nil {
			f.gas = 0
			return nil, err
		}
		if static && instr.writes {
			f.gas = 0
			return nil, ErrWriteProtection
		}

		// Memory span and its expansion cost.
		var memSize uint64
		if instr.mem != nil {
			size, overflow := instr.mem(st)
			if overflow {
				f.gas = 0
				return nil, ErrGasUintOverflow
			}
			memSize = size
		}
		fixed := instr.baseGas
		if memSize > uint64(mem.Len()) {
			newCost, err := memoryCost(memSize)
			if err != nil {
				f.gas = 0
				return nil, err
			}
			oldCost, _ := memoryCost(uint64(mem.Len()))
			fixed += newCost - oldCost
		}

		// Dynamic component.
		var dynamic uint64
		if instr.gas != nil {
			d, err := instr.gas(evm, f, st, mem, memSize, fixed)
			if err != nil {
				f.gas = 0
				return nil, err
			}
			dynamic = d
		}

		total := fixed + dynamic
		if total < fixed {
			f.gas = 0
			return nil, ErrGasUintOverflow
		}
		if !f.useGas(total) {
			f.gas = 0
			return nil, ErrOutOfGas
		}
		if memSize > 0 {
			mem.grow(memSize)
		}

		ret, err := instr.exec(evm, f, st, mem, &pc, static)
		if err != nil {
			if err != ErrRevert {
				f.gas = 0
			}
			return ret, err
		}
		if instr.halts {
			return ret, nil
		}
		if !instr.jumps {
			pc++
		}
	}
}
