package vm

import (
	"github.com/holiman/uint256"

	"github.com/eth2030/eth2030/params"
)

// Memory is the byte-addressable scratch space of a frame. It grows in
// 32-byte words; the quadratic expansion cost is charged by the
// interpreter before any growth happens.
type Memory struct {
	data []byte
}

func newMemory() *Memory {
	return &Memory{}
}

// Len returns the current size in bytes (always word-aligned).
func (m *Memory) Len() int { return len(m.data) }

// grow extends the memory to cover size bytes, word-aligned.
func (m *Memory) grow(size uint64) {
	if size == 0 {
		return
	}
	words := (size + params.WordSize - 1) / params.WordSize
	need := int(words * params.WordSize)
	if need > len(m.data) {
		m.data = append(m.data, make([]byte, need-len(m.data))...)
	}
}

// set copies value into memory at offset. The area must already be
// grown.
func (m *Memory) set(offset uint64, value []byte) {
	copy(m.data[offset:], value)
}

// setWord writes a 256-bit word at offset.
func (m *Memory) setWord(offset uint64, w *uint256.Int) {
	b := w.Bytes32()
	copy(m.data[offset:], b[:])
}

// setByte writes one byte at offset.
func (m *Memory) setByte(offset uint64, b byte) {
	m.data[offset] = b
}

// word reads the 256-bit word at offset into dst.
func (m *Memory) word(offset uint64, dst *uint256.Int) {
	dst.SetBytes(m.data[offset : offset+params.WordSize])
}

// view returns the live slice [offset, offset+size).
func (m *Memory) view(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.data[offset : offset+size]
}

// snapshot returns a copy of [offset, offset+size).
func (m *Memory) snapshot(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, m.data[offset:offset+size])
	return out
}

// memoryCost is the total gas of a memory of the given byte size:
// words*3 + words²/512.
func memoryCost(size uint64) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	words := (size + params.WordSize - 1) / params.WordSize
	// Past 2^32 words the cost overflows anything a block can pay.
	if words > 1<<32 {
		return 0, ErrGasUintOverflow
	}
	return words*params.MemoryGasLinear + words*words/params.MemoryGasQuadDivisor, nil
}
