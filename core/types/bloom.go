package types

// BloomLength is the byte width of the 2048-bit logs bloom.
const BloomLength = 256

// Bloom is the 2048-bit filter summarizing a block's logs.
type Bloom [BloomLength]byte

// add sets the three filter bits derived from the Keccak-256 of item:
// bit index = low 11 bits of digest byte pairs 0-1, 2-3 and 4-5.
func (b *Bloom) add(item []byte) {
	digest := keccak(item)
	for i := 0; i < 6; i += 2 {
		bit := (uint(digest[i])<<8 | uint(digest[i+1])) & 0x7ff
		b[BloomLength-1-bit/8] |= 1 << (bit % 8)
	}
}

// Contains reports whether all three bits for item are set. False
// positives are possible, false negatives are not.
func (b *Bloom) Contains(item []byte) bool {
	digest := keccak(item)
	for i := 0; i < 6; i += 2 {
		bit := (uint(digest[i])<<8 | uint(digest[i+1])) & 0x7ff
		if b[BloomLength-1-bit/8]&(1<<(bit%8)) == 0 {
			return false
		}
	}
	return true
}

// Or folds other into b.
func (b *Bloom) Or(other Bloom) {
	for i := range b {
		b[i] |= other[i]
	}
}

// LogsBloom computes the filter over a set of logs: each log contributes
// its emitting address and every topic.
func LogsBloom(logs []*Log) Bloom {
	var b Bloom
	for _, l := range logs {
		b.add(l.Address[:])
		for _, topic := range l.Topics {
			b.add(topic[:])
		}
	}
	return b
}

// CreateBloom ORs the blooms of all receipts in a block.
func CreateBloom(receipts []*Receipt) Bloom {
	var b Bloom
	for _, r := range receipts {
		b.Or(r.Bloom)
	}
	return b
}
