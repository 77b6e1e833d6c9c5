package trie

import (
	"errors"
	"sort"
	"sync"

	"github.com/eth2030/eth2030/core/types"
)

// KV is the byte-addressable backing store contract: point reads, point
// writes, and an atomic multi-write.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	BatchPut(keys, values [][]byte) error
}

// ErrKVNotFound is returned by KV implementations for absent keys.
var ErrKVNotFound = errors.New("trie: kv key not found")

// MemoryKV is the in-process KV used by tests and light embedders.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKVNotFound
	}
	return copyBytes(v), nil
}

func (m *MemoryKV) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = copyBytes(value)
	return nil
}

func (m *MemoryKV) BatchPut(keys, values [][]byte) error {
	if len(keys) != len(values) {
		return errors.New("trie: batch length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range keys {
		m.data[string(keys[i])] = copyBytes(values[i])
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// NodeReader resolves trie nodes by hash.
type NodeReader interface {
	Node(hash types.Hash) ([]byte, error)
}

// NodeDatabase buffers trie nodes between commit points: freshly hashed
// nodes collect in a dirty set and flush to the backing KV as one batch.
// Reads check the dirty set before the KV.
type NodeDatabase struct {
	mu    sync.RWMutex
	dirty map[types.Hash][]byte
	disk  KV // may be nil for purely in-memory operation
}

// NewNodeDatabase creates a node database over the given KV backend.
func NewNodeDatabase(disk KV) *NodeDatabase {
	return &NodeDatabase{
		dirty: make(map[types.Hash][]byte),
		disk:  disk,
	}
}

// Node returns the encoding stored under hash.
func (db *NodeDatabase) Node(hash types.Hash) ([]byte, error) {
	db.mu.RLock()
	enc, ok := db.dirty[hash]
	db.mu.RUnlock()
	if ok {
		return enc, nil
	}
	if db.disk == nil {
		return nil, ErrMissingNode
	}
	return db.disk.Get(hash.Bytes())
}

// Insert records a node in the dirty set.
func (db *NodeDatabase) Insert(hash types.Hash, enc []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.dirty[hash] = copyBytes(enc)
}

// DirtyCount reports how many nodes await flushing.
func (db *NodeDatabase) DirtyCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.dirty)
}

// Flush writes the dirty set to the backing KV in one batch and clears
// it. Keys flush in sorted order so the batch is deterministic.
func (db *NodeDatabase) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.disk == nil || len(db.dirty) == 0 {
		return nil
	}
	hashes := make([]types.Hash, 0, len(db.dirty))
	for h := range db.dirty {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return string(hashes[i][:]) < string(hashes[j][:])
	})
	keys := make([][]byte, len(hashes))
	values := make([][]byte, len(hashes))
	for i, h := range hashes {
		keys[i] = h.Bytes()
		values[i] = db.dirty[h]
	}
	if err := db.disk.BatchPut(keys, values); err != nil {
		return err
	}
	db.dirty = make(map[types.Hash][]byte)
	return nil
}
