// caching_trie.go implements the layered trie used by transaction
// execution: a scratch layer buffers trie updates and raw writes against
// a permanent store, committing them as one batch or dropping them on
// rollback.
//
// The permanent database-backed trie and the caching overlay share one
// capability set, TrieStore, so cachers nest: a child call frame stacks
// a fresh CachingTrie on its parent's, and discarding the inner layer
// leaves the outer one untouched.
package trie

import (
	"sort"

	"github.com/eth2030/eth2030/core/types"
)

// TrieStore is the capability set shared by the permanent trie and the
// caching trie: node access, key access, root management, the raw
// keyspace (code blobs and other hash-addressed values), and atomic
// commit.
type TrieStore interface {
	// FetchNode retrieves an encoded trie node by hash.
	FetchNode(hash types.Hash) ([]byte, error)
	// PutNode stores an encoded trie node under its hash.
	PutNode(hash types.Hash, enc []byte)

	// GetKey looks up a key. Returns ErrNotFound on a miss.
	GetKey(key []byte) ([]byte, error)
	// UpdateKey inserts or replaces a key's value.
	UpdateKey(key, value []byte) error
	// RemoveKey deletes a key; removing an absent key is a no-op.
	RemoveKey(key []byte) error

	// RootHash returns the root authenticating the current contents.
	RootHash() types.Hash
	// SetRootHash repoints the store at a previously committed root.
	SetRootHash(root types.Hash) error

	// GetRawKey reads the raw keyspace, bypassing the trie.
	GetRawKey(key []byte) ([]byte, error)
	// PutRawKey writes the raw keyspace, bypassing the trie.
	PutRawKey(key, value []byte) error

	// Commit persists all pending mutations and returns the new root.
	Commit() (types.Hash, error)
}

// DatabaseTrie is the permanent TrieStore: a trie over a NodeDatabase
// plus a raw keyspace living in its own KV.
type DatabaseTrie struct {
	db   *NodeDatabase
	trie *Trie
	raw  KV
}

// NewDatabaseTrie opens the trie rooted at root over db with a private
// in-memory raw keyspace. The zero hash and the empty root both give an
// empty trie.
func NewDatabaseTrie(root types.Hash, db *NodeDatabase) *DatabaseTrie {
	return NewDatabaseTrieWithRaw(root, db, NewMemoryKV())
}

// NewDatabaseTrieWithRaw opens the trie over db with a caller-supplied
// raw keyspace, letting several roots of one chain share code blobs.
func NewDatabaseTrieWithRaw(root types.Hash, db *NodeDatabase, raw KV) *DatabaseTrie {
	return &DatabaseTrie{
		db:   db,
		trie: NewAt(root, db),
		raw:  raw,
	}
}

func (d *DatabaseTrie) FetchNode(hash types.Hash) ([]byte, error) {
	return d.db.Node(hash)
}

func (d *DatabaseTrie) PutNode(hash types.Hash, enc []byte) {
	d.db.Insert(hash, enc)
}

func (d *DatabaseTrie) GetKey(key []byte) ([]byte, error) {
	return d.trie.Get(key)
}

func (d *DatabaseTrie) UpdateKey(key, value []byte) error {
	return d.trie.Update(key, value)
}

func (d *DatabaseTrie) RemoveKey(key []byte) error {
	return d.trie.Delete(key)
}

// RootHash stages every loaded node into the node database and returns
// the root, so a cacher stacked on this store can resolve the current
// (even uncommitted) state through FetchNode.
func (d *DatabaseTrie) RootHash() types.Hash {
	root, err := d.trie.Commit(d.db.Insert)
	if err != nil {
		return d.trie.Hash()
	}
	return root
}

func (d *DatabaseTrie) SetRootHash(root types.Hash) error {
	d.trie = NewAt(root, d.db)
	return nil
}

func (d *DatabaseTrie) GetRawKey(key []byte) ([]byte, error) {
	v, err := d.raw.Get(key)
	if err != nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (d *DatabaseTrie) PutRawKey(key, value []byte) error {
	return d.raw.Put(key, value)
}

// Commit persists all reachable nodes into the node database and
// returns the new root.
func (d *DatabaseTrie) Commit() (types.Hash, error) {
	return d.trie.Commit(d.db.Insert)
}

// CachingTrie buffers updates against a parent TrieStore. Reads fall
// through scratch → parent; Commit flushes the scratch contents into the
// parent as one batch and advances the parent's root; Discard drops the
// layer with the parent untouched.
type CachingTrie struct {
	parent  TrieStore
	scratch *NodeDatabase
	trie    *Trie
	raw     map[string][]byte
}

// parentReader lets a scratch NodeDatabase read through to the layer
// below it.
type parentReader struct {
	parent TrieStore
}

func (r parentReader) Get(key []byte) ([]byte, error) {
	return r.parent.FetchNode(types.BytesToHash(key))
}

func (r parentReader) Put(key, value []byte) error { return nil }

func (r parentReader) BatchPut(keys, values [][]byte) error { return nil }

// NewCachingTrie stacks a scratch layer over parent, starting from the
// parent's current root.
func NewCachingTrie(parent TrieStore) *CachingTrie {
	scratch := NewNodeDatabase(parentReader{parent})
	return &CachingTrie{
		parent:  parent,
		scratch: scratch,
		trie:    NewAt(parent.RootHash(), scratch),
		raw:     make(map[string][]byte),
	}
}

func (c *CachingTrie) FetchNode(hash types.Hash) ([]byte, error) {
	return c.scratch.Node(hash)
}

func (c *CachingTrie) PutNode(hash types.Hash, enc []byte) {
	c.scratch.Insert(hash, enc)
}

func (c *CachingTrie) GetKey(key []byte) ([]byte, error) {
	return c.trie.Get(key)
}

func (c *CachingTrie) UpdateKey(key, value []byte) error {
	return c.trie.Update(key, value)
}

func (c *CachingTrie) RemoveKey(key []byte) error {
	return c.trie.Delete(key)
}

// RootHash stages the scratch trie's nodes into the scratch layer (never
// the parent) and returns the root a commit would produce.
func (c *CachingTrie) RootHash() types.Hash {
	root, err := c.trie.Commit(c.scratch.Insert)
	if err != nil {
		return c.trie.Hash()
	}
	return root
}

func (c *CachingTrie) SetRootHash(root types.Hash) error {
	c.trie = NewAt(root, c.scratch)
	return nil
}

func (c *CachingTrie) GetRawKey(key []byte) ([]byte, error) {
	if v, ok := c.raw[string(key)]; ok {
		return copyBytes(v), nil
	}
	return c.parent.GetRawKey(key)
}

func (c *CachingTrie) PutRawKey(key, value []byte) error {
	c.raw[string(key)] = copyBytes(value)
	return nil
}

// Commit flushes the scratch nodes and the raw overlay into the parent
// as one batch, advances the parent's root, and resets this layer.
// Afterwards reads resolve against the parent's new state.
func (c *CachingTrie) Commit() (types.Hash, error) {
	root, err := c.trie.Commit(c.scratch.Insert)
	if err != nil {
		return types.Hash{}, err
	}

	c.scratch.mu.Lock()
	hashes := make([]types.Hash, 0, len(c.scratch.dirty))
	for h := range c.scratch.dirty {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return string(hashes[i][:]) < string(hashes[j][:])
	})
	for _, h := range hashes {
		c.parent.PutNode(h, c.scratch.dirty[h])
	}
	c.scratch.mu.Unlock()

	if err := c.parent.SetRootHash(root); err != nil {
		return types.Hash{}, err
	}

	rawKeys := make([]string, 0, len(c.raw))
	for k := range c.raw {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)
	for _, k := range rawKeys {
		if err := c.parent.PutRawKey([]byte(k), c.raw[k]); err != nil {
			return types.Hash{}, err
		}
	}

	c.scratch = NewNodeDatabase(parentReader{c.parent})
	c.trie = NewAt(root, c.scratch)
	c.raw = make(map[string][]byte)
	return root, nil
}

// Discard drops every buffered mutation and re-syncs with the parent.
func (c *CachingTrie) Discard() {
	c.scratch = NewNodeDatabase(parentReader{c.parent})
	c.trie = NewAt(c.parent.RootHash(), c.scratch)
	c.raw = make(map[string][]byte)
}
