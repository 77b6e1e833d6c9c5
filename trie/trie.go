package trie

import (
	"errors"
	"fmt"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
)

var (
	// ErrNotFound is returned when a key has no value in the trie.
	ErrNotFound = errors.New("trie: key not found")

	// ErrMissingNode is returned when a referenced node cannot be loaded
	// from the database. For a committed trie this means corruption.
	ErrMissingNode = errors.New("trie: missing referenced node")
)

// EmptyRoot is the root hash of the empty trie: keccak(rlp("")).
var EmptyRoot = crypto.Keccak256Hash([]byte{0x80})

// Trie is a Merkle Patricia Trie. Mutations rebuild the node spine
// functionally: an old root's nodes stay valid in the database after any
// number of updates through a newer root.
type Trie struct {
	root node
	db   NodeReader // resolves refNode pointers; nil for in-memory use
}

// New creates an empty in-memory trie.
func New() *Trie {
	return &Trie{}
}

// NewAt opens the trie rooted at the given hash, resolving nodes through
// db as the walk needs them.
func NewAt(root types.Hash, db NodeReader) *Trie {
	t := &Trie{db: db}
	if root != EmptyRoot && !root.IsZero() {
		t.root = refNode(root)
	}
	return t
}

// resolve loads the node behind a hash reference.
func (t *Trie) resolve(r refNode) (node, error) {
	if t.db == nil {
		return nil, fmt.Errorf("%w: %s (no database)", ErrMissingNode, types.Hash(r).Hex())
	}
	enc, err := t.db.Node(types.Hash(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingNode, types.Hash(r).Hex())
	}
	n, err := decodeNode(enc)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns the value stored under key, or ErrNotFound.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.lookup(t.root, toNibbles(key))
}

func (t *Trie) lookup(n node, path []byte) ([]byte, error) {
	for {
		switch cur := n.(type) {
		case nil:
			return nil, ErrNotFound

		case *leafNode:
			if commonPrefix(cur.suffix, path) == len(cur.suffix) && len(path) == len(cur.suffix) {
				return cur.value, nil
			}
			return nil, ErrNotFound

		case *extNode:
			if commonPrefix(cur.prefix, path) < len(cur.prefix) {
				return nil, ErrNotFound
			}
			n, path = cur.child, path[len(cur.prefix):]

		case *branchNode:
			if len(path) == 0 {
				if cur.value == nil {
					return nil, ErrNotFound
				}
				return cur.value, nil
			}
			n, path = cur.children[path[0]], path[1:]

		case refNode:
			resolved, err := t.resolve(cur)
			if err != nil {
				return nil, err
			}
			n = resolved

		default:
			return nil, fmt.Errorf("trie: unknown node %T", n)
		}
	}
}

// Update writes value under key. An empty value deletes the key.
func (t *Trie) Update(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	newRoot, err := t.insert(t.root, toNibbles(key), copyBytes(value))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) insert(n node, path []byte, value []byte) (node, error) {
	switch cur := n.(type) {
	case nil:
		return &leafNode{suffix: path, value: value}, nil

	case *leafNode:
		shared := commonPrefix(cur.suffix, path)
		if shared == len(cur.suffix) && shared == len(path) {
			return &leafNode{suffix: cur.suffix, value: value}, nil
		}
		// Divergence: a branch at the split point carries both tails.
		branch := &branchNode{}
		if err := placeTail(branch, cur.suffix[shared:], cur.value); err != nil {
			return nil, err
		}
		if err := placeTail(branch, path[shared:], value); err != nil {
			return nil, err
		}
		return wrapPrefix(path[:shared], branch), nil

	case *extNode:
		shared := commonPrefix(cur.prefix, path)
		if shared == len(cur.prefix) {
			child, err := t.insert(cur.child, path[shared:], value)
			if err != nil {
				return nil, err
			}
			return &extNode{prefix: cur.prefix, child: child}, nil
		}
		// The new key leaves the extension's run partway through.
		branch := &branchNode{}
		branch.children[cur.prefix[shared]] = wrapPrefix(cur.prefix[shared+1:], cur.child)
		if err := placeTail(branch, path[shared:], value); err != nil {
			return nil, err
		}
		return wrapPrefix(path[:shared], branch), nil

	case *branchNode:
		next := cur.copy()
		if len(path) == 0 {
			next.value = value
			return next, nil
		}
		child, err := t.insert(cur.children[path[0]], path[1:], value)
		if err != nil {
			return nil, err
		}
		next.children[path[0]] = child
		return next, nil

	case refNode:
		resolved, err := t.resolve(cur)
		if err != nil {
			return nil, err
		}
		return t.insert(resolved, path, value)

	default:
		return nil, fmt.Errorf("trie: unknown node %T", n)
	}
}

// placeTail stores a (remaining-path, value) pair into a fresh branch:
// the empty remainder lands in the terminal slot, anything else becomes
// a leaf under its first nibble.
func placeTail(b *branchNode, tail []byte, value []byte) error {
	if len(tail) == 0 {
		if b.value != nil {
			return errors.New("trie: two values at one branch point")
		}
		b.value = value
		return nil
	}
	b.children[tail[0]] = &leafNode{suffix: tail[1:], value: value}
	return nil
}

// wrapPrefix puts an extension with the given nibbles above n, or
// returns n unchanged when the run is empty.
func wrapPrefix(prefix []byte, n node) node {
	if len(prefix) == 0 {
		return n
	}
	return &extNode{prefix: prefix, child: n}
}

// Delete removes key from the trie; deleting an absent key is a no-op.
func (t *Trie) Delete(key []byte) error {
	newRoot, err := t.remove(t.root, toNibbles(key))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

func (t *Trie) remove(n node, path []byte) (node, error) {
	switch cur := n.(type) {
	case nil:
		return nil, nil

	case *leafNode:
		if commonPrefix(cur.suffix, path) == len(cur.suffix) && len(path) == len(cur.suffix) {
			return nil, nil
		}
		return cur, nil

	case *extNode:
		if commonPrefix(cur.prefix, path) < len(cur.prefix) {
			return cur, nil
		}
		child, err := t.remove(cur.child, path[len(cur.prefix):])
		if err != nil {
			return nil, err
		}
		return t.foldExtension(cur.prefix, child)

	case *branchNode:
		next := cur.copy()
		if len(path) == 0 {
			next.value = nil
		} else {
			child, err := t.remove(cur.children[path[0]], path[1:])
			if err != nil {
				return nil, err
			}
			next.children[path[0]] = child
		}
		return t.normalizeBranch(next)

	case refNode:
		resolved, err := t.resolve(cur)
		if err != nil {
			return nil, err
		}
		return t.remove(resolved, path)

	default:
		return nil, fmt.Errorf("trie: unknown node %T", n)
	}
}

// foldExtension rebuilds an extension over a possibly collapsed child,
// merging nibble runs so no extension ever points at another extension
// or a leaf.
func (t *Trie) foldExtension(prefix []byte, child node) (node, error) {
	switch c := child.(type) {
	case nil:
		return nil, nil
	case *leafNode:
		return &leafNode{suffix: joinNibbles(prefix, c.suffix), value: c.value}, nil
	case *extNode:
		return &extNode{prefix: joinNibbles(prefix, c.prefix), child: c.child}, nil
	default:
		return &extNode{prefix: prefix, child: child}, nil
	}
}

// normalizeBranch collapses a branch left with too little fanout: no
// children and no value vanishes, only a value becomes a leaf, and a
// single child folds into an extension or leaf. The surviving child must
// be resolved first, since the folded shape depends on its kind.
func (t *Trie) normalizeBranch(b *branchNode) (node, error) {
	liveSlot, liveCount := -1, 0
	for i, c := range b.children {
		if c != nil {
			liveSlot = i
			liveCount++
		}
	}

	switch {
	case liveCount == 0 && b.value == nil:
		return nil, nil

	case liveCount == 0:
		return &leafNode{suffix: nil, value: b.value}, nil

	case liveCount == 1 && b.value == nil:
		child := b.children[liveSlot]
		if r, ok := child.(refNode); ok {
			resolved, err := t.resolve(r)
			if err != nil {
				return nil, err
			}
			child = resolved
		}
		return t.foldExtension([]byte{byte(liveSlot)}, child)

	default:
		return b, nil
	}
}

func joinNibbles(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func (b *branchNode) copy() *branchNode {
	cp := *b
	return &cp
}

// Hash computes the root hash without persisting anything.
func (t *Trie) Hash() types.Hash {
	if t.root == nil {
		return EmptyRoot
	}
	if r, ok := t.root.(refNode); ok {
		return types.Hash(r)
	}
	return crypto.Keccak256Hash(encodeNode(t.root, nil))
}

// Commit encodes every node reachable from the root into sink and
// returns the root hash. The root is always persisted under its hash,
// even when its encoding is shorter than the inline limit, so the trie
// can be reopened from the returned hash.
func (t *Trie) Commit(sink func(types.Hash, []byte)) (types.Hash, error) {
	if t.root == nil {
		return EmptyRoot, nil
	}
	if r, ok := t.root.(refNode); ok {
		return types.Hash(r), nil // nothing loaded, nothing dirty
	}
	enc := encodeNode(t.root, sink)
	h := crypto.Keccak256Hash(enc)
	if sink != nil {
		sink(h, enc)
	}
	return h, nil
}
