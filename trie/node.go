package trie

import (
	"errors"
	"fmt"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
)

// The trie has four node shapes. nil stands for the null (empty) node.
//
//   - leafNode: the remaining key nibbles and a value
//   - extNode: a shared nibble run and a single child
//   - branchNode: sixteen children indexed by nibble plus a terminal value
//   - refNode: an unresolved 32-byte pointer into the node database
type node interface{ isNode() }

type leafNode struct {
	suffix []byte // nibbles remaining below this point
	value  []byte
}

type extNode struct {
	prefix []byte // nibbles shared by everything below
	child  node
}

type branchNode struct {
	children [16]node
	value    []byte // value of the key ending exactly here
}

type refNode types.Hash

func (*leafNode) isNode()   {}
func (*extNode) isNode()    {}
func (*branchNode) isNode() {}
func (refNode) isNode()     {}

var errBadNodeEncoding = errors.New("trie: malformed node encoding")

// inlineLimit is the encoding size below which a node embeds in its
// parent instead of being stored under its hash. It must be exactly 32
// for root-hash compatibility.
const inlineLimit = 32

// --- node encoding ---
//
// Nodes serialize as canonical RLP. The composer below works on raw,
// already-encoded items so inline children can be spliced into their
// parent's list byte-for-byte.

// rlpString encodes a byte string item.
func rlpString(b []byte) []byte {
	switch {
	case len(b) == 1 && b[0] < 0x80:
		return []byte{b[0]}
	case len(b) < 56:
		return append([]byte{0x80 + byte(len(b))}, b...)
	default:
		return append(lengthPrefix(0xb7, len(b)), b...)
	}
}

// rlpJoin wraps already-encoded items into a list.
func rlpJoin(items ...[]byte) []byte {
	size := 0
	for _, it := range items {
		size += len(it)
	}
	var out []byte
	if size < 56 {
		out = make([]byte, 1, 1+size)
		out[0] = 0xc0 + byte(size)
	} else {
		out = lengthPrefix(0xf7, size)
	}
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func lengthPrefix(base byte, n int) []byte {
	var lenBytes []byte
	for v := n; v > 0; v >>= 8 {
		lenBytes = append([]byte{byte(v)}, lenBytes...)
	}
	return append([]byte{base + byte(len(lenBytes))}, lenBytes...)
}

// encodeNode serializes a node. Child references follow the size rule:
// a child whose encoding reaches inlineLimit is replaced by its keccak;
// smaller children embed verbatim. sink, when non-nil, receives every
// hashed (hash, encoding) pair for persistence.
func encodeNode(n node, sink func(types.Hash, []byte)) []byte {
	switch n := n.(type) {
	case *leafNode:
		return rlpJoin(rlpString(packPath(n.suffix, true)), rlpString(n.value))

	case *extNode:
		return rlpJoin(rlpString(packPath(n.prefix, false)), childRef(n.child, sink))

	case *branchNode:
		items := make([][]byte, 17)
		for i, c := range n.children {
			if c == nil {
				items[i] = rlpString(nil)
			} else {
				items[i] = childRef(c, sink)
			}
		}
		items[16] = rlpString(n.value)
		return rlpJoin(items...)

	default:
		panic(fmt.Sprintf("trie: cannot encode %T", n))
	}
}

// childRef produces the raw item referencing a child inside its parent.
func childRef(n node, sink func(types.Hash, []byte)) []byte {
	if r, ok := n.(refNode); ok {
		return rlpString(types.Hash(r).Bytes())
	}
	enc := encodeNode(n, sink)
	if len(enc) < inlineLimit {
		return enc // embedded verbatim
	}
	h := crypto.Keccak256Hash(enc)
	if sink != nil {
		sink(h, enc)
	}
	return rlpString(h.Bytes())
}

// --- node decoding ---

// rawItem is one element of a parsed RLP list: its payload if it is a
// string, or its full encoding if it is a nested list.
type rawItem struct {
	list    bool
	payload []byte // string payload
	raw     []byte // complete encoding, for nested decode
}

// splitNodeList parses a node encoding into its raw items.
func splitNodeList(enc []byte) ([]rawItem, error) {
	payload, isList, _, err := parseItem(enc)
	if err != nil {
		return nil, err
	}
	if !isList {
		return nil, errBadNodeEncoding
	}
	var items []rawItem
	for len(payload) > 0 {
		p, list, consumed, err := parseItem(payload)
		if err != nil {
			return nil, err
		}
		items = append(items, rawItem{list: list, payload: p, raw: payload[:consumed]})
		payload = payload[consumed:]
	}
	return items, nil
}

// parseItem reads one RLP item, returning its payload, whether it is a
// list, and how many input bytes it spans.
func parseItem(data []byte) (payload []byte, isList bool, consumed int, err error) {
	if len(data) == 0 {
		return nil, false, 0, errBadNodeEncoding
	}
	tag := data[0]
	switch {
	case tag < 0x80:
		return data[:1], false, 1, nil
	case tag < 0xb8:
		n := int(tag - 0x80)
		if 1+n > len(data) {
			return nil, false, 0, errBadNodeEncoding
		}
		return data[1 : 1+n], false, 1 + n, nil
	case tag < 0xc0:
		return parseLong(data, tag-0xb7, false)
	case tag < 0xf8:
		n := int(tag - 0xc0)
		if 1+n > len(data) {
			return nil, false, 0, errBadNodeEncoding
		}
		return data[1 : 1+n], true, 1 + n, nil
	default:
		return parseLong(data, tag-0xf7, true)
	}
}

func parseLong(data []byte, lenBytes byte, isList bool) ([]byte, bool, int, error) {
	hdr := 1 + int(lenBytes)
	if hdr > len(data) {
		return nil, false, 0, errBadNodeEncoding
	}
	n := 0
	for _, b := range data[1:hdr] {
		n = n<<8 | int(b)
	}
	if hdr+n > len(data) {
		return nil, false, 0, errBadNodeEncoding
	}
	return data[hdr : hdr+n], isList, hdr + n, nil
}

// decodeNode rebuilds a node from its encoding.
func decodeNode(enc []byte) (node, error) {
	items, err := splitNodeList(enc)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 2:
		if items[0].list {
			return nil, errBadNodeEncoding
		}
		nibbles, leaf := unpackPath(items[0].payload)
		if leaf {
			return &leafNode{suffix: nibbles, value: copyBytes(items[1].payload)}, nil
		}
		child, err := decodeChild(items[1])
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, errBadNodeEncoding // extensions always have a child
		}
		return &extNode{prefix: nibbles, child: child}, nil

	case 17:
		b := &branchNode{}
		for i := 0; i < 16; i++ {
			child, err := decodeChild(items[i])
			if err != nil {
				return nil, err
			}
			b.children[i] = child
		}
		if items[16].list {
			return nil, errBadNodeEncoding
		}
		b.value = copyBytes(items[16].payload)
		return b, nil

	default:
		return nil, fmt.Errorf("%w: %d items", errBadNodeEncoding, len(items))
	}
}

// decodeChild interprets a child reference: empty string is a missing
// child, a 32-byte string is a hash pointer, and a nested list is an
// embedded node.
func decodeChild(it rawItem) (node, error) {
	if it.list {
		return decodeNode(it.raw)
	}
	switch len(it.payload) {
	case 0:
		return nil, nil
	case types.HashLength:
		return refNode(types.BytesToHash(it.payload)), nil
	default:
		return nil, errBadNodeEncoding
	}
}

func copyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
