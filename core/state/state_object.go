// Package state implements the account-state facade over the
// authenticated storage layer: accounts, code, per-account storage
// subtries, and the per-transaction substate (refunds, logs,
// selfdestructs, touched accounts) with snapshot/revert.
package state

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/rlp"
	"github.com/eth2030/eth2030/trie"
)

// stateObject is one account loaded into the facade, together with its
// cached code and storage.
type stateObject struct {
	addr    types.Address
	account types.StateAccount

	code       []byte // loaded or newly set code
	codeLoaded bool

	// origin caches slot values as committed under account.Root;
	// pending holds this block's writes on top of them.
	origin  map[types.Hash]types.Hash
	pending map[types.Hash]types.Hash

	selfdestructed bool
	created        bool // came into existence during this execution
}

func newStateObject(addr types.Address, account types.StateAccount) *stateObject {
	return &stateObject{
		addr:    addr,
		account: account,
		origin:  make(map[types.Hash]types.Hash),
		pending: make(map[types.Hash]types.Hash),
	}
}

// empty applies the EIP-161 predicate to the object's current state.
func (obj *stateObject) empty() bool {
	return obj.account.Nonce == 0 &&
		obj.account.Balance.Sign() == 0 &&
		types.BytesToHash(obj.account.CodeHash) == types.EmptyCodeHash
}

// committedSlot reads a storage slot as it stands under the account's
// committed storage root, caching the result.
func (obj *stateObject) committedSlot(store trie.TrieStore, key types.Hash) types.Hash {
	if v, ok := obj.origin[key]; ok {
		return v
	}
	var value types.Hash
	st := trie.NewAt(obj.account.Root, nodeFetcher{store})
	enc, err := st.Get(crypto.Keccak256(key.Bytes()))
	if err == nil {
		var raw []byte
		if rlp.DecodeBytes(enc, &raw) == nil {
			value = types.BytesToHash(raw)
		}
	}
	obj.origin[key] = value
	return value
}

// currentSlot reads a slot including pending writes.
func (obj *stateObject) currentSlot(store trie.TrieStore, key types.Hash) types.Hash {
	if v, ok := obj.pending[key]; ok {
		return v
	}
	return obj.committedSlot(store, key)
}

// commitStorage folds the pending writes into the account's storage
// subtrie and refreshes the storage root. Zero values delete their keys.
func (obj *stateObject) commitStorage(store trie.TrieStore) error {
	if len(obj.pending) == 0 {
		return nil
	}
	st := trie.NewAt(obj.account.Root, nodeFetcher{store})
	for _, key := range sortedHashes(obj.pending) {
		value := obj.pending[key]
		slot := crypto.Keccak256(key.Bytes())
		if value.IsZero() {
			if err := st.Delete(slot); err != nil {
				return err
			}
		} else {
			enc, err := rlp.EncodeToBytes(trimLeftZeros(value.Bytes()))
			if err != nil {
				return err
			}
			if err := st.Update(slot, enc); err != nil {
				return err
			}
		}
		obj.origin[key] = value
	}
	root, err := st.Commit(store.PutNode)
	if err != nil {
		return err
	}
	obj.account.Root = root
	obj.pending = make(map[types.Hash]types.Hash)
	return nil
}

// nodeFetcher adapts a TrieStore to the trie.NodeReader interface so
// storage subtries resolve through the same layered node space as the
// account trie.
type nodeFetcher struct {
	store trie.TrieStore
}

func (f nodeFetcher) Node(hash types.Hash) ([]byte, error) {
	return f.store.FetchNode(hash)
}

// trimLeftZeros strips leading zero bytes, the canonical storage-value
// form.
func trimLeftZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}

// deepCopy clones the object for snapshot isolation of maps.
func (obj *stateObject) deepCopy() *stateObject {
	cp := &stateObject{
		addr:           obj.addr,
		account:        *obj.account.Copy(),
		code:           append([]byte(nil), obj.code...),
		codeLoaded:     obj.codeLoaded,
		origin:         make(map[types.Hash]types.Hash, len(obj.origin)),
		pending:        make(map[types.Hash]types.Hash, len(obj.pending)),
		selfdestructed: obj.selfdestructed,
		created:        obj.created,
	}
	for k, v := range obj.origin {
		cp.origin[k] = v
	}
	for k, v := range obj.pending {
		cp.pending[k] = v
	}
	return cp
}

// balance convenience accessors.
func (obj *stateObject) balance() *big.Int {
	return obj.account.Balance
}
