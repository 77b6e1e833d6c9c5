package state

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/rlp"
	"github.com/eth2030/eth2030/trie"
)

// StateDB is the account-state facade: a mutable view over the account
// trie with journaled writes, so any span of execution can be rolled
// back to a snapshot.
type StateDB struct {
	store trie.TrieStore

	objects map[types.Address]*stateObject

	journal  []journalEntry
	refund   uint64
	logs     []*types.Log
	touched  map[types.Address]struct{}
}

// journalEntry undoes one state mutation.
type journalEntry func(s *StateDB)

// New opens the world state whose account trie root is the store's
// current root.
func New(store trie.TrieStore) *StateDB {
	return &StateDB{
		store:   store,
		objects: make(map[types.Address]*stateObject),
		touched: make(map[types.Address]struct{}),
	}
}

// Store exposes the underlying trie store (for code lookups by hash).
func (s *StateDB) Store() trie.TrieStore { return s.store }

// --- object loading ---

// accountKey is the trie key of an address.
func accountKey(addr types.Address) []byte {
	return crypto.Keccak256(addr.Bytes())
}

// getObject loads an account into the cache, returning nil when the
// address has no state.
func (s *StateDB) getObject(addr types.Address) *stateObject {
	if obj, ok := s.objects[addr]; ok {
		return obj
	}
	enc, err := s.store.GetKey(accountKey(addr))
	if err != nil {
		return nil
	}
	var account types.StateAccount
	if err := rlp.DecodeBytes(enc, &account); err != nil {
		return nil
	}
	if account.Balance == nil {
		account.Balance = new(big.Int)
	}
	obj := newStateObject(addr, account)
	s.objects[addr] = obj
	return obj
}

// getOrCreateObject loads an account, materializing the implicit empty
// account when the address is fresh.
func (s *StateDB) getOrCreateObject(addr types.Address) *stateObject {
	if obj := s.getObject(addr); obj != nil {
		return obj
	}
	obj := newStateObject(addr, *types.NewEmptyAccount())
	obj.created = true
	s.objects[addr] = obj
	s.journal = append(s.journal, func(s *StateDB) {
		delete(s.objects, addr)
	})
	return obj
}

// markTouched records the address in the touched set, undoable.
func (s *StateDB) markTouched(addr types.Address) {
	if _, ok := s.touched[addr]; ok {
		return
	}
	s.touched[addr] = struct{}{}
	s.journal = append(s.journal, func(s *StateDB) {
		delete(s.touched, addr)
	})
}

// --- account operations ---

// Exist reports whether the address has any state at all.
func (s *StateDB) Exist(addr types.Address) bool {
	return s.getObject(addr) != nil
}

// Empty reports the EIP-161 emptiness of the address.
func (s *StateDB) Empty(addr types.Address) bool {
	obj := s.getObject(addr)
	return obj == nil || obj.empty()
}

// CreateAccount makes a fresh account at addr. An existing balance is
// carried over, matching the protocol's contract-creation semantics.
func (s *StateDB) CreateAccount(addr types.Address) {
	prev := s.getObject(addr)
	fresh := newStateObject(addr, *types.NewEmptyAccount())
	fresh.created = true
	if prev != nil {
		fresh.account.Balance = new(big.Int).Set(prev.account.Balance)
		prevCopy := prev.deepCopy()
		s.journal = append(s.journal, func(s *StateDB) {
			s.objects[addr] = prevCopy
		})
	} else {
		s.journal = append(s.journal, func(s *StateDB) {
			delete(s.objects, addr)
		})
	}
	s.objects[addr] = fresh
	s.markTouched(addr)
}

func (s *StateDB) GetBalance(addr types.Address) *big.Int {
	if obj := s.getObject(addr); obj != nil {
		return new(big.Int).Set(obj.balance())
	}
	return new(big.Int)
}

func (s *StateDB) AddBalance(addr types.Address, amount *big.Int) {
	obj := s.getOrCreateObject(addr)
	s.markTouched(addr)
	if amount == nil || amount.Sign() == 0 {
		return
	}
	prev := new(big.Int).Set(obj.account.Balance)
	s.journal = append(s.journal, func(s *StateDB) {
		if o := s.objects[addr]; o != nil {
			o.account.Balance = prev
		}
	})
	obj.account.Balance = new(big.Int).Add(obj.account.Balance, amount)
}

func (s *StateDB) SubBalance(addr types.Address, amount *big.Int) {
	if amount == nil || amount.Sign() == 0 {
		s.markTouched(addr)
		return
	}
	obj := s.getOrCreateObject(addr)
	s.markTouched(addr)
	prev := new(big.Int).Set(obj.account.Balance)
	s.journal = append(s.journal, func(s *StateDB) {
		if o := s.objects[addr]; o != nil {
			o.account.Balance = prev
		}
	})
	obj.account.Balance = new(big.Int).Sub(obj.account.Balance, amount)
}

func (s *StateDB) GetNonce(addr types.Address) uint64 {
	if obj := s.getObject(addr); obj != nil {
		return obj.account.Nonce
	}
	return 0
}

func (s *StateDB) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getOrCreateObject(addr)
	s.markTouched(addr)
	prev := obj.account.Nonce
	s.journal = append(s.journal, func(s *StateDB) {
		if o := s.objects[addr]; o != nil {
			o.account.Nonce = prev
		}
	})
	obj.account.Nonce = nonce
}

// --- code ---

// codeKey prefixes the raw keyspace for code blobs.
func codeKey(codeHash []byte) []byte {
	return append([]byte("c"), codeHash...)
}

func (s *StateDB) GetCode(addr types.Address) []byte {
	obj := s.getObject(addr)
	if obj == nil {
		return nil
	}
	if obj.codeLoaded {
		return obj.code
	}
	hash := types.BytesToHash(obj.account.CodeHash)
	if hash == types.EmptyCodeHash {
		obj.code, obj.codeLoaded = nil, true
		return nil
	}
	code, err := s.store.GetRawKey(codeKey(obj.account.CodeHash))
	if err != nil {
		return nil
	}
	obj.code, obj.codeLoaded = code, true
	return code
}

func (s *StateDB) GetCodeSize(addr types.Address) int {
	return len(s.GetCode(addr))
}

func (s *StateDB) GetCodeHash(addr types.Address) types.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	return types.BytesToHash(obj.account.CodeHash)
}

func (s *StateDB) SetCode(addr types.Address, code []byte) {
	obj := s.getOrCreateObject(addr)
	s.markTouched(addr)
	prevHash := append([]byte(nil), obj.account.CodeHash...)
	prevCode, prevLoaded := obj.code, obj.codeLoaded
	s.journal = append(s.journal, func(s *StateDB) {
		if o := s.objects[addr]; o != nil {
			o.account.CodeHash = prevHash
			o.code, o.codeLoaded = prevCode, prevLoaded
		}
	})
	obj.account.CodeHash = crypto.Keccak256(code)
	obj.code = append([]byte(nil), code...)
	obj.codeLoaded = true
}

// --- storage ---

func (s *StateDB) GetState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	return obj.currentSlot(s.store, key)
}

// GetCommittedState reads the slot as of the last committed root,
// ignoring pending writes.
func (s *StateDB) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getObject(addr)
	if obj == nil {
		return types.Hash{}
	}
	return obj.committedSlot(s.store, key)
}

func (s *StateDB) SetState(addr types.Address, key, value types.Hash) {
	obj := s.getOrCreateObject(addr)
	s.markTouched(addr)
	prev, hadPending := obj.pending[key]
	s.journal = append(s.journal, func(s *StateDB) {
		o := s.objects[addr]
		if o == nil {
			return
		}
		if hadPending {
			o.pending[key] = prev
		} else {
			delete(o.pending, key)
		}
	})
	obj.pending[key] = value
}

// --- selfdestruct ---

func (s *StateDB) SelfDestruct(addr types.Address) {
	obj := s.getObject(addr)
	if obj == nil {
		return
	}
	s.markTouched(addr)
	prevFlag := obj.selfdestructed
	prevBalance := new(big.Int).Set(obj.account.Balance)
	s.journal = append(s.journal, func(s *StateDB) {
		if o := s.objects[addr]; o != nil {
			o.selfdestructed = prevFlag
			o.account.Balance = prevBalance
		}
	})
	obj.selfdestructed = true
	obj.account.Balance = new(big.Int)
}

func (s *StateDB) HasSelfDestructed(addr types.Address) bool {
	obj := s.getObject(addr)
	return obj != nil && obj.selfdestructed
}

// --- substate: refunds and logs ---

func (s *StateDB) AddRefund(gas uint64) {
	prev := s.refund
	s.journal = append(s.journal, func(s *StateDB) { s.refund = prev })
	s.refund += gas
}

func (s *StateDB) SubRefund(gas uint64) {
	prev := s.refund
	s.journal = append(s.journal, func(s *StateDB) { s.refund = prev })
	if gas > s.refund {
		panic(fmt.Sprintf("state: refund underflow (%d > %d)", gas, s.refund))
	}
	s.refund -= gas
}

func (s *StateDB) GetRefund() uint64 { return s.refund }

func (s *StateDB) AddLog(l *types.Log) {
	prevLen := len(s.logs)
	s.journal = append(s.journal, func(s *StateDB) { s.logs = s.logs[:prevLen] })
	l.Index = uint(prevLen)
	s.logs = append(s.logs, l)
}

// TakeLogs returns and clears the accumulated logs, stamping them with
// the transaction context.
func (s *StateDB) TakeLogs(txHash types.Hash, txIndex uint, blockNumber uint64) []*types.Log {
	logs := s.logs
	for _, l := range logs {
		l.TxHash = txHash
		l.TxIndex = txIndex
		l.BlockNumber = blockNumber
	}
	s.logs = nil
	return logs
}

// --- snapshots ---

// Snapshot marks the current journal position.
func (s *StateDB) Snapshot() int {
	return len(s.journal)
}

// RevertToSnapshot unwinds every mutation made after the snapshot.
func (s *StateDB) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		panic(fmt.Sprintf("state: invalid snapshot %d (journal %d)", id, len(s.journal)))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i](s)
	}
	s.journal = s.journal[:id]
}

// --- transaction finalization ---

// Finalise applies the end-of-transaction rules: selfdestructed accounts
// are removed first, then — when the hardfork clears touched accounts —
// every touched account left empty is removed too. The ordering matters:
// the emptiness check observes balances the selfdestructs left behind.
// The journal is reset; the transaction can no longer revert.
func (s *StateDB) Finalise(clearEmptyTouched bool) {
	for _, addr := range sortedAddresses(s.objects) {
		obj := s.objects[addr]
		if obj.selfdestructed {
			s.deleteObject(addr)
		}
	}
	if clearEmptyTouched {
		touched := make([]types.Address, 0, len(s.touched))
		for addr := range s.touched {
			touched = append(touched, addr)
		}
		sort.Slice(touched, func(i, j int) bool {
			return string(touched[i][:]) < string(touched[j][:])
		})
		for _, addr := range touched {
			if obj, ok := s.objects[addr]; ok && obj.empty() {
				s.deleteObject(addr)
			}
		}
	}
	s.touched = make(map[types.Address]struct{})
	s.refund = 0
	s.journal = nil
}

// deleteObject erases the account from the trie and the cache.
func (s *StateDB) deleteObject(addr types.Address) {
	s.store.RemoveKey(accountKey(addr))
	delete(s.objects, addr)
}

// IntermediateRoot writes every live cached account (and its dirty
// storage) into the tries and returns the resulting state root.
func (s *StateDB) IntermediateRoot() (types.Hash, error) {
	for _, addr := range sortedAddresses(s.objects) {
		obj := s.objects[addr]
		if err := obj.commitStorage(s.store); err != nil {
			return types.Hash{}, err
		}
		enc, err := rlp.EncodeToBytes(&obj.account)
		if err != nil {
			return types.Hash{}, err
		}
		if err := s.store.UpdateKey(accountKey(addr), enc); err != nil {
			return types.Hash{}, err
		}
	}
	return s.store.RootHash(), nil
}

// Commit finalizes the cached state into the store: storage subtries,
// account records, and code blobs, then commits the store itself and
// returns the state root.
func (s *StateDB) Commit() (types.Hash, error) {
	for _, addr := range sortedAddresses(s.objects) {
		obj := s.objects[addr]
		if obj.codeLoaded && len(obj.code) > 0 &&
			types.BytesToHash(obj.account.CodeHash) != types.EmptyCodeHash {
			if err := s.store.PutRawKey(codeKey(obj.account.CodeHash), obj.code); err != nil {
				return types.Hash{}, err
			}
		}
	}
	if _, err := s.IntermediateRoot(); err != nil {
		return types.Hash{}, err
	}
	return s.store.Commit()
}

// sortedAddresses returns the object keys in byte order, the
// deterministic iteration the substate sets require.
func sortedAddresses(m map[types.Address]*stateObject) []types.Address {
	out := make([]types.Address, 0, len(m))
	for a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}

// sortedHashes returns map keys in byte order.
func sortedHashes(m map[types.Hash]types.Hash) []types.Hash {
	out := make([]types.Hash, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}
