package types

import "math/big"

// StateAccount is the world-state record stored per address in the
// account trie: nonce, balance, the root of the account's storage
// subtrie, and the keccak of its code.
type StateAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     Hash
	CodeHash []byte
}

// NewEmptyAccount returns the implicit account every untouched address
// maps to.
func NewEmptyAccount() *StateAccount {
	return &StateAccount{
		Balance:  new(big.Int),
		Root:     EmptyRootHash,
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// IsEmpty reports the EIP-161 emptiness predicate: zero nonce, zero
// balance, no code.
func (a *StateAccount) IsEmpty() bool {
	return a.Nonce == 0 &&
		(a.Balance == nil || a.Balance.Sign() == 0) &&
		(len(a.CodeHash) == 0 || BytesToHash(a.CodeHash) == EmptyCodeHash)
}

// Copy returns a deep copy.
func (a *StateAccount) Copy() *StateAccount {
	cp := &StateAccount{
		Nonce: a.Nonce,
		Root:  a.Root,
	}
	if a.Balance != nil {
		cp.Balance = new(big.Int).Set(a.Balance)
	} else {
		cp.Balance = new(big.Int)
	}
	cp.CodeHash = append([]byte(nil), a.CodeHash...)
	return cp
}
