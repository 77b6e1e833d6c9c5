package types

import (
	"errors"
	"math/big"
	"sync/atomic"

	"github.com/eth2030/eth2030/rlp"
)

var (
	ErrNoSignature      = errors.New("types: transaction is unsigned")
	ErrBadSignatureLen  = errors.New("types: signature must be 65 bytes")
)

// txPayload is the canonical nine-field wire form of a transaction. To is
// a byte string so that contract creation (empty) and message call
// (20 bytes) share one encoding.
type txPayload struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       []byte
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

// Transaction is a signed value transfer, message call or contract
// creation.
type Transaction struct {
	inner txPayload

	hash atomic.Pointer[Hash]
}

// NewTransaction builds an unsigned message-call transaction. A nil to
// makes it a contract creation.
func NewTransaction(nonce uint64, to *Address, value *big.Int, gas uint64, gasPrice *big.Int, data []byte) *Transaction {
	p := txPayload{
		Nonce:    nonce,
		Gas:      gas,
		GasPrice: new(big.Int),
		Value:    new(big.Int),
		Data:     append([]byte(nil), data...),
		V:        new(big.Int),
		R:        new(big.Int),
		S:        new(big.Int),
	}
	if gasPrice != nil {
		p.GasPrice.Set(gasPrice)
	}
	if value != nil {
		p.Value.Set(value)
	}
	if to != nil {
		p.To = append([]byte(nil), to.Bytes()...)
	}
	return &Transaction{inner: p}
}

// Accessors over the wire form.

func (tx *Transaction) Nonce() uint64      { return tx.inner.Nonce }
func (tx *Transaction) Gas() uint64        { return tx.inner.Gas }
func (tx *Transaction) Data() []byte       { return tx.inner.Data }

func (tx *Transaction) GasPrice() *big.Int { return new(big.Int).Set(tx.inner.GasPrice) }
func (tx *Transaction) Value() *big.Int    { return new(big.Int).Set(tx.inner.Value) }

// To returns the destination, or nil for a contract creation.
func (tx *Transaction) To() *Address {
	if len(tx.inner.To) != AddressLength {
		return nil
	}
	a := BytesToAddress(tx.inner.To)
	return &a
}

// IsCreate reports whether the transaction creates a contract.
func (tx *Transaction) IsCreate() bool { return len(tx.inner.To) == 0 }

// RawSignatureValues returns v, r, s as stored on the wire.
func (tx *Transaction) RawSignatureValues() (v, r, s *big.Int) {
	return new(big.Int).Set(tx.inner.V), new(big.Int).Set(tx.inner.R), new(big.Int).Set(tx.inner.S)
}

// Protected reports whether the signature commits to a chain id
// (EIP-155).
func (tx *Transaction) Protected() bool {
	v := tx.inner.V
	return v.Sign() != 0 && v.Cmp(big.NewInt(27)) != 0 && v.Cmp(big.NewInt(28)) != 0
}

// ChainID extracts the chain id from a protected signature, or nil.
func (tx *Transaction) ChainID() *big.Int {
	if !tx.Protected() {
		return nil
	}
	// v = chain_id*2 + 35 + parity
	id := new(big.Int).Sub(tx.inner.V, big.NewInt(35))
	return id.Rsh(id, 1)
}

// Hash returns keccak(rlp(tx)) over the full nine-field form.
func (tx *Transaction) Hash() Hash {
	if h := tx.hash.Load(); h != nil {
		return *h
	}
	h := rlpHash(&tx.inner)
	tx.hash.Store(&h)
	return h
}

// SigningHash returns the digest the sender signs. With a chain id the
// EIP-155 form commits to (chain_id, 0, 0) in place of the signature.
func (tx *Transaction) SigningHash(chainID *big.Int) Hash {
	type unsigned struct {
		Nonce    uint64
		GasPrice *big.Int
		Gas      uint64
		To       []byte
		Value    *big.Int
		Data     []byte
	}
	u := unsigned{tx.inner.Nonce, tx.inner.GasPrice, tx.inner.Gas, tx.inner.To, tx.inner.Value, tx.inner.Data}
	if chainID == nil || chainID.Sign() == 0 {
		return rlpHash(&u)
	}
	type unsignedProtected struct {
		Nonce    uint64
		GasPrice *big.Int
		Gas      uint64
		To       []byte
		Value    *big.Int
		Data     []byte
		ChainID  *big.Int
		Zero1    uint64
		Zero2    uint64
	}
	return rlpHash(&unsignedProtected{
		Nonce: u.Nonce, GasPrice: u.GasPrice, Gas: u.Gas,
		To: u.To, Value: u.Value, Data: u.Data, ChainID: chainID,
	})
}

// WithSignature returns a copy of the transaction carrying the 65-byte
// [R || S || V] signature. A nil chainID produces a legacy 27/28 v.
func (tx *Transaction) WithSignature(sig []byte, chainID *big.Int) (*Transaction, error) {
	if len(sig) != 65 {
		return nil, ErrBadSignatureLen
	}
	cp := &Transaction{inner: tx.inner}
	cp.inner.R = new(big.Int).SetBytes(sig[:32])
	cp.inner.S = new(big.Int).SetBytes(sig[32:64])
	parity := uint64(sig[64])
	if chainID == nil || chainID.Sign() == 0 {
		cp.inner.V = new(big.Int).SetUint64(27 + parity)
	} else {
		v := new(big.Int).Lsh(chainID, 1)
		v.Add(v, big.NewInt(int64(35+parity)))
		cp.inner.V = v
	}
	return cp, nil
}

// SignatureForRecovery decomposes the stored signature into (r, s,
// recovery id), undoing the legacy or EIP-155 v packing.
func (tx *Transaction) SignatureForRecovery() (r, s *big.Int, recID byte, err error) {
	v, r, s := tx.RawSignatureValues()
	if r.Sign() == 0 && s.Sign() == 0 {
		return nil, nil, 0, ErrNoSignature
	}
	switch {
	case v.Cmp(big.NewInt(27)) == 0:
		return r, s, 0, nil
	case v.Cmp(big.NewInt(28)) == 0:
		return r, s, 1, nil
	case v.Cmp(big.NewInt(35)) >= 0:
		rem := new(big.Int).Sub(v, big.NewInt(35))
		return r, s, byte(rem.Bit(0)), nil
	default:
		return nil, nil, 0, errors.New("types: unrecognized signature v")
	}
}

// EncodeRLP returns the canonical encoding of the transaction.
func (tx *Transaction) EncodeRLP() ([]byte, error) {
	return rlp.EncodeToBytes(&tx.inner)
}

// DecodeTransaction parses a canonical transaction encoding.
func DecodeTransaction(data []byte) (*Transaction, error) {
	var p txPayload
	if err := rlp.DecodeBytes(data, &p); err != nil {
		return nil, err
	}
	return &Transaction{inner: p}, nil
}

// Transactions is a block's ordered transaction list.
type Transactions []*Transaction

// payloads exposes the wire forms for block encoding.
func (txs Transactions) payloads() []txPayload {
	out := make([]txPayload, len(txs))
	for i, tx := range txs {
		out[i] = tx.inner
	}
	return out
}

func transactionsFromPayloads(ps []txPayload) Transactions {
	out := make(Transactions, len(ps))
	for i := range ps {
		out[i] = &Transaction{inner: ps[i]}
	}
	return out
}
