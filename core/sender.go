// Package core ties the engine together: the transaction processor, the
// block and header validators, the proof-of-work difficulty and ommer
// rules, the blocktree with canonicalization by total difficulty, and
// genesis construction.
package core

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/params"
)

var (
	ErrInvalidSignature = errors.New("core: invalid transaction signature")
	ErrWrongChainID     = errors.New("core: signature bound to another chain")
)

// Sender recovers the transaction's signer under the given hardfork
// rules: the low-s bound applies from Homestead, and EIP-155 protected
// signatures must match the local chain id (and are only accepted once
// replay protection is live).
func Sender(tx *types.Transaction, chainID *big.Int, cfg *params.Config) (types.Address, error) {
	r, s, recID, err := tx.SignatureForRecovery()
	if err != nil {
		return types.Address{}, err
	}
	if !crypto.ValidSignatureValues(recID, r, s, cfg.StrictSignatureS) {
		return types.Address{}, ErrInvalidSignature
	}

	var signingChainID *big.Int
	if tx.Protected() {
		if !cfg.ReplayProtection {
			return types.Address{}, ErrInvalidSignature
		}
		signingChainID = tx.ChainID()
		if chainID != nil && signingChainID.Cmp(chainID) != 0 {
			return types.Address{}, ErrWrongChainID
		}
	}

	digest := tx.SigningHash(signingChainID)

	sig := make([]byte, 65)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = recID

	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return types.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(pub), nil
}

// SignTx signs the transaction with the given key, producing the
// EIP-155 protected form when a chain id is supplied.
func SignTx(tx *types.Transaction, key *ecdsa.PrivateKey, chainID *big.Int) (*types.Transaction, error) {
	digest := tx.SigningHash(chainID)
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, err
	}
	return tx.WithSignature(sig, chainID)
}
