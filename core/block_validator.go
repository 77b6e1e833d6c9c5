package core

import (
	"errors"
	"fmt"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/params"
)

// Protocol-invalid conditions: the block is rejected and the peer that
// sent it is punishable.
var (
	ErrUnknownParent      = errors.New("core: unknown parent block")
	ErrBadNumber          = errors.New("core: block number not parent+1")
	ErrBadTimestamp       = errors.New("core: timestamp not after parent")
	ErrGasLimitOutOfRange = errors.New("core: gas limit outside allowed drift")
	ErrBadDifficulty      = errors.New("core: difficulty does not match formula")
	ErrExtraTooLong       = errors.New("core: extra data too long")
	ErrGasUsedExceedsLimit = errors.New("core: gas used above gas limit")
	ErrBadSeal            = errors.New("core: invalid seal")
	ErrTxRootMismatch     = errors.New("core: transactions root mismatch")
	ErrOmmersHashMismatch = errors.New("core: ommers hash mismatch")
	ErrStateRootMismatch  = errors.New("core: state root mismatch")
	ErrReceiptRootMismatch = errors.New("core: receipts root mismatch")
	ErrGasUsedMismatch    = errors.New("core: gas used mismatch")
	ErrBloomMismatch      = errors.New("core: logs bloom mismatch")
)

// SealVerifier abstracts the proof-of-work check (the Ethash
// collaborator): implementations verify mix digest and nonce against
// the header.
type SealVerifier interface {
	VerifySeal(header *types.Header) error
}

// AcceptAllSeals skips seal verification, the mode used by tests and
// non-mining embedders.
type AcceptAllSeals struct{}

func (AcceptAllSeals) VerifySeal(*types.Header) error { return nil }

// Validator checks headers and fully executed blocks for one chain.
type Validator struct {
	chain *params.Chain
	seal  SealVerifier
}

// NewValidator builds a validator; a nil seal verifier accepts all
// seals.
func NewValidator(chain *params.Chain, seal SealVerifier) *Validator {
	if seal == nil {
		seal = AcceptAllSeals{}
	}
	return &Validator{chain: chain, seal: seal}
}

// ValidateHeader checks everything about a header that is decidable
// without executing the body.
func (v *Validator) ValidateHeader(header, parent *types.Header) error {
	if header.ParentHash != parent.Hash() {
		return fmt.Errorf("%w: header points at %s", ErrUnknownParent, header.ParentHash.Hex())
	}

	expectedNumber := parent.NumberU64() + 1
	if header.NumberU64() != expectedNumber {
		return fmt.Errorf("%w: got %d, want %d", ErrBadNumber, header.NumberU64(), expectedNumber)
	}
	if header.Time <= parent.Time {
		return fmt.Errorf("%w: %d <= %d", ErrBadTimestamp, header.Time, parent.Time)
	}
	if len(header.Extra) > params.MaximumExtraDataSize {
		return fmt.Errorf("%w: %d bytes", ErrExtraTooLong, len(header.Extra))
	}
	if header.GasUsed > header.GasLimit {
		return fmt.Errorf("%w: %d > %d", ErrGasUsedExceedsLimit, header.GasUsed, header.GasLimit)
	}

	if err := checkGasLimitDrift(parent.GasLimit, header.GasLimit); err != nil {
		return err
	}

	cfg := v.chain.ConfigAt(header.NumberU64())
	expectedDiff := CalcDifficulty(cfg, header.Time, parent)
	if header.Difficulty == nil || header.Difficulty.Cmp(expectedDiff) != 0 {
		return fmt.Errorf("%w: got %v, want %v", ErrBadDifficulty, header.Difficulty, expectedDiff)
	}

	if cfg.SealPoW {
		if err := v.seal.VerifySeal(header); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSeal, err)
		}
	}
	return nil
}

// checkGasLimitDrift enforces the ±1/1024 drift bound and the floor.
func checkGasLimitDrift(parentLimit, limit uint64) error {
	if limit < params.MinGasLimit {
		return fmt.Errorf("%w: %d below floor", ErrGasLimitOutOfRange, limit)
	}
	bound := parentLimit / params.GasLimitBoundDivisor
	if limit > parentLimit+bound || limit+bound < parentLimit {
		return fmt.Errorf("%w: %d vs parent %d", ErrGasLimitOutOfRange, limit, parentLimit)
	}
	return nil
}

// ValidateBody checks the header's commitments to the block contents.
func (v *Validator) ValidateBody(block *types.Block) error {
	header := block.Header()

	txRoot, err := DeriveTxRoot(block.Transactions())
	if err != nil {
		return err
	}
	if txRoot != header.TxRoot {
		return fmt.Errorf("%w: derived %s, header %s", ErrTxRootMismatch, txRoot.Hex(), header.TxRoot.Hex())
	}
	if got := types.OmmersCommitment(block.Ommers()); got != header.OmmersHash {
		return fmt.Errorf("%w: derived %s, header %s", ErrOmmersHashMismatch, got.Hex(), header.OmmersHash.Hex())
	}
	return nil
}

// Process applies every transaction of the block in header order
// against statedb, pays the block and ommer rewards, and returns the
// receipts.
func (v *Validator) Process(block *types.Block, statedb *state.StateDB, getHash func(uint64) types.Hash) (types.Receipts, error) {
	var (
		header     = block.Header()
		cfg        = v.chain.ConfigAt(header.NumberU64())
		gp         = NewGasPool(header.GasLimit)
		receipts   types.Receipts
		cumulative uint64
	)
	for i, tx := range block.Transactions() {
		receipt, used, err := ApplyTransaction(v.chain, cfg, getHash, statedb, header, tx, uint(i), gp, cumulative)
		if err != nil {
			return nil, fmt.Errorf("tx %d (%s): %w", i, tx.Hash().Hex(), err)
		}
		cumulative += used
		receipts = append(receipts, receipt)
	}

	AccumulateRewards(cfg, statedb, header, block.Ommers())
	statedb.Finalise(cfg.ClearEmptyAccounts)
	return receipts, nil
}

// ValidateExecuted compares the post-execution results against the
// header: state root, receipts root, gas used and logs bloom.
func (v *Validator) ValidateExecuted(block *types.Block, stateRoot types.Hash, receipts types.Receipts) error {
	header := block.Header()

	if stateRoot != header.StateRoot {
		return fmt.Errorf("%w: computed %s, header %s", ErrStateRootMismatch, stateRoot.Hex(), header.StateRoot.Hex())
	}
	receiptRoot, err := DeriveReceiptRoot(receipts)
	if err != nil {
		return err
	}
	if receiptRoot != header.ReceiptRoot {
		return fmt.Errorf("%w: computed %s, header %s", ErrReceiptRootMismatch, receiptRoot.Hex(), header.ReceiptRoot.Hex())
	}
	if used := receipts.GasUsedByBlock(); used != header.GasUsed {
		return fmt.Errorf("%w: computed %d, header %d", ErrGasUsedMismatch, used, header.GasUsed)
	}
	if bloom := types.CreateBloom(receipts); bloom != header.Bloom {
		return ErrBloomMismatch
	}
	return nil
}
