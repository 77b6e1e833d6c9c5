package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/eth2030/eth2030/core/state"
	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/core/vm"
	"github.com/eth2030/eth2030/params"
)

// Transaction-invalid conditions: these drop the transaction (and doom
// any block including it) without ever touching state.
var (
	ErrNonceMismatch    = errors.New("core: transaction nonce mismatch")
	ErrInsufficientFunds = errors.New("core: sender cannot cover gas and value")
	ErrIntrinsicGas     = errors.New("core: gas limit below intrinsic cost")
)

// IntrinsicGas is the fixed minimum cost of a transaction before any
// EVM execution: the base fee, the calldata bytes, and the creation
// surcharge.
func IntrinsicGas(data []byte, isCreate bool, cfg *params.Config) uint64 {
	gas := cfg.TxGas
	if isCreate {
		gas += cfg.TxCreateGas
	}
	for _, b := range data {
		if b == 0 {
			gas += cfg.TxDataZeroGas
		} else {
			gas += cfg.TxDataNonZeroGas
		}
	}
	return gas
}

// ApplyTransaction runs one transaction against the state, settles gas
// with the sender and beneficiary, finalizes the substate, and returns
// the receipt. The header supplies the execution environment; gp meters
// the block's gas budget.
func ApplyTransaction(
	chain *params.Chain,
	cfg *params.Config,
	getHash func(uint64) types.Hash,
	statedb *state.StateDB,
	header *types.Header,
	tx *types.Transaction,
	txIndex uint,
	gp *GasPool,
	cumulativeGas uint64,
) (*types.Receipt, uint64, error) {
	// Signer recovery and preflight checks (spec steps 1-3).
	from, err := Sender(tx, chain.ChainID, cfg)
	if err != nil {
		return nil, 0, err
	}
	if statedb.GetNonce(from) != tx.Nonce() {
		return nil, 0, fmt.Errorf("%w: account %d, tx %d", ErrNonceMismatch, statedb.GetNonce(from), tx.Nonce())
	}

	gasLimit := tx.Gas()
	gasPrice := tx.GasPrice()
	upfront := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
	needed := new(big.Int).Add(upfront, tx.Value())
	if statedb.GetBalance(from).Cmp(needed) < 0 {
		return nil, 0, fmt.Errorf("%w: balance %v, need %v", ErrInsufficientFunds, statedb.GetBalance(from), needed)
	}
	intrinsic := IntrinsicGas(tx.Data(), tx.IsCreate(), cfg)
	if gasLimit < intrinsic {
		return nil, 0, fmt.Errorf("%w: limit %d, intrinsic %d", ErrIntrinsicGas, gasLimit, intrinsic)
	}
	if err := gp.Reserve(gasLimit); err != nil {
		return nil, 0, err
	}

	// Up-front gas purchase (step 4). The nonce bump for a message call
	// happens here; for a creation it happens inside Create, which must
	// read the pre-bump nonce to derive the contract address.
	statedb.SubBalance(from, upfront)
	if !tx.IsCreate() {
		statedb.SetNonce(from, tx.Nonce()+1)
	}

	// Execution (step 5).
	evm := vm.NewEVM(
		vm.BlockContext{
			Coinbase:   header.Beneficiary,
			Number:     new(big.Int).Set(header.Number),
			Time:       header.Time,
			Difficulty: new(big.Int).Set(header.Difficulty),
			GasLimit:   header.GasLimit,
			GetHash:    getHash,
		},
		vm.TxContext{Origin: from, GasPrice: gasPrice},
		statedb, chain.ChainID, cfg,
	)

	gasAfterIntrinsic := gasLimit - intrinsic
	var (
		remaining uint64
		vmErr     error
	)
	if tx.IsCreate() {
		_, _, remaining, vmErr = evm.Create(from, tx.Data(), gasAfterIntrinsic, tx.Value())
	} else {
		_, remaining, vmErr = evm.Call(from, *tx.To(), tx.Data(), gasAfterIntrinsic, tx.Value(), false)
	}

	// Gas settlement with the capped refund (steps 6-7).
	gasUsed := gasLimit - remaining
	refund := statedb.GetRefund()
	if cap := gasUsed / cfg.RefundQuotient; refund > cap {
		refund = cap
	}
	gasUsed -= refund
	remaining = gasLimit - gasUsed

	statedb.AddBalance(from, new(big.Int).Mul(new(big.Int).SetUint64(remaining), gasPrice))
	statedb.AddBalance(header.Beneficiary, new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), gasPrice))
	gp.Return(remaining)

	// Substate application (step 8): selfdestructs, then dead touched
	// accounts when the fork clears them.
	logs := statedb.TakeLogs(tx.Hash(), txIndex, header.NumberU64())
	statedb.Finalise(cfg.ClearEmptyAccounts)

	// Receipt synthesis (step 9).
	var receipt *types.Receipt
	if cfg.AtLeast(params.Byzantium) {
		receipt = types.NewStatusReceipt(vmErr == nil, cumulativeGas+gasUsed, logs)
	} else {
		root, err := statedb.IntermediateRoot()
		if err != nil {
			return nil, 0, err
		}
		receipt = types.NewRootReceipt(root, cumulativeGas+gasUsed, logs)
	}
	receipt.TxHash = tx.Hash()
	receipt.GasUsed = gasUsed
	if tx.IsCreate() && vmErr == nil {
		receipt.ContractAddress = vm.CreateAddress(from, tx.Nonce())
	}
	return receipt, gasUsed, nil
}
