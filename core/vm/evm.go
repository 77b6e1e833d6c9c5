package vm

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/params"
	"github.com/eth2030/eth2030/rlp"
)

// StateDB is what the interpreter needs from the account-state facade.
type StateDB interface {
	CreateAccount(types.Address)
	Exist(types.Address) bool
	Empty(types.Address) bool

	GetBalance(types.Address) *big.Int
	AddBalance(types.Address, *big.Int)
	SubBalance(types.Address, *big.Int)

	GetNonce(types.Address) uint64
	SetNonce(types.Address, uint64)

	GetCode(types.Address) []byte
	GetCodeSize(types.Address) int
	GetCodeHash(types.Address) types.Hash
	SetCode(types.Address, []byte)

	GetState(types.Address, types.Hash) types.Hash
	GetCommittedState(types.Address, types.Hash) types.Hash
	SetState(types.Address, types.Hash, types.Hash)

	SelfDestruct(types.Address)
	HasSelfDestructed(types.Address) bool

	AddRefund(uint64)
	SubRefund(uint64)
	GetRefund() uint64

	AddLog(*types.Log)

	Snapshot() int
	RevertToSnapshot(int)
}

// BlockContext carries the block-level fields visible to contracts.
type BlockContext struct {
	Coinbase   types.Address
	Number     *big.Int
	Time       uint64
	Difficulty *big.Int
	GasLimit   uint64

	// GetHash resolves BLOCKHASH queries within the ancestor window.
	GetHash func(uint64) types.Hash
}

// TxContext carries the transaction-level fields.
type TxContext struct {
	Origin   types.Address
	GasPrice *big.Int
}

// EVM executes message calls against a state facade under one hardfork
// configuration. A fresh EVM is made per transaction; nested frames
// share it and bump depth.
type EVM struct {
	Block   BlockContext
	Tx      TxContext
	State   StateDB
	Config  *params.Config
	ChainID *big.Int

	table *instructionSet
	depth int
}

// NewEVM prepares an interpreter for one transaction.
func NewEVM(block BlockContext, tx TxContext, statedb StateDB, chainID *big.Int, cfg *params.Config) *EVM {
	return &EVM{
		Block:   block,
		Tx:      tx,
		State:   statedb,
		Config:  cfg,
		ChainID: chainID,
		table:   instructionsFor(cfg),
	}
}

// canTransfer checks the sender balance covers amount.
func (evm *EVM) canTransfer(from types.Address, amount *big.Int) bool {
	return evm.State.GetBalance(from).Cmp(amount) >= 0
}

// transfer moves value between accounts.
func (evm *EVM) transfer(from, to types.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	evm.State.SubBalance(from, amount)
	evm.State.AddBalance(to, amount)
}

// Call runs the code at addr with the given input, transferring value
// from caller first. Returns output, leftover gas and the frame error.
func (evm *EVM) Call(caller, addr types.Address, input []byte, gas uint64, value *big.Int, static bool) ([]byte, uint64, error) {
	if evm.depth >= params.CallDepthLimit {
		return nil, gas, ErrDepth
	}
	if value.Sign() > 0 && !evm.canTransfer(caller, value) {
		return nil, gas, ErrInsufficientBalance
	}

	snapshot := evm.State.Snapshot()

	if !evm.State.Exist(addr) {
		if pc := evm.precompile(addr); pc == nil && evm.Config.ClearEmptyAccounts && value.Sign() == 0 {
			// A plain call into nothing touches nothing post-EIP-158.
			return nil, gas, nil
		}
		evm.State.CreateAccount(addr)
	}
	evm.transfer(caller, addr, value)

	out, left, err := evm.runTarget(caller, addr, addr, input, gas, value, static)
	if err != nil && err != ErrRevert {
		left = 0
	}
	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
	}
	return out, left, err
}

// CallCode runs addr's code in the caller's storage context. The value
// is not transferred (there is no separate recipient), only exposed to
// the callee.
func (evm *EVM) CallCode(caller, addr types.Address, input []byte, gas uint64, value *big.Int, static bool) ([]byte, uint64, error) {
	if evm.depth >= params.CallDepthLimit {
		return nil, gas, ErrDepth
	}
	if value.Sign() > 0 && !evm.canTransfer(caller, value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.State.Snapshot()
	out, left, err := evm.runTarget(caller, caller, addr, input, gas, value, static)
	if err != nil && err != ErrRevert {
		left = 0
	}
	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
	}
	return out, left, err
}

// DelegateCall runs addr's code in the caller's full context: storage,
// caller identity and value all inherited.
func (evm *EVM) DelegateCall(origCaller, self, addr types.Address, input []byte, gas uint64, value *big.Int, static bool) ([]byte, uint64, error) {
	if evm.depth >= params.CallDepthLimit {
		return nil, gas, ErrDepth
	}
	snapshot := evm.State.Snapshot()
	out, left, err := evm.runTarget(origCaller, self, addr, input, gas, value, static)
	if err != nil && err != ErrRevert {
		left = 0
	}
	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
	}
	return out, left, err
}

// StaticCall runs addr's code with every state mutation forbidden.
func (evm *EVM) StaticCall(caller, addr types.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	return evm.Call(caller, addr, input, gas, new(big.Int), true)
}

// runTarget dispatches to a precompile or interprets the target's code.
// self is the storage context, codeAddr the code source.
func (evm *EVM) runTarget(caller, self, codeAddr types.Address, input []byte, gas uint64, value *big.Int, static bool) ([]byte, uint64, error) {
	if pc := evm.precompile(codeAddr); pc != nil {
		return runPrecompile(pc, input, gas)
	}
	code := evm.State.GetCode(codeAddr)
	if len(code) == 0 {
		return nil, gas, nil
	}
	f := newFrame(caller, self, value, input, code, gas)
	evm.depth++
	out, err := evm.interpret(f, static)
	evm.depth--
	return out, f.gas, err
}

// CreateAddress derives the CREATE address: keccak(rlp([sender, nonce]))
// truncated to 20 bytes.
func CreateAddress(sender types.Address, nonce uint64) types.Address {
	type pair struct {
		Sender types.Address
		Nonce  uint64
	}
	enc, _ := rlp.EncodeToBytes(&pair{sender, nonce})
	return types.BytesToAddress(crypto.Keccak256(enc)[12:])
}

// Create2Address derives the CREATE2 address:
// keccak(0xff ++ sender ++ salt ++ keccak(initCode)) truncated to 20.
func Create2Address(sender types.Address, salt types.Hash, initCodeHash []byte) types.Address {
	return types.BytesToAddress(crypto.Keccak256(
		[]byte{0xff}, sender.Bytes(), salt.Bytes(), initCodeHash,
	)[12:])
}

// Create deploys a contract from initCode at the CREATE address.
func (evm *EVM) Create(caller types.Address, initCode []byte, gas uint64, value *big.Int) ([]byte, types.Address, uint64, error) {
	addr := CreateAddress(caller, evm.State.GetNonce(caller))
	return evm.create(caller, addr, initCode, gas, value)
}

// Create2 deploys a contract from initCode at the salted address.
func (evm *EVM) Create2(caller types.Address, initCode []byte, salt types.Hash, gas uint64, value *big.Int) ([]byte, types.Address, uint64, error) {
	addr := Create2Address(caller, salt, crypto.Keccak256(initCode))
	return evm.create(caller, addr, initCode, gas, value)
}

func (evm *EVM) create(caller, addr types.Address, initCode []byte, gas uint64, value *big.Int) ([]byte, types.Address, uint64, error) {
	if evm.depth >= params.CallDepthLimit {
		return nil, types.Address{}, gas, ErrDepth
	}
	if value.Sign() > 0 && !evm.canTransfer(caller, value) {
		return nil, types.Address{}, gas, ErrInsufficientBalance
	}

	// The creator's nonce increments whether or not the init code
	// succeeds.
	evm.State.SetNonce(caller, evm.State.GetNonce(caller)+1)

	// An account with code or nonce at the target is a collision.
	if evm.State.GetNonce(addr) != 0 ||
		(evm.State.GetCodeHash(addr) != types.Hash{} && evm.State.GetCodeHash(addr) != types.EmptyCodeHash) {
		return nil, types.Address{}, 0, ErrContractCollision
	}

	snapshot := evm.State.Snapshot()

	evm.State.CreateAccount(addr)
	if evm.Config.CreatorNonceStartsAtOne {
		evm.State.SetNonce(addr, 1)
	}
	evm.transfer(caller, addr, value)

	f := newFrame(caller, addr, value, nil, initCode, gas)
	evm.depth++
	out, err := evm.interpret(f, false)
	evm.depth--

	if err == nil {
		err = evm.depositCode(addr, out, f)
	}

	if err != nil {
		evm.State.RevertToSnapshot(snapshot)
		left := f.gas
		if err != ErrRevert {
			left = 0
		}
		return out, addr, left, err
	}
	return out, addr, f.gas, nil
}

// depositCode validates and stores the code a constructor returned,
// charging the per-byte deposit gas.
func (evm *EVM) depositCode(addr types.Address, code []byte, f *frame) error {
	if evm.Config.RejectCodePrefixEF && len(code) > 0 && code[0] == 0xEF {
		return ErrCodeStartsWithEF
	}
	if evm.Config.MaxCodeSize > 0 && len(code) > evm.Config.MaxCodeSize {
		return ErrCodeSizeLimit
	}
	if !f.useGas(uint64(len(code)) * params.CreateDataGas) {
		return ErrOutOfGas
	}
	evm.State.SetCode(addr, code)
	return nil
}

// callForwardGas applies the EIP-150 rule: at most 63/64 of the
// remaining gas may follow a call.
func (evm *EVM) callForwardGas(available, requested uint64) uint64 {
	if evm.Config.TailCallGasRule {
		limit := available - available/64
		if requested > limit {
			return limit
		}
	}
	return requested
}
