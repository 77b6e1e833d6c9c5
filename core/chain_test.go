package core

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/core/vm"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/params"
)

// testChain bundles a funded sender with a block tree over the
// all-forks chain definition.
type testChain struct {
	tree *BlockTree
	key  *ecdsa.PrivateKey
	addr types.Address
}

func newTestChain(t *testing.T, extraAlloc map[types.Address]GenesisAccount) *testChain {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := crypto.PubkeyToAddress(&key.PublicKey)

	alloc := map[types.Address]GenesisAccount{
		addr: {Balance: new(big.Int).Mul(big.NewInt(10), params.Ether)},
	}
	for a, acct := range extraAlloc {
		alloc[a] = acct
	}

	tree, err := NewBlockTree(params.AllForksChain, nil, &Genesis{
		Chain: params.AllForksChain,
		Alloc: alloc,
	})
	if err != nil {
		t.Fatalf("NewBlockTree: %v", err)
	}
	return &testChain{tree: tree, key: key, addr: addr}
}

func (tc *testChain) signedTransfer(t *testing.T, nonce uint64, to types.Address, amount int64, gas uint64, data []byte) *types.Transaction {
	t.Helper()
	var dst *types.Address
	if to != (types.Address{}) {
		dst = &to
	}
	tx := types.NewTransaction(nonce, dst, big.NewInt(amount), gas, big.NewInt(1), data)
	signed, err := SignTx(tx, tc.key, params.AllForksChain.ChainID)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	return signed
}

func (tc *testChain) mine(t *testing.T, txs types.Transactions) *types.Block {
	t.Helper()
	block, err := tc.tree.BuildBlock(types.HexToAddress("0xfe"), txs, nil, 13)
	if err != nil {
		t.Fatalf("BuildBlock: %v", err)
	}
	if err := tc.tree.AddBlock(block); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	return block
}

func TestSimpleTransferEndToEnd(t *testing.T) {
	tc := newTestChain(t, nil)
	recipient := types.HexToAddress("0xb0b0000000000000000000000000000000000001")

	before := func() *big.Int {
		s, _ := tc.tree.StateAt(tc.tree.Best().Hash())
		return s.GetBalance(tc.addr)
	}()

	block := tc.mine(t, types.Transactions{
		tc.signedTransfer(t, 0, recipient, 100, 21000, nil),
	})

	statedb, err := tc.tree.StateAt(block.Hash())
	if err != nil {
		t.Fatalf("StateAt: %v", err)
	}
	if got := statedb.GetBalance(recipient); got.Int64() != 100 {
		t.Errorf("recipient balance = %v, want 100", got)
	}
	// Sender pays value plus exactly the intrinsic gas at price 1.
	wantSender := new(big.Int).Sub(before, big.NewInt(100+21000))
	if got := statedb.GetBalance(tc.addr); got.Cmp(wantSender) != 0 {
		t.Errorf("sender balance = %v, want %v", got, wantSender)
	}
	if got := statedb.GetNonce(tc.addr); got != 1 {
		t.Errorf("sender nonce = %d, want 1", got)
	}

	receipts := tc.tree.GetReceipts(block.Hash())
	if len(receipts) != 1 || !receipts[0].Succeeded() {
		t.Fatalf("receipts = %+v", receipts)
	}
	if receipts[0].GasUsed != 21000 || block.GasUsed() != 21000 {
		t.Errorf("gas used = %d / %d, want 21000", receipts[0].GasUsed, block.GasUsed())
	}
	if len(receipts[0].Logs) != 0 {
		t.Error("plain transfer must emit no logs")
	}
}

func TestOutOfGasSstoreIsMinedButIneffective(t *testing.T) {
	// A contract whose body stores on first touch, called with intrinsic
	// gas only: the transaction mines, the sender pays the full limit,
	// the store never happens.
	contractAddr := types.HexToAddress("0xcc00000000000000000000000000000000000001")
	tc := newTestChain(t, map[types.Address]GenesisAccount{
		contractAddr: {
			Balance: new(big.Int),
			Code: []byte{
				byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.STOP),
			},
		},
	})

	block := tc.mine(t, types.Transactions{
		tc.signedTransfer(t, 0, contractAddr, 0, 21000, nil),
	})

	receipts := tc.tree.GetReceipts(block.Hash())
	if len(receipts) != 1 {
		t.Fatal("transaction not mined")
	}
	if receipts[0].Succeeded() {
		t.Error("out-of-gas execution must report failure")
	}
	if receipts[0].GasUsed != 21000 {
		t.Errorf("gas used = %d, want the full 21000", receipts[0].GasUsed)
	}

	statedb, _ := tc.tree.StateAt(block.Hash())
	if !statedb.GetState(contractAddr, types.Hash{}).IsZero() {
		t.Error("storage[0] must stay unchanged")
	}
}

func TestNestedRevertPreservesOuterWrites(t *testing.T) {
	// P: storage[0]=1, CALL Q, storage[0]=2. Q: storage[99]=9, REVERT.
	p := types.HexToAddress("0xcc00000000000000000000000000000000000011")
	q := types.HexToAddress("0xcc00000000000000000000000000000000000012")

	pCode := []byte{
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 0,
		byte(vm.PUSH1) + 19,
	}
	pCode = append(pCode, q.Bytes()...)
	pCode = append(pCode,
		byte(vm.PUSH1)+1, 0xff, 0xff,
		byte(vm.CALL), byte(vm.POP),
		byte(vm.PUSH1), 2, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.STOP),
	)
	qCode := []byte{
		byte(vm.PUSH1), 9, byte(vm.PUSH1), 99, byte(vm.SSTORE),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.REVERT),
	}

	tc := newTestChain(t, map[types.Address]GenesisAccount{
		p: {Balance: new(big.Int), Code: pCode},
		q: {Balance: new(big.Int), Code: qCode},
	})

	block := tc.mine(t, types.Transactions{
		tc.signedTransfer(t, 0, p, 0, 300000, nil),
	})

	statedb, _ := tc.tree.StateAt(block.Hash())
	if got := statedb.GetState(p, types.Hash{}); got != types.BytesToHash([]byte{2}) {
		t.Errorf("P.storage[0] = %s, want 2", got.Hex())
	}
	if !statedb.GetState(q, types.BytesToHash([]byte{99})).IsZero() {
		t.Error("Q.storage[99] must be absent after the revert")
	}
}

func TestContractCreationTransaction(t *testing.T) {
	tc := newTestChain(t, nil)

	// Constructor returns a single STOP byte as runtime code.
	initCode := []byte{
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.MSTORE8),
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.RETURN),
	}
	block := tc.mine(t, types.Transactions{
		tc.signedTransfer(t, 0, types.Address{}, 0, 200000, initCode),
	})

	receipts := tc.tree.GetReceipts(block.Hash())
	if len(receipts) != 1 || !receipts[0].Succeeded() {
		t.Fatal("creation transaction failed")
	}
	created := receipts[0].ContractAddress
	if created != vm.CreateAddress(tc.addr, 0) {
		t.Error("receipt contract address mismatch")
	}

	statedb, _ := tc.tree.StateAt(block.Hash())
	if len(statedb.GetCode(created)) != 1 {
		t.Errorf("deployed code = %x", statedb.GetCode(created))
	}
}

func TestRefundCappedByQuotient(t *testing.T) {
	// Store a slot in one block, clear it in the next: clearing earns a
	// refund that the quotient caps, so at least gasUsed*(q-1)/q of the
	// raw usage is still charged.
	contractAddr := types.HexToAddress("0xcc00000000000000000000000000000000000021")
	// Slot 7 receives calldata[0]: a 5 there stores 5, a 0 clears the slot.
	code := []byte{
		byte(vm.PUSH1), 0, byte(vm.CALLDATALOAD),
		byte(vm.PUSH1), 0, byte(vm.BYTE), // top byte of calldataload(0)
		byte(vm.PUSH1), 7, byte(vm.SSTORE),
		byte(vm.STOP),
	}
	tc := newTestChain(t, map[types.Address]GenesisAccount{
		contractAddr: {Balance: new(big.Int), Code: code},
	})

	set := make([]byte, 32)
	set[0] = 5
	b1 := tc.mine(t, types.Transactions{
		tc.signedTransfer(t, 0, contractAddr, 0, 200000, set),
	})
	r1 := tc.tree.GetReceipts(b1.Hash())
	if !r1[0].Succeeded() {
		t.Fatal("set transaction failed")
	}
	st1, _ := tc.tree.StateAt(b1.Hash())
	if st1.GetState(contractAddr, types.BytesToHash([]byte{7})).IsZero() {
		t.Fatal("slot not set")
	}

	clear := make([]byte, 32)
	b2 := tc.mine(t, types.Transactions{
		tc.signedTransfer(t, 1, contractAddr, 0, 200000, clear),
	})
	r2 := tc.tree.GetReceipts(b2.Hash())
	if !r2[0].Succeeded() {
		t.Fatal("clear transaction failed")
	}
	st2, _ := tc.tree.StateAt(b2.Hash())
	if !st2.GetState(contractAddr, types.BytesToHash([]byte{7})).IsZero() {
		t.Fatal("slot not cleared")
	}

	// London's quotient is 5: the refund can shave at most 1/5 of the
	// gas actually consumed.
	if r2[0].GasUsed < 21000*4/5 {
		t.Errorf("refund exceeded the cap: gas used %d", r2[0].GasUsed)
	}
}

func TestInvalidTransactionsRejectBlocks(t *testing.T) {
	tc := newTestChain(t, nil)
	recipient := types.HexToAddress("0xb1")

	// Wrong nonce.
	badNonce := tc.signedTransfer(t, 7, recipient, 1, 21000, nil)
	if _, err := tc.tree.BuildBlock(types.Address{}, types.Transactions{badNonce}, nil, 13); !errors.Is(err, ErrNonceMismatch) {
		t.Errorf("nonce err = %v", err)
	}

	// Below intrinsic gas.
	tooLittle := tc.signedTransfer(t, 0, recipient, 1, 20999, nil)
	if _, err := tc.tree.BuildBlock(types.Address{}, types.Transactions{tooLittle}, nil, 13); !errors.Is(err, ErrIntrinsicGas) {
		t.Errorf("intrinsic err = %v", err)
	}

	// More value than the account holds.
	overdraft := new(big.Int).Mul(big.NewInt(20), params.Ether)
	raw := types.NewTransaction(0, &recipient, overdraft, 21000, big.NewInt(1), nil)
	tooRich, err := SignTx(raw, tc.key, params.AllForksChain.ChainID)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	if _, err := tc.tree.BuildBlock(types.Address{}, types.Transactions{tooRich}, nil, 13); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("funds err = %v", err)
	}
}

func TestHeaderValidationRejectsTampering(t *testing.T) {
	tc := newTestChain(t, nil)
	block, err := tc.tree.BuildBlock(types.Address{}, nil, nil, 13)
	if err != nil {
		t.Fatalf("BuildBlock: %v", err)
	}

	tamper := func(mutate func(*types.Header)) error {
		h := block.Header()
		mutate(h)
		return tc.tree.AddBlock(types.NewBlock(h, block.Transactions(), block.Ommers()))
	}

	if err := tamper(func(h *types.Header) { h.GasLimit = h.GasLimit * 2 }); !errors.Is(err, ErrGasLimitOutOfRange) {
		t.Errorf("gas limit err = %v", err)
	}
	if err := tamper(func(h *types.Header) { h.Difficulty = big.NewInt(1) }); !errors.Is(err, ErrBadDifficulty) {
		t.Errorf("difficulty err = %v", err)
	}
	if err := tamper(func(h *types.Header) { h.Time = 0 }); !errors.Is(err, ErrBadTimestamp) {
		t.Errorf("timestamp err = %v", err)
	}
	if err := tamper(func(h *types.Header) { h.StateRoot = types.Hash{} }); !errors.Is(err, ErrStateRootMismatch) {
		t.Errorf("state root err = %v", err)
	}

	// The untampered block still lands.
	if err := tc.tree.AddBlock(block); err != nil {
		t.Fatalf("valid block rejected: %v", err)
	}
}

func TestReorgMonotonicityAndCanonicalSwitch(t *testing.T) {
	tc := newTestChain(t, nil)
	genesisHash := tc.tree.Genesis().Hash()

	// Branch A: one block. Branch B: two blocks, built on genesis.
	blockA := tc.mine(t, nil)
	prevTD := tc.tree.TotalDifficulty(tc.tree.Best().Hash())

	blockB1, err := tc.tree.BuildBlockOn(genesisHash, types.HexToAddress("0xb1"), nil, nil, 14)
	if err != nil {
		t.Fatalf("BuildBlockOn: %v", err)
	}
	if err := tc.tree.AddBlock(blockB1); err != nil {
		t.Fatalf("AddBlock(B1): %v", err)
	}
	// A sibling of equal weight can win only through the hash tie-break;
	// the best block's cumulative difficulty never drops.
	if tc.tree.Best().Hash() != blockA.Hash() && tc.tree.TotalDifficulty(tc.tree.Best().Hash()).Cmp(prevTD) < 0 {
		t.Fatal("best pointer regressed on sibling insert")
	}

	blockB2, err := tc.tree.BuildBlockOn(blockB1.Hash(), types.HexToAddress("0xb1"), nil, nil, 13)
	if err != nil {
		t.Fatalf("BuildBlockOn(B2): %v", err)
	}
	if err := tc.tree.AddBlock(blockB2); err != nil {
		t.Fatalf("AddBlock(B2): %v", err)
	}

	// The longer branch wins with strictly greater cumulative
	// difficulty, and the canonical mapping switches atomically.
	if tc.tree.Best().Hash() != blockB2.Hash() {
		t.Fatal("best pointer did not follow the heavier branch")
	}
	if tc.tree.TotalDifficulty(blockB2.Hash()).Cmp(prevTD) <= 0 {
		t.Fatal("reorg must strictly increase cumulative difficulty")
	}
	if got := tc.tree.CanonicalBlock(1); got == nil || got.Hash() != blockB1.Hash() {
		t.Fatal("canonical height 1 must now be branch B")
	}
	if got := tc.tree.CanonicalBlock(2); got == nil || got.Hash() != blockB2.Hash() {
		t.Fatal("canonical height 2 missing after reorg")
	}
}

func TestBlockRewardPaid(t *testing.T) {
	tc := newTestChain(t, nil)
	beneficiary := types.HexToAddress("0xfe")

	block := tc.mine(t, nil)
	statedb, _ := tc.tree.StateAt(block.Hash())

	cfg := params.AllForksChain.ConfigAt(1)
	if got := statedb.GetBalance(beneficiary); got.Cmp(cfg.BlockReward) != 0 {
		t.Errorf("beneficiary = %v, want %v", got, cfg.BlockReward)
	}
}

func TestKnownAndOrphanBlocks(t *testing.T) {
	tc := newTestChain(t, nil)
	block := tc.mine(t, nil)

	if err := tc.tree.AddBlock(block); !errors.Is(err, ErrKnownBlock) {
		t.Errorf("re-add err = %v", err)
	}

	orphan := blockWithOmmers(block, nil) // parent known…
	orphanHeader := orphan.Header()
	orphanHeader.ParentHash = types.HexToHash("0x1234")
	if err := tc.tree.AddBlock(types.NewBlock(orphanHeader, nil, nil)); !errors.Is(err, ErrUnknownParent) {
		t.Errorf("orphan err = %v", err)
	}
}

func TestReceiptsAndBloomCommitments(t *testing.T) {
	// A contract that logs its caller: LOG1 with one topic.
	contractAddr := types.HexToAddress("0xcc00000000000000000000000000000000000031")
	code := []byte{
		byte(vm.CALLER),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0,
		byte(vm.LOG0) + 1,
		byte(vm.STOP),
	}
	tc := newTestChain(t, map[types.Address]GenesisAccount{
		contractAddr: {Balance: new(big.Int), Code: code},
	})

	block := tc.mine(t, types.Transactions{
		tc.signedTransfer(t, 0, contractAddr, 0, 100000, nil),
	})

	receipts := tc.tree.GetReceipts(block.Hash())
	if len(receipts) != 1 || len(receipts[0].Logs) != 1 {
		t.Fatalf("logs = %+v", receipts)
	}
	l := receipts[0].Logs[0]
	if l.Address != contractAddr || len(l.Topics) != 1 {
		t.Fatalf("log = %+v", l)
	}

	header := block.Header()
	if !header.Bloom.Contains(contractAddr.Bytes()) {
		t.Error("header bloom missing the log address")
	}
	topic := l.Topics[0]
	if !header.Bloom.Contains(topic[:]) {
		t.Error("header bloom missing the topic")
	}
}

func TestIntrinsicGasComputation(t *testing.T) {
	cfg := params.ForkConfig(params.Istanbul)
	if got := IntrinsicGas(nil, false, cfg); got != 21000 {
		t.Errorf("plain = %d", got)
	}
	if got := IntrinsicGas([]byte{0, 0, 1}, false, cfg); got != 21000+4+4+68 {
		t.Errorf("data = %d", got)
	}
	if got := IntrinsicGas(nil, true, cfg); got != 21000+32000 {
		t.Errorf("create = %d", got)
	}
	// Frontier creation had no surcharge.
	if got := IntrinsicGas(nil, true, params.ForkConfig(params.Frontier)); got != 21000 {
		t.Errorf("frontier create = %d", got)
	}
}
