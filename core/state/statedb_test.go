package state

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/trie"
)

func newTestState() *StateDB {
	store := trie.NewDatabaseTrie(types.Hash{}, trie.NewNodeDatabase(trie.NewMemoryKV()))
	return New(store)
}

var (
	addrA = types.HexToAddress("0xa000000000000000000000000000000000000001")
	addrB = types.HexToAddress("0xb000000000000000000000000000000000000002")
)

func TestImplicitEmptyAccount(t *testing.T) {
	s := newTestState()
	if s.Exist(addrA) {
		t.Fatal("fresh address should not exist")
	}
	if s.GetBalance(addrA).Sign() != 0 || s.GetNonce(addrA) != 0 {
		t.Fatal("implicit account must be zeroed")
	}
	if !s.GetState(addrA, types.HexToHash("0x01")).IsZero() {
		t.Fatal("implicit storage must read zero")
	}
}

func TestBalanceAndNonce(t *testing.T) {
	s := newTestState()
	s.AddBalance(addrA, big.NewInt(1000))
	s.SubBalance(addrA, big.NewInt(300))
	if got := s.GetBalance(addrA); got.Int64() != 700 {
		t.Fatalf("balance = %v", got)
	}
	s.SetNonce(addrA, 5)
	if s.GetNonce(addrA) != 5 {
		t.Fatal("nonce not set")
	}
}

func TestCodeStorage(t *testing.T) {
	s := newTestState()
	code := []byte{0x60, 0x01, 0x60, 0x00, 0x55}
	s.SetCode(addrA, code)

	if !bytes.Equal(s.GetCode(addrA), code) {
		t.Fatal("code read-back mismatch")
	}
	if s.GetCodeSize(addrA) != len(code) {
		t.Fatal("code size mismatch")
	}

	// Commit, then reopen from the root: code loads from the raw
	// keyspace by hash.
	s.AddBalance(addrA, big.NewInt(1)) // keep the account non-empty
	s.Finalise(false)
	root, err := s.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	store := s.Store()
	store.SetRootHash(root)
	reopened := New(store)
	if !bytes.Equal(reopened.GetCode(addrA), code) {
		t.Fatal("code lost across commit")
	}
}

func TestSnapshotRevert(t *testing.T) {
	s := newTestState()
	s.AddBalance(addrA, big.NewInt(100))

	snap := s.Snapshot()
	s.AddBalance(addrA, big.NewInt(900))
	s.SetNonce(addrA, 3)
	s.SetState(addrA, types.HexToHash("0x01"), types.HexToHash("0xff"))
	s.AddRefund(500)
	s.AddLog(&types.Log{Address: addrA})

	s.RevertToSnapshot(snap)

	if got := s.GetBalance(addrA); got.Int64() != 100 {
		t.Errorf("balance after revert = %v", got)
	}
	if s.GetNonce(addrA) != 0 {
		t.Error("nonce survived revert")
	}
	if !s.GetState(addrA, types.HexToHash("0x01")).IsZero() {
		t.Error("storage write survived revert")
	}
	if s.GetRefund() != 0 {
		t.Error("refund survived revert")
	}
	if len(s.TakeLogs(types.Hash{}, 0, 0)) != 0 {
		t.Error("log survived revert")
	}
}

func TestNestedSnapshots(t *testing.T) {
	s := newTestState()
	s.AddBalance(addrA, big.NewInt(1))

	outer := s.Snapshot()
	s.AddBalance(addrA, big.NewInt(10))
	inner := s.Snapshot()
	s.AddBalance(addrA, big.NewInt(100))

	s.RevertToSnapshot(inner)
	if got := s.GetBalance(addrA); got.Int64() != 11 {
		t.Fatalf("after inner revert: %v", got)
	}
	s.RevertToSnapshot(outer)
	if got := s.GetBalance(addrA); got.Int64() != 1 {
		t.Fatalf("after outer revert: %v", got)
	}
}

func TestStorageZeroElision(t *testing.T) {
	s := newTestState()
	key := types.HexToHash("0x2a")

	s.AddBalance(addrA, big.NewInt(1))
	s.SetState(addrA, key, types.HexToHash("0x07"))
	s.Finalise(false)
	rootWith, err := s.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Writing zero deletes the slot: the root returns to the value it
	// had before the slot existed.
	s.SetState(addrA, key, types.Hash{})
	s.Finalise(false)
	rootWithout, err := s.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if rootWith == rootWithout {
		t.Fatal("zero write did not change the root")
	}

	fresh := newTestState()
	fresh.AddBalance(addrA, big.NewInt(1))
	fresh.Finalise(false)
	cleanRoot, _ := fresh.Commit()
	if rootWithout != cleanRoot {
		t.Fatal("zero write must remove the storage entry entirely")
	}
}

func TestCommittedVsPendingState(t *testing.T) {
	s := newTestState()
	key := types.HexToHash("0x01")

	s.AddBalance(addrA, big.NewInt(1))
	s.SetState(addrA, key, types.HexToHash("0xaa"))
	s.Finalise(false)
	if _, err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	s.SetState(addrA, key, types.HexToHash("0xbb"))
	if got := s.GetState(addrA, key); got != types.HexToHash("0xbb") {
		t.Errorf("pending read = %s", got.Hex())
	}
	if got := s.GetCommittedState(addrA, key); got != types.HexToHash("0xaa") {
		t.Errorf("committed read = %s", got.Hex())
	}
}

func TestSelfDestructLifecycle(t *testing.T) {
	s := newTestState()
	s.AddBalance(addrA, big.NewInt(500))
	s.SetCode(addrA, []byte{0x00})

	s.SelfDestruct(addrA)
	if !s.HasSelfDestructed(addrA) {
		t.Fatal("selfdestruct flag not set")
	}
	if s.GetBalance(addrA).Sign() != 0 {
		t.Fatal("selfdestruct must zero the balance")
	}

	s.Finalise(false)
	if s.Exist(addrA) {
		t.Fatal("selfdestructed account must be removed at finalization")
	}
}

func TestFinaliseClearsTouchedEmpties(t *testing.T) {
	s := newTestState()

	// Touch an address with a zero-value transfer: it becomes an empty
	// account that the post-Spurious-Dragon rule removes.
	s.AddBalance(addrB, new(big.Int))
	if !s.Exist(addrB) {
		t.Fatal("touched account should exist before finalization")
	}
	s.Finalise(true)
	if s.Exist(addrB) {
		t.Fatal("touched empty account must be cleared")
	}

	// Without the rule, it stays.
	s2 := newTestState()
	s2.AddBalance(addrB, new(big.Int))
	s2.Finalise(false)
	if !s2.Exist(addrB) {
		t.Fatal("pre-fork touched empty account must remain")
	}
}

func TestRootIndependentOfWriteOrder(t *testing.T) {
	build := func(first, second types.Address) types.Hash {
		s := newTestState()
		s.AddBalance(first, big.NewInt(10))
		s.AddBalance(second, big.NewInt(20))
		s.Finalise(false)
		root, err := s.Commit()
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		return root
	}
	// Same final mapping, written in the opposite order.
	r1 := build(addrA, addrB)

	s := newTestState()
	s.AddBalance(addrB, big.NewInt(20))
	s.AddBalance(addrA, big.NewInt(10))
	s.Finalise(false)
	r2, _ := s.Commit()
	if r1 != r2 {
		t.Fatal("state root depends on write order")
	}
}

func TestCreateAccountKeepsBalance(t *testing.T) {
	s := newTestState()
	s.AddBalance(addrA, big.NewInt(77))
	s.SetNonce(addrA, 9)

	s.CreateAccount(addrA)
	if got := s.GetBalance(addrA); got.Int64() != 77 {
		t.Fatalf("balance after CreateAccount = %v", got)
	}
	if s.GetNonce(addrA) != 0 {
		t.Fatal("CreateAccount must reset the nonce")
	}
}
