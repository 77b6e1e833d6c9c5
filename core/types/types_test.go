package types

import (
	"bytes"
	"math/big"
	"testing"
)

func TestSentinelHashes(t *testing.T) {
	if EmptyRootHash != HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421") {
		t.Error("EmptyRootHash mismatch")
	}
	if EmptyCodeHash != HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470") {
		t.Error("EmptyCodeHash mismatch")
	}
	if EmptyOmmersHash != HexToHash("1dcc4de8dec75d7aab85b567b6ccd41ad312451b948a7413f0a142fd40d49347") {
		t.Error("EmptyOmmersHash mismatch")
	}
}

func TestHashAddressParsing(t *testing.T) {
	a := HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	if a.Hex() != "0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0" {
		t.Errorf("address hex round trip: %s", a.Hex())
	}
	h := BytesToHash([]byte{1})
	if h[31] != 1 || h[0] != 0 {
		t.Error("BytesToHash must right-align")
	}
	if !(&Hash{}).IsZero() {
		t.Error("zero hash not reported zero")
	}
}

func TestAccountEmptiness(t *testing.T) {
	acct := NewEmptyAccount()
	if !acct.IsEmpty() {
		t.Error("fresh account should be empty")
	}
	acct.Nonce = 1
	if acct.IsEmpty() {
		t.Error("nonzero nonce should not be empty")
	}

	funded := NewEmptyAccount()
	funded.Balance = big.NewInt(1)
	if funded.IsEmpty() {
		t.Error("funded account should not be empty")
	}
}

func TestHeaderHashCoversFields(t *testing.T) {
	h := &Header{
		Difficulty: big.NewInt(131072),
		Number:     big.NewInt(1),
		GasLimit:   8_000_000,
		Time:       1000,
	}
	before := h.Hash()

	other := h.Copy()
	other.GasUsed = 21000
	if other.Hash() == before {
		t.Error("changing a field must change the header hash")
	}
	if h.Copy().Hash() != before {
		t.Error("copy must hash identically")
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	to := HexToAddress("0x00000000000000000000000000000000000000aa")
	tx := NewTransaction(7, &to, big.NewInt(1000), 21000, big.NewInt(2), []byte{1, 2, 3})

	enc, err := tx.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}
	dec, err := DecodeTransaction(enc)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if dec.Nonce() != 7 || dec.Gas() != 21000 || dec.Value().Int64() != 1000 ||
		dec.GasPrice().Int64() != 2 || !bytes.Equal(dec.Data(), []byte{1, 2, 3}) {
		t.Fatalf("decoded fields mismatch")
	}
	if dec.To() == nil || *dec.To() != to {
		t.Fatal("destination lost in round trip")
	}
	if dec.Hash() != tx.Hash() {
		t.Fatal("hash changed across round trip")
	}
}

func TestCreateTransactionHasNilTo(t *testing.T) {
	tx := NewTransaction(0, nil, big.NewInt(0), 53000, big.NewInt(1), []byte{0x60})
	if !tx.IsCreate() || tx.To() != nil {
		t.Fatal("nil destination must mean contract creation")
	}

	enc, _ := tx.EncodeRLP()
	dec, err := DecodeTransaction(enc)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if !dec.IsCreate() {
		t.Fatal("creation flag lost in round trip")
	}
}

func TestSigningHashCommitsToChainID(t *testing.T) {
	tx := NewTransaction(0, nil, big.NewInt(0), 21000, big.NewInt(1), nil)
	legacy := tx.SigningHash(nil)
	protected1 := tx.SigningHash(big.NewInt(1))
	protected2 := tx.SigningHash(big.NewInt(2))
	if legacy == protected1 || protected1 == protected2 {
		t.Fatal("signing hash must bind the chain id")
	}
}

func TestWithSignatureVEncoding(t *testing.T) {
	tx := NewTransaction(0, nil, big.NewInt(0), 21000, big.NewInt(1), nil)
	sig := make([]byte, 65)
	sig[0], sig[32] = 1, 1 // non-zero r, s
	sig[64] = 1

	legacy, err := tx.WithSignature(sig, nil)
	if err != nil {
		t.Fatalf("WithSignature: %v", err)
	}
	v, _, _ := legacy.RawSignatureValues()
	if v.Int64() != 28 {
		t.Fatalf("legacy v = %v, want 28", v)
	}
	if legacy.Protected() {
		t.Fatal("legacy signature reported protected")
	}

	protected, _ := tx.WithSignature(sig, big.NewInt(5))
	v, _, _ = protected.RawSignatureValues()
	if v.Int64() != 5*2+35+1 {
		t.Fatalf("protected v = %v", v)
	}
	if !protected.Protected() || protected.ChainID().Int64() != 5 {
		t.Fatal("chain id not recoverable from v")
	}

	_, _, recID, err := protected.SignatureForRecovery()
	if err != nil || recID != 1 {
		t.Fatalf("recovery id = %d, %v", recID, err)
	}
}

func TestReceiptStatusAndRoundTrip(t *testing.T) {
	logs := []*Log{{
		Address: HexToAddress("0x01"),
		Topics:  []Hash{HexToHash("0x02")},
		Data:    []byte{3},
	}}
	r := NewStatusReceipt(true, 21000, logs)
	if !r.Succeeded() {
		t.Fatal("status 1 should succeed")
	}
	if !r.Bloom.Contains(logs[0].Address[:]) {
		t.Fatal("receipt bloom missing log address")
	}

	enc, err := r.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}
	dec, err := DecodeReceipt(enc)
	if err != nil {
		t.Fatalf("DecodeReceipt: %v", err)
	}
	if dec.CumulativeGasUsed != 21000 || !dec.Succeeded() || len(dec.Logs) != 1 {
		t.Fatalf("decoded receipt mismatch: %+v", dec)
	}

	failed := NewStatusReceipt(false, 42, nil)
	if failed.Succeeded() {
		t.Fatal("status 0 should fail")
	}
}

func TestBloomProperties(t *testing.T) {
	logs := []*Log{
		{Address: HexToAddress("0xaa"), Topics: []Hash{HexToHash("0x01")}},
		{Address: HexToAddress("0xbb")},
	}
	b := LogsBloom(logs)
	if !b.Contains(logs[0].Address[:]) || !b.Contains(logs[1].Address[:]) {
		t.Fatal("bloom must contain every log address")
	}
	topic := logs[0].Topics[0]
	if !b.Contains(topic[:]) {
		t.Fatal("bloom must contain topics")
	}

	var empty Bloom
	if empty.Contains([]byte("anything")) {
		t.Fatal("empty bloom contains nothing")
	}

	// OR is commutative: block bloom equals OR of receipt blooms.
	r1 := NewStatusReceipt(true, 1, logs[:1])
	r2 := NewStatusReceipt(true, 2, logs[1:])
	combined := CreateBloom([]*Receipt{r1, r2})
	swapped := CreateBloom([]*Receipt{r2, r1})
	if combined != swapped {
		t.Fatal("bloom OR must be order independent")
	}
}

func TestBlockEncodeDecode(t *testing.T) {
	to := HexToAddress("0xbb")
	txs := Transactions{NewTransaction(0, &to, big.NewInt(5), 21000, big.NewInt(1), nil)}
	ommer := &Header{Difficulty: big.NewInt(131072), Number: big.NewInt(1), Time: 5}
	header := &Header{
		OmmersHash: OmmersCommitment([]*Header{ommer}),
		Difficulty: big.NewInt(131072),
		Number:     big.NewInt(2),
		GasLimit:   8_000_000,
		Time:       26,
	}
	block := NewBlock(header, txs, []*Header{ommer})

	enc, err := block.EncodeRLP()
	if err != nil {
		t.Fatalf("EncodeRLP: %v", err)
	}
	dec, err := DecodeBlock(enc)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if dec.Hash() != block.Hash() {
		t.Fatal("block hash changed in round trip")
	}
	if len(dec.Transactions()) != 1 || dec.Transactions()[0].Hash() != txs[0].Hash() {
		t.Fatal("transactions lost in round trip")
	}
	if len(dec.Ommers()) != 1 || dec.Ommers()[0].Hash() != ommer.Hash() {
		t.Fatal("ommers lost in round trip")
	}
}

func TestOmmersCommitmentEmpty(t *testing.T) {
	if OmmersCommitment(nil) != EmptyOmmersHash {
		t.Fatal("ommerless commitment must be the empty list hash")
	}
}
