package types

import (
	"github.com/eth2030/eth2030/rlp"
)

// Receipt status codes, post-Byzantium.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Log is one event emitted during transaction execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte

	// Derived context, not part of the consensus encoding.
	BlockNumber uint64 `rlp:"-"`
	TxHash      Hash   `rlp:"-"`
	TxIndex     uint   `rlp:"-"`
	Index       uint   `rlp:"-"`
}

// Receipt is the per-transaction execution record. PostStateOrStatus
// carries the intermediate state root before Byzantium and the one-byte
// status afterwards, exactly as on the wire.
type Receipt struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Derived fields, not part of the consensus encoding.
	TxHash          Hash    `rlp:"-"`
	ContractAddress Address `rlp:"-"`
	GasUsed         uint64  `rlp:"-"`
}

// NewStatusReceipt builds a post-Byzantium receipt.
func NewStatusReceipt(ok bool, cumulativeGas uint64, logs []*Log) *Receipt {
	status := ReceiptStatusFailed
	if ok {
		status = ReceiptStatusSuccessful
	}
	r := &Receipt{
		CumulativeGasUsed: cumulativeGas,
		Logs:              logs,
	}
	if status == ReceiptStatusSuccessful {
		r.PostStateOrStatus = []byte{1}
	} else {
		r.PostStateOrStatus = []byte{}
	}
	r.Bloom = LogsBloom(logs)
	return r
}

// NewRootReceipt builds a pre-Byzantium receipt carrying the post-tx
// state root.
func NewRootReceipt(root Hash, cumulativeGas uint64, logs []*Log) *Receipt {
	r := &Receipt{
		PostStateOrStatus: root.Bytes(),
		CumulativeGasUsed: cumulativeGas,
		Logs:              logs,
	}
	r.Bloom = LogsBloom(logs)
	return r
}

// Succeeded interprets the status byte; pre-Byzantium receipts always
// report true (inclusion implied success at the receipt level).
func (r *Receipt) Succeeded() bool {
	if len(r.PostStateOrStatus) == HashLength {
		return true
	}
	return len(r.PostStateOrStatus) == 1 && r.PostStateOrStatus[0] == 1
}

// EncodeRLP returns the consensus encoding of the receipt.
func (r *Receipt) EncodeRLP() ([]byte, error) {
	return rlp.EncodeToBytes(r)
}

// DecodeReceipt parses a consensus receipt encoding.
func DecodeReceipt(data []byte) (*Receipt, error) {
	var r Receipt
	if err := rlp.DecodeBytes(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Receipts is a block's ordered receipt list.
type Receipts []*Receipt

// GasUsedByBlock returns the cumulative gas of the last receipt, which
// is the block's total.
func (rs Receipts) GasUsedByBlock() uint64 {
	if len(rs) == 0 {
		return 0
	}
	return rs[len(rs)-1].CumulativeGasUsed
}
