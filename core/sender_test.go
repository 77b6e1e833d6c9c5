package core

import (
	"math/big"
	"testing"

	"github.com/eth2030/eth2030/core/types"
	"github.com/eth2030/eth2030/crypto"
	"github.com/eth2030/eth2030/params"
)

func TestSenderRecoveryLegacyAndProtected(t *testing.T) {
	key, _ := crypto.GenerateKey()
	from := crypto.PubkeyToAddress(&key.PublicKey)
	to := types.HexToAddress("0x01")
	chainID := big.NewInt(1337)

	// Legacy (pre-EIP-155) signature.
	legacy, err := SignTx(types.NewTransaction(0, &to, big.NewInt(1), 21000, big.NewInt(1), nil), key, nil)
	if err != nil {
		t.Fatalf("SignTx legacy: %v", err)
	}
	got, err := Sender(legacy, chainID, params.ForkConfig(params.Homestead))
	if err != nil || got != from {
		t.Fatalf("legacy sender = %s, %v", got.Hex(), err)
	}

	// Protected signature under a replay-protected fork.
	protected, err := SignTx(types.NewTransaction(0, &to, big.NewInt(1), 21000, big.NewInt(1), nil), key, chainID)
	if err != nil {
		t.Fatalf("SignTx protected: %v", err)
	}
	got, err = Sender(protected, chainID, params.ForkConfig(params.Istanbul))
	if err != nil || got != from {
		t.Fatalf("protected sender = %s, %v", got.Hex(), err)
	}

	// Wrong chain id must be refused.
	if _, err := Sender(protected, big.NewInt(2), params.ForkConfig(params.Istanbul)); err != ErrWrongChainID {
		t.Fatalf("cross-chain err = %v", err)
	}

	// Protected signatures are invalid before replay protection exists.
	if _, err := Sender(protected, chainID, params.ForkConfig(params.Homestead)); err != ErrInvalidSignature {
		t.Fatalf("pre-155 err = %v", err)
	}
}

func TestSenderRejectsUnsigned(t *testing.T) {
	to := types.HexToAddress("0x01")
	tx := types.NewTransaction(0, &to, big.NewInt(1), 21000, big.NewInt(1), nil)
	if _, err := Sender(tx, big.NewInt(1), params.ForkConfig(params.Istanbul)); err == nil {
		t.Fatal("unsigned transaction recovered a sender")
	}
}
