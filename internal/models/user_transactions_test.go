package models

import (
	"testing"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

func TestUserTransactionFromTxn(t *testing.T) {
	t.Parallel()

	txn := &transaction.Transaction{
		Version:         20,
		BlockHeight:     4,
		Epoch:           1,
		TimestampMicros: 123_456,
	}
	data := transaction.UserTxn{
		Request: &transaction.UserTxnRequest{
			Sender:                  "0xCAFE",
			SequenceNumber:          9,
			MaxGasAmount:            500,
			GasUnitPrice:            101,
			ExpirationTimestampSecs: 1000,
			Payload: &transaction.Payload{
				Type:            "entry_function_payload",
				EntryFunctionID: "0x0000000000000000000000000000000000000000000000000000000000000001::coin::transfer",
			},
			Signature: &transaction.Signature{
				Type:      transaction.SigEd25519,
				PublicKey: []byte{0x01},
				Signature: []byte{0x02},
			},
		},
	}

	ut, sigs, err := UserTransactionFromTxn(txn, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ut.Version != 20 || ut.SequenceNumber != 9 || ut.GasUnitPrice != 101 {
		t.Fatalf("fields: %+v", ut)
	}
	if ut.Sender != StandardizeAddress("0xCAFE") {
		t.Fatalf("sender: %q", ut.Sender)
	}
	if ut.ParentSignatureType != transaction.SigEd25519 {
		t.Fatalf("parent signature type: %q", ut.ParentSignatureType)
	}
	// Long-form address collapses to the short canonical id.
	if ut.EntryFunctionIDStr != "0x1::coin::transfer" {
		t.Fatalf("entry function id: %q", ut.EntryFunctionIDStr)
	}
	if ut.EntryFunctionContractAddress != StandardizeAddress("0x1") {
		t.Fatalf("entry function contract: %q", ut.EntryFunctionContractAddress)
	}
	if ut.EntryFunctionModuleName != "coin" || ut.EntryFunctionFunctionName != "transfer" {
		t.Fatalf("entry function parts: %q / %q", ut.EntryFunctionModuleName, ut.EntryFunctionFunctionName)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(sigs))
	}
}

func TestUserTransactionMissingRequest(t *testing.T) {
	t.Parallel()

	txn := &transaction.Transaction{Version: 1}
	if _, _, err := UserTransactionFromTxn(txn, transaction.UserTxn{}); err == nil {
		t.Fatalf("expected error for missing request")
	}
}
