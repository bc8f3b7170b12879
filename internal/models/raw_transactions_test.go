package models

import (
	"sort"
	"testing"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

func TestRawTransactionFromUserTxn(t *testing.T) {
	t.Parallel()

	txn := &transaction.Transaction{
		Version:         100,
		BlockHeight:     12,
		Epoch:           2,
		TimestampMicros: 1_700_000_000_000_000,
		Type:            transaction.TypeUser,
		Info: &transaction.Info{
			Hash:                []byte{0x01},
			StateChangeHash:     []byte{0x02},
			EventRootHash:       []byte{0x03},
			AccumulatorRootHash: []byte{0x04},
			GasUsed:             55,
			Success:             true,
			VMStatus:            "Executed successfully",
		},
		Data: transaction.UserTxn{
			Request: &transaction.UserTxnRequest{
				Sender:                  "0x1",
				SequenceNumber:          42,
				MaxGasAmount:            2000,
				GasUnitPrice:            100,
				ExpirationTimestampSecs: 1_700_000_100,
				Payload: &transaction.Payload{
					Type:            "entry_function_payload",
					EntryFunctionID: "0x1::coin::transfer",
					JSON:            []byte(`{"function":"0x1::coin::transfer"}`),
				},
				Signature: &transaction.Signature{
					Type:      transaction.SigEd25519,
					PublicKey: []byte{0xaa},
					Signature: []byte{0xbb},
				},
			},
			Events: []transaction.Event{
				{AccountAddress: "0x1", Type: "0x1::coin::WithdrawEvent", Data: `{"amount":"1"}`},
			},
		},
	}

	raw, err := RawTransactionFromTxn(txn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if raw.Version != 100 || raw.BlockHeight != 12 {
		t.Fatalf("identity: %+v", raw)
	}
	if raw.Sender != StandardizeAddress("0x1") {
		t.Fatalf("sender not canonical: %q", raw.Sender)
	}
	if raw.SequenceNumber != 42 || raw.GasUnitPrice != 100 || raw.MaxGasAmount != 2000 {
		t.Fatalf("user fields: %+v", raw)
	}
	if raw.Hash != StandardizeHashBytes([]byte{0x01}) {
		t.Fatalf("hash not canonical: %q", raw.Hash)
	}
	if raw.StateCheckpointHash != nil {
		t.Fatalf("checkpoint hash should be absent")
	}
	if raw.PayloadType == nil || *raw.PayloadType != "entry_function_payload" {
		t.Fatalf("payload type: %v", raw.PayloadType)
	}
	if len(raw.Signature) != 1 || len(raw.Events) != 1 {
		t.Fatalf("nested collections: %d sigs, %d events", len(raw.Signature), len(raw.Events))
	}
	if raw.TimestampMicros != 1_700_000_000_000_000 {
		t.Fatalf("timestamp must stay in microseconds: %d", raw.TimestampMicros)
	}
	if raw.Type != "TRANSACTION_TYPE_USER" {
		t.Fatalf("type tag: %q", raw.Type)
	}
}

func TestRawTransactionFromNonUserTxn(t *testing.T) {
	t.Parallel()

	txn := &transaction.Transaction{
		Version: 7,
		Type:    transaction.TypeStateCheckpoint,
		Info:    &transaction.Info{Hash: []byte{0x05}, Success: true},
		Data:    transaction.OtherTxn{},
	}
	raw, err := RawTransactionFromTxn(txn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Sender != "" || raw.PayloadType != nil || len(raw.Signature) != 0 {
		t.Fatalf("non-user fields must stay zero: %+v", raw)
	}
}

func TestAccountTransactionsFromTxn(t *testing.T) {
	t.Parallel()

	txn := &transaction.Transaction{
		Version: 11,
		Info: &transaction.Info{
			Changes: []transaction.WriteSetChange{
				transaction.WriteResource{Address: "0x2"},
				transaction.DeleteResource{Address: "0x3"},
				transaction.WriteResource{Address: "0x2"}, // duplicate
			},
		},
		Data: transaction.UserTxn{
			Request: &transaction.UserTxnRequest{Sender: "0x1"},
			Events: []transaction.Event{
				{AccountAddress: "0x4", Type: "t", Data: "{}"},
			},
		},
	}

	rows := AccountTransactionsFromTxn(txn)
	if len(rows) != 4 {
		t.Fatalf("expected 4 distinct accounts, got %d: %+v", len(rows), rows)
	}
	if !sort.SliceIsSorted(rows, func(i, j int) bool { return rows[i].AccountAddress < rows[j].AccountAddress }) {
		t.Fatalf("rows must be sorted: %+v", rows)
	}
	for _, row := range rows {
		if row.TransactionVersion != 11 {
			t.Fatalf("version: %+v", row)
		}
	}
}
