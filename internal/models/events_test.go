package models

import (
	"strings"
	"testing"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

func userTxnWithEvents(version uint64, events ...transaction.Event) *transaction.Transaction {
	return &transaction.Transaction{
		Version:     version,
		BlockHeight: 10,
		Type:        transaction.TypeUser,
		Info:        &transaction.Info{Success: true},
		Data: transaction.UserTxn{
			Request: &transaction.UserTxnRequest{Sender: "0x1"},
			Events:  events,
		},
	}
}

func TestEventsFromTransaction(t *testing.T) {
	t.Parallel()

	txn := userTxnWithEvents(42,
		transaction.Event{
			CreationNumber: 3,
			AccountAddress: "0xA",
			SequenceNumber: 7,
			Type:           "0x1::coin::DepositEvent",
			Data:           `{"amount":"100"}`,
		},
		transaction.Event{
			AccountAddress: "0xB",
			Type:           "0x1::coin::WithdrawEvent",
			Data:           `{"amount":"50"}`,
		},
	)

	events := EventsFromTransaction(txn)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	if first.TransactionVersion != 42 || first.TransactionBlockHeight != 10 {
		t.Fatalf("wrong version/height: %+v", first)
	}
	if first.EventIndex != 0 || events[1].EventIndex != 1 {
		t.Fatalf("event indices not positional: %d, %d", first.EventIndex, events[1].EventIndex)
	}
	if first.AccountAddress != StandardizeAddress("0xA") {
		t.Fatalf("account address not standardized: %q", first.AccountAddress)
	}
	if string(first.Data) != `{"amount":"100"}` {
		t.Fatalf("data mangled: %s", first.Data)
	}
	if first.IndexedType != "0x1::coin::DepositEvent" {
		t.Fatalf("indexed type: %q", first.IndexedType)
	}
}

func TestEventsFromTransactionVariants(t *testing.T) {
	t.Parallel()

	ev := transaction.Event{AccountAddress: "0x1", Type: "t", Data: "{}"}
	cases := []struct {
		name string
		data transaction.TxnData
		want int
	}{
		{"block_metadata", transaction.BlockMetadataTxn{Events: []transaction.Event{ev}}, 1},
		{"genesis", transaction.GenesisTxn{Events: []transaction.Event{ev, ev}}, 2},
		{"validator", transaction.ValidatorTxn{Events: []transaction.Event{ev}}, 1},
		{"other", transaction.OtherTxn{}, 0},
		{"absent", nil, 0},
	}
	for _, tc := range cases {
		txn := &transaction.Transaction{Version: 1, Data: tc.data}
		if got := len(EventsFromTransaction(txn)); got != tc.want {
			t.Fatalf("%s: expected %d events, got %d", tc.name, tc.want, got)
		}
	}
}

func TestEventsFromTransactionNonJSONData(t *testing.T) {
	t.Parallel()

	txn := userTxnWithEvents(1, transaction.Event{AccountAddress: "0x1", Type: "t", Data: "not json"})
	events := EventsFromTransaction(txn)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !strings.HasPrefix(string(events[0].Data), `"`) {
		t.Fatalf("non-JSON data should be quoted, got %s", events[0].Data)
	}
}

func TestEventIndexedTypeTruncated(t *testing.T) {
	t.Parallel()

	long := "0x1::m::" + strings.Repeat("x", 600)
	txn := userTxnWithEvents(1, transaction.Event{AccountAddress: "0x1", Type: long, Data: "{}"})
	events := EventsFromTransaction(txn)
	if len(events[0].IndexedType) != maxIndexedTypeLength {
		t.Fatalf("indexed_type length = %d, want %d", len(events[0].IndexedType), maxIndexedTypeLength)
	}
	if events[0].Type != long {
		t.Fatalf("full type must be preserved")
	}
}
