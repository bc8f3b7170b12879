package models

import (
	"testing"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

func tableTxn(version uint64) *transaction.Transaction {
	return &transaction.Transaction{
		Version:     version,
		BlockHeight: 3,
		Data:        transaction.OtherTxn{},
	}
}

func TestTableItemFromWrite(t *testing.T) {
	t.Parallel()

	change := transaction.WriteTableItem{
		StateKeyHash: []byte{0xde, 0xad},
		Handle:       "0xAA",
		Key:          "0x01",
		Data: &transaction.WriteTableData{
			Key:       `"k"`,
			KeyType:   "address",
			Value:     `{"v":1}`,
			ValueType: "0x1::m::S",
		},
	}
	item, current, meta := TableItemFromWrite(tableTxn(5), change, 2)

	if item.TransactionVersion != 5 || item.WriteSetChangeIndex != 2 {
		t.Fatalf("item identity: %+v", item)
	}
	if item.TableHandle != StandardizeAddress("0xAA") {
		t.Fatalf("handle not standardized: %q", item.TableHandle)
	}
	if item.IsDeleted {
		t.Fatalf("write must not be deleted")
	}
	if current.KeyHash != HashKey([]byte{0xde, 0xad}) {
		t.Fatalf("key hash: %q", current.KeyHash)
	}
	if current.LastTransactionVersion != 5 {
		t.Fatalf("last version: %d", current.LastTransactionVersion)
	}
	if meta == nil || meta.KeyType != "address" || meta.ValueType != "0x1::m::S" {
		t.Fatalf("metadata: %+v", meta)
	}
	if meta.Handle != item.TableHandle {
		t.Fatalf("metadata handle mismatch")
	}
}

func TestTableItemFromDelete(t *testing.T) {
	t.Parallel()

	change := transaction.DeleteTableItem{
		StateKeyHash: []byte{0x01},
		Handle:       "0xBB",
		Key:          "0x02",
		Data:         &transaction.DeleteTableData{Key: `"k"`, KeyType: "u64"},
	}
	item, current := TableItemFromDelete(tableTxn(8), change, 0)

	if !item.IsDeleted || !current.IsDeleted {
		t.Fatalf("delete flags not set")
	}
	if item.DecodedValue != nil {
		t.Fatalf("deletes carry no value")
	}
	if current.LastTransactionVersion != 8 {
		t.Fatalf("last version: %d", current.LastTransactionVersion)
	}
}

func TestValidJSONFallback(t *testing.T) {
	t.Parallel()

	if got := string(validJSON(`{"a":1}`)); got != `{"a":1}` {
		t.Fatalf("valid JSON mangled: %s", got)
	}
	if got := string(validJSON("plain")); got != `"plain"` {
		t.Fatalf("invalid JSON should be quoted: %s", got)
	}
}
