package processor

import (
	"sort"
	"testing"

	"github.com/Lambda256/aptos-indexer-go/internal/models"
	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

func TestMergeExtractsTieBreak(t *testing.T) {
	t.Parallel()

	// Two transactions touch the same (handle, key_hash): versions 5 and 7.
	// The merged projection must keep version 7 regardless of input order.
	item := func(version, index int64, value string) models.CurrentTableItem {
		return models.CurrentTableItem{
			TableHandle:            "0xaa",
			KeyHash:                "0xhash",
			DecodedValue:           []byte(value),
			LastTransactionVersion: version,
			WriteSetChangeIndex:    index,
		}
	}

	cases := []struct {
		name  string
		items [][]models.CurrentTableItem
	}{
		{"in order", [][]models.CurrentTableItem{{item(5, 0, `"old"`)}, {item(7, 0, `"new"`)}}},
		{"reversed", [][]models.CurrentTableItem{{item(7, 0, `"new"`)}, {item(5, 0, `"old"`)}}},
	}
	for _, tc := range cases {
		extracts := make([]txnExtract, 0, len(tc.items))
		for _, items := range tc.items {
			extracts = append(extracts, txnExtract{currentItems: items})
		}
		_, _, currents, _ := mergeExtracts(extracts)
		if len(currents) != 1 {
			t.Fatalf("%s: expected 1 merged item, got %d", tc.name, len(currents))
		}
		if currents[0].LastTransactionVersion != 7 {
			t.Fatalf("%s: kept version %d, want 7", tc.name, currents[0].LastTransactionVersion)
		}
		if string(currents[0].DecodedValue) != `"new"` {
			t.Fatalf("%s: kept value %s", tc.name, currents[0].DecodedValue)
		}
	}
}

func TestMergeExtractsIntraTxnTieBreak(t *testing.T) {
	t.Parallel()

	// Same version: the higher write-set-change index wins.
	extracts := []txnExtract{{currentItems: []models.CurrentTableItem{
		{TableHandle: "0xaa", KeyHash: "0xh", LastTransactionVersion: 5, WriteSetChangeIndex: 0, DecodedValue: []byte(`"first"`)},
		{TableHandle: "0xaa", KeyHash: "0xh", LastTransactionVersion: 5, WriteSetChangeIndex: 3, DecodedValue: []byte(`"last"`)},
	}}}
	_, _, currents, _ := mergeExtracts(extracts)
	if len(currents) != 1 || string(currents[0].DecodedValue) != `"last"` {
		t.Fatalf("intra-transaction tie-break: %+v", currents)
	}
}

func TestMergeExtractsSortsByPK(t *testing.T) {
	t.Parallel()

	extracts := []txnExtract{{
		currentItems: []models.CurrentTableItem{
			{TableHandle: "0xbb", KeyHash: "0x2", LastTransactionVersion: 1},
			{TableHandle: "0xaa", KeyHash: "0x9", LastTransactionVersion: 1},
			{TableHandle: "0xaa", KeyHash: "0x1", LastTransactionVersion: 1},
		},
		tableMetas: []*models.TableMetadata{
			{Handle: "0xcc"}, {Handle: "0xaa"},
		},
	}}
	_, _, currents, metas := mergeExtracts(extracts)

	sorted := sort.SliceIsSorted(currents, func(i, j int) bool {
		a, b := currents[i], currents[j]
		if a.TableHandle != b.TableHandle {
			return a.TableHandle < b.TableHandle
		}
		return a.KeyHash < b.KeyHash
	})
	if !sorted {
		t.Fatalf("current table items not PK-sorted: %+v", currents)
	}
	if !sort.SliceIsSorted(metas, func(i, j int) bool { return metas[i].Handle < metas[j].Handle }) {
		t.Fatalf("table metadata not sorted: %+v", metas)
	}
}

func TestParseTableFlags(t *testing.T) {
	t.Parallel()

	flags, err := ParseTableFlags([]string{"TABLE_ITEMS", "signatures"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !flags.Contains(FlagTableItems) || !flags.Contains(FlagSignatures) {
		t.Fatalf("flags not set: %b", flags)
	}
	if flags.Contains(FlagTableMetadatas) {
		t.Fatalf("unexpected flag set")
	}
	if _, err := ParseTableFlags([]string{"NOT_A_TABLE"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}

func TestMapParallelPreservesOrder(t *testing.T) {
	t.Parallel()

	txns := make([]*transaction.Transaction, 100)
	for i := range txns {
		txns[i] = &transaction.Transaction{Version: uint64(i)}
	}
	got := mapParallel(txns, func(txn *transaction.Transaction) uint64 { return txn.Version * 2 })
	for i, v := range got {
		if v != uint64(i)*2 {
			t.Fatalf("result %d = %d, want %d", i, v, i*2)
		}
	}
}
