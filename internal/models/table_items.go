package models

import (
	"encoding/json"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// TableItem represents one row of the append-only 'table_items' table.
type TableItem struct {
	TransactionVersion     int64           `json:"transaction_version"`
	WriteSetChangeIndex    int64           `json:"write_set_change_index"`
	TransactionBlockHeight int64           `json:"transaction_block_height"`
	Key                    string          `json:"key"`
	TableHandle            string          `json:"table_handle"`
	DecodedKey             json.RawMessage `json:"decoded_key"`
	DecodedValue           json.RawMessage `json:"decoded_value"`
	IsDeleted              bool            `json:"is_deleted"`
}

// CurrentTableItem represents one row of the 'current_table_items' state
// projection, keyed (table_handle, key_hash). WriteSetChangeIndex is kept for
// the in-batch tie-break only and is not shipped or written.
type CurrentTableItem struct {
	TableHandle            string          `json:"table_handle"`
	KeyHash                string          `json:"key_hash"`
	Key                    string          `json:"key"`
	DecodedKey             json.RawMessage `json:"decoded_key"`
	DecodedValue           json.RawMessage `json:"decoded_value"`
	LastTransactionVersion int64           `json:"last_transaction_version"`
	IsDeleted              bool            `json:"is_deleted"`

	WriteSetChangeIndex int64 `json:"-"`
}

// TableMetadata represents one row of the 'table_metadatas' table, keyed by
// handle.
type TableMetadata struct {
	Handle    string `json:"handle"`
	KeyType   string `json:"key_type"`
	ValueType string `json:"value_type"`
}

// TableItemFromWrite maps a write-table-item change. The metadata return is
// nil for deletes and for writes without typed data.
func TableItemFromWrite(txn *transaction.Transaction, change transaction.WriteTableItem, index int64) (TableItem, CurrentTableItem, *TableMetadata) {
	var decodedKey, decodedValue json.RawMessage
	keyType, valueType := "", ""
	if change.Data != nil {
		decodedKey = validJSON(change.Data.Key)
		decodedValue = validJSON(change.Data.Value)
		keyType = change.Data.KeyType
		valueType = change.Data.ValueType
	}

	item := TableItem{
		TransactionVersion:     int64(txn.Version),
		WriteSetChangeIndex:    index,
		TransactionBlockHeight: txn.BlockHeight,
		Key:                    change.Key,
		TableHandle:            StandardizeAddress(change.Handle),
		DecodedKey:             decodedKey,
		DecodedValue:           decodedValue,
	}
	current := CurrentTableItem{
		TableHandle:            item.TableHandle,
		KeyHash:                HashKey(change.StateKeyHash),
		Key:                    change.Key,
		DecodedKey:             decodedKey,
		DecodedValue:           decodedValue,
		LastTransactionVersion: int64(txn.Version),
		WriteSetChangeIndex:    index,
	}

	var meta *TableMetadata
	if keyType != "" || valueType != "" {
		meta = &TableMetadata{
			Handle:    item.TableHandle,
			KeyType:   keyType,
			ValueType: valueType,
		}
	}
	return item, current, meta
}

// TableItemFromDelete maps a delete-table-item change.
func TableItemFromDelete(txn *transaction.Transaction, change transaction.DeleteTableItem, index int64) (TableItem, CurrentTableItem) {
	var decodedKey json.RawMessage
	if change.Data != nil {
		decodedKey = validJSON(change.Data.Key)
	}

	item := TableItem{
		TransactionVersion:     int64(txn.Version),
		WriteSetChangeIndex:    index,
		TransactionBlockHeight: txn.BlockHeight,
		Key:                    change.Key,
		TableHandle:            StandardizeAddress(change.Handle),
		DecodedKey:             decodedKey,
		IsDeleted:              true,
	}
	current := CurrentTableItem{
		TableHandle:            item.TableHandle,
		KeyHash:                HashKey(change.StateKeyHash),
		Key:                    change.Key,
		DecodedKey:             decodedKey,
		LastTransactionVersion: int64(txn.Version),
		IsDeleted:              true,
		WriteSetChangeIndex:    index,
	}
	return item, current
}

// validJSON returns the input as raw JSON if it already is valid JSON,
// otherwise as a JSON string. Table keys/values arrive as JSON text from the
// node but older payloads occasionally carry bare strings.
func validJSON(s string) json.RawMessage {
	raw := json.RawMessage(s)
	if json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(s)
	return quoted
}
