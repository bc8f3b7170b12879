package models

import (
	"encoding/json"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// maxIndexedTypeLength bounds the indexed_type column so it stays indexable.
const maxIndexedTypeLength = 300

// Event represents one row of the 'events' table.
type Event struct {
	SequenceNumber         int64           `json:"sequence_number"`
	CreationNumber         int64           `json:"creation_number"`
	AccountAddress         string          `json:"account_address"`
	TransactionVersion     int64           `json:"transaction_version"`
	TransactionBlockHeight int64           `json:"transaction_block_height"`
	Type                   string          `json:"type"`
	Data                   json.RawMessage `json:"data"`
	EventIndex             int64           `json:"event_index"`
	IndexedType            string          `json:"indexed_type"`
}

// EventsFromTransaction extracts event rows from any transaction variant that
// carries events. Returns nil for variants without events; the caller is
// responsible for counting transactions whose Data is absent entirely.
func EventsFromTransaction(txn *transaction.Transaction) []Event {
	var raw []transaction.Event
	switch data := txn.Data.(type) {
	case transaction.BlockMetadataTxn:
		raw = data.Events
	case transaction.GenesisTxn:
		raw = data.Events
	case transaction.UserTxn:
		raw = data.Events
	case transaction.ValidatorTxn:
		raw = data.Events
	default:
		return nil
	}

	events := make([]Event, 0, len(raw))
	for i, ev := range raw {
		data := json.RawMessage(ev.Data)
		if !json.Valid(data) {
			// The node ships event data as JSON text; anything else is kept
			// as a JSON string so the row is still writable.
			quoted, _ := json.Marshal(ev.Data)
			data = quoted
		}
		events = append(events, Event{
			SequenceNumber:         int64(ev.SequenceNumber),
			CreationNumber:         int64(ev.CreationNumber),
			AccountAddress:         StandardizeAddress(ev.AccountAddress),
			TransactionVersion:     int64(txn.Version),
			TransactionBlockHeight: txn.BlockHeight,
			Type:                   ev.Type,
			Data:                   data,
			EventIndex:             int64(i),
			IndexedType:            TruncateStr(ev.Type, maxIndexedTypeLength),
		})
	}
	return events
}
