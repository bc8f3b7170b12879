package models

import (
	"encoding/json"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// RawTransaction is the denormalized per-transaction record shipped on
// aptos.<network>.raw.transactions. It composes the execution info with the
// user-transaction fields, flattened signatures and events. Timestamp is in
// microseconds. There is no table for this record class; it is MQ-only.
type RawTransaction struct {
	Version                 uint64          `json:"version"`
	Hash                    string          `json:"hash"`
	StateChangeHash         string          `json:"state_change_hash"`
	EventRootHash           string          `json:"event_root_hash"`
	StateCheckpointHash     *string         `json:"state_checkpoint_hash"`
	GasUsed                 uint64          `json:"gas_used"`
	Success                 bool            `json:"success"`
	VMStatus                string          `json:"vm_status"`
	AccumulatorRootHash     string          `json:"accumulator_root_hash"`
	Sender                  string          `json:"sender"`
	SequenceNumber          int64           `json:"sequence_number"`
	MaxGasAmount            uint64          `json:"max_gas_amount"`
	GasUnitPrice            uint64          `json:"gas_unit_price"`
	ExpirationTimestampSecs int64           `json:"expiration_timestamp_secs"`
	PayloadType             *string         `json:"payload_type"`
	Payload                 json.RawMessage `json:"payload"`
	Signature               []Signature     `json:"signature"`
	Events                  []Event         `json:"events"`
	TimestampMicros         int64           `json:"timestamp"`
	Type                    string          `json:"type_"`
	BlockHeight             int64           `json:"block_height"`
}

// RawTransactionFromTxn denormalizes a transaction of any variant. For
// non-user variants the sender block stays zero-valued, matching the wire
// contract consumers already depend on.
func RawTransactionFromTxn(txn *transaction.Transaction) (RawTransaction, error) {
	raw := RawTransaction{
		Version:         txn.Version,
		TimestampMicros: txn.TimestampMicros,
		Type:            txn.Type.String(),
		BlockHeight:     txn.BlockHeight,
		Events:          EventsFromTransaction(txn),
	}

	if info := txn.Info; info != nil {
		raw.Hash = StandardizeHashBytes(info.Hash)
		raw.StateChangeHash = StandardizeHashBytes(info.StateChangeHash)
		raw.EventRootHash = StandardizeHashBytes(info.EventRootHash)
		raw.AccumulatorRootHash = StandardizeHashBytes(info.AccumulatorRootHash)
		if info.StateCheckpointHash != nil {
			h := StandardizeHashBytes(info.StateCheckpointHash)
			raw.StateCheckpointHash = &h
		}
		raw.GasUsed = info.GasUsed
		raw.Success = info.Success
		raw.VMStatus = info.VMStatus
	}

	if data, ok := txn.Data.(transaction.UserTxn); ok && data.Request != nil {
		ut, sigs, err := UserTransactionFromTxn(txn, data)
		if err != nil {
			return RawTransaction{}, err
		}
		raw.Sender = ut.Sender
		raw.SequenceNumber = ut.SequenceNumber
		raw.MaxGasAmount = ut.MaxGasAmount
		raw.GasUnitPrice = ut.GasUnitPrice
		raw.ExpirationTimestampSecs = ut.ExpirationTimestampSecs
		raw.Signature = sigs
		if payload := data.Request.Payload; payload != nil {
			raw.Payload = payload.JSON
			if payload.Type != "" {
				t := payload.Type
				raw.PayloadType = &t
			}
		}
	}

	return raw, nil
}
