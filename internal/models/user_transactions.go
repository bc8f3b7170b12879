package models

import (
	"fmt"
	"strings"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// UserTransaction represents one row of the 'user_transactions' table.
type UserTransaction struct {
	Version                      int64  `json:"version"`
	BlockHeight                  int64  `json:"block_height"`
	ParentSignatureType          string `json:"parent_signature_type"`
	Sender                       string `json:"sender"`
	SequenceNumber               int64  `json:"sequence_number"`
	MaxGasAmount                 uint64 `json:"max_gas_amount"`
	ExpirationTimestampSecs      int64  `json:"expiration_timestamp_secs"`
	GasUnitPrice                 uint64 `json:"gas_unit_price"`
	TimestampMicros              int64  `json:"timestamp"`
	EntryFunctionIDStr           string `json:"entry_function_id_str"`
	EntryFunctionContractAddress string `json:"entry_function_contract_address"`
	EntryFunctionModuleName      string `json:"entry_function_module_name"`
	EntryFunctionFunctionName    string `json:"entry_function_function_name"`
	Epoch                        int64  `json:"epoch"`
}

// UserTransactionFromTxn builds the user_transactions row plus its flattened
// signature rows from a User-typed transaction.
func UserTransactionFromTxn(txn *transaction.Transaction, data transaction.UserTxn) (UserTransaction, []Signature, error) {
	req := data.Request
	if req == nil {
		return UserTransaction{}, nil, fmt.Errorf("user transaction %d has no request", txn.Version)
	}

	sigs, err := SignaturesFromUserTxn(req, txn.Version, txn.BlockHeight)
	if err != nil {
		return UserTransaction{}, nil, err
	}

	ut := UserTransaction{
		Version:                 int64(txn.Version),
		BlockHeight:             txn.BlockHeight,
		Sender:                  StandardizeAddress(req.Sender),
		SequenceNumber:          int64(req.SequenceNumber),
		MaxGasAmount:            req.MaxGasAmount,
		ExpirationTimestampSecs: req.ExpirationTimestampSecs,
		GasUnitPrice:            req.GasUnitPrice,
		TimestampMicros:         txn.TimestampMicros,
		Epoch:                   txn.Epoch,
	}
	if req.Signature != nil {
		ut.ParentSignatureType = req.Signature.Type
	}
	if req.Payload != nil && req.Payload.EntryFunctionID != "" {
		ut.EntryFunctionIDStr = TruncateStr(standardizeEntryFunctionID(req.Payload.EntryFunctionID), maxIndexedTypeLength)
		ut.EntryFunctionContractAddress, ut.EntryFunctionModuleName, ut.EntryFunctionFunctionName = splitEntryFunctionID(ut.EntryFunctionIDStr)
	}
	return ut, sigs, nil
}

// standardizeEntryFunctionID normalizes the address part of an
// "0xaddr::module::function" identifier, keeping the short-address form so
// identifiers stay readable ("0x1::coin::transfer").
func standardizeEntryFunctionID(id string) string {
	parts := strings.SplitN(id, "::", 2)
	if len(parts) != 2 {
		return id
	}
	addr := strings.ToLower(strings.TrimPrefix(parts[0], "0x"))
	addr = strings.TrimLeft(addr, "0")
	if addr == "" {
		addr = "0"
	}
	return "0x" + addr + "::" + parts[1]
}

func splitEntryFunctionID(id string) (contract, module, function string) {
	parts := strings.Split(id, "::")
	if len(parts) != 3 {
		return "", "", ""
	}
	return StandardizeAddress(parts[0]), parts[1], parts[2]
}
