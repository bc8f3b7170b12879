package models

import (
	"sort"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// AccountTransaction represents one row of the 'account_transactions' table:
// one (version, account) pair per account touched by a transaction.
type AccountTransaction struct {
	TransactionVersion int64  `json:"transaction_version"`
	AccountAddress     string `json:"account_address"`
}

// AccountTransactionsFromTxn collects the distinct set of accounts touched by
// a transaction: event emitters, the sender, secondary signers and fee payer
// of a user transaction, and every address named in the write set.
// The result is sorted so output is deterministic for identical input.
func AccountTransactionsFromTxn(txn *transaction.Transaction) []AccountTransaction {
	accounts := make(map[string]struct{})

	for _, ev := range EventsFromTransaction(txn) {
		accounts[ev.AccountAddress] = struct{}{}
	}
	if data, ok := txn.Data.(transaction.UserTxn); ok && data.Request != nil {
		accounts[StandardizeAddress(data.Request.Sender)] = struct{}{}
		if sig := data.Request.Signature; sig != nil {
			for _, addr := range sig.SecondarySignerAddresses {
				accounts[StandardizeAddress(addr)] = struct{}{}
			}
			if sig.FeePayerAddress != "" {
				accounts[StandardizeAddress(sig.FeePayerAddress)] = struct{}{}
			}
		}
	}
	if txn.Info != nil {
		for _, change := range txn.Info.Changes {
			switch c := change.(type) {
			case transaction.WriteResource:
				accounts[StandardizeAddress(c.Address)] = struct{}{}
			case transaction.DeleteResource:
				accounts[StandardizeAddress(c.Address)] = struct{}{}
			case transaction.WriteModule:
				accounts[StandardizeAddress(c.Address)] = struct{}{}
			case transaction.DeleteModule:
				accounts[StandardizeAddress(c.Address)] = struct{}{}
			}
		}
	}

	rows := make([]AccountTransaction, 0, len(accounts))
	for addr := range accounts {
		rows = append(rows, AccountTransaction{
			TransactionVersion: int64(txn.Version),
			AccountAddress:     addr,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AccountAddress < rows[j].AccountAddress })
	return rows
}
