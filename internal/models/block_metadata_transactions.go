package models

import (
	"encoding/json"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// BlockMetadataTransaction represents one row of the
// 'block_metadata_transactions' table.
type BlockMetadataTransaction struct {
	Version                  int64           `json:"version"`
	BlockHeight              int64           `json:"block_height"`
	ID                       string          `json:"id"`
	Round                    int64           `json:"round"`
	Epoch                    int64           `json:"epoch"`
	PreviousBlockVotesBitvec json.RawMessage `json:"previous_block_votes_bitvec"`
	Proposer                 string          `json:"proposer"`
	FailedProposerIndices    json.RawMessage `json:"failed_proposer_indices"`
	TimestampMicros          int64           `json:"timestamp"`
}

// BlockMetadataFromTxn builds the row from a BlockMetadata-typed transaction.
func BlockMetadataFromTxn(txn *transaction.Transaction, data transaction.BlockMetadataTxn) BlockMetadataTransaction {
	bitvec, _ := json.Marshal(data.PreviousBlockVotesBitvec)
	failed, _ := json.Marshal(data.FailedProposerIndices)
	if data.FailedProposerIndices == nil {
		failed = json.RawMessage("[]")
	}
	return BlockMetadataTransaction{
		Version:                  int64(txn.Version),
		BlockHeight:              txn.BlockHeight,
		ID:                       StandardizeAddress(data.ID),
		Round:                    int64(data.Round),
		Epoch:                    txn.Epoch,
		PreviousBlockVotesBitvec: bitvec,
		Proposer:                 StandardizeAddress(data.Proposer),
		FailedProposerIndices:    failed,
		TimestampMicros:          txn.TimestampMicros,
	}
}
