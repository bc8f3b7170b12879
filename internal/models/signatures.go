package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// Signature represents one row of the 'signatures' table. A single user
// transaction flattens into one row per (signer, key) pair:
//   - the sender's signature(s) with IsSenderPrimary=true and MultiAgentIndex=0
//   - each secondary signer at its agent index
//   - the fee payer, when present, after the secondary signers
//
// Multi-ed25519 signers additionally expand into one row per participating
// key, distinguished by MultiSigIndex.
type Signature struct {
	TransactionVersion     int64           `json:"transaction_version"`
	MultiAgentIndex        int64           `json:"multi_agent_index"`
	MultiSigIndex          int64           `json:"multi_sig_index"`
	TransactionBlockHeight int64           `json:"transaction_block_height"`
	Signer                 string          `json:"signer"`
	IsSenderPrimary        bool            `json:"is_sender_primary"`
	Type                   string          `json:"type"`
	PublicKey              string          `json:"public_key"`
	Signature              string          `json:"signature"`
	Threshold              int64           `json:"threshold"`
	PublicKeyIndices       json.RawMessage `json:"public_key_indices"`
}

// SignaturesFromUserTxn flattens the authenticator tree of a user transaction.
// Returns an error when the wire shape is structurally broken (missing
// signature on a signed transaction), which is fatal for the batch.
func SignaturesFromUserTxn(req *transaction.UserTxnRequest, version uint64, blockHeight int64) ([]Signature, error) {
	sig := req.Signature
	if sig == nil {
		return nil, fmt.Errorf("user transaction %d has no signature", version)
	}
	sender := StandardizeAddress(req.Sender)

	switch sig.Type {
	case transaction.SigEd25519, transaction.SigMultiEd25519, transaction.SigSingleSender:
		return expandAccountSignature(sig, int64(version), blockHeight, sender, true, 0)
	case transaction.SigMultiAgent, transaction.SigFeePayer:
		return signaturesFromMultiAgent(sig, int64(version), blockHeight, sender)
	default:
		return nil, fmt.Errorf("unknown signature type %q at version %d", sig.Type, version)
	}
}

func signaturesFromMultiAgent(sig *transaction.Signature, version, blockHeight int64, sender string) ([]Signature, error) {
	if sig.Sender == nil {
		return nil, fmt.Errorf("multi agent signature without sender at version %d", version)
	}
	if len(sig.SecondarySignerAddresses) != len(sig.SecondarySigners) {
		return nil, fmt.Errorf("secondary signer count mismatch at version %d: %d addresses, %d signers",
			version, len(sig.SecondarySignerAddresses), len(sig.SecondarySigners))
	}

	rows, err := expandAccountSignature(sig.Sender, version, blockHeight, sender, true, 0)
	if err != nil {
		return nil, err
	}

	for i, secondary := range sig.SecondarySigners {
		signer := StandardizeAddress(sig.SecondarySignerAddresses[i])
		expanded, err := expandAccountSignature(secondary, version, blockHeight, signer, false, int64(i))
		if err != nil {
			return nil, err
		}
		rows = append(rows, expanded...)
	}

	if sig.Type == transaction.SigFeePayer && sig.FeePayerSigner != nil {
		signer := StandardizeAddress(sig.FeePayerAddress)
		expanded, err := expandAccountSignature(sig.FeePayerSigner, version, blockHeight, signer, false, int64(len(sig.SecondarySigners)))
		if err != nil {
			return nil, err
		}
		rows = append(rows, expanded...)
	}

	return rows, nil
}

func expandAccountSignature(sig *transaction.Signature, version, blockHeight int64, signer string, isSenderPrimary bool, agentIndex int64) ([]Signature, error) {
	base := Signature{
		TransactionVersion:     version,
		MultiAgentIndex:        agentIndex,
		TransactionBlockHeight: blockHeight,
		Signer:                 signer,
		IsSenderPrimary:        isSenderPrimary,
		Type:                   sig.Type,
		Threshold:              1,
		PublicKeyIndices:       json.RawMessage("[]"),
	}

	switch sig.Type {
	case transaction.SigMultiEd25519:
		indices, _ := json.Marshal(sig.PublicKeyIndices)
		rows := make([]Signature, 0, len(sig.Signatures))
		for i, raw := range sig.Signatures {
			row := base
			row.MultiSigIndex = int64(i)
			row.Signature = prefixedHex(raw)
			if i < len(sig.PublicKeyIndices) && int(sig.PublicKeyIndices[i]) < len(sig.PublicKeys) {
				row.PublicKey = prefixedHex(sig.PublicKeys[sig.PublicKeyIndices[i]])
			}
			row.Threshold = int64(sig.Threshold)
			row.PublicKeyIndices = indices
			rows = append(rows, row)
		}
		return rows, nil
	default:
		// Single-key variants (ed25519, single_sender keyless forms) produce
		// exactly one row at multi_sig_index 0.
		base.PublicKey = prefixedHex(sig.PublicKey)
		base.Signature = prefixedHex(sig.Signature)
		return []Signature{base}, nil
	}
}

func prefixedHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
