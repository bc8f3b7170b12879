package stream

import (
	"encoding/json"
	"fmt"

	txnpb "github.com/aptos-labs/aptos-protos/go/aptos/transaction/v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

// payloadJSON renders a transaction payload to clean JSON. protojson output
// is the documented shape of RawTransaction.payload; consumers treat it as
// opaque.
var payloadJSON = protojson.MarshalOptions{EmitUnpopulated: false}

func convertTransaction(pb *txnpb.Transaction) (*transaction.Transaction, error) {
	txn := &transaction.Transaction{
		Version:     pb.Version,
		BlockHeight: int64(pb.BlockHeight),
		Epoch:       int64(pb.Epoch),
		Type:        convertType(pb.Type),
	}
	if ts := pb.Timestamp; ts != nil {
		txn.TimestampMicros = ts.Seconds*1_000_000 + int64(ts.Nanos)/1_000
	}

	info := pb.Info
	if info == nil {
		return nil, fmt.Errorf("transaction %d has no info", pb.Version)
	}
	txn.Info = &transaction.Info{
		Hash:                info.Hash,
		StateChangeHash:     info.StateChangeHash,
		EventRootHash:       info.EventRootHash,
		StateCheckpointHash: info.StateCheckpointHash,
		AccumulatorRootHash: info.AccumulatorRootHash,
		GasUsed:             info.GasUsed,
		Success:             info.Success,
		VMStatus:            info.VmStatus,
	}
	for _, change := range info.Changes {
		converted := convertWriteSetChange(change)
		if converted != nil {
			txn.Info.Changes = append(txn.Info.Changes, converted)
		}
	}

	switch data := pb.TxnData.(type) {
	case *txnpb.Transaction_BlockMetadata:
		txn.Data = transaction.BlockMetadataTxn{
			ID:                       data.BlockMetadata.GetId(),
			Round:                    data.BlockMetadata.GetRound(),
			Proposer:                 data.BlockMetadata.GetProposer(),
			FailedProposerIndices:    data.BlockMetadata.GetFailedProposerIndices(),
			PreviousBlockVotesBitvec: data.BlockMetadata.GetPreviousBlockVotesBitvec(),
			Events:                   convertEvents(data.BlockMetadata.GetEvents()),
		}
	case *txnpb.Transaction_Genesis:
		txn.Data = transaction.GenesisTxn{
			Events: convertEvents(data.Genesis.GetEvents()),
		}
	case *txnpb.Transaction_User:
		userTxn, err := convertUserTxn(pb.Version, data.User)
		if err != nil {
			return nil, err
		}
		txn.Data = userTxn
	case *txnpb.Transaction_Validator:
		txn.Data = transaction.ValidatorTxn{
			Events: convertEvents(data.Validator.GetEvents()),
		}
	case *txnpb.Transaction_StateCheckpoint:
		txn.Data = transaction.OtherTxn{}
	case nil:
		// Absent txn_data: left nil, counted and skipped by processors.
	default:
		// Variants newer than this build (block epilogues, ...).
		txn.Data = transaction.OtherTxn{}
	}

	return txn, nil
}

func convertType(t txnpb.Transaction_TransactionType) transaction.Type {
	switch t {
	case txnpb.Transaction_TRANSACTION_TYPE_GENESIS:
		return transaction.TypeGenesis
	case txnpb.Transaction_TRANSACTION_TYPE_BLOCK_METADATA:
		return transaction.TypeBlockMetadata
	case txnpb.Transaction_TRANSACTION_TYPE_STATE_CHECKPOINT:
		return transaction.TypeStateCheckpoint
	case txnpb.Transaction_TRANSACTION_TYPE_USER:
		return transaction.TypeUser
	case txnpb.Transaction_TRANSACTION_TYPE_VALIDATOR:
		return transaction.TypeValidator
	default:
		return transaction.TypeUnspecified
	}
}

func convertEvents(events []*txnpb.Event) []transaction.Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]transaction.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, transaction.Event{
			CreationNumber: ev.GetKey().GetCreationNumber(),
			AccountAddress: ev.GetKey().GetAccountAddress(),
			SequenceNumber: ev.GetSequenceNumber(),
			Type:           ev.GetTypeStr(),
			Data:           ev.GetData(),
		})
	}
	return out
}

func convertUserTxn(version uint64, user *txnpb.UserTransaction) (transaction.UserTxn, error) {
	req := user.GetRequest()
	if req == nil {
		return transaction.UserTxn{}, fmt.Errorf("user transaction %d has no request", version)
	}

	domainReq := &transaction.UserTxnRequest{
		Sender:         req.GetSender(),
		SequenceNumber: req.GetSequenceNumber(),
		MaxGasAmount:   req.GetMaxGasAmount(),
		GasUnitPrice:   req.GetGasUnitPrice(),
	}
	if exp := req.GetExpirationTimestampSecs(); exp != nil {
		domainReq.ExpirationTimestampSecs = exp.Seconds
	}
	if payload := req.GetPayload(); payload != nil {
		domainReq.Payload = convertPayload(payload)
	}
	if sig := req.GetSignature(); sig != nil {
		domainReq.Signature = convertSignature(sig)
	}

	return transaction.UserTxn{
		Request: domainReq,
		Events:  convertEvents(user.GetEvents()),
	}, nil
}

func convertPayload(payload *txnpb.TransactionPayload) *transaction.Payload {
	out := &transaction.Payload{}

	switch payload.GetType() {
	case txnpb.TransactionPayload_TYPE_ENTRY_FUNCTION_PAYLOAD:
		out.Type = "entry_function_payload"
		out.EntryFunctionID = payload.GetEntryFunctionPayload().GetEntryFunctionIdStr()
	case txnpb.TransactionPayload_TYPE_SCRIPT_PAYLOAD:
		out.Type = "script_payload"
	case txnpb.TransactionPayload_TYPE_WRITE_SET_PAYLOAD:
		out.Type = "write_set_payload"
	case txnpb.TransactionPayload_TYPE_MULTISIG_PAYLOAD:
		out.Type = "multisig_payload"
	default:
		out.Type = "unknown_payload"
	}

	if rendered, err := payloadJSON.Marshal(payload); err == nil {
		out.JSON = json.RawMessage(rendered)
	}
	return out
}

func convertSignature(sig *txnpb.Signature) *transaction.Signature {
	switch s := sig.GetSignature().(type) {
	case *txnpb.Signature_Ed25519:
		return &transaction.Signature{
			Type:      transaction.SigEd25519,
			PublicKey: s.Ed25519.GetPublicKey(),
			Signature: s.Ed25519.GetSignature(),
		}
	case *txnpb.Signature_MultiEd25519:
		return &transaction.Signature{
			Type:             transaction.SigMultiEd25519,
			PublicKeys:       s.MultiEd25519.GetPublicKeys(),
			Signatures:       s.MultiEd25519.GetSignatures(),
			Threshold:        s.MultiEd25519.GetThreshold(),
			PublicKeyIndices: s.MultiEd25519.GetPublicKeyIndices(),
		}
	case *txnpb.Signature_MultiAgent:
		return &transaction.Signature{
			Type:                     transaction.SigMultiAgent,
			Sender:                   convertAccountSignature(s.MultiAgent.GetSender()),
			SecondarySignerAddresses: s.MultiAgent.GetSecondarySignerAddresses(),
			SecondarySigners:         convertAccountSignatures(s.MultiAgent.GetSecondarySigners()),
		}
	case *txnpb.Signature_FeePayer:
		return &transaction.Signature{
			Type:                     transaction.SigFeePayer,
			Sender:                   convertAccountSignature(s.FeePayer.GetSender()),
			SecondarySignerAddresses: s.FeePayer.GetSecondarySignerAddresses(),
			SecondarySigners:         convertAccountSignatures(s.FeePayer.GetSecondarySigners()),
			FeePayerAddress:          s.FeePayer.GetFeePayerAddress(),
			FeePayerSigner:           convertAccountSignature(s.FeePayer.GetFeePayerSigner()),
		}
	default:
		// Single-sender and future authenticators: type is preserved, key
		// material is not decoded by this build.
		return &transaction.Signature{Type: transaction.SigSingleSender}
	}
}

func convertAccountSignatures(sigs []*txnpb.AccountSignature) []*transaction.Signature {
	if len(sigs) == 0 {
		return nil
	}
	out := make([]*transaction.Signature, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, convertAccountSignature(sig))
	}
	return out
}

func convertAccountSignature(sig *txnpb.AccountSignature) *transaction.Signature {
	if sig == nil {
		return nil
	}
	switch s := sig.GetSignature().(type) {
	case *txnpb.AccountSignature_Ed25519:
		return &transaction.Signature{
			Type:      transaction.SigEd25519,
			PublicKey: s.Ed25519.GetPublicKey(),
			Signature: s.Ed25519.GetSignature(),
		}
	case *txnpb.AccountSignature_MultiEd25519:
		return &transaction.Signature{
			Type:             transaction.SigMultiEd25519,
			PublicKeys:       s.MultiEd25519.GetPublicKeys(),
			Signatures:       s.MultiEd25519.GetSignatures(),
			Threshold:        s.MultiEd25519.GetThreshold(),
			PublicKeyIndices: s.MultiEd25519.GetPublicKeyIndices(),
		}
	default:
		return &transaction.Signature{Type: transaction.SigSingleSender}
	}
}

func convertWriteSetChange(change *txnpb.WriteSetChange) transaction.WriteSetChange {
	switch c := change.GetChange().(type) {
	case *txnpb.WriteSetChange_WriteTableItem:
		item := transaction.WriteTableItem{
			StateKeyHash: c.WriteTableItem.GetStateKeyHash(),
			Handle:       c.WriteTableItem.GetHandle(),
			Key:          c.WriteTableItem.GetKey(),
		}
		if data := c.WriteTableItem.GetData(); data != nil {
			item.Data = &transaction.WriteTableData{
				Key:       data.GetKey(),
				KeyType:   data.GetKeyType(),
				Value:     data.GetValue(),
				ValueType: data.GetValueType(),
			}
		}
		return item
	case *txnpb.WriteSetChange_DeleteTableItem:
		item := transaction.DeleteTableItem{
			StateKeyHash: c.DeleteTableItem.GetStateKeyHash(),
			Handle:       c.DeleteTableItem.GetHandle(),
			Key:          c.DeleteTableItem.GetKey(),
		}
		if data := c.DeleteTableItem.GetData(); data != nil {
			item.Data = &transaction.DeleteTableData{
				Key:     data.GetKey(),
				KeyType: data.GetKeyType(),
			}
		}
		return item
	case *txnpb.WriteSetChange_WriteResource:
		return transaction.WriteResource{
			StateKeyHash: c.WriteResource.GetStateKeyHash(),
			Address:      c.WriteResource.GetAddress(),
			TypeStr:      c.WriteResource.GetTypeStr(),
			Data:         c.WriteResource.GetData(),
		}
	case *txnpb.WriteSetChange_DeleteResource:
		return transaction.DeleteResource{
			StateKeyHash: c.DeleteResource.GetStateKeyHash(),
			Address:      c.DeleteResource.GetAddress(),
			TypeStr:      c.DeleteResource.GetTypeStr(),
		}
	case *txnpb.WriteSetChange_WriteModule:
		return transaction.WriteModule{
			StateKeyHash: c.WriteModule.GetStateKeyHash(),
			Address:      c.WriteModule.GetAddress(),
		}
	case *txnpb.WriteSetChange_DeleteModule:
		return transaction.DeleteModule{
			StateKeyHash: c.DeleteModule.GetStateKeyHash(),
			Address:      c.DeleteModule.GetAddress(),
		}
	default:
		return nil
	}
}
