// Package transaction holds the domain view of an Aptos transaction as it
// arrives from the stream, after proto decoding. The rest of the pipeline
// works exclusively on these types.
package transaction

import "encoding/json"

// Type mirrors the on-wire transaction type tag.
type Type int32

const (
	TypeUnspecified Type = iota
	TypeGenesis
	TypeBlockMetadata
	TypeStateCheckpoint
	TypeUser
	TypeValidator
)

func (t Type) String() string {
	switch t {
	case TypeGenesis:
		return "TRANSACTION_TYPE_GENESIS"
	case TypeBlockMetadata:
		return "TRANSACTION_TYPE_BLOCK_METADATA"
	case TypeStateCheckpoint:
		return "TRANSACTION_TYPE_STATE_CHECKPOINT"
	case TypeUser:
		return "TRANSACTION_TYPE_USER"
	case TypeValidator:
		return "TRANSACTION_TYPE_VALIDATOR"
	default:
		return "TRANSACTION_TYPE_UNSPECIFIED"
	}
}

// Transaction is one entry of the version-ordered stream.
//
// Data is nil when the server sent a transaction without txn_data. That case
// is non-fatal: processors count it and skip the transaction. Variants this
// build does not decode arrive as OtherTxn, not as nil.
type Transaction struct {
	Version         uint64
	BlockHeight     int64
	Epoch           int64
	TimestampMicros int64
	Type            Type
	Info            *Info
	Data            TxnData
}

// Info carries the execution result metadata shared by all variants.
type Info struct {
	Hash                []byte
	StateChangeHash     []byte
	EventRootHash       []byte
	StateCheckpointHash []byte // nil when absent
	AccumulatorRootHash []byte
	GasUsed             uint64
	Success             bool
	VMStatus            string
	Changes             []WriteSetChange
}

// TxnData is the tagged union over transaction variants. Exactly one concrete
// type below implements it; dispatch with a type switch.
type TxnData interface {
	isTxnData()
}

type BlockMetadataTxn struct {
	ID                       string
	Round                    uint64
	Proposer                 string
	FailedProposerIndices    []uint32
	PreviousBlockVotesBitvec []byte
	Events                   []Event
}

type GenesisTxn struct {
	Events []Event
}

type UserTxn struct {
	Request *UserTxnRequest
	Events  []Event
}

type ValidatorTxn struct {
	Events []Event
}

// OtherTxn covers variants the pipeline carries but does not decode further
// (state checkpoints, epilogues, ...).
type OtherTxn struct{}

func (BlockMetadataTxn) isTxnData() {}
func (GenesisTxn) isTxnData()       {}
func (UserTxn) isTxnData()          {}
func (ValidatorTxn) isTxnData()     {}
func (OtherTxn) isTxnData()         {}

// Event is a contract event as emitted by the VM. The index within the
// transaction is positional and assigned during extraction.
type Event struct {
	CreationNumber uint64
	AccountAddress string
	SequenceNumber uint64
	Type           string
	Data           string // JSON text as shipped by the node
}

// UserTxnRequest is the signed request of a user transaction.
type UserTxnRequest struct {
	Sender                  string
	SequenceNumber          uint64
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs int64
	Payload                 *Payload
	Signature               *Signature
}

// Payload is the transaction payload, pre-rendered to clean JSON by the
// stream decoder. The concrete cleaning rules live with the decoder; the
// pipeline treats JSON as opaque.
type Payload struct {
	Type            string // e.g. "entry_function_payload"
	EntryFunctionID string // "0x1::coin::transfer" form, empty for non-entry payloads
	JSON            json.RawMessage
}

// Signature type tags, matching the wire names.
const (
	SigEd25519      = "ed25519_signature"
	SigMultiEd25519 = "multi_ed25519_signature"
	SigMultiAgent   = "multi_agent_signature"
	SigFeePayer     = "fee_payer_signature"
	SigSingleSender = "single_sender"
)

// Signature is the (possibly nested) authenticator of a user transaction.
// Single-key signatures fill PublicKey/Signature; multi-key variants fill the
// slice fields; multi-agent and fee-payer variants nest further signatures.
type Signature struct {
	Type             string
	PublicKey        []byte
	Signature        []byte
	Threshold        uint32
	PublicKeys       [][]byte
	Signatures       [][]byte
	PublicKeyIndices []uint32

	Sender                   *Signature
	SecondarySignerAddresses []string
	SecondarySigners         []*Signature
	FeePayerAddress          string
	FeePayerSigner           *Signature
}

// WriteSetChange is the tagged union over state changes of one transaction.
type WriteSetChange interface {
	isWriteSetChange()
}

type WriteTableItem struct {
	StateKeyHash []byte
	Handle       string
	Key          string
	Data         *WriteTableData
}

type WriteTableData struct {
	Key       string
	KeyType   string
	Value     string
	ValueType string
}

type DeleteTableItem struct {
	StateKeyHash []byte
	Handle       string
	Key          string
	Data         *DeleteTableData
}

type DeleteTableData struct {
	Key     string
	KeyType string
}

type WriteResource struct {
	StateKeyHash []byte
	Address      string
	TypeStr      string
	Data         string
}

type DeleteResource struct {
	StateKeyHash []byte
	Address      string
	TypeStr      string
}

type WriteModule struct {
	StateKeyHash []byte
	Address      string
}

type DeleteModule struct {
	StateKeyHash []byte
	Address      string
}

func (WriteTableItem) isWriteSetChange()  {}
func (DeleteTableItem) isWriteSetChange() {}
func (WriteResource) isWriteSetChange()   {}
func (DeleteResource) isWriteSetChange()  {}
func (WriteModule) isWriteSetChange()     {}
func (DeleteModule) isWriteSetChange()    {}
