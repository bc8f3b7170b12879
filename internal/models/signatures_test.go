package models

import (
	"testing"

	"github.com/Lambda256/aptos-indexer-go/internal/transaction"
)

func TestSignaturesFromUserTxnEd25519(t *testing.T) {
	t.Parallel()

	req := &transaction.UserTxnRequest{
		Sender: "0x1",
		Signature: &transaction.Signature{
			Type:      transaction.SigEd25519,
			PublicKey: []byte{0xaa},
			Signature: []byte{0xbb},
		},
	}
	sigs, err := SignaturesFromUserTxn(req, 5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signature, got %d", len(sigs))
	}
	s := sigs[0]
	if !s.IsSenderPrimary || s.MultiAgentIndex != 0 || s.MultiSigIndex != 0 {
		t.Fatalf("wrong key fields: %+v", s)
	}
	if s.Signer != StandardizeAddress("0x1") {
		t.Fatalf("signer not standardized: %q", s.Signer)
	}
	if s.PublicKey != "0xaa" || s.Signature != "0xbb" {
		t.Fatalf("key material: %q / %q", s.PublicKey, s.Signature)
	}
	if s.TransactionVersion != 5 || s.TransactionBlockHeight != 2 {
		t.Fatalf("version/height: %+v", s)
	}
}

func TestSignaturesFromUserTxnMultiAgent(t *testing.T) {
	t.Parallel()

	ed := func(b byte) *transaction.Signature {
		return &transaction.Signature{Type: transaction.SigEd25519, PublicKey: []byte{b}, Signature: []byte{b}}
	}
	req := &transaction.UserTxnRequest{
		Sender: "0x1",
		Signature: &transaction.Signature{
			Type:                     transaction.SigMultiAgent,
			Sender:                   ed(0x01),
			SecondarySignerAddresses: []string{"0x2", "0x3"},
			SecondarySigners:         []*transaction.Signature{ed(0x02), ed(0x03)},
		},
	}
	sigs, err := SignaturesFromUserTxn(req, 9, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) != 3 {
		t.Fatalf("expected 3 signatures, got %d", len(sigs))
	}
	if !sigs[0].IsSenderPrimary {
		t.Fatalf("first row must be the sender")
	}
	if sigs[1].MultiAgentIndex != 0 || sigs[2].MultiAgentIndex != 1 {
		t.Fatalf("secondary agent indices: %d, %d", sigs[1].MultiAgentIndex, sigs[2].MultiAgentIndex)
	}
	if sigs[1].IsSenderPrimary || sigs[2].IsSenderPrimary {
		t.Fatalf("secondary rows must not be primary")
	}
	if sigs[2].Signer != StandardizeAddress("0x3") {
		t.Fatalf("secondary signer: %q", sigs[2].Signer)
	}
}

func TestSignaturesFromUserTxnFeePayer(t *testing.T) {
	t.Parallel()

	ed := func(b byte) *transaction.Signature {
		return &transaction.Signature{Type: transaction.SigEd25519, PublicKey: []byte{b}, Signature: []byte{b}}
	}
	req := &transaction.UserTxnRequest{
		Sender: "0x1",
		Signature: &transaction.Signature{
			Type:            transaction.SigFeePayer,
			Sender:          ed(0x01),
			FeePayerAddress: "0x9",
			FeePayerSigner:  ed(0x09),
		},
	}
	sigs, err := SignaturesFromUserTxn(req, 9, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}
	payer := sigs[1]
	if payer.Signer != StandardizeAddress("0x9") || payer.IsSenderPrimary {
		t.Fatalf("fee payer row: %+v", payer)
	}
}

func TestSignaturesFromUserTxnMultiEd25519(t *testing.T) {
	t.Parallel()

	req := &transaction.UserTxnRequest{
		Sender: "0x1",
		Signature: &transaction.Signature{
			Type:             transaction.SigMultiEd25519,
			PublicKeys:       [][]byte{{0x01}, {0x02}, {0x03}},
			Signatures:       [][]byte{{0xa1}, {0xa2}},
			Threshold:        2,
			PublicKeyIndices: []uint32{0, 2},
		},
	}
	sigs, err := SignaturesFromUserTxn(req, 7, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) != 2 {
		t.Fatalf("expected one row per signature, got %d", len(sigs))
	}
	if sigs[0].MultiSigIndex != 0 || sigs[1].MultiSigIndex != 1 {
		t.Fatalf("multi sig indices: %d, %d", sigs[0].MultiSigIndex, sigs[1].MultiSigIndex)
	}
	// Second signature maps to public key index 2.
	if sigs[1].PublicKey != "0x03" {
		t.Fatalf("public key resolution: %q", sigs[1].PublicKey)
	}
	if sigs[0].Threshold != 2 {
		t.Fatalf("threshold: %d", sigs[0].Threshold)
	}
}

func TestSignaturesFromUserTxnMissing(t *testing.T) {
	t.Parallel()

	if _, err := SignaturesFromUserTxn(&transaction.UserTxnRequest{Sender: "0x1"}, 1, 1); err == nil {
		t.Fatalf("expected error for missing signature")
	}
}
