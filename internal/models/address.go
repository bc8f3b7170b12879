package models

import (
	"encoding/hex"
	"strings"
)

// StandardizeAddress normalizes an account address or 32-byte hash to the
// canonical "0x" + 64 lowercase hex chars form used for every equality check
// and primary key in the pipeline.
//
// Upstream payloads carry addresses in several shapes:
// - with or without "0x" prefix
// - short form with leading zeros stripped (e.g. "0x1")
// - mixed case hex
//
// The function is idempotent: StandardizeAddress(StandardizeAddress(x)) ==
// StandardizeAddress(x).
func StandardizeAddress(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, "0x")
	if len(s) < 64 {
		s = strings.Repeat("0", 64-len(s)) + s
	}
	return "0x" + s
}

// StandardizeHashBytes hex-encodes a raw hash and standardizes it.
func StandardizeHashBytes(b []byte) string {
	return StandardizeAddress(hex.EncodeToString(b))
}

// HashKey hex-encodes a state key hash for use as a primary-key column.
func HashKey(stateKeyHash []byte) string {
	return StandardizeAddress(hex.EncodeToString(stateKeyHash))
}

// TruncateStr caps a string at maxChars. Postgres btree index entries are
// bounded, so over-long move type strings are stored truncated and the full
// value kept only in the raw payload.
func TruncateStr(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	return s[:maxChars]
}
