package repository

import (
	"fmt"
	"testing"
)

func TestChunkSizesFor(t *testing.T) {
	t.Parallel()

	sizes := ChunkSizes{"events": 200, "broken": 0}
	if got := sizes.For("events"); got != 200 {
		t.Fatalf("override: %d", got)
	}
	if got := sizes.For("table_items"); got != DefaultChunkSize {
		t.Fatalf("default: %d", got)
	}
	if got := sizes.For("broken"); got != DefaultChunkSize {
		t.Fatalf("zero override must fall back: %d", got)
	}
}

func TestInChunks(t *testing.T) {
	t.Parallel()

	items := make([]int, 10)
	var calls [][]int
	err := inChunks(items, 4, func(chunk []int) error {
		calls = append(calls, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(calls))
	}
	if len(calls[0]) != 4 || len(calls[1]) != 4 || len(calls[2]) != 2 {
		t.Fatalf("chunk sizes: %d, %d, %d", len(calls[0]), len(calls[1]), len(calls[2]))
	}

	// Errors stop the sequence.
	count := 0
	err = inChunks(items, 4, func(chunk []int) error {
		count++
		return fmt.Errorf("boom")
	})
	if err == nil || count != 1 {
		t.Fatalf("error must stop chunking: err=%v count=%d", err, count)
	}
}

func TestDedupeLastKeepsNewest(t *testing.T) {
	t.Parallel()

	type row struct {
		pk      string
		version int
	}
	rows := []row{
		{"a", 1},
		{"b", 2},
		{"a", 3}, // newer duplicate, must win
		{"c", 4},
	}
	out := dedupeLast(rows, func(r row) string { return r.pk })
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	for _, r := range out {
		if r.pk == "a" && r.version != 3 {
			t.Fatalf("kept the wrong duplicate: %+v", r)
		}
	}
	// Relative order of survivors is preserved.
	if out[0].pk != "b" || out[1].pk != "a" || out[2].pk != "c" {
		t.Fatalf("order: %+v", out)
	}
}

func TestSanitizeForPG(t *testing.T) {
	t.Parallel()

	if got := sanitizeForPG("a\x00b"); got != "ab" {
		t.Fatalf("null byte: %q", got)
	}
	if got := sanitizeForPG("a\\u0000b"); got != "ab" {
		t.Fatalf("escaped null: %q", got)
	}
	if got := sanitizeForPG("plain"); got != "plain" {
		t.Fatalf("plain: %q", got)
	}
}

func TestSanitizeJSONB(t *testing.T) {
	t.Parallel()

	if got := sanitizeJSONB(nil); got != "null" {
		t.Fatalf("nil: %q", got)
	}
	if got := sanitizeJSONB([]byte("not json")); got != "null" {
		t.Fatalf("invalid: %q", got)
	}
	if got := sanitizeJSONB([]byte(`{"a":1}`)); got != `{"a":1}` {
		t.Fatalf("valid: %q", got)
	}
}
