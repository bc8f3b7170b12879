package worker

import "testing"

func TestGapDetectorContiguous(t *testing.T) {
	t.Parallel()

	gap := NewGapDetector(100)
	if err := gap.Observe(100, 199); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := gap.Observe(200, 200); err != nil {
		t.Fatalf("single-version batch: %v", err)
	}
	if gap.Next() != 201 {
		t.Fatalf("next = %d, want 201", gap.Next())
	}
}

func TestGapDetectorRefusesGap(t *testing.T) {
	t.Parallel()

	// Stored cursor at 100 means the next batch must start at 101; a batch
	// starting at 102 is a fatal gap and must not advance the detector.
	gap := NewGapDetector(101)
	if err := gap.Observe(102, 110); err == nil {
		t.Fatalf("expected gap error")
	}
	if gap.Next() != 101 {
		t.Fatalf("gap must not advance the detector: next = %d", gap.Next())
	}
}

func TestGapDetectorRefusesOverlap(t *testing.T) {
	t.Parallel()

	gap := NewGapDetector(100)
	if err := gap.Observe(100, 150); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := gap.Observe(150, 160); err == nil {
		t.Fatalf("overlapping batch must be rejected")
	}
}

func TestGapDetectorRefusesInvertedRange(t *testing.T) {
	t.Parallel()

	gap := NewGapDetector(0)
	if err := gap.Observe(0, 0); err != nil {
		t.Fatalf("genesis batch: %v", err)
	}
	if err := gap.Observe(1, 0); err == nil {
		t.Fatalf("inverted range must be rejected")
	}
}
