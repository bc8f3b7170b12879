package models

import "testing"

func TestStandardizeAddress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"0x1", "0x0000000000000000000000000000000000000000000000000000000000000001"},
		{"1", "0x0000000000000000000000000000000000000000000000000000000000000001"},
		{"0x0", "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"0xAB", "0x00000000000000000000000000000000000000000000000000000000000000ab"},
		{
			"0xfee1619a13d78a63e3e8ec6a287a9f181ee21a13d78a63e3e8ec6a287a9f181e",
			"0xfee1619a13d78a63e3e8ec6a287a9f181ee21a13d78a63e3e8ec6a287a9f181e",
		},
		{
			"FEE1619A13D78A63E3E8EC6A287A9F181EE21A13D78A63E3E8EC6A287A9F181E",
			"0xfee1619a13d78a63e3e8ec6a287a9f181ee21a13d78a63e3e8ec6a287a9f181e",
		},
	}

	for _, tc := range cases {
		got := StandardizeAddress(tc.in)
		if got != tc.want {
			t.Fatalf("StandardizeAddress(%q)=%q want %q", tc.in, got, tc.want)
		}
		// Normalization must be idempotent.
		if again := StandardizeAddress(got); again != got {
			t.Fatalf("StandardizeAddress not idempotent: %q -> %q", got, again)
		}
	}
}

func TestStandardizeAddressPreservesDedup(t *testing.T) {
	t.Parallel()

	// Different spellings of the same address must collapse to one key.
	spellings := []string{"0x1", "1", "0x01", "0X1", "0x0000000000000000000000000000000000000000000000000000000000000001"}
	seen := make(map[string]struct{})
	for _, s := range spellings {
		seen[StandardizeAddress(s)] = struct{}{}
	}
	if len(seen) != 1 {
		t.Fatalf("expected 1 canonical form, got %d: %v", len(seen), seen)
	}
}

func TestTruncateStr(t *testing.T) {
	t.Parallel()

	if got := TruncateStr("abcdef", 4); got != "abcd" {
		t.Fatalf("TruncateStr long = %q", got)
	}
	if got := TruncateStr("ab", 4); got != "ab" {
		t.Fatalf("TruncateStr short = %q", got)
	}
}
