package network

import "testing"

func TestFromChainID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		chainID uint64
		want    Network
		wantErr bool
	}{
		{1, Mainnet, false},
		{2, Testnet, false},
		{3, "", true},
		{0, "", true},
	}

	for _, tc := range cases {
		got, err := FromChainID(tc.chainID)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("chain id %d: expected error", tc.chainID)
			}
			continue
		}
		if err != nil {
			t.Fatalf("chain id %d: %v", tc.chainID, err)
		}
		if got != tc.want {
			t.Fatalf("chain id %d: got %q want %q", tc.chainID, got, tc.want)
		}
	}
}
