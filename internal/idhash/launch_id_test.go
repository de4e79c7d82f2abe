package idhash

import (
	"testing"

	"solana-token-launchpad/internal/domain"
)

func TestComputeLaunchID(t *testing.T) {
	tests := []struct {
		name     string
		kind     domain.LaunchKind
		mint     string
		payer    string
		receiver string
		amount   string
		height   uint64
	}{
		{
			name:     "create with initial supply",
			kind:     domain.LaunchKindCreate,
			mint:     "Mint111",
			payer:    "Payer222",
			receiver: "Payer222",
			amount:   "1000000000",
			height:   3090,
		},
		{
			name:     "mint to another receiver",
			kind:     domain.LaunchKindMint,
			mint:     "Mint111",
			payer:    "Payer222",
			receiver: "Receiver333",
			amount:   "5",
			height:   1150,
		},
		{
			name:   "create without supply",
			kind:   domain.LaunchKindCreate,
			mint:   "Mint444",
			payer:  "Payer555",
			amount: "0",
			height: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLaunchID(tt.kind, tt.mint, tt.payer, tt.receiver, tt.amount, tt.height)

			if len(got) != 64 {
				t.Errorf("ComputeLaunchID() length = %d, want 64", len(got))
			}

			again := ComputeLaunchID(tt.kind, tt.mint, tt.payer, tt.receiver, tt.amount, tt.height)
			if got != again {
				t.Errorf("ComputeLaunchID() not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestComputeLaunchID_KnownValue(t *testing.T) {
	got := ComputeLaunchID(domain.LaunchKindCreate, "Mint111", "Payer222", "Payer222", "1000000000", 3090)
	want := "c59b9973a447f11a39f1785a33be5db024ce71dcf10acf07698ccd342e0eae64"
	if got != want {
		t.Errorf("ComputeLaunchID() = %s, want %s", got, want)
	}
}

func TestComputeLaunchID_DifferentInputs(t *testing.T) {
	base := ComputeLaunchID(domain.LaunchKindMint, "Mint111", "Payer222", "Receiver333", "5", 1150)

	variants := map[string]string{
		"kind":     ComputeLaunchID(domain.LaunchKindCreate, "Mint111", "Payer222", "Receiver333", "5", 1150),
		"mint":     ComputeLaunchID(domain.LaunchKindMint, "Mint999", "Payer222", "Receiver333", "5", 1150),
		"receiver": ComputeLaunchID(domain.LaunchKindMint, "Mint111", "Payer222", "Payer222", "5", 1150),
		"amount":   ComputeLaunchID(domain.LaunchKindMint, "Mint111", "Payer222", "Receiver333", "6", 1150),
		"height":   ComputeLaunchID(domain.LaunchKindMint, "Mint111", "Payer222", "Receiver333", "5", 1151),
	}
	for field, id := range variants {
		if id == base {
			t.Errorf("changing %s did not change the ID", field)
		}
	}
}
