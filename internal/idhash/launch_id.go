package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-token-launchpad/internal/domain"
)

// ComputeLaunchID computes a deterministic launch_id using SHA256.
// Formula: SHA256(kind|mint|payer|receiver|amount|last_valid_block_height)
// Returns hex-encoded hash (64 characters).
//
// Two mint requests with identical inputs inside one blockhash window yield
// the same transaction bytes, so they share an ID.
func ComputeLaunchID(
	kind domain.LaunchKind,
	mint string,
	payer string,
	receiver string,
	amount string,
	lastValidBlockHeight uint64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%d",
		string(kind),
		mint,
		payer,
		receiver,
		amount,
		lastValidBlockHeight,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
