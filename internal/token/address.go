package token

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

// FindProgramAddress derives a Program Derived Address for seeds under programID.
// It walks bump seeds from 255 down and returns the first hash that is off the
// ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	if len(seeds) > maxSeeds-1 {
		return solana.PublicKey{}, 0, fmt.Errorf("too many seeds: %d", len(seeds))
	}
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return solana.PublicKey{}, 0, fmt.Errorf("seed too long: %d bytes", len(seed))
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID[:])
		h.Write([]byte(pdaMarker))

		sum := h.Sum(nil)
		if !IsOnCurve(sum) {
			return solana.PublicKeyFromBytes(sum), uint8(bump), nil
		}
	}

	return solana.PublicKey{}, 0, fmt.Errorf("no viable bump seed for program %s", programID)
}

// IsOnCurve reports whether b decodes to a point on the ed25519 curve.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// AssociatedTokenAddress derives the associated token account for owner and mint.
// Seeds: [owner, tokenProgram, mint] under the associated token program.
func AssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey, allowOwnerOffCurve bool) (solana.PublicKey, error) {
	if !allowOwnerOffCurve && !IsOnCurve(owner[:]) {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrOwnerOffCurve, owner)
	}

	addr, _, err := FindProgramAddress([][]byte{
		owner[:],
		tokenProgram[:],
		mint[:],
	}, AssociatedTokenProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}
