// Package token encodes SPL Token and Token-2022 instructions and decodes
// mint accounts, including the metadata pointer and token metadata extensions.
package token

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Program and sysvar addresses.
var (
	ProgramID                = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID       = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID          = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	SysvarRentID             = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// Errors returned when decoding on-chain token accounts.
var (
	// ErrInvalidMint is returned when account data is not a valid mint.
	ErrInvalidMint = errors.New("invalid mint account")

	// ErrOwnerOffCurve is returned when an associated account owner is a PDA
	// and off-curve owners were not allowed.
	ErrOwnerOffCurve = errors.New("token owner is off curve")

	// ErrUnsupportedProgram is returned for accounts owned by neither token program.
	ErrUnsupportedProgram = errors.New("account is not owned by a token program")
)

// IsTokenProgram reports whether id is the classic token program or Token-2022.
func IsTokenProgram(id solana.PublicKey) bool {
	return id.Equals(ProgramID) || id.Equals(Token2022ProgramID)
}
