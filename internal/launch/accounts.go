package launch

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-token-launchpad/internal/ata"
	"solana-token-launchpad/internal/token"
)

// ResolveATARequest names the account to resolve. Payer defaults to the
// owner; TokenProgram defaults to the program owning the mint, or
// Token-2022 when the mint does not exist yet.
type ResolveATARequest struct {
	Mint         string
	Owner        string
	Payer        string
	TokenProgram string
}

// ResolveATAResult is the associated account and, when it is missing, an
// unsigned transaction creating it.
type ResolveATAResult struct {
	Address               solana.PublicKey
	Exists                bool
	SerializedTransaction string // empty when Exists
	LastValidBlockHeight  uint64 // zero when Exists
}

// ResolveATA resolves the associated token account of owner for mint.
func (s *Service) ResolveATA(ctx context.Context, req ResolveATARequest) (*ResolveATAResult, error) {
	mint, err := parseKey("mint", req.Mint)
	if err != nil {
		return nil, err
	}
	owner, err := parseKey("owner", req.Owner)
	if err != nil {
		return nil, err
	}
	payer := owner
	if req.Payer != "" {
		if payer, err = parseKey("payer", req.Payer); err != nil {
			return nil, err
		}
	}

	var program solana.PublicKey
	if req.TokenProgram != "" {
		if program, err = parseKey("tokenProgram", req.TokenProgram); err != nil {
			return nil, err
		}
		if !token.IsTokenProgram(program) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, token.ErrUnsupportedProgram)
		}
	} else {
		info, err := s.rpc.GetAccountInfo(ctx, mint.String())
		if err != nil {
			return nil, fmt.Errorf("get mint %s: %w", mint, err)
		}
		program = token.Token2022ProgramID
		if info != nil {
			if owner, err := solana.PublicKeyFromBase58(info.Owner); err == nil && token.IsTokenProgram(owner) {
				program = owner
			}
		}
	}

	res, err := s.atas.Resolve(ctx, ata.Request{Payer: payer, Owner: owner, Mint: mint, TokenProgram: program})
	if err != nil {
		return nil, resolveError(err)
	}

	out := &ResolveATAResult{Address: res.Address, Exists: res.Exists}
	if res.Exists {
		return out, nil
	}

	blockhash, lastValid, err := s.latestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	if out.SerializedTransaction, err = res.SerializedTransaction(blockhash); err != nil {
		return nil, err
	}
	out.LastValidBlockHeight = lastValid
	return out, nil
}

// resolveError marks an off-curve owner as a client error.
func resolveError(err error) error {
	if errors.Is(err, token.ErrOwnerOffCurve) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
