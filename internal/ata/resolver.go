// Package ata resolves associated token accounts, proposing an idempotent
// creation instruction when the account does not exist yet.
package ata

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"solana-token-launchpad/internal/solanarpc"
	"solana-token-launchpad/internal/token"
)

// AccountReader reads on-chain accounts.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solanarpc.AccountInfo, error)
}

// Request identifies the account to resolve.
type Request struct {
	Payer        solana.PublicKey
	Owner        solana.PublicKey
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey // zero selects Token-2022

	AllowOwnerOffCurve bool
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Address solana.PublicKey
	Payer   solana.PublicKey
	Exists  bool

	// Instruction creates the account; nil when Exists.
	Instruction solana.Instruction
}

// Instructions returns the creation instruction as a slice, empty when the
// account exists.
func (r *Resolution) Instructions() []solana.Instruction {
	if r.Instruction == nil {
		return nil
	}
	return []solana.Instruction{r.Instruction}
}

// SerializedTransaction wraps the creation instruction in an unsigned
// transaction paid by Payer. Returns "" when the account exists.
func (r *Resolution) SerializedTransaction(blockhash solana.Hash) (string, error) {
	if r.Exists {
		return "", nil
	}
	tx, err := token.NewTransaction(r.Instructions(), blockhash, r.Payer)
	if err != nil {
		return "", err
	}
	return token.Serialize(tx)
}

// Resolver resolves associated token accounts.
type Resolver struct {
	rpc           AccountReader
	log           zerolog.Logger
	group         singleflight.Group
	lookupTimeout time.Duration
}

// DefaultLookupTimeout bounds a shared account lookup.
const DefaultLookupTimeout = 15 * time.Second

// NewResolver creates a resolver reading accounts through rpc.
func NewResolver(rpc AccountReader, log zerolog.Logger) *Resolver {
	return &Resolver{
		rpc:           rpc,
		log:           log.With().Str("component", "ata").Logger(),
		lookupTimeout: DefaultLookupTimeout,
	}
}

// Resolve derives the associated token account and checks whether it exists.
// Lookups of the same address in flight at once share one RPC call.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	program := req.TokenProgram
	if program.IsZero() {
		program = token.Token2022ProgramID
	}
	if !token.IsTokenProgram(program) {
		return nil, fmt.Errorf("%w: %s", token.ErrUnsupportedProgram, program)
	}
	payer := req.Payer
	if payer.IsZero() {
		payer = req.Owner
	}

	addr, err := token.AssociatedTokenAddress(req.Owner, req.Mint, program, req.AllowOwnerOffCurve)
	if err != nil {
		return nil, err
	}

	// The shared lookup outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := r.group.DoChan(addr.String(), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
		defer cancel()
		info, err := r.rpc.GetAccountInfo(lookupCtx, addr.String())
		if err != nil {
			return false, fmt.Errorf("get associated token account %s: %w", addr, err)
		}
		return info != nil && info.Owner == program.String(), nil
	})
	var result singleflight.Result
	select {
	case result = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if result.Err != nil {
		return nil, result.Err
	}
	exists := result.Val.(bool)
	shared := result.Shared

	r.log.Debug().
		Str("ata", addr.String()).
		Str("owner", req.Owner.String()).
		Str("mint", req.Mint.String()).
		Bool("exists", exists).
		Bool("shared", shared).
		Msg("resolved associated token account")

	res := &Resolution{Address: addr, Payer: payer, Exists: exists}
	if !exists {
		res.Instruction = token.CreateAssociatedTokenAccount(token.CreateAssociatedTokenAccountParams{
			Payer:                  payer,
			AssociatedTokenAccount: addr,
			Owner:                  req.Owner,
			Mint:                   req.Mint,
			TokenProgramID:         program,
			Idempotent:             true,
		})
	}
	return res, nil
}
