package launch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"solana-token-launchpad/internal/ata"
	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/idhash"
	"solana-token-launchpad/internal/observability"
	"solana-token-launchpad/internal/token"
)

// MintTokenRequest mints more supply of an existing mint.
type MintTokenRequest struct {
	Mint     string
	Sender   string // fee payer and mint authority
	Receiver string
	Amount   decimal.Decimal // whole tokens
}

// MintTokenResult is the unsigned mint transaction.
type MintTokenResult struct {
	LaunchID              string
	TokenAccount          solana.PublicKey
	SerializedTransaction string
	LastValidBlockHeight  uint64
	InstructionCount      int
}

// mintState is the on-chain view of a mint needed to mint more supply.
type mintState struct {
	program  solana.PublicKey
	mint     *token.Mint
	capUnits uint64
	hasCap   bool
}

// loadMint reads the mint account and its optional maxSupply cap.
func (s *Service) loadMint(ctx context.Context, mint solana.PublicKey) (*mintState, error) {
	info, err := s.rpc.GetAccountInfo(ctx, mint.String())
	if err != nil {
		return nil, fmt.Errorf("get mint %s: %w", mint, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: mint %s not found", ErrInvalidInput, mint)
	}

	program, err := solana.PublicKeyFromBase58(info.Owner)
	if err != nil || !token.IsTokenProgram(program) {
		return nil, fmt.Errorf("%w: %s is not a token mint", ErrInvalidInput, mint)
	}

	data, err := info.Bytes()
	if err != nil {
		return nil, err
	}
	parsed, err := token.ParseMint(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	st := &mintState{program: program, mint: parsed}

	md, err := parsed.TokenMetadata()
	if err != nil {
		// Unreadable metadata does not block minting; the cap cannot be enforced.
		s.log.Warn().Err(err).Str("mint", mint.String()).Msg("token metadata unreadable")
		return st, nil
	}
	if md == nil {
		return st, nil
	}
	raw, ok := md.Lookup(MaxSupplyKey)
	if !ok {
		return st, nil
	}
	capTokens, err := decimal.NewFromString(raw)
	if err != nil {
		s.log.Warn().Str("mint", mint.String()).Str("max_supply", raw).Msg("max supply is not a number")
		return st, nil
	}
	capUnits, err := ToBaseUnits(capTokens, parsed.Decimals)
	if err != nil {
		s.log.Warn().Err(err).Str("mint", mint.String()).Msg("max supply out of range")
		return st, nil
	}
	// Zero means uncapped, as at creation.
	st.capUnits, st.hasCap = capUnits, capUnits > 0
	return st, nil
}

// MintToken builds a transaction minting amount to the receiver's associated
// token account, creating it when absent. The sender pays and signs as mint
// authority in the wallet; the transaction carries no signatures. A sender
// that is not the mint authority is left for the runtime to reject.
//
// A mint whose metadata carries maxSupply is refused with ErrExceedsMaxSupply
// when the new supply would pass it.
func (s *Service) MintToken(ctx context.Context, req MintTokenRequest) (*MintTokenResult, error) {
	mint, err := parseKey("mintPubKey", req.Mint)
	if err != nil {
		return nil, err
	}
	sender, err := parseKey("sender", req.Sender)
	if err != nil {
		return nil, err
	}
	receiver, err := parseKey("receiver", req.Receiver)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	st, err := s.loadMint(ctx, mint)
	if err != nil {
		return nil, err
	}
	decimals := st.mint.Decimals

	units, err := ToBaseUnits(req.Amount, decimals)
	if err != nil {
		return nil, err
	}
	if st.hasCap && (st.mint.Supply+units < st.mint.Supply || st.mint.Supply+units > st.capUnits) {
		observability.RecordMintRejected("max_supply")
		s.log.Info().
			Str("mint", mint.String()).
			Uint64("supply", st.mint.Supply).
			Uint64("amount", units).
			Uint64("max_supply", st.capUnits).
			Msg("mint rejected")
		return nil, ErrExceedsMaxSupply
	}

	var (
		resolution *ata.Resolution
		blockhash  solana.Hash
		lastValid  uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resolution, err = s.atas.Resolve(gctx, ata.Request{
			Payer:        sender,
			Owner:        receiver,
			Mint:         mint,
			TokenProgram: st.program,
		})
		return resolveError(err)
	})
	g.Go(func() error {
		var err error
		blockhash, lastValid, err = s.latestBlockhash(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	instructions := append(resolution.Instructions(), token.MintToChecked(token.MintToCheckedParams{
		Mint:        mint,
		Destination: resolution.Address,
		Authority:   sender,
		Amount:      units,
		Decimals:    decimals,
		ProgramID:   st.program,
	}))

	tx, err := token.NewTransaction(instructions, blockhash, sender)
	if err != nil {
		return nil, err
	}
	encoded, err := token.Serialize(tx)
	if err != nil {
		return nil, err
	}

	amount := fmt.Sprint(units)
	res := &MintTokenResult{
		LaunchID:              idhash.ComputeLaunchID(domain.LaunchKindMint, mint.String(), sender.String(), receiver.String(), amount, lastValid),
		TokenAccount:          resolution.Address,
		SerializedTransaction: encoded,
		LastValidBlockHeight:  lastValid,
		InstructionCount:      len(instructions),
	}

	s.ledger.RecordLaunch(ctx, &domain.Launch{
		LaunchID:             res.LaunchID,
		Kind:                 domain.LaunchKindMint,
		Mint:                 mint.String(),
		Payer:                sender.String(),
		Receiver:             receiver.String(),
		AssociatedAccount:    resolution.Address.String(),
		Amount:               amount,
		Decimals:             decimals,
		LastValidBlockHeight: lastValid,
		CreatedAt:            s.nowMs(),
	})

	observability.RecordTransactionBuilt(string(domain.LaunchKindMint), len(instructions))
	s.log.Info().
		Str("launch_id", res.LaunchID).
		Str("mint", mint.String()).
		Str("receiver", receiver.String()).
		Uint64("amount", units).
		Bool("create_ata", !resolution.Exists).
		Msg("mint built")

	return res, nil
}
