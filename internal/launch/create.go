package launch

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/idhash"
	"solana-token-launchpad/internal/observability"
	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/token"
)

// MaxSupplyKey is the additional metadata key holding the supply cap in whole tokens.
const MaxSupplyKey = "maxSupply"

// MaxDecimals is the largest accepted number of mint decimals.
const MaxDecimals = 9

// CreateTokenRequest describes a new token.
type CreateTokenRequest struct {
	Creator     string
	Name        string
	Symbol      string
	Description string
	Decimals    int

	// InitialSupply is minted to the creator; zero mints nothing.
	InitialSupply decimal.Decimal
	// TotalSupply is the cap recorded in metadata; zero means uncapped.
	TotalSupply decimal.Decimal

	Image pinning.Image
}

// CreateTokenResult is the partially signed creation transaction.
type CreateTokenResult struct {
	LaunchID              string
	Mint                  solana.PublicKey
	AssociatedAccount     solana.PublicKey // zero when nothing is minted
	SerializedTransaction string
	LastValidBlockHeight  uint64
	MetadataURI           string
	ImageURI              string
	InstructionCount      int
}

// validate checks the request before any network call.
func (r *CreateTokenRequest) validate() (creator solana.PublicKey, initial, capUnits uint64, err error) {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Symbol) == "" ||
		strings.TrimSpace(r.Description) == "" || len(r.Image.Data) == 0 {
		return creator, 0, 0, ErrMissingFields
	}
	creator, err = parseKey("publicKey", r.Creator)
	if err != nil {
		return creator, 0, 0, err
	}
	if r.Decimals < 0 || r.Decimals > MaxDecimals {
		return creator, 0, 0, fmt.Errorf("%w: decimals must be between 0 and %d", ErrInvalidInput, MaxDecimals)
	}
	decimals := uint8(r.Decimals)

	initial, err = ToBaseUnits(r.InitialSupply, decimals)
	if err != nil {
		return creator, 0, 0, fmt.Errorf("initial supply: %w", err)
	}
	capUnits, err = ToBaseUnits(r.TotalSupply, decimals)
	if err != nil {
		return creator, 0, 0, fmt.Errorf("total supply: %w", err)
	}
	if capUnits > 0 && initial > capUnits {
		return creator, 0, 0, fmt.Errorf("%w: initial supply exceeds total supply", ErrInvalidInput)
	}
	return creator, initial, capUnits, nil
}

// CreateToken pins the image and metadata, then builds a transaction that
// creates a Token-2022 mint with on-chain metadata and optionally mints the
// initial supply to the creator. The transaction is signed by the new mint
// key only; the creator signs in the wallet.
//
// Pins are not removed when a later step fails; they stay recorded as orphans.
func (s *Service) CreateToken(ctx context.Context, req CreateTokenRequest) (*CreateTokenResult, error) {
	creator, initialUnits, capUnits, err := req.validate()
	if err != nil {
		return nil, err
	}
	decimals := uint8(req.Decimals)

	image, err := s.pinner.UploadImage(ctx, req.Image)
	if err != nil {
		return nil, err
	}
	s.ledger.RecordPin(ctx, image, s.nowMs())

	meta, err := s.pinner.UploadMetadata(ctx, pinning.OffChainMetadata{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Image:       image.URL,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}
	s.ledger.RecordPin(ctx, meta, s.nowMs())

	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate mint key: %w", err)
	}
	mint := mintKey.PublicKey()

	onChain := &token.Metadata{
		UpdateAuthority: creator,
		Mint:            mint,
		Name:            req.Name,
		Symbol:          req.Symbol,
		URI:             meta.URL,
	}
	if capUnits > 0 {
		onChain.AdditionalMetadata = []token.MetadataEntry{{Key: MaxSupplyKey, Value: req.TotalSupply.String()}}
	}

	mintLen := token.MintLen(token.ExtensionMetadataPointer)
	metadataLen, err := token.MetadataLen(onChain)
	if err != nil {
		return nil, err
	}

	// The account is created at mintLen; the metadata instructions grow it,
	// so the rent must already cover the final size.
	var (
		blockhash solana.Hash
		lastValid uint64
		lamports  uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		blockhash, lastValid, err = s.latestBlockhash(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		lamports, err = s.rpc.GetMinimumBalanceForRentExemption(gctx, uint64(mintLen+metadataLen))
		if err != nil {
			return fmt.Errorf("get rent exemption: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	instructions := []solana.Instruction{
		system.NewCreateAccountInstruction(lamports, uint64(mintLen), token.Token2022ProgramID, creator, mint).Build(),
		token.InitializeMetadataPointer(token.InitializeMetadataPointerParams{
			Mint:            mint,
			Authority:       creator,
			MetadataAddress: mint,
		}),
		token.InitializeMint(token.InitializeMintParams{
			Mint:          mint,
			Decimals:      decimals,
			MintAuthority: creator,
		}),
		token.InitializeMetadata(token.InitializeMetadataParams{
			Metadata:        mint,
			UpdateAuthority: creator,
			Mint:            mint,
			MintAuthority:   creator,
			Name:            req.Name,
			Symbol:          req.Symbol,
			URI:             meta.URL,
		}),
	}
	if capUnits > 0 {
		instructions = append(instructions, token.UpdateField(token.UpdateFieldParams{
			Metadata:        mint,
			UpdateAuthority: creator,
			Key:             MaxSupplyKey,
			Value:           req.TotalSupply.String(),
		}))
	}

	var associated solana.PublicKey
	if initialUnits > 0 {
		// A mint created by this transaction has no token accounts yet.
		associated, err = token.AssociatedTokenAddress(creator, mint, token.Token2022ProgramID, false)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions,
			token.CreateAssociatedTokenAccount(token.CreateAssociatedTokenAccountParams{
				Payer:                  creator,
				AssociatedTokenAccount: associated,
				Owner:                  creator,
				Mint:                   mint,
				TokenProgramID:         token.Token2022ProgramID,
				Idempotent:             true,
			}),
			token.MintToChecked(token.MintToCheckedParams{
				Mint:        mint,
				Destination: associated,
				Authority:   creator,
				Amount:      initialUnits,
				Decimals:    decimals,
			}),
		)
	}

	tx, err := token.NewTransaction(instructions, blockhash, creator)
	if err != nil {
		return nil, err
	}
	if err := token.PartialSign(tx, mintKey); err != nil {
		return nil, err
	}
	encoded, err := token.Serialize(tx)
	if err != nil {
		return nil, err
	}

	res := &CreateTokenResult{
		LaunchID: idhash.ComputeLaunchID(domain.LaunchKindCreate, mint.String(), creator.String(),
			creator.String(), fmt.Sprint(initialUnits), lastValid),
		Mint:                  mint,
		AssociatedAccount:     associated,
		SerializedTransaction: encoded,
		LastValidBlockHeight:  lastValid,
		MetadataURI:           meta.URL,
		ImageURI:              image.URL,
		InstructionCount:      len(instructions),
	}

	launch := &domain.Launch{
		LaunchID:             res.LaunchID,
		Kind:                 domain.LaunchKindCreate,
		Mint:                 mint.String(),
		Payer:                creator.String(),
		Receiver:             creator.String(),
		Amount:               fmt.Sprint(initialUnits),
		Decimals:             decimals,
		LastValidBlockHeight: lastValid,
		MetadataURI:          meta.URL,
		CreatedAt:            s.nowMs(),
	}
	if initialUnits > 0 {
		launch.AssociatedAccount = associated.String()
	}
	s.ledger.RecordLaunch(ctx, launch, image.CID, meta.CID)

	observability.RecordTransactionBuilt(string(domain.LaunchKindCreate), len(instructions))
	s.log.Info().
		Str("launch_id", res.LaunchID).
		Str("mint", mint.String()).
		Str("creator", creator.String()).
		Uint8("decimals", decimals).
		Uint64("initial_supply", initialUnits).
		Int("instructions", len(instructions)).
		Msg("token creation built")

	return res, nil
}
