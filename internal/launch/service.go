// Package launch builds the partially signed Solana transactions behind the
// launchpad API: token creation, minting, balances, airdrops and relaying
// signed transactions.
package launch

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"solana-token-launchpad/internal/ata"
	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/solanarpc"
	"solana-token-launchpad/internal/storage"
)

// Pinner uploads launch assets to IPFS.
type Pinner interface {
	UploadImage(ctx context.Context, img pinning.Image) (*pinning.Pinned, error)
	UploadMetadata(ctx context.Context, md pinning.OffChainMetadata) (*pinning.Pinned, error)
}

// Config holds service tuning knobs.
type Config struct {
	// AirdropRate and AirdropBurst bound airdrops per address.
	AirdropRate  rate.Limit
	AirdropBurst int

	// ConfirmTimeout bounds waiting for airdrops and submitted transactions.
	ConfirmTimeout time.Duration

	// PollInterval is the signature status polling period.
	PollInterval time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AirdropRate:    rate.Every(time.Minute),
		AirdropBurst:   2,
		ConfirmTimeout: 60 * time.Second,
		PollInterval:   time.Second,
	}
}

// Deps are the collaborators of the service.
type Deps struct {
	RPC solanarpc.RPCClient
	// WS is optional. Without it confirmations are polled.
	WS     solanarpc.WSClient
	Pinner Pinner

	// Launches and Pins are optional ledger stores.
	Launches storage.LaunchStore
	Pins     storage.PinStore

	Logger zerolog.Logger
}

// Service implements the launchpad operations.
type Service struct {
	rpc      solanarpc.RPCClient
	ws       solanarpc.WSClient
	pinner   Pinner
	atas     *ata.Resolver
	ledger   *Ledger
	airdrops *limiterSet
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates a service.
func NewService(deps Deps, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.AirdropRate == 0 {
		cfg.AirdropRate = defaults.AirdropRate
	}
	if cfg.AirdropBurst <= 0 {
		cfg.AirdropBurst = defaults.AirdropBurst
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaults.ConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}

	log := deps.Logger.With().Str("component", "launch").Logger()
	return &Service{
		rpc:      deps.RPC,
		ws:       deps.WS,
		pinner:   deps.Pinner,
		atas:     ata.NewResolver(deps.RPC, deps.Logger),
		ledger:   NewLedger(deps.Launches, deps.Pins, deps.Logger),
		airdrops: newLimiterSet(cfg.AirdropRate, cfg.AirdropBurst),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// latestBlockhash fetches a blockhash and its expiry height.
func (s *Service) latestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	bh, err := s.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("get latest blockhash: %w", err)
	}
	hash, err := solana.HashFromBase58(bh.Blockhash)
	if err != nil {
		return solana.Hash{}, 0, fmt.Errorf("parse blockhash %q: %w", bh.Blockhash, err)
	}
	return hash, bh.LastValidBlockHeight, nil
}

// parseKey parses a base58 address named field.
func parseKey(field, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s: %v", ErrInvalidInput, field, err)
	}
	return key, nil
}

func (s *Service) nowMs() int64 {
	return s.now().UnixMilli()
}
