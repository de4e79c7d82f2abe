package launch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"solana-token-launchpad/internal/observability"
	"solana-token-launchpad/internal/solanarpc"
)

// Balance returns the SOL balance of an address.
func (s *Service) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	key, err := parseKey("publicKey", address)
	if err != nil {
		return decimal.Zero, err
	}
	lamports, err := s.rpc.GetBalance(ctx, key.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}
	return LamportsToSOL(lamports), nil
}

// AirdropResult is the faucet transfer and its status.
type AirdropResult struct {
	Signature string
	Status    *solanarpc.SignatureStatus
}

// Airdrop requests amount SOL from the cluster faucet and reads the
// signature status once. No status, or a failed one, is ErrAirdropFailed.
func (s *Service) Airdrop(ctx context.Context, address string, amount decimal.Decimal) (*AirdropResult, error) {
	key, err := parseKey("publicKey", address)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	lamports, err := SOLToLamports(amount)
	if err != nil {
		return nil, err
	}
	if !s.airdrops.allow(key.String()) {
		observability.RecordAirdrop("rate_limited")
		return nil, ErrRateLimited
	}

	sig, err := s.rpc.RequestAirdrop(ctx, key.String(), lamports)
	if err != nil {
		observability.RecordAirdrop("error")
		return nil, fmt.Errorf("request airdrop: %w", err)
	}

	statuses, err := s.rpc.GetSignatureStatuses(ctx, sig)
	if err != nil {
		observability.RecordAirdrop("error")
		return nil, fmt.Errorf("get signature status: %w", err)
	}
	var status *solanarpc.SignatureStatus
	if len(statuses) == 1 {
		status = statuses[0]
	}
	if status == nil || status.Failed() {
		observability.RecordAirdrop("failed")
		s.log.Warn().Str("address", key.String()).Str("signature", sig).Msg("airdrop failed")
		return nil, ErrAirdropFailed
	}

	observability.RecordAirdrop("ok")
	s.log.Info().Str("address", key.String()).Str("sol", amount.String()).Str("signature", sig).Msg("airdrop requested")
	return &AirdropResult{Signature: sig, Status: status}, nil
}

// pollStatus polls a submitted signature until it reaches confirmed, the
// confirmation timeout passes, or, when lastValid is set, the blockhash
// expires. It returns the last status seen, nil if none.
func (s *Service) pollStatus(ctx context.Context, sig string, lastValid uint64) (*solanarpc.SignatureStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var last *solanarpc.SignatureStatus
	for {
		statuses, err := s.rpc.GetSignatureStatuses(ctx, sig)
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("get signature status: %w", err)
		}
		if err == nil && len(statuses) == 1 && statuses[0] != nil {
			last = statuses[0]
			if last.Failed() || last.Reached(solanarpc.CommitmentConfirmed) {
				return last, nil
			}
		}

		if lastValid > 0 {
			expired, err := s.expired(ctx, lastValid)
			if err != nil && ctx.Err() == nil {
				return nil, err
			}
			if expired {
				return last, ErrBlockhashExpired
			}
		}

		select {
		case <-ctx.Done():
			return last, nil
		case <-ticker.C:
		}
	}
}

// expired reports whether the chain has passed lastValid.
func (s *Service) expired(ctx context.Context, lastValid uint64) (bool, error) {
	height, err := s.rpc.GetBlockHeight(ctx)
	if err != nil {
		return false, fmt.Errorf("get block height: %w", err)
	}
	return height > lastValid, nil
}

// maxTrackedAddresses bounds the limiter map.
const maxTrackedAddresses = 10000

// limiterSet holds one token bucket per address.
type limiterSet struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (l *limiterSet) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxTrackedAddresses {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow()
}
