package launch

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/pinning"
	"solana-token-launchpad/internal/storage"
)

// Ledger records launches and their pins. Writes are best-effort: failures
// are logged and never fail the request that produced them.
type Ledger struct {
	launches storage.LaunchStore
	pins     storage.PinStore
	log      zerolog.Logger
}

// NewLedger creates a ledger. Nil stores disable the corresponding records.
func NewLedger(launches storage.LaunchStore, pins storage.PinStore, log zerolog.Logger) *Ledger {
	return &Ledger{launches: launches, pins: pins, log: log.With().Str("component", "ledger").Logger()}
}

// RecordPin stores a freshly uploaded pin as an orphan.
func (l *Ledger) RecordPin(ctx context.Context, p *pinning.Pinned, createdAt int64) {
	if l == nil || l.pins == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	err := l.pins.Insert(ctx, &domain.Pin{
		CID:       p.CID,
		Kind:      domain.PinKind(p.Kind),
		Name:      p.Name,
		URL:       p.URL,
		CreatedAt: createdAt,
	})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrDuplicateKey):
		// Identical content pins to the same CID.
		l.log.Debug().Str("cid", p.CID).Msg("pin already recorded")
	default:
		l.log.Warn().Err(err).Str("cid", p.CID).Msg("record pin failed")
	}
}

// RecordLaunch stores the launch and attaches the given pins to it.
func (l *Ledger) RecordLaunch(ctx context.Context, launch *domain.Launch, cids ...string) {
	if l == nil || l.launches == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	err := l.launches.Insert(ctx, launch)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrDuplicateKey):
		// Same inputs in the same blockhash window build the same transaction.
		l.log.Debug().Str("launch_id", launch.LaunchID).Msg("launch already recorded")
		return
	default:
		l.log.Warn().Err(err).Str("launch_id", launch.LaunchID).Msg("record launch failed")
		return
	}

	if l.pins == nil || len(cids) == 0 {
		return
	}
	if err := l.pins.AttachLaunch(ctx, launch.LaunchID, cids...); err != nil {
		l.log.Warn().Err(err).Str("launch_id", launch.LaunchID).Strs("cids", cids).Msg("attach pins failed")
	}
}
