package storage

import (
	"context"

	"solana-token-launchpad/internal/domain"
)

// LaunchStore provides access to launches storage.
type LaunchStore interface {
	// Insert adds a new launch. Returns ErrDuplicateKey if launch_id exists.
	Insert(ctx context.Context, l *domain.Launch) error

	// GetByID retrieves a launch by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, launchID string) (*domain.Launch, error)

	// GetByMint retrieves all launches for a mint, ordered by created_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Launch, error)
}

// PinStore provides access to pins storage.
type PinStore interface {
	// Insert adds a new pin. Returns ErrDuplicateKey if cid exists.
	Insert(ctx context.Context, p *domain.Pin) error

	// GetByCID retrieves a pin by content identifier. Returns ErrNotFound if not exists.
	GetByCID(ctx context.Context, cid string) (*domain.Pin, error)

	// AttachLaunch sets launch_id on every listed pin.
	// Returns ErrNotFound, without changing anything, if any cid is unknown.
	AttachLaunch(ctx context.Context, launchID string, cids ...string) error

	// ListOrphans retrieves pins without a launch created strictly before createdBefore,
	// ordered by created_at ASC.
	ListOrphans(ctx context.Context, createdBefore int64) ([]*domain.Pin, error)

	// Delete removes a pin. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, cid string) error
}

// BuildEventStore provides access to build_events storage.
type BuildEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.BuildEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.BuildEvent) error

	// CountByRoute counts events for a route within [start, end] (inclusive), grouped by outcome.
	CountByRoute(ctx context.Context, route string, start, end int64) (map[domain.Outcome]int64, error)
}
