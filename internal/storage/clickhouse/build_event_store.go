package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

// BuildEventStore implements storage.BuildEventStore using ClickHouse.
type BuildEventStore struct {
	conn *Conn
}

// NewBuildEventStore creates a new BuildEventStore.
func NewBuildEventStore(conn *Conn) *BuildEventStore {
	return &BuildEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BuildEventStore = (*BuildEventStore)(nil)

const insertBuildEvents = `
	INSERT INTO build_events (
		event_id, route, outcome, duration_ms, instruction_count, timestamp_ms
	)
`

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *BuildEventStore) Insert(ctx context.Context, e *domain.BuildEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.BuildEvent{e})
}

// InsertBulk adds multiple events in one batch. Fails entire batch on any duplicate.
// MergeTree does not enforce uniqueness, so duplicates are checked before insert.
func (s *BuildEventStore) InsertBulk(ctx context.Context, events []*domain.BuildEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("insert_build_events", start, err) }()

	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	for _, e := range events {
		exists, err := s.exists(ctx, e.EventID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, insertBuildEvents)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.EventID,
			e.Route,
			string(e.Outcome),
			e.DurationMs,
			uint32(e.InstructionCount),
			uint64(e.TimestampMs),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// CountByRoute counts events for a route within [start, end] (inclusive), grouped by outcome.
func (s *BuildEventStore) CountByRoute(ctx context.Context, route string, start, end int64) (_ map[domain.Outcome]int64, err error) {
	began := time.Now()
	defer func() { observe("count_build_events", began, err) }()

	query := `
		SELECT outcome, count()
		FROM build_events
		WHERE route = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		GROUP BY outcome
	`

	rows, err := s.conn.Query(ctx, query, route, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("count build events: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Outcome]int64)
	for rows.Next() {
		var outcome string
		var n uint64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[domain.Outcome(outcome)] = int64(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return counts, nil
}

func (s *BuildEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM build_events WHERE event_id = ?`, eventID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
