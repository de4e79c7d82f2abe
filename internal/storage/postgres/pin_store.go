package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

// PinStore implements storage.PinStore using PostgreSQL.
type PinStore struct {
	pool *Pool
}

// NewPinStore creates a new PinStore.
func NewPinStore(pool *Pool) *PinStore {
	return &PinStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PinStore = (*PinStore)(nil)

// Insert adds a new pin. Returns ErrDuplicateKey if cid exists.
func (s *PinStore) Insert(ctx context.Context, p *domain.Pin) (err error) {
	if p == nil || p.CID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_pin", start, err) }()

	query := `
		INSERT INTO pins (cid, kind, name, url, launch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		p.CID,
		string(p.Kind),
		p.Name,
		p.URL,
		nullableString(p.LaunchID),
		p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pin: %w", err)
	}
	return nil
}

// GetByCID retrieves a pin by content identifier. Returns ErrNotFound if not exists.
func (s *PinStore) GetByCID(ctx context.Context, cid string) (_ *domain.Pin, err error) {
	start := time.Now()
	defer func() { observe("get_pin", start, err) }()

	query := `SELECT cid, kind, name, url, launch_id, created_at FROM pins WHERE cid = $1`

	p, err := scanPin(s.pool.QueryRow(ctx, query, cid))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pin by cid: %w", err)
	}
	return p, nil
}

// AttachLaunch sets launch_id on every listed pin in one transaction.
func (s *PinStore) AttachLaunch(ctx context.Context, launchID string, cids ...string) (err error) {
	if launchID == "" {
		return storage.ErrInvalidInput
	}
	if len(cids) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("attach_pins", start, err) }()

	unique := make(map[string]struct{}, len(cids))
	list := make([]string, 0, len(cids))
	for _, cid := range cids {
		if _, ok := unique[cid]; !ok {
			unique[cid] = struct{}{}
			list = append(list, cid)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE pins SET launch_id = $1 WHERE cid = ANY($2)`, launchID, list)
	if err != nil {
		return fmt.Errorf("attach pins: %w", err)
	}
	if tag.RowsAffected() != int64(len(list)) {
		return storage.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListOrphans retrieves pins without a launch created before createdBefore.
func (s *PinStore) ListOrphans(ctx context.Context, createdBefore int64) (_ []*domain.Pin, err error) {
	start := time.Now()
	defer func() { observe("list_orphan_pins", start, err) }()

	query := `
		SELECT cid, kind, name, url, launch_id, created_at
		FROM pins
		WHERE launch_id IS NULL AND created_at < $1
		ORDER BY created_at ASC, cid ASC
	`

	rows, err := s.pool.Query(ctx, query, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("list orphan pins: %w", err)
	}
	defer rows.Close()

	var pins []*domain.Pin
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pin row: %w", err)
		}
		pins = append(pins, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pin rows: %w", err)
	}
	return pins, nil
}

// Delete removes a pin. Returns ErrNotFound if not exists.
func (s *PinStore) Delete(ctx context.Context, cid string) (err error) {
	start := time.Now()
	defer func() { observe("delete_pin", start, err) }()

	tag, err := s.pool.Exec(ctx, `DELETE FROM pins WHERE cid = $1`, cid)
	if err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanPin scans a single row into a Pin.
func scanPin(row pgx.Row) (*domain.Pin, error) {
	var p domain.Pin
	var kind string
	var launchID *string

	if err := row.Scan(&p.CID, &kind, &p.Name, &p.URL, &launchID, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Kind = domain.PinKind(kind)
	if launchID != nil {
		p.LaunchID = *launchID
	}
	return &p, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
