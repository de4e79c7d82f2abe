package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

// LaunchStore implements storage.LaunchStore using PostgreSQL.
type LaunchStore struct {
	pool *Pool
}

// NewLaunchStore creates a new LaunchStore.
func NewLaunchStore(pool *Pool) *LaunchStore {
	return &LaunchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LaunchStore = (*LaunchStore)(nil)

const launchColumns = `launch_id, kind, mint, payer, receiver, associated_account, amount,
	decimals, last_valid_block_height, metadata_uri, created_at`

// Insert adds a new launch. Returns ErrDuplicateKey if launch_id exists.
func (s *LaunchStore) Insert(ctx context.Context, l *domain.Launch) (err error) {
	if l == nil || l.LaunchID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_launch", start, err) }()

	query := `
		INSERT INTO launches (` + launchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		l.LaunchID,
		string(l.Kind),
		l.Mint,
		l.Payer,
		l.Receiver,
		l.AssociatedAccount,
		l.Amount,
		int16(l.Decimals),
		int64(l.LastValidBlockHeight),
		l.MetadataURI,
		l.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert launch: %w", err)
	}
	return nil
}

// GetByID retrieves a launch by its ID. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetByID(ctx context.Context, launchID string) (_ *domain.Launch, err error) {
	start := time.Now()
	defer func() { observe("get_launch", start, err) }()

	query := `SELECT ` + launchColumns + ` FROM launches WHERE launch_id = $1`

	l, err := scanLaunch(s.pool.QueryRow(ctx, query, launchID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get launch by id: %w", err)
	}
	return l, nil
}

// GetByMint retrieves all launches for a mint, ordered by created_at ASC.
func (s *LaunchStore) GetByMint(ctx context.Context, mint string) (_ []*domain.Launch, err error) {
	start := time.Now()
	defer func() { observe("get_launches_by_mint", start, err) }()

	query := `
		SELECT ` + launchColumns + `
		FROM launches
		WHERE mint = $1
		ORDER BY created_at ASC, launch_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get launches by mint: %w", err)
	}
	defer rows.Close()

	var launches []*domain.Launch
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan launch row: %w", err)
		}
		launches = append(launches, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate launch rows: %w", err)
	}
	return launches, nil
}

// scanLaunch scans a single row into a Launch.
func scanLaunch(row pgx.Row) (*domain.Launch, error) {
	var l domain.Launch
	var kind string
	var decimals int16
	var height int64

	err := row.Scan(
		&l.LaunchID,
		&kind,
		&l.Mint,
		&l.Payer,
		&l.Receiver,
		&l.AssociatedAccount,
		&l.Amount,
		&decimals,
		&height,
		&l.MetadataURI,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Kind = domain.LaunchKind(kind)
	l.Decimals = uint8(decimals)
	l.LastValidBlockHeight = uint64(height)
	return &l, nil
}
