package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

func testLaunch(id, mint string, createdAt int64) *domain.Launch {
	return &domain.Launch{
		LaunchID:             id,
		Kind:                 domain.LaunchKindCreate,
		Mint:                 mint,
		Payer:                "Payer" + id,
		Receiver:             "Payer" + id,
		AssociatedAccount:    "Ata" + id,
		Amount:               "18446744073709551615",
		Decimals:             9,
		LastValidBlockHeight: 1 << 40,
		MetadataURI:          "https://gateway.example/ipfs/" + id,
		CreatedAt:            createdAt,
	}
}

func TestLaunchStore_InsertAndGetByID(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewLaunchStore(pool)

	l := testLaunch("launch-1", "MintA", 1700000000000)
	require.NoError(t, store.Insert(ctx, l))

	got, err := store.GetByID(ctx, "launch-1")
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestLaunchStore_MintOfForeignDecimals(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewLaunchStore(pool)

	// Mint launches record whatever decimals the on-chain mint carries.
	l := testLaunch("launch-18", "MintWide", 1700000000000)
	l.Kind = domain.LaunchKindMint
	l.Decimals = 18
	require.NoError(t, store.Insert(ctx, l))

	got, err := store.GetByID(ctx, "launch-18")
	require.NoError(t, err)
	assert.Equal(t, uint8(18), got.Decimals)
}

func TestLaunchStore_InsertDuplicate(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewLaunchStore(pool)

	l := testLaunch("launch-1", "MintA", 1700000000000)
	require.NoError(t, store.Insert(ctx, l))

	err := store.Insert(ctx, l)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestLaunchStore_GetByID_NotFound(t *testing.T) {
	pool := setupTestDB(t)

	_, err := NewLaunchStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLaunchStore_GetByMint(t *testing.T) {
	pool := setupTestDB(t)

	ctx := context.Background()
	store := NewLaunchStore(pool)

	require.NoError(t, store.Insert(ctx, testLaunch("b", "MintA", 2000)))
	require.NoError(t, store.Insert(ctx, testLaunch("a", "MintA", 1000)))
	require.NoError(t, store.Insert(ctx, testLaunch("c", "MintB", 1500)))

	got, err := store.GetByMint(ctx, "MintA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].LaunchID)
	assert.Equal(t, "b", got[1].LaunchID)
}
