package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"solana-token-launchpad/internal/domain"
	"solana-token-launchpad/internal/storage"
)

func seedPins(t *testing.T, store *PinStore, pins ...*domain.Pin) {
	t.Helper()
	for _, p := range pins {
		if err := store.Insert(context.Background(), p); err != nil {
			t.Fatalf("Insert %s failed: %v", p.CID, err)
		}
	}
}

func TestPinStore_InsertAndGet(t *testing.T) {
	store := NewPinStore()
	ctx := context.Background()

	p := &domain.Pin{
		CID:       "bafyimage",
		Kind:      domain.PinKindImage,
		Name:      "logo.png",
		URL:       "https://gateway.example/ipfs/bafyimage",
		CreatedAt: 1000,
	}
	seedPins(t, store, p)

	got, err := store.GetByCID(ctx, "bafyimage")
	if err != nil {
		t.Fatalf("GetByCID failed: %v", err)
	}
	if *got != *p {
		t.Errorf("GetByCID = %+v, want %+v", got, p)
	}
	if !got.Orphaned() {
		t.Error("new pin should be orphaned")
	}

	if err := store.Insert(ctx, p); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestPinStore_AttachLaunch(t *testing.T) {
	store := NewPinStore()
	ctx := context.Background()

	seedPins(t, store,
		&domain.Pin{CID: "img", Kind: domain.PinKindImage, CreatedAt: 1000},
		&domain.Pin{CID: "json", Kind: domain.PinKindMetadata, CreatedAt: 1001},
	)

	if err := store.AttachLaunch(ctx, "launch1", "img", "json"); err != nil {
		t.Fatalf("AttachLaunch failed: %v", err)
	}

	for _, cid := range []string{"img", "json"} {
		p, err := store.GetByCID(ctx, cid)
		if err != nil {
			t.Fatalf("GetByCID failed: %v", err)
		}
		if p.LaunchID != "launch1" {
			t.Errorf("%s launch = %q, want launch1", cid, p.LaunchID)
		}
	}
}

func TestPinStore_AttachLaunch_UnknownCIDIsAtomic(t *testing.T) {
	store := NewPinStore()
	ctx := context.Background()

	seedPins(t, store, &domain.Pin{CID: "img", Kind: domain.PinKindImage, CreatedAt: 1000})

	err := store.AttachLaunch(ctx, "launch1", "img", "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	p, _ := store.GetByCID(ctx, "img")
	if !p.Orphaned() {
		t.Error("pin was attached despite failed batch")
	}

	if err := store.AttachLaunch(ctx, "", "img"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestPinStore_ListOrphans(t *testing.T) {
	store := NewPinStore()
	ctx := context.Background()

	seedPins(t, store,
		&domain.Pin{CID: "old2", Kind: domain.PinKindMetadata, CreatedAt: 2000},
		&domain.Pin{CID: "old1", Kind: domain.PinKindImage, CreatedAt: 1000},
		&domain.Pin{CID: "attached", Kind: domain.PinKindImage, CreatedAt: 500},
		&domain.Pin{CID: "fresh", Kind: domain.PinKindImage, CreatedAt: 5000},
	)
	if err := store.AttachLaunch(ctx, "launch1", "attached"); err != nil {
		t.Fatalf("AttachLaunch failed: %v", err)
	}

	got, err := store.ListOrphans(ctx, 5000)
	if err != nil {
		t.Fatalf("ListOrphans failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 orphans, got %d", len(got))
	}
	if got[0].CID != "old1" || got[1].CID != "old2" {
		t.Errorf("Wrong order: %s, %s", got[0].CID, got[1].CID)
	}
}

func TestPinStore_Delete(t *testing.T) {
	store := NewPinStore()
	ctx := context.Background()

	seedPins(t, store, &domain.Pin{CID: "img", Kind: domain.PinKindImage})

	if err := store.Delete(ctx, "img"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByCID(ctx, "img"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "img"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPinStore_ConcurrentInsert(t *testing.T) {
	store := NewPinStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Insert(ctx, &domain.Pin{CID: "same", Kind: domain.PinKindImage})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrDuplicateKey):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 9 {
		t.Errorf("ok=%d dup=%d, want 1 and 9", ok, dup)
	}
}
