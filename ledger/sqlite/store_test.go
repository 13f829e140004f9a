package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/TravelOpsHQ/travelcore-go/ledger"
)

func TestStore_AppendVerifyRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	l, err := ledger.New(store)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if _, err := l.Append(ctx, "group", "g1", "group.import", map[string]any{"batch": i}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	result, err := l.Verify(ctx, ledger.VerifyOptions{CheckPayloads: true})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid || result.Entries != 4 {
		t.Fatalf("expected clean 4-entry chain, got %+v", result)
	}

	tail, ok, err := store.Tail(ctx)
	if err != nil || !ok {
		t.Fatalf("tail: ok=%v err=%v", ok, err)
	}
	if tail.Payload["batch"] != float64(3) {
		t.Fatalf("tail payload round-trip failed: %+v", tail.Payload)
	}
}

func TestStore_TailGuardRejectsStaleWriter(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	first := ledger.Entry{ID: "e1", EntityType: "group", EntityID: "g1", Action: "a",
		PayloadHash: "p1", PrevHash: ledger.GenesisHash, Hash: "h1"}
	if err := store.AppendEntry(ctx, first, ledger.GenesisHash); err != nil {
		t.Fatalf("append first: %v", err)
	}

	stale := ledger.Entry{ID: "e2", EntityType: "group", EntityID: "g1", Action: "a",
		PayloadHash: "p2", PrevHash: ledger.GenesisHash, Hash: "h2"}
	if err := store.AppendEntry(ctx, stale, ledger.GenesisHash); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestStore_CorruptedPayloadSurfaces(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	l, _ := ledger.New(store)
	ctx := context.Background()
	if _, err := l.Append(ctx, "group", "g1", "group.import", map[string]any{"batch": 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := store.db.ExecContext(ctx, "UPDATE audit_entries SET payload = 'not-json'"); err != nil {
		t.Fatalf("corrupt payload: %v", err)
	}

	if _, err := store.ListEntries(ctx, ledger.ListQuery{}); err == nil {
		t.Fatal("undecodable stored payload must not round-trip as empty")
	}
	if _, err := l.Verify(ctx, ledger.VerifyOptions{CheckPayloads: true}); !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("verification over corrupted storage must fail, got %v", err)
	}
}

func TestStore_ListPagination(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	l, _ := ledger.New(store)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if _, err := l.Append(ctx, "traveler", "t1", "traveler.update", nil); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	page, err := store.ListEntries(ctx, ledger.ListQuery{Limit: 3, Offset: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries on last page, got %d", len(page))
	}
}
