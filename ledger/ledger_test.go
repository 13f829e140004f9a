package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func appendN(t *testing.T, l *Ledger, n int) []Entry {
	t.Helper()
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		entry, err := l.Append(context.Background(), "traveler", fmt.Sprintf("t%d", i), "traveler.create", map[string]any{"seq": i})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestAppend_ChainsEntries(t *testing.T) {
	store := NewMemoryStore()
	l, err := New(store)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	entries := appendN(t, l, 5)
	if entries[0].PrevHash != GenesisHash {
		t.Errorf("first entry must point at the genesis sentinel, got %q", entries[0].PrevHash)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].PrevHash != entries[i-1].Hash {
			t.Errorf("entry %d prevHash does not match entry %d hash", i, i-1)
		}
	}
	for _, e := range entries {
		if e.ID == "" || e.Hash == "" || e.PayloadHash == "" || e.CreatedAt.IsZero() {
			t.Errorf("entry missing required fields: %+v", e)
		}
	}
}

func TestVerify_CleanChain(t *testing.T) {
	store := NewMemoryStore()
	l, _ := New(store)
	appendN(t, l, 8)

	result, err := l.Verify(context.Background(), VerifyOptions{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid chain, broken at %s", result.BrokenAtEntryID)
	}
	if result.Entries != 8 {
		t.Fatalf("expected 8 verified entries, got %d", result.Entries)
	}
}

func TestVerify_EmptyLedger(t *testing.T) {
	l, _ := New(NewMemoryStore())
	result, err := l.Verify(context.Background(), VerifyOptions{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid || result.Entries != 0 {
		t.Fatalf("empty ledger must verify clean, got %+v", result)
	}
}

func TestVerify_DetectsBrokenLink(t *testing.T) {
	store := NewMemoryStore()
	l, _ := New(store)
	entries := appendN(t, l, 6)

	store.Corrupt(3, func(e *Entry) { e.PrevHash = "not-the-real-prev-hash" })

	result, err := l.Verify(context.Background(), VerifyOptions{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Valid {
		t.Fatal("tampered chain must not verify")
	}
	if result.BrokenAtEntryID != entries[3].ID {
		t.Fatalf("expected break at %s, got %s", entries[3].ID, result.BrokenAtEntryID)
	}
	if result.Entries != 3 {
		t.Fatalf("entries before the break must verify unaffected, got %d", result.Entries)
	}
}

func TestVerify_PayloadTampering(t *testing.T) {
	store := NewMemoryStore()
	l, _ := New(store)
	entries := appendN(t, l, 3)

	// Rewrite payload content while keeping every stored hash intact.
	store.Corrupt(1, func(e *Entry) { e.Payload = map[string]any{"seq": 999} })

	result, err := l.Verify(context.Background(), VerifyOptions{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !result.Valid {
		t.Fatal("plain chain walk does not inspect payload content")
	}

	result, err = l.Verify(context.Background(), VerifyOptions{CheckPayloads: true})
	if err != nil {
		t.Fatalf("verify with payloads: %v", err)
	}
	if result.Valid {
		t.Fatal("payload check must catch rewritten payload content")
	}
	if result.BrokenAtEntryID != entries[1].ID {
		t.Fatalf("expected break at %s, got %s", entries[1].ID, result.BrokenAtEntryID)
	}
}

type conflictStore struct{ *MemoryStore }

func (c conflictStore) AppendEntry(context.Context, Entry, string) error { return ErrConflict }

func TestAppend_Conflict(t *testing.T) {
	l, _ := New(conflictStore{NewMemoryStore()})
	_, err := l.Append(context.Background(), "group", "g1", "group.create", nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

type brokenStore struct{ *MemoryStore }

func (b brokenStore) Tail(context.Context) (Entry, bool, error) {
	return Entry{}, false, errors.New("disk gone")
}

func TestAppend_StorageFailureSurfaces(t *testing.T) {
	l, _ := New(brokenStore{NewMemoryStore()})
	_, err := l.Append(context.Background(), "group", "g1", "group.create", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMemoryStore_TailGuard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := Entry{ID: "e1", PrevHash: GenesisHash, Hash: "h1"}
	if err := store.AppendEntry(ctx, first, GenesisHash); err != nil {
		t.Fatalf("append first: %v", err)
	}
	// A writer that read the tail before e1 landed must be rejected.
	stale := Entry{ID: "e2", PrevHash: GenesisHash, Hash: "h2"}
	if err := store.AppendEntry(ctx, stale, GenesisHash); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale tail, got %v", err)
	}
}
