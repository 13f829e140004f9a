package ledger

import (
	"context"
	"sync"
)

type ListQuery struct {
	Limit  int
	Offset int
}

// Store persists entries in creation order. AppendEntry is tail-guarded: the
// write must fail with ErrConflict when the current tail hash no longer
// matches expectPrev, so two writers can never extend the same tail twice.
type Store interface {
	AppendEntry(ctx context.Context, entry Entry, expectPrev string) error
	Tail(ctx context.Context) (Entry, bool, error)
	ListEntries(ctx context.Context, query ListQuery) ([]Entry, error)
	Close() error
}

const defaultListLimit = 200

// MemoryStore keeps the chain in process memory. It backs tests and
// deterministic-only deployments that do not need a durable ledger.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AppendEntry(_ context.Context, entry Entry, expectPrev string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tail := GenesisHash
	if n := len(m.entries); n > 0 {
		tail = m.entries[n-1].Hash
	}
	if tail != expectPrev {
		return ErrConflict
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryStore) Tail(_ context.Context) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return Entry{}, false, nil
	}
	return m.entries[len(m.entries)-1], true, nil
}

func (m *MemoryStore) ListEntries(_ context.Context, query ListQuery) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(m.entries) {
		return []Entry{}, nil
	}
	end := offset + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	out := make([]Entry, end-offset)
	copy(out, m.entries[offset:end])
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// Corrupt overwrites a stored entry in place. Only tests use it, to simulate
// the retroactive tampering Verify must detect.
func (m *MemoryStore) Corrupt(index int, mutate func(*Entry)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.entries) {
		return
	}
	mutate(&m.entries[index])
}

var _ Store = (*MemoryStore)(nil)
