// Package scorecache holds previously computed risk scores keyed by feature
// fingerprint. Entries are valid for a TTL and are persisted write-through:
// a crash immediately after a successful Put never loses that entry.
package scorecache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const DefaultTTL = 24 * time.Hour

type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	RiskScore   int       `json:"riskScore"`
	RiskReason  string    `json:"riskReason"`
	ComputedAt  time.Time `json:"computedAt"`
}

// Backend durably stores a complete cache snapshot. Persist must replace the
// previous snapshot atomically; a reader must never observe a partial write.
type Backend interface {
	Persist(ctx context.Context, entries []Entry) error
	Load(ctx context.Context) ([]Entry, error)
}

// NoopBackend keeps nothing. Deterministic-only deployments use it.
type NoopBackend struct{}

func (NoopBackend) Persist(context.Context, []Entry) error { return nil }
func (NoopBackend) Load(context.Context) ([]Entry, error)  { return nil, nil }

type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry

	// flushMu is held from snapshot through Persist so two in-flight Puts
	// can never persist out of order; an acked entry stays durable even when
	// an older snapshot is still being written. Get stays on mu alone.
	flushMu sync.Mutex

	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a cache over backend and loads the persisted snapshot.
func New(backend Backend, opts ...Option) (*Cache, error) {
	if backend == nil {
		backend = NoopBackend{}
	}
	c := &Cache{
		entries: map[string]Entry{},
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Reload(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the cached entry for fingerprint, treating expired entries as
// absent. Stale entries are overwritten by a later Put, not actively purged.
func (c *Cache) Get(fingerprint string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if c.now().Sub(entry.ComputedAt) >= c.ttl {
		return Entry{}, false
	}
	return entry, true
}

// Put inserts or overwrites the entry for fingerprint and synchronously
// persists the full snapshot before acknowledging.
func (c *Cache) Put(ctx context.Context, fingerprint string, riskScore int, riskReason string) error {
	entry := Entry{
		Fingerprint: fingerprint,
		RiskScore:   riskScore,
		RiskReason:  riskReason,
		ComputedAt:  c.now().UTC(),
	}

	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	c.entries[fingerprint] = entry
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.backend.Persist(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to persist score cache: %w", err)
	}
	return nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reload replaces the in-memory view with the backend's snapshot. It runs at
// construction and may be called again to pick up another writer's state.
func (c *Cache) Reload(ctx context.Context) error {
	loaded, err := c.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load score cache: %w", err)
	}
	fresh := make(map[string]Entry, len(loaded))
	for _, entry := range loaded {
		if entry.Fingerprint == "" {
			continue
		}
		fresh[entry.Fingerprint] = entry
	}
	c.mu.Lock()
	c.entries = fresh
	c.mu.Unlock()
	return nil
}

func (c *Cache) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fingerprint < out[j].Fingerprint })
	return out
}
