package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrConflict reports that another append extended the chain between
	// tail read and write. Callers may retry the triggering action.
	ErrConflict = errors.New("ledger: concurrent append conflict")

	// ErrUnavailable reports a storage failure on append or verify. It is
	// never absorbed here: a silently dropped audit entry would defeat the
	// ledger's purpose, so the caller decides whether to roll back.
	ErrUnavailable = errors.New("ledger: storage unavailable")
)

type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	// mu serializes tail-read + hash + write. The store's tail guard is the
	// backstop for a second process sharing the same backing store.
	mu sync.Mutex
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Append records one logical action as a new chain entry and returns it.
// Payload content is opaque; it is hashed, stored, and never interpreted.
func (l *Ledger) Append(ctx context.Context, entityType, entityID, action string, payload map[string]any) (Entry, error) {
	payloadHash, err := HashPayload(payload)
	if err != nil {
		return Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tail, ok, err := l.store.Tail(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: reading chain tail: %v", ErrUnavailable, err)
	}
	prevHash := GenesisHash
	if ok {
		prevHash = tail.Hash
	}

	createdAt := l.now().UTC()
	entry := Entry{
		ID:          uuid.NewString(),
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Payload:     payload,
		PayloadHash: payloadHash,
		PrevHash:    prevHash,
		Hash:        chainHash(prevHash, payloadHash, createdAt),
		CreatedAt:   createdAt,
	}

	if err := l.store.AppendEntry(ctx, entry, prevHash); err != nil {
		if errors.Is(err, ErrConflict) {
			return Entry{}, ErrConflict
		}
		return Entry{}, fmt.Errorf("%w: appending entry: %v", ErrUnavailable, err)
	}

	l.logger.Debug("audit entry appended",
		"entryId", entry.ID,
		"entityType", entityType,
		"action", action,
	)
	return entry, nil
}

type VerifyOptions struct {
	// CheckPayloads recomputes each entry's payload hash where the payload
	// is still retained. The plain chain walk catches deletion, reordering
	// and substitution; payload-content tampering that preserves the stored
	// hash fields is only caught with this enabled.
	CheckPayloads bool
}

type VerifyResult struct {
	Valid           bool   `json:"valid"`
	BrokenAtEntryID string `json:"brokenAtEntryId,omitempty"`
	Entries         int    `json:"entries"`
}

// Verify walks the chain in creation order and checks every link. An empty
// ledger verifies clean. Verify is read-only and may run concurrently with
// appends; it then reflects the snapshot it read, not necessarily the tip.
func (l *Ledger) Verify(ctx context.Context, opts VerifyOptions) (VerifyResult, error) {
	expectedPrev := GenesisHash
	checked := 0
	for offset := 0; ; offset += defaultListLimit {
		batch, err := l.store.ListEntries(ctx, ListQuery{Limit: defaultListLimit, Offset: offset})
		if err != nil {
			return VerifyResult{}, fmt.Errorf("%w: listing entries: %v", ErrUnavailable, err)
		}
		for _, entry := range batch {
			if entry.PrevHash != expectedPrev {
				return VerifyResult{Valid: false, BrokenAtEntryID: entry.ID, Entries: checked}, nil
			}
			if opts.CheckPayloads && entry.Payload != nil {
				payloadHash, err := HashPayload(entry.Payload)
				if err != nil || payloadHash != entry.PayloadHash {
					return VerifyResult{Valid: false, BrokenAtEntryID: entry.ID, Entries: checked}, nil
				}
			}
			expectedPrev = entry.Hash
			checked++
		}
		if len(batch) < defaultListLimit {
			break
		}
	}
	return VerifyResult{Valid: true, Entries: checked}, nil
}

// List exposes the stored chain in creation order for operator inspection.
func (l *Ledger) List(ctx context.Context, query ListQuery) ([]Entry, error) {
	entries, err := l.store.ListEntries(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: listing entries: %v", ErrUnavailable, err)
	}
	return entries, nil
}
