// Package sqlite persists the audit chain in a local sqlite database.
// The unique index on prev_hash is the hard guarantee that no two entries
// ever extend the same tail, even across processes sharing the file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/TravelOpsHQ/travelcore-go/ledger"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) AppendEntry(ctx context.Context, entry ledger.Entry, expectPrev string) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tail := ledger.GenesisHash
	row := tx.QueryRowContext(ctx, "SELECT hash FROM audit_entries ORDER BY seq DESC LIMIT 1")
	switch err := row.Scan(&tail); err {
	case nil, sql.ErrNoRows:
	default:
		return fmt.Errorf("failed to read chain tail: %w", err)
	}
	if tail != expectPrev {
		return ledger.ErrConflict
	}

	const q = `
INSERT INTO audit_entries (
  entry_id, entity_type, entity_id, action, payload, payload_hash, prev_hash, hash, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = tx.ExecContext(
		ctx,
		q,
		entry.ID,
		entry.EntityType,
		entry.EntityID,
		entry.Action,
		string(payload),
		entry.PayloadHash,
		entry.PrevHash,
		entry.Hash,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: audit_entries.prev_hash") {
			return ledger.ErrConflict
		}
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entry: %w", err)
	}
	return nil
}

func (s *Store) Tail(ctx context.Context) (ledger.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" ORDER BY seq DESC LIMIT 1")
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, err
	}
	return entry, true, nil
}

func (s *Store) ListEntries(ctx context.Context, query ledger.ListQuery) ([]ledger.Entry, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY seq ASC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const selectColumns = `
SELECT entry_id, entity_type, entity_id, action, payload, payload_hash, prev_hash, hash, created_at
FROM audit_entries`

func scanEntry(scanner interface{ Scan(dest ...any) error }) (ledger.Entry, error) {
	var (
		e       ledger.Entry
		payload string
		tsRaw   string
	)
	if err := scanner.Scan(
		&e.ID,
		&e.EntityType,
		&e.EntityID,
		&e.Action,
		&payload,
		&e.PayloadHash,
		&e.PrevHash,
		&e.Hash,
		&tsRaw,
	); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Entry{}, err
		}
		return ledger.Entry{}, fmt.Errorf("failed to scan audit entry: %w", err)
	}
	// A stored blob that no longer decodes is corruption, not an empty
	// payload; reporting it keeps a verification walk from skipping the
	// entry's payload check.
	if payload != "" && payload != "null" {
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return ledger.Entry{}, fmt.Errorf("failed to decode stored payload for entry %s: %w", e.ID, err)
		}
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("failed to parse stored timestamp for entry %s: %w", e.ID, err)
	}
	e.CreatedAt = ts
	return e, nil
}

var _ ledger.Store = (*Store)(nil)
