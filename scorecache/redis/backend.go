// Package redis persists score-cache snapshots in redis, one key per
// fingerprint with the cache TTL applied server-side.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/TravelOpsHQ/travelcore-go/scorecache"
)

const (
	defaultTTL    = 24 * time.Hour
	defaultPrefix = "travelcore"
)

type Backend struct {
	client   *goredis.Client
	ttl      time.Duration
	prefix   string
	addr     string
	db       int
	password string
}

type Option func(*Backend)

func WithPassword(password string) Option {
	return func(b *Backend) { b.password = password }
}

func WithDB(db int) Option {
	return func(b *Backend) { b.db = db }
}

func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		if strings.TrimSpace(prefix) != "" {
			b.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithClient(client *goredis.Client) Option {
	return func(b *Backend) {
		if client != nil {
			b.client = client
		}
	}
}

func New(addr string, opts ...Option) (*Backend, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	b := &Backend{
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		addr:   addr,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = goredis.NewClient(&goredis.Options{
			Addr:     b.addr,
			Password: b.password,
			DB:       b.db,
		})
	}
	if err := b.client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return b, nil
}

func (b *Backend) Persist(ctx context.Context, entries []scorecache.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := b.client.TxPipeline()
	for _, entry := range entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal cache entry: %w", err)
		}
		pipe.Set(ctx, b.scoreKey(entry.Fingerprint), string(raw), b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to persist cache entries in redis: %w", err)
	}
	return nil
}

func (b *Backend) Load(ctx context.Context) ([]scorecache.Entry, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		found, next, err := b.client.Scan(ctx, cursor, b.scorePattern(), 500).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		keys = append(keys, found...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to mget cache entries: %w", err)
	}
	out := make([]scorecache.Entry, 0, len(values))
	for _, raw := range values {
		if raw == nil {
			continue
		}
		var entry scorecache.Entry
		if err := json.Unmarshal([]byte(fmt.Sprintf("%v", raw)), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

func (b *Backend) scoreKey(fingerprint string) string {
	return fmt.Sprintf("%s:score:%s", b.prefix, fingerprint)
}

func (b *Backend) scorePattern() string {
	return fmt.Sprintf("%s:score:*", b.prefix)
}

var _ scorecache.Backend = (*Backend)(nil)
