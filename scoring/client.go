package scoring

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TravelOpsHQ/travelcore-go/fingerprint"
	"github.com/TravelOpsHQ/travelcore-go/scorecache"
	"github.com/TravelOpsHQ/travelcore-go/types"
)

// Oracle is the external scoring service. Implementations translate a batch
// of anonymized feature records into one assessment per record, in order,
// and report failures through the typed errors in this package.
type Oracle interface {
	Name() string
	ScoreFeatures(ctx context.Context, records []types.FeatureRecord) ([]OracleScore, error)
}

const (
	DefaultMaxBatchSize = 50
	defaultParallelism  = 4
)

// Client resolves risk assessments through cache, oracle, and deterministic
// fallback, in that order. Oracle failures never surface to the caller: a
// chunk that exhausts its retries degrades to fallback scores instead, so
// the output always has one assessment per input subject, in input order.
type Client struct {
	oracle       Oracle
	cache        *scorecache.Cache
	fallback     DeterministicScorer
	retry        RetryPolicy
	maxBatchSize int
	parallelism  int
	sleep        func(ctx context.Context, d time.Duration) error
	logger       *slog.Logger
}

type ClientOption func(*Client)

func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = normalizeRetryPolicy(policy) }
}

func WithMaxBatchSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.maxBatchSize = size
		}
	}
}

func WithParallelism(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a scoring client. A nil oracle means no credential is
// configured: every cache miss resolves through the deterministic fallback,
// transparently and without error.
func NewClient(cache *scorecache.Cache, oracle Oracle, opts ...ClientOption) *Client {
	c := &Client{
		oracle:       oracle,
		cache:        cache,
		retry:        defaultRetryPolicy(),
		maxBatchSize: DefaultMaxBatchSize,
		parallelism:  defaultParallelism,
		sleep:        sleepContext,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ScoreOne(ctx context.Context, record types.FeatureRecord) (types.RiskAssessment, error) {
	results, err := c.ScoreBatch(ctx, []types.FeatureRecord{record})
	if err != nil {
		return types.RiskAssessment{}, err
	}
	return results[0], nil
}

// ScoreBatch returns one assessment per record, preserving input order
// regardless of which subjects resolved from cache, oracle, or fallback.
// Chunks are dispatched with bounded parallelism; no cache or ledger lock
// is held across an oracle round-trip.
func (c *Client) ScoreBatch(ctx context.Context, records []types.FeatureRecord) ([]types.RiskAssessment, error) {
	if len(records) == 0 {
		return []types.RiskAssessment{}, nil
	}

	results := make([]types.RiskAssessment, len(records))
	sem := make(chan struct{}, c.parallelism)
	var wg sync.WaitGroup
	for start := 0; start < len(records); start += c.maxBatchSize {
		end := start + c.maxBatchSize
		if end > len(records) {
			end = len(records)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			c.scoreChunk(ctx, records[start:end], results[start:end])
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) scoreChunk(ctx context.Context, chunk []types.FeatureRecord, out []types.RiskAssessment) {
	fingerprints := make([]string, len(chunk))
	missIdx := make([]int, 0, len(chunk))
	for i, rec := range chunk {
		fp := fingerprint.Record(rec)
		fingerprints[i] = fp
		if entry, ok := c.cache.Get(fp); ok {
			out[i] = types.RiskAssessment{
				SubjectID:  rec.SubjectID,
				RiskScore:  entry.RiskScore,
				RiskReason: entry.RiskReason,
				Source:     types.SourceCache,
			}
			continue
		}
		missIdx = append(missIdx, i)
	}
	if len(missIdx) == 0 {
		return
	}

	if c.oracle == nil {
		for _, i := range missIdx {
			out[i] = c.fallback.Score(chunk[i])
		}
		return
	}

	missRecs := make([]types.FeatureRecord, len(missIdx))
	for k, i := range missIdx {
		missRecs[k] = chunk[i]
	}

	scores, err := c.callOracle(ctx, missRecs)
	if err != nil {
		c.logger.Warn("oracle chunk failed, degrading to deterministic fallback",
			"error", err,
			"subjects", len(missIdx),
		)
		for _, i := range missIdx {
			out[i] = c.fallback.Score(chunk[i])
		}
		return
	}

	for k, i := range missIdx {
		// A parsed response may come up short; the affected subjects fall
		// back individually rather than being dropped.
		if k >= len(scores) {
			out[i] = c.fallback.Score(chunk[i])
			continue
		}
		score := clampScore(scores[k].RiskScore)
		out[i] = types.RiskAssessment{
			SubjectID:  chunk[i].SubjectID,
			RiskScore:  score,
			RiskReason: scores[k].RiskReason,
			Source:     types.SourceOracle,
		}
		if err := c.cache.Put(ctx, fingerprints[i], score, scores[k].RiskReason); err != nil {
			c.logger.Warn("failed to persist cache entry", "error", err)
		}
	}
}

func (c *Client) callOracle(ctx context.Context, records []types.FeatureRecord) ([]OracleScore, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		scores, err := c.oracle.ScoreFeatures(ctx, records)
		if err == nil {
			return scores, nil
		}
		lastErr = err

		delay, retryable := c.retry.delayFor(err)
		if !retryable || attempt >= c.retry.MaxAttempts {
			return nil, lastErr
		}
		c.logger.Debug("retrying oracle call",
			"oracle", c.oracle.Name(),
			"attempt", attempt,
			"delay", delay,
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
