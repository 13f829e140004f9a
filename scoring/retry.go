package scoring

import (
	"errors"
	"time"
)

const (
	defaultMaxAttempts    = 3
	defaultRateLimitDelay = 5 * time.Second
	defaultTransientDelay = 2 * time.Second
)

type RetryPolicy struct {
	// MaxAttempts bounds oracle calls per chunk, first try included.
	MaxAttempts int
	// RateLimitDelay applies to a 429 without a retry-after hint.
	RateLimitDelay time.Duration
	// TransientDelay applies to transport failures.
	TransientDelay time.Duration
}

func defaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    defaultMaxAttempts,
		RateLimitDelay: defaultRateLimitDelay,
		TransientDelay: defaultTransientDelay,
	}
}

func normalizeRetryPolicy(in RetryPolicy) RetryPolicy {
	out := in
	if out.MaxAttempts < 1 {
		out.MaxAttempts = defaultMaxAttempts
	}
	if out.RateLimitDelay <= 0 {
		out.RateLimitDelay = defaultRateLimitDelay
	}
	if out.TransientDelay <= 0 {
		out.TransientDelay = defaultTransientDelay
	}
	return out
}

// delayFor maps an oracle error to the backoff before the next attempt.
// A zero duration with retryable=false means the failure is permanent for
// this chunk and the caller should fall back immediately.
func (p RetryPolicy) delayFor(err error) (time.Duration, bool) {
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		if rateLimited.RetryAfter > 0 {
			return rateLimited.RetryAfter, true
		}
		return p.RateLimitDelay, true
	}
	var unreachable *UnreachableError
	if errors.As(err, &unreachable) {
		return p.TransientDelay, true
	}
	return 0, false
}
