package scoring

import (
	"fmt"
	"time"
)

// RateLimitedError reports an oracle 429. RetryAfter carries the server's
// hint when one was present; zero means "use the policy default".
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("oracle rate limited, retry after %s", e.RetryAfter)
	}
	return "oracle rate limited"
}

// UnreachableError reports a transient transport failure talking to the
// oracle (connection refused, timeout, reset).
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("oracle unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// MalformedResponseError reports an oracle response whose body could not be
// coerced into the expected assessment array. Not retried: the same request
// would produce the same malformed answer.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("oracle response malformed: %s", e.Reason)
}
