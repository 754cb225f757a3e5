package transport

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/suprameds/shopsync/pkg/errors"
)

// backoffDelay computes the sleep before retry attempt n (0-based):
// exponential growth from base, capped at ceiling, with half-range jitter
// so concurrent workers don't retry in lockstep.
func backoffDelay(attempt int, base, ceiling time.Duration) time.Duration {
	d := base << uint(attempt)
	if d > ceiling || d <= 0 {
		d = ceiling
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// rateLimitedError wraps a 429 APIError carrying the server's
// Retry-After hint.
type rateLimitedError struct {
	*errors.APIError
	retryAfter time.Duration
}

// Unwrap exposes the wrapped APIError so errors.Is classification still
// sees the 429 status.
func (e *rateLimitedError) Unwrap() error {
	return e.APIError
}

// exhaustedError marks a retryable failure whose retry budget ran out.
// A system that rate-limits every attempt is unavailable from the run's
// point of view, so classification folds into the unavailable kind.
type exhaustedError struct {
	err    error
	system string
}

func (e *exhaustedError) Error() string {
	return "retries exhausted: " + e.err.Error()
}

func (e *exhaustedError) Unwrap() error {
	return e.err
}

// Is maps the exhausted failure onto the unavailable sentinel for the
// failing system.
func (e *exhaustedError) Is(target error) bool {
	if e.system == "source" {
		return target == errors.ErrSourceUnavailable
	}
	return target == errors.ErrDestinationUnavailable
}

// exhausted wraps the final error once the retry budget is spent. 5xx
// and network failures already classify as unavailable; only rate-limit
// errors need refolding.
func exhausted(err error, system string) error {
	if err == nil || !errors.Is(err, errors.ErrRateLimited) {
		return err
	}
	return &exhaustedError{err: err, system: system}
}

// parseRetryAfter parses a Retry-After header given in seconds.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// retryAfterHint extracts a server-requested delay from the previous
// attempt's error, if it carried one.
func retryAfterHint(err error) (time.Duration, bool) {
	var rl *rateLimitedError
	if errors.As(err, &rl) {
		return rl.retryAfter, true
	}
	return 0, false
}
