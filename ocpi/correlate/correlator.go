// Package correlate matches an asynchronous result back to the request
// that produced it by polling the store under a correlation key. The
// store has no notification channel, so this is pure polling: results
// are never pushed into a waiting correlator.
package correlate

import (
	"context"
	"encoding/json"
	"time"

	"ocpinode/ocpi"
)

// PollFunc reads the store once. An empty result means "no result yet";
// it must be non-blocking and free of side effects beyond the read.
type PollFunc func(ctx context.Context) (json.RawMessage, error)

// AwaitResult invokes poll up to maxAttempts times, waiting interval
// between attempts, and returns the first non-empty result. It returns
// ocpi.ErrTimeout once maxAttempts polls came back empty, or the
// context error if the deadline fires first. There is no retry beyond
// the attempts budget; callers wanting retry must wrap AwaitResult.
func AwaitResult(ctx context.Context, poll PollFunc, interval time.Duration, maxAttempts int) (json.RawMessage, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}
		result, err := poll(ctx)
		if err != nil {
			return nil, err
		}
		if len(result) > 0 {
			return result, nil
		}
	}
	return nil, ocpi.ErrTimeout
}

// AwaitGone is the inverse: it returns nil once a poll comes back
// empty, and ocpi.ErrTimeout if something was still present after
// maxAttempts polls. It exists only for the clear-profile flow, whose
// upstream polling polarity is inverted (see ocpi/profiles).
func AwaitGone(ctx context.Context, poll PollFunc, interval time.Duration, maxAttempts int) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
		result, err := poll(ctx)
		if err != nil {
			return err
		}
		if len(result) == 0 {
			return nil
		}
	}
	return ocpi.ErrTimeout
}
