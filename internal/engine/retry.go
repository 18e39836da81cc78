package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/picklr-io/serp2snow/internal/config"
	"github.com/picklr-io/serp2snow/internal/logging"
)

// RetryWithBackoff runs op until it succeeds, returns an error shouldRetry
// rejects, ctx ends, or policy.MaxElapsed passes. The last error is
// returned. A zero MaxElapsed runs op exactly once.
func RetryWithBackoff(ctx context.Context, policy config.PropagationConfig, op func() error, shouldRetry func(error) bool) error {
	if policy.MaxElapsed <= 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	b.MaxElapsedTime = policy.MaxElapsed
	b.RandomizationFactor = 0.1

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logging.Debug("retrying after transient failure", "error", err, "wait", wait)
	})
}
