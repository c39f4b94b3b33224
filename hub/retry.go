// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hub

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
	maxRetryDelay        = 30 * time.Second
)

// retryPolicy repeats hub requests that fail with a retryable error,
// doubling the delay between attempts.
type retryPolicy struct {
	clock    clock.Clock
	attempts int
	delay    time.Duration
}

func defaultRetryPolicy(clock clock.Clock) retryPolicy {
	return retryPolicy{
		clock:    clock,
		attempts: defaultRetryAttempts,
		delay:    defaultRetryDelay,
	}
}

// call runs f until it succeeds, fails with a non-retryable error, runs
// out of attempts or ctx is done. The last error from f is returned.
func (p retryPolicy) call(ctx context.Context, notify func(error, int), f func() error) error {
	err := retry.Call(retry.CallArgs{
		Func: f,
		IsFatalError: func(err error) bool {
			return !isRetryable(err)
		},
		NotifyFunc:  notify,
		Attempts:    p.attempts,
		Delay:       p.delay,
		MaxDelay:    maxRetryDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       p.clock,
		Stop:        ctx.Done(),
	})
	if retry.IsAttemptsExceeded(err) || retry.IsRetryStopped(err) {
		if lastErr := retry.LastError(err); lastErr != nil {
			err = lastErr
		}
	}
	if err != nil && ctx.Err() != nil {
		return errors.Trace(ctx.Err())
	}
	return err
}
