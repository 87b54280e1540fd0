/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package resiliency

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// AttemptNotifyFunc is called after every failed attempt that will be retried.
// Attempts are numbered from 1; `next` is the delay before the next attempt.
type AttemptNotifyFunc func(attempt uint, err error, next time.Duration)

// FixedAttempts returns a policy that makes up to `attempts` attempts, `interval` apart.
func FixedAttempts(attempts uint64, interval time.Duration) backoff.BackOff {
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), attempts-1)
}

// RetryGet calls factory until it returns a value, returns a permanent error, the policy gives up,
// or the context is cancelled.
func RetryGet[T any](ctx context.Context, b backoff.BackOff, factory func() (T, error)) (T, error) {
	return RetryGetNotify(ctx, b, factory, nil)
}

// RetryGetNotify is RetryGet with a callback for failed attempts (notify may be nil).
// If the context ends the retries, the returned error includes the error from the last attempt.
func RetryGetNotify[T any](ctx context.Context, b backoff.BackOff, factory func() (T, error), notify AttemptNotifyFunc) (T, error) {
	var (
		attempt uint
		lastErr error
	)

	operation := func() (T, error) {
		attempt++
		val, err := factory()
		if err != nil {
			lastErr = err
		}
		return val, err
	}

	var onFailure backoff.Notify
	if notify != nil {
		onFailure = func(err error, next time.Duration) {
			notify(attempt, err, next)
		}
	}

	val, err := backoff.RetryNotifyWithData(operation, backoff.WithContext(b, ctx), onFailure)
	switch {
	case err == nil:
		return val, nil
	case ctx.Err() != nil && lastErr != nil && !errors.Is(err, lastErr):
		return *new(T), errors.Join(lastErr, err)
	default:
		return *new(T), err
	}
}

// Retry is RetryGet for operations that do not produce a value.
func Retry(ctx context.Context, b backoff.BackOff, operation func() error) error {
	_, err := RetryGet(ctx, b, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// Permanent wraps an error to stop retrying immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
