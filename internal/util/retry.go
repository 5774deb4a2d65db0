// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollTimeout is wrapped into the error returned by PollUntil when the
// timeout window elapses before the accept predicate is satisfied. Callers
// that tolerate a timed out wait check for it with errors.Is.
var ErrPollTimeout = errors.New("timed out waiting for condition")

// RetryResult captures the result of retrying an operation.
type RetryResult[T any] struct {
	Value T
	Err   error
}

// Retry runs fn at most numAttempts times, sleeping backOff between attempts,
// and returns on the first success. canRetry restricts which errors are
// retried; any other error is returned immediately.
func Retry[T any](ctx context.Context, operation string, fn func() (T, error), numAttempts int, backOff time.Duration, canRetry func(error) bool) RetryResult[T] {
	var result T
	var err error
	for i := 1; i <= numAttempts; i++ {
		select {
		case <-ctx.Done():
			logger.Error(ctx.Err(), "context has been cancelled, stopping retry", "operation", operation)
			return RetryResult[T]{Err: ctx.Err()}
		default:
		}
		result, err = fn()
		if err == nil {
			return RetryResult[T]{Value: result, Err: err}
		}
		if !canRetry(err) {
			logger.Error(err, "exiting retry as canRetry has returned false", "operation", operation, "exitOnAttempt", i)
			return RetryResult[T]{Err: err}
		}
		select {
		case <-ctx.Done():
			logger.Error(ctx.Err(), "context has been cancelled, stopping retry", "operation", operation)
			return RetryResult[T]{Err: ctx.Err()}
		case <-time.After(backOff):
			logger.V(4).Info("will attempt to retry operation", "operation", operation, "currentAttempt", i, "error", err)
		}
	}
	return RetryResult[T]{Value: result, Err: err}
}

// AlwaysRetry can be passed to Retry when every error is retryable.
func AlwaysRetry(_ error) bool {
	return true
}

// PollUntil samples fn every interval until accept returns true for a sample,
// returning that sample. When the timeout window elapses it returns an error
// wrapping ErrPollTimeout. A sampling error aborts the wait unless tolerate
// reports it as ignorable, in which case sampling continues.
func PollUntil[T any](ctx context.Context, operation string, fn func(ctx context.Context) (T, error), accept func(T) bool, interval, timeout time.Duration, tolerate func(error) bool) (T, error) {
	var zero T
	waitCtx, cancelFn := context.WithTimeout(ctx, timeout)
	defer cancelFn()
	for {
		value, err := fn(waitCtx)
		if err != nil {
			if tolerate == nil || !tolerate(err) {
				return zero, err
			}
			logger.V(4).Info("ignoring sampling error, will sample again", "operation", operation, "error", err)
		} else if accept(value) {
			return value, nil
		}
		if err := SleepWithContext(waitCtx, interval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return zero, fmt.Errorf("%w: %s did not happen within %s", ErrPollTimeout, operation, timeout)
			}
			logger.V(4).Info("context has been cancelled, exiting poll", "operation", operation)
			return zero, err
		}
	}
}
