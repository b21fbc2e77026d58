// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retrying, paced HTTP client shared by the
// E-utilities stages and the citation sources.
package httputil

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-crawler/pkg/types"
)

// Policy configures retries for a remote operation.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseWait is the first backoff interval. It doubles on each retry.
	BaseWait time.Duration

	// Timeout bounds a single attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
}

// maxBackoff caps a single wait between attempts.
const maxBackoff = time.Hour

// Backoff returns the wait before retry number attempt+1:
// BaseWait, 2*BaseWait, 4*BaseWait, ... never more than maxBackoff.
func (p Policy) Backoff(attempt int) time.Duration {
	d := math.Pow(2, float64(attempt)) * float64(p.BaseWait)
	if d > float64(maxBackoff) {
		return maxBackoff
	}
	return time.Duration(d)
}

// sleep waits for d or until ctx is done. Tests replace it to avoid real sleeps.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryable reports whether err is worth another attempt. Transport
// failures, timeouts, rate limits and 5xx responses are; other HTTP
// statuses, malformed bodies and configuration problems are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var se *types.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	if errors.Is(err, types.ErrParse) || errors.Is(err, types.ErrConfiguration) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Retry runs fn up to p.MaxRetries+1 times with exponential backoff.
//
// A non-retryable StatusError is returned at once wrapped in a
// *types.NetworkError; any other non-retryable error is returned as is.
// When every attempt fails the last error is wrapped in a
// *types.NetworkError whose Attempts is p.MaxRetries+1. A RateLimitError
// asking for a longer pause than the computed backoff is honored.
// Cancelling ctx aborts both attempts and waits.
func Retry(ctx context.Context, p Policy, log zerolog.Logger, op string, fn func(context.Context) error) error {
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !Retryable(err) {
			var se *types.StatusError
			if errors.As(err, &se) {
				return &types.NetworkError{Op: op, Attempts: attempt + 1, Cause: err}
			}
			return err
		}
		if attempt == attempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		var rl *types.RateLimitError
		if errors.As(err, &rl) && rl.RetryAfter > wait {
			wait = rl.RetryAfter
		}

		log.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt+1).
			Int("max_attempts", attempts).
			Dur("wait", wait).
			Msg("retrying")

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	return &types.NetworkError{Op: op, Attempts: attempts, Cause: last}
}
