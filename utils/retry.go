package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	moderation "github.com/heibot/moderation"
)

// RetryPolicy says how a failed backend call is repeated. Delays stay
// short because a member is waiting on the verdict.
type RetryPolicy struct {
	// Retries after the first call. Zero calls once.
	Retries int

	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64 // 0.1 spreads each delay by +/-10%

	// Retryable defaults to moderation.IsRetryable.
	Retryable func(error) bool

	// OnRetry runs before each repeat with its 1-based number.
	OnRetry func(retry int, err error, wait time.Duration)
}

// DefaultRetryPolicy retries twice, starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Retries:    2,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2,
		Jitter:     0.1,
		Retryable:  moderation.IsRetryable,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = def.Multiplier
	}
	if p.Retryable == nil {
		p.Retryable = def.Retryable
	}
	return p
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.MaxInterval = p.MaxDelay
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.Retries)), ctx)
}

// Retry calls fn until it succeeds, fails with an error the policy does
// not retry, runs out of retries or ctx ends. The last error is returned.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func() (T, error)) (T, error) {
	p = p.normalized()

	op := func() (T, error) {
		v, err := fn()
		if err != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	retry := 0
	notify := func(err error, wait time.Duration) {
		retry++
		if p.OnRetry != nil {
			p.OnRetry(retry, err, wait)
		}
	}
	return backoff.RetryNotifyWithData(op, p.backOff(ctx), notify)
}
