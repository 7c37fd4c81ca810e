package ai

import (
	"context"
	"errors"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/metrics"
)

// RetryPolicy bounds retries of RateLimited and Timeout failures.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy allows three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}
}

// Backoff is the wait after the given failed attempt (1-based). A
// larger server-requested wait wins; MaxDelay caps both.
func (p RetryPolicy) Backoff(attempt int, retryAfter time.Duration) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if retryAfter > d {
		d = retryAfter
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

type retrying struct {
	Provider
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps p so retryable failures are attempted again, at most
// policy.MaxAttempts calls in total. Other failures return at once.
func WithRetry(p Provider, policy RetryPolicy) Provider {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retrying{Provider: p, policy: policy, sleep: sleepCtx}
}

func (r *retrying) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	for attempt := 1; ; attempt++ {
		out, err := r.Provider.Complete(ctx, messages, opts)
		if err == nil {
			return out, nil
		}
		if !IsRetryable(err) || attempt >= r.policy.MaxAttempts {
			return "", err
		}

		var wait time.Duration
		var pe *ProviderError
		if errors.As(err, &pe) {
			wait = pe.RetryAfter
		}
		delay := r.policy.Backoff(attempt, wait)
		metrics.ObserveProviderRetry(r.Name(), string(KindOf(err)))
		applog.Warn("provider call failed, retrying",
			"provider", r.Name(), "attempt", attempt, "delay", delay, "err", err)

		if serr := r.sleep(ctx, delay); serr != nil {
			return "", err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
