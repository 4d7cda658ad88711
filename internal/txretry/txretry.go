// Package txretry re-runs store transactions that failed with a transient
// conflict.
package txretry

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/classbooking/internal/domain"
	"github.com/cenkalti/backoff/v5"
)

const defaultMaxAttempts = 5

// Runner retries a transactional function while it reports
// domain.ErrTransientConflict. Any other error is returned immediately.
type Runner struct {
	maxAttempts     uint
	initialInterval time.Duration
	maxInterval     time.Duration
}

type Option func(*Runner)

func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxAttempts = uint(n)
		}
	}
}

func WithIntervals(initial, max time.Duration) Option {
	return func(r *Runner) {
		if initial > 0 {
			r.initialInterval = initial
		}
		if max > 0 {
			r.maxInterval = max
		}
	}
}

func New(opts ...Option) *Runner {
	r := &Runner{
		maxAttempts:     defaultMaxAttempts,
		initialInterval: 10 * time.Millisecond,
		maxInterval:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run calls fn until it succeeds, fails permanently or the attempt budget is
// spent. Exhaustion is reported as domain.ErrTransientConflict.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if errors.Is(err, domain.ErrTransientConflict) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.maxAttempts))
	return err
}
