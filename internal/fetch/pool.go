package fetch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Unlimited runs every item concurrently.
const Unlimited = -1

// ErrInvalidJobs is returned for a job count that is neither positive nor
// Unlimited.
var ErrInvalidJobs = errors.New("jobs must be a positive integer or -1 for unlimited")

// ValidateJobs checks a job count given on the command line.
func ValidateJobs(jobs int) error {
	if jobs == 0 || jobs < Unlimited {
		return fmt.Errorf("%w, got %d", ErrInvalidJobs, jobs)
	}
	return nil
}

// Map calls fn for every item with at most jobs calls in flight and
// returns the results in the order of items. The first error cancels the
// context passed to the remaining calls and is returned.
func Map[T, R any](ctx context.Context, jobs int, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if err := ValidateJobs(jobs); err != nil {
		return nil, err
	}

	results := make([]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	if jobs != Unlimited {
		g.SetLimit(jobs)
	}

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
