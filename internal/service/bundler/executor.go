package bundler

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"
)

// executor runs jobs with bounded concurrency.
type executor struct {
	// limit is the number of jobs running at once; values below 1 mean 1.
	limit int
	// continueOnError keeps scheduling jobs after a failure.
	continueOnError bool
}

// execute runs job for every index in [0, n). It reports which jobs never
// started. Without continueOnError the first failure cancels the context of
// running jobs, skips the remaining ones and is returned as is. With it every
// job runs and the failures are joined in index order.
func (e executor) execute(ctx context.Context, n int, job func(ctx context.Context, i int) error) ([]bool, error) {
	limit := max(e.limit, 1)
	skipped := make([]bool, n)

	if e.continueOnError {
		errs := make([]error, n)

		var group errgroup.Group

		group.SetLimit(limit)

		for i := range n {
			group.Go(func() error {
				if ctx.Err() != nil {
					skipped[i] = true

					return nil
				}

				errs[i] = job(ctx, i)

				return nil
			})
		}

		_ = group.Wait()

		err := errors.Join(errs...)
		if slices.Contains(skipped, true) {
			err = errors.Join(err, ctx.Err())
		}

		return skipped, err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for i := range n {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				skipped[i] = true

				return nil
			}

			return job(groupCtx, i)
		})
	}

	err := group.Wait()
	if err == nil && slices.Contains(skipped, true) {
		err = ctx.Err()
	}

	return skipped, err
}
