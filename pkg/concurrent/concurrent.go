package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every item on the errgroup bound to ctx, with at
// most workers goroutines in flight (workers <= 0 means unbounded). It
// returns the first error encountered; remaining actions observe a cancelled
// context through the group.
func ForEach[T any](ctx context.Context, items []T, workers int, action func(context.Context, T) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}
	for _, item := range items {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return action(groupCtx, item)
		})
	}
	return group.Wait()
}
