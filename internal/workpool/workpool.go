// Package workpool runs indexed tasks on a bounded set of goroutines.
//
// Every task writes its result into its own slot of the returned slice, so no
// locking is needed between tasks. The first error cancels the shared context
// and is returned once all running tasks have joined.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Run calls fn for every index in [0, n) with at most limit calls in flight.
// A limit <= 0 uses GOMAXPROCS.
//
// Results are returned in index order. On error the partially filled slice is
// returned alongside the first error.
func Run[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	if n <= 0 {
		return nil, ctx.Err()
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]T, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, n))

	for i := range n {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			v, err := fn(gctx, i)
			if err != nil {
				return err
			}
			// i is unique per task
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Chunks splits [0, total) into parts contiguous half-open ranges whose sizes
// differ by at most one. It returns fewer ranges when total < parts.
func Chunks(total, parts int) [][2]int {
	if total <= 0 {
		return nil
	}
	parts = max(1, min(parts, total))
	out := make([][2]int, parts)
	size, rem := total/parts, total%parts
	start := 0
	for i := range parts {
		end := start + size
		if i < rem {
			end++
		}
		out[i] = [2]int{start, end}
		start = end
	}
	return out
}
