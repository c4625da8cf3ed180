package linkcheck

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Result pairs an input with the value fn produced for it.
type Result[In, Out any] struct {
	Input  In
	Output Out
}

// Schedule runs fn over inputs with at most limit calls in flight and yields
// each result exactly once, in completion order. With limit == 1 results
// arrive in input order.
//
// Work is pulled lazily: a lane that finished blocks until the consumer takes
// its result before claiming the next input. If the consumer stops ranging,
// the context handed to fn is canceled, no further inputs are claimed, and the
// iterator returns only after every in-flight call has returned. Results of
// calls that return after ctx is canceled are dropped.
func Schedule[In, Out any](
	ctx context.Context,
	inputs []In,
	limit int,
	fn func(context.Context, In) Out,
) (iter.Seq[Result[In, Out]], error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	return func(yield func(Result[In, Out]) bool) {
		if len(inputs) == 0 {
			return
		}
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var cursor atomic.Int64
		results := make(chan Result[In, Out])
		var g errgroup.Group
		for range min(limit, len(inputs)) {
			g.Go(func() error {
				for {
					if ctx.Err() != nil {
						return nil
					}
					i := int(cursor.Add(1) - 1)
					if i >= len(inputs) {
						return nil
					}
					out := fn(ctx, inputs[i])
					if ctx.Err() != nil {
						return nil
					}
					select {
					case results <- Result[In, Out]{Input: inputs[i], Output: out}:
					case <-ctx.Done():
						return nil
					}
				}
			})
		}
		go func() {
			_ = g.Wait()
			close(results)
		}()

		for r := range results {
			if !yield(r) {
				cancel()
				break
			}
		}
		for range results {
		}
	}, nil
}
