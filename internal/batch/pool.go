// Package batch runs many independent operations with bounded parallelism,
// isolating per-item failures and reporting progress as items resolve.
package batch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of processing one input. Err is nil on success;
// a failed item never aborts its siblings.
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// Run applies fn to every input using at most workers goroutines and returns
// one outcome per input. Outcomes are appended in completion order, which
// need not match submission order. After every item resolves, successful or
// not, progress (when non-nil) is called with the number of finished items
// and the total; the completed count is monotonically increasing.
func Run[In, Out any](ctx context.Context, inputs []In, workers int, progress func(completed, total int64), fn func(context.Context, In) (Out, error)) []Outcome[Out] {
	total := int64(len(inputs))
	if total == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu        sync.Mutex
		outcomes  = make([]Outcome[Out], 0, total)
		completed int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			val, err := fn(ctx, in)

			// The increment and the callback stay under one lock so the
			// observer never sees the completed count go backwards.
			mu.Lock()
			outcomes = append(outcomes, Outcome[Out]{Index: i, Value: val, Err: err})
			completed++
			if progress != nil {
				progress(completed, total)
			}
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; failures live in their outcome slots.
	_ = g.Wait()
	return outcomes
}
