package worker

import (
	"context"

	"github.com/sourcegraph/conc/iter"
)

// Outcome is the settled result of one task
type Outcome[R any] struct {
	Value R
	Err   error
}

// Settle runs fn over every input with at most maxConcurrent goroutines and
// waits for all of them. A failing task never cancels its siblings; outcomes
// are returned in input order.
func Settle[T, R any](ctx context.Context, inputs []T, maxConcurrent int, fn func(context.Context, T) (R, error)) []Outcome[R] {
	if len(inputs) == 0 {
		return nil
	}

	mapper := iter.Mapper[T, Outcome[R]]{MaxGoroutines: maxConcurrent}
	return mapper.Map(inputs, func(in *T) Outcome[R] {
		value, err := fn(ctx, *in)
		return Outcome[R]{Value: value, Err: err}
	})
}
