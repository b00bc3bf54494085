package llm

import (
	"context"

	"github.com/Epistemic-Technology/casebrief/internal/logger"
)

type indexedResult[R any] struct {
	index int
	value R
	err   error
}

// fanOut runs processFn for every item on at most workers goroutines and
// returns results and errors in input order. Items never started because ctx
// was cancelled get ctx.Err().
func fanOut[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	processFn func(context.Context, int, T) (R, error),
) ([]R, []error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}

	wp := NewWorkerPool(workers)
	resultChan := make(chan indexedResult[R], len(items))

	started := 0
	for i, item := range items {
		if err := wp.Acquire(ctx); err != nil {
			for j := i; j < len(items); j++ {
				errs[j] = err
			}
			break
		}
		started++

		go func(idx int, itm T) {
			defer wp.Release()

			select {
			case <-ctx.Done():
				var zero R
				resultChan <- indexedResult[R]{index: idx, value: zero, err: ctx.Err()}
				return
			default:
			}

			val, err := processFn(ctx, idx, itm)
			resultChan <- indexedResult[R]{index: idx, value: val, err: err}
		}(i, item)
	}

	for range started {
		res := <-resultChan
		results[res.index] = res.value
		errs[res.index] = res.err
	}
	return results, errs
}

// ParallelProcess processes items in parallel and fails with the first error
// in input order. Results keep input order regardless of completion order.
func ParallelProcess[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	log logger.Logger,
	processFn func(context.Context, int, T) (R, error),
) ([]R, error) {
	results, errs := fanOut(ctx, items, workers, processFn)
	for i, err := range errs {
		if err != nil {
			log.Debug("parallel item %d failed: %v", i, err)
			return nil, err
		}
	}
	return results, nil
}

// ParallelCollect processes every item and reports per-item errors instead
// of stopping. errs[i] is nil when results[i] is valid.
func ParallelCollect[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	processFn func(context.Context, int, T) (R, error),
) (results []R, errs []error) {
	return fanOut(ctx, items, workers, processFn)
}
