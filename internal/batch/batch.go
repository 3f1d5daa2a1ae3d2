package batch

import (
	"context"
	"sync"
)

// Run calls fn for every index in [0, n) with at most limit calls in flight and
// returns the results in index order. The first error cancels the context
// handed to the remaining calls and is returned once all in-flight calls are
// done. A limit below 1 runs the calls one at a time.
func Run[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	if limit < 1 {
		limit = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	results := make([]T, n)
	concurrencyChan := make(chan struct{}, limit)

loop:
	for i := 0; i < n; i++ {
		select {
		case concurrencyChan <- struct{}{}:
		case <-ctx.Done():
			break loop
		}

		if ctx.Err() != nil {
			<-concurrencyChan
			break
		}

		wg.Add(1)
		go func(i int) {
			defer func() {
				<-concurrencyChan
				wg.Done()
			}()

			v, err := fn(ctx, i)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = v
		}(i)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
