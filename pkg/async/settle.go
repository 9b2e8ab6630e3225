package async

import (
	"context"
	"sync"
)

// Settle runs f over every item concurrently and waits until all of them
// finished. Each item settles into its own Result; a failure never cancels
// its siblings.
func Settle[T any, R any](ctx context.Context, items []T, f func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))

	var wg sync.WaitGroup
	wg.Add(len(items))

	for i, item := range items {
		go func() {
			defer wg.Done()

			r, err := f(ctx, item)
			results[i] = NewResult(r, err)
		}()
	}

	wg.Wait()

	return results
}
