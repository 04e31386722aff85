package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// CompileAll compiles paths concurrently, one module per goroutine.
// Results come back in input order. The error is non-nil only when ctx
// ends the run early; per-file failures live in each Result.
func CompileAll(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	for _, path := range paths {
		opts.progress(path, "", StatusQueued, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = Compile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("driver: %w", err)
	}
	return results, nil
}
