package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long Watch waits after the last event for a path before
// recompiling it; editors tend to write a file in several steps.
const settle = 50 * time.Millisecond

// Watch compiles paths once, then recompiles each file whenever it is
// written or recreated, until ctx is done. Every result goes to onResult
// from the calling goroutine. Watch returns nil when ctx ends it.
func Watch(ctx context.Context, paths []string, opts Options, onResult func(*Result)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("driver: watch: %w", err)
	}
	defer w.Close()

	// Directories are watched so that rename-over-write saves are seen.
	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("driver: watch: %w", err)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("driver: watch %s: %w", dir, err)
		}
	}

	initial, err := CompileAll(ctx, paths, opts)
	for _, res := range initial {
		if res != nil {
			onResult(res)
		}
	}
	if err != nil {
		return nil
	}

	pending := make(map[string]time.Time)
	tick := time.NewTicker(settle)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !watched[abs] {
				continue
			}
			pending[abs] = time.Now()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("driver: watch: %w", err)
		case now := <-tick.C:
			for path, at := range pending {
				if now.Sub(at) < settle {
					continue
				}
				delete(pending, path)
				onResult(Compile(ctx, path, opts))
			}
		}
	}
}
