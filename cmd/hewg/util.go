package main

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/datawire/dlib/dlog"
)

// defaultTasks is the worker-pool size used when -j/--tasks isn't given,
// matching spec.md §5's "defaults to hardware concurrency".
func defaultTasks() int {
	return runtime.NumCPU()
}

// hewgHome returns the root of the per-user package store, ~/.hewg
// (spec.md §6).
func hewgHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".hewg"), nil
}

// countdown prints a short "destructive operation in N..." warning and
// blocks for seconds unless skip is set, per spec.md §7's "Countdown delays
// precede destructive operations (cache wipe, symlink replacement) unless
// --skip." It's only ever called from this thin CLI layer; internal/
// packages never block on their own.
func countdown(ctx context.Context, skip bool, what string, seconds int) error {
	if skip {
		return nil
	}
	for remaining := seconds; remaining > 0; remaining-- {
		dlog.Infof(ctx, "%s in %d...", what, remaining)
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// sourceRoot returns the directory a language's manifest-declared sources
// are expected to live under, matching internal/scaffold's skeleton
// (src/ for C++, csrc/ for C) and spec.md §3's "every source file path
// referenced by the manifest lies strictly under the language-specific
// source root" invariant.
func sourceRoot(lang string) string {
	if lang == "c" {
		return "csrc"
	}
	return "src"
}
