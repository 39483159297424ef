// Package hooks persists the set of "once" hooks that have already run, in
// .hcache/hooks.json, so a hewg.scl project's prebuild/postbuild hooks
// marked "once" never re-run across invocations.
//
// Grounded on original_source/src/hooks.cc's HookCache/HookCacheAccess.
// The original reads the cache lazily behind a std::atexit-persisted
// function-local static; per spec.md §9's design note on atexit/once_flag
// singletons, this is instead a scoped Cache value constructed once in
// main and saved explicitly by the caller after the build finishes.
// Actually running a hook's command is an explicit Non-goal (spec.md §1);
// this package only owns which "once" hooks have already fired.
package hooks

import (
	"encoding/json"
	"os"

	"github.com/google/renameio"
)

// Cache is the persisted once-hook bookkeeping for one project.
type Cache struct {
	path    string
	OnceRan []string `json:"once_hooks"`
}

// Open reads path, or returns an empty Cache if it does not exist.
func Open(path string) (*Cache, error) {
	c := &Cache{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	c.path = path
	return c, nil
}

// HasRun reports whether the named once hook has already fired.
func (c *Cache) HasRun(name string) bool {
	for _, ran := range c.OnceRan {
		if ran == name {
			return true
		}
	}
	return false
}

// MarkRan records that the named once hook has fired. Callers are expected
// to invoke the hook themselves (a caller-supplied callback); this package
// never executes a hook's command.
func (c *Cache) MarkRan(name string) {
	if !c.HasRun(name) {
		c.OnceRan = append(c.OnceRan, name)
	}
}

// Save persists the cache back to disk, atomically.
func (c *Cache) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(c.path, data, 0o644)
}

// HookSet mirrors manifest.HookSet's (once, always) pair without importing
// the manifest package, so callers can drive execution however they like.
type HookSet struct {
	Once   []string
	Always []string
}

// Run invokes runHook(name) for every "always" hook and for every "once"
// hook not already recorded in the cache, marking each run once hook as it
// succeeds. It stops and returns on the first error.
func Run(c *Cache, set HookSet, runHook func(name string) error) error {
	for _, name := range set.Once {
		if c.HasRun(name) {
			continue
		}
		if err := runHook(name); err != nil {
			return err
		}
		c.MarkRan(name)
	}
	for _, name := range set.Always {
		if err := runHook(name); err != nil {
			return err
		}
	}
	return nil
}
