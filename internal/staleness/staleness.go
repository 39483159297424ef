// Package staleness selects which translation units must be recompiled,
// comparing object and depfile mtimes against a source's declared
// dependencies.
//
// Grounded on original_source/src/analysis.cc and spec.md §4.5.
package staleness

import (
	"os"
	"time"

	"github.com/corvid3/hewg/internal/depfile"
)

// DepfileReader reads the contents of a depfile at path, or returns an
// os.IsNotExist error if it does not exist.
type DepfileReader func(path string) (string, error)

// PathFor maps a source path to the expected depfile and object paths for
// that source. layout.Cache's methods also take a language and source root,
// so callers bind those in an adapter (cmd/hewg's cachePathFor); the
// interface is kept abstract here so this package doesn't need to import
// layout.
type PathFor interface {
	DepfilePath(srcPath string) (string, error)
	ObjectPath(srcPath string) (string, error)
}

// Select returns the subset of sources that must be rebuilt.
//
// Algorithm (spec.md §4.5):
//  1. Missing depfile => rebuild (never compiled in this cache).
//  2. Missing object mtime => rebuild.
//  3. Any listed dependency newer than the object => rebuild.
//  4. Missing dependency files are ignored (treated as unchanged).
func Select(paths PathFor, sources []string, readDepfile DepfileReader) ([]string, error) {
	var stale []string
	for _, src := range sources {
		rebuild, err := isStale(paths, src, readDepfile)
		if err != nil {
			return nil, err
		}
		if rebuild {
			stale = append(stale, src)
		}
	}
	return stale, nil
}

func isStale(paths PathFor, src string, readDepfile DepfileReader) (bool, error) {
	depfilePath, err := paths.DepfilePath(src)
	if err != nil {
		return false, err
	}
	text, err := readDepfile(depfilePath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	d, err := depfile.Parse(depfilePath, text)
	if err != nil {
		return false, err
	}

	objPath, err := paths.ObjectPath(src)
	if err != nil {
		return false, err
	}
	objInfo, err := os.Stat(objPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	objTime := truncToSecond(objInfo.ModTime())

	for _, dep := range d.ExtraDeps {
		depInfo, err := os.Stat(dep)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return false, err
		}
		if truncToSecond(depInfo.ModTime()).After(objTime) {
			return true, nil
		}
	}
	return false, nil
}

func truncToSecond(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
