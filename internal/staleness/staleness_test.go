package staleness_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/staleness"
)

// fakePaths maps each source to object/depfile paths under a temp dir by
// simple filename substitution, standing in for internal/layout.Cache.
type fakePaths struct {
	dir string
}

func (p fakePaths) DepfilePath(src string) (string, error) {
	return filepath.Join(p.dir, filepath.Base(src)+".d"), nil
}

func (p fakePaths) ObjectPath(src string) (string, error) {
	return filepath.Join(p.dir, filepath.Base(src)+".o"), nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func TestNoDepfileMeansStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cc")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	stale, err := staleness.Select(fakePaths{dir: dir}, []string{src}, readFile)
	require.NoError(t, err)
	assert.Equal(t, []string{src}, stale)
}

func TestUpToDateIsClean(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cc")
	hdr := filepath.Join(dir, "a.hh")
	obj := filepath.Join(dir, "a.cc.o")
	dep := filepath.Join(dir, "a.cc.d")

	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(hdr, []byte("y"), 0o644))
	require.NoError(t, os.WriteFile(dep, []byte(obj+": "+src+" "+hdr+"\n"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))
	require.NoError(t, os.Chtimes(hdr, past, past))
	require.NoError(t, os.WriteFile(obj, []byte("obj"), 0o644))

	stale, err := staleness.Select(fakePaths{dir: dir}, []string{src}, readFile)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestTouchingDependencyMarksStale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cc")
	hdr := filepath.Join(dir, "a.hh")
	obj := filepath.Join(dir, "a.cc.o")
	dep := filepath.Join(dir, "a.cc.d")

	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(obj, []byte("obj"), 0o644))
	require.NoError(t, os.WriteFile(dep, []byte(obj+": "+src+" "+hdr+"\n"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))
	require.NoError(t, os.Chtimes(obj, past, past))

	// header didn't exist when the dependency was read: create it now,
	// newer than the object, and confirm that flips the source stale.
	require.NoError(t, os.WriteFile(hdr, []byte("y"), 0o644))

	stale, err := staleness.Select(fakePaths{dir: dir}, []string{src}, readFile)
	require.NoError(t, err)
	assert.Equal(t, []string{src}, stale)
}

func TestMissingDependencyFileIgnored(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cc")
	missing := filepath.Join(dir, "gone.hh")
	obj := filepath.Join(dir, "a.cc.o")
	dep := filepath.Join(dir, "a.cc.d")

	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dep, []byte(obj+": "+src+" "+missing+"\n"), 0o644))
	require.NoError(t, os.WriteFile(obj, []byte("obj"), 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))

	stale, err := staleness.Select(fakePaths{dir: dir}, []string{src}, readFile)
	require.NoError(t, err)
	assert.Empty(t, stale)
}
