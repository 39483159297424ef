package archive_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/archive"
	"github.com/corvid3/hewg/internal/testutil"
)

func writeTree(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "include", "crow"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "libcrow.a"), []byte("ar-data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "include", "crow", "crow.hh"), []byte("// header"), 0o644))
}

func TestSnapshotRoundTripsThroughWriteTo(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir)

	layer, err := archive.SnapshotDir(dir, time.Unix(0, 0), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, archive.WriteTo(layer, &buf))
	assert.NotZero(t, buf.Len())
}

func TestEqualIgnoresTimestampsButCatchesContentChange(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTree(t, dirA)
	writeTree(t, dirB)

	// give dirB's files a distinct mtime from dirA's
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dirB, "libcrow.a"), later, later))

	layerA, err := archive.SnapshotDir(dirA, time.Now().Add(2*time.Hour), nil)
	require.NoError(t, err)
	layerB, err := archive.SnapshotDir(dirB, time.Now().Add(2*time.Hour), nil)
	require.NoError(t, err)

	eq, err := archive.Equal(layerA, layerB)
	require.NoError(t, err)
	assert.True(t, eq)

	require.NoError(t, os.WriteFile(filepath.Join(dirB, "libcrow.a"), []byte("different-data"), 0o644))
	layerB2, err := archive.SnapshotDir(dirB, time.Now().Add(2*time.Hour), nil)
	require.NoError(t, err)

	eq, err = archive.Equal(layerA, layerB2)
	require.NoError(t, err)
	assert.False(t, eq)
}

// TestAssertEqualLayersAcceptsIdenticalSnapshots exercises the
// listing/full-dump diff helper on two snapshots of identical trees, which
// it must report as equal.
func TestAssertEqualLayersAcceptsIdenticalSnapshots(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeTree(t, dirA)
	writeTree(t, dirB)

	layerA, err := archive.SnapshotDir(dirA, time.Unix(0, 0), nil)
	require.NoError(t, err)
	layerB, err := archive.SnapshotDir(dirB, time.Unix(0, 0), nil)
	require.NoError(t, err)
	assert.True(t, testutil.AssertEqualLayers(t, layerA, layerB))
}
