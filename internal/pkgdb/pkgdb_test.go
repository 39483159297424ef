package pkgdb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/identity"
	"github.com/corvid3/hewg/internal/pkgdb"
)

func pid(t *testing.T, text string) identity.PackageIdentifier {
	t.Helper()
	id, err := identity.ParsePackageIdentifier(text)
	require.NoError(t, err)
	return id
}

func TestOpenMissingFileIsEmptyDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package_db.json")
	db, err := pkgdb.Open(path)
	require.NoError(t, err)
	assert.Empty(t, db.All())
}

func TestInsertSaveReopenRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package_db.json")
	db, err := pkgdb.Open(path)
	require.NoError(t, err)

	db.Insert(pid(t, "myorg.crow-1.2.3:x86-linux-gnu"))
	require.NoError(t, db.Save())

	reopened, err := pkgdb.Open(path)
	require.NoError(t, err)
	assert.True(t, reopened.Contains(pid(t, "myorg.crow-1.2.3:x86-linux-gnu")))
}

func TestAllReturnsSortedOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package_db.json")
	db, err := pkgdb.Open(path)
	require.NoError(t, err)

	db.Insert(pid(t, "myorg.zeta-1.0.0:x86-linux-gnu"))
	db.Insert(pid(t, "myorg.alpha-1.0.0:x86-linux-gnu"))
	db.Insert(pid(t, "myorg.alpha-2.0.0:x86-linux-gnu"))

	all := db.All()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "1.0.0", all[0].Version.String())
	assert.Equal(t, "alpha", all[1].Name)
	assert.Equal(t, "2.0.0", all[1].Version.String())
	assert.Equal(t, "zeta", all[2].Name)
}

func TestSanityCheckLegacyVersionsIsQuietForWellFormedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package_db.json")
	db, err := pkgdb.Open(path)
	require.NoError(t, err)

	db.Insert(pid(t, "myorg.crow-1.2.3:x86-linux-gnu"))
	assert.Empty(t, pkgdb.SanityCheckLegacyVersions(db))
}
