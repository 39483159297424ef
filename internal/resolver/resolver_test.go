package resolver_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/identity"
	"github.com/corvid3/hewg/internal/manifest"
	"github.com/corvid3/hewg/internal/pkgdb"
	"github.com/corvid3/hewg/internal/resolver"
)

var target = identity.TargetTriplet{Arch: "x86", OS: "linux", Vendor: "gnu"}

func pid(t *testing.T, text string) identity.PackageIdentifier {
	t.Helper()
	id, err := identity.ParsePackageIdentifier(text)
	require.NoError(t, err)
	return id
}

func dep(t *testing.T, text string) identity.DependencyIdentifier {
	t.Helper()
	d, err := identity.ParseDependencyIdentifier(text, target)
	require.NoError(t, err)
	return d
}

func newDBWith(t *testing.T, ids ...string) *pkgdb.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := pkgdb.Open(dir + "/package_db.json")
	require.NoError(t, err)
	for _, id := range ids {
		db.Insert(pid(t, id))
	}
	return db
}

func TestResolverPicksHighestCompatible(t *testing.T) {
	db := newDBWith(t,
		"crow.scl-0.3.0:x86-linux-gnu",
		"crow.scl-0.4.1:x86-linux-gnu",
		"crow.scl-1.0.0:x86-linux-gnu",
	)

	load := func(id identity.PackageIdentifier) (manifest.PackageInfo, string, error) {
		return manifest.PackageInfo{Identifier: id, PackageType: manifest.Headers}, "/inc/" + id.Name, nil
	}

	root := pid(t, "myorg.app-1.0.0:x86-linux-gnu")
	graph, includeSet, _, _, err := resolver.Resolve(
		root, "/inc/app",
		[]identity.DependencyIdentifier{dep(t, ">=crow.scl-0.3.0")},
		nil,
		db, load,
	)
	require.NoError(t, err)
	assert.Contains(t, includeSet.Dirs, "/inc/scl")
	require.Len(t, graph.Root.Edges, 1)
	assert.Equal(t, "0.4.1", graph.Root.Edges[0].Child.Identifier.Version.String())
}

func TestExactMatchMissRaisesUnresolved(t *testing.T) {
	db := newDBWith(t, "crow.scl-0.3.1:x86-linux-gnu")
	load := func(id identity.PackageIdentifier) (manifest.PackageInfo, string, error) {
		return manifest.PackageInfo{Identifier: id, PackageType: manifest.Headers}, "", nil
	}

	root := pid(t, "myorg.app-1.0.0:x86-linux-gnu")
	_, _, _, _, err := resolver.Resolve(
		root, "",
		[]identity.DependencyIdentifier{dep(t, "=crow.scl-0.3.0")},
		nil,
		db, load,
	)
	require.Error(t, err)
	var unresolved *resolver.UnresolvedDependencyError
	assert.ErrorAs(t, err, &unresolved)
}

func TestCycleDetectionByName(t *testing.T) {
	db := newDBWith(t, "o.a-1.0.0:x86-linux-gnu", "o.b-1.0.0:x86-linux-gnu")

	load := func(id identity.PackageIdentifier) (manifest.PackageInfo, string, error) {
		switch id.Name {
		case "a":
			return manifest.PackageInfo{
				Identifier:           id,
				PackageType:          manifest.StaticLibrary,
				InternalDependencies: []identity.DependencyIdentifier{dep(t, "=o.b-1.0.0")},
			}, "/inc/a", nil
		case "b":
			return manifest.PackageInfo{
				Identifier:           id,
				PackageType:          manifest.StaticLibrary,
				InternalDependencies: []identity.DependencyIdentifier{dep(t, "=o.a-1.0.0")},
			}, "/inc/b", nil
		}
		return manifest.PackageInfo{}, "", fmt.Errorf("unexpected package %s", id)
	}

	root := pid(t, "myorg.app-1.0.0:x86-linux-gnu")
	_, _, _, _, err := resolver.Resolve(
		root, "",
		[]identity.DependencyIdentifier{dep(t, "=o.a-1.0.0")},
		nil,
		db, load,
	)
	require.Error(t, err)
	var cycle *resolver.DependencyCycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"myorg.app", "o.a", "o.b", "o.a"}, cycle.Chain)
}

func TestLinkSetOnlyIncludesInternalStaticChain(t *testing.T) {
	db := newDBWith(t,
		"o.internallib-1.0.0:x86-linux-gnu",
		"o.externallib-1.0.0:x86-linux-gnu",
	)

	load := func(id identity.PackageIdentifier) (manifest.PackageInfo, string, error) {
		return manifest.PackageInfo{Identifier: id, PackageType: manifest.StaticLibrary}, "/inc/" + id.Name, nil
	}

	root := pid(t, "myorg.app-1.0.0:x86-linux-gnu")
	_, _, linkSet, _, err := resolver.Resolve(
		root, "",
		[]identity.DependencyIdentifier{dep(t, "=o.internallib-1.0.0")},
		[]identity.DependencyIdentifier{dep(t, "=o.externallib-1.0.0")},
		db, load,
	)
	require.NoError(t, err)

	var names []string
	for _, id := range linkSet.StaticArchives {
		names = append(names, id.Name)
	}
	assert.Contains(t, names, "internallib")
	assert.NotContains(t, names, "externallib")
}
