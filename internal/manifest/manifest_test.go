package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/identity"
	"github.com/corvid3/hewg/internal/manifest"
)

const sampleManifest = `
hewg:
  version: "1"
  type: library

project:
  version: 1.2.3
  name: crow
  org: myorg
  description: a small example library

libraries:
  native: [m, pthread]

cxx:
  std: 20
  sources: [src/crow.cc]

depends:
  internal: ["=myorg.base-1.0.0:x86-linux-gnu"]
  external: [">=curl.curl-7.0.0:x86-linux-gnu"]

hooks:
  prebuild:
    once: ["echo prebuild-once"]
  postbuild:
    always: ["echo postbuild-always"]
`

func writeManifest(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hewg.scl")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadDecodesAllTables(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := manifest.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "library", m.Hewg.Type)
	assert.Equal(t, "crow", m.Project.Name)
	assert.Equal(t, "myorg", m.Project.Org)
	assert.Equal(t, []string{"m", "pthread"}, m.Libraries.Native)
	assert.Equal(t, 20, m.Cxx.Std)
	assert.Equal(t, []string{"src/crow.cc"}, m.Cxx.Sources)
	assert.Equal(t, []string{"=myorg.base-1.0.0:x86-linux-gnu"}, m.Depends.Internal)
	assert.Equal(t, []string{"echo prebuild-once"}, m.Hooks.Prebuild.Once)
	assert.Equal(t, []string{"echo postbuild-always"}, m.Hooks.Postbuild.Always)
}

func TestPackageTypeResolvesHewgType(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := manifest.Load(path)
	require.NoError(t, err)

	pt, err := m.PackageType()
	require.NoError(t, err)
	assert.Equal(t, manifest.StaticLibrary, pt)
}

func TestPackageTypeRejectsUnknownType(t *testing.T) {
	path := writeManifest(t, "hewg:\n  version: \"1\"\n  type: bogus\nproject:\n  version: 1.0.0\n  name: x\n  org: o\n")
	m, err := manifest.Load(path)
	require.NoError(t, err)

	_, err = m.PackageType()
	assert.Error(t, err)
}

func TestIdentifierBuildsFromProjectTable(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := manifest.Load(path)
	require.NoError(t, err)

	target := identity.TargetTriplet{Arch: "x86", OS: "linux", Vendor: "gnu"}
	id, err := m.Identifier(target)
	require.NoError(t, err)

	assert.Equal(t, "myorg", id.Org)
	assert.Equal(t, "crow", id.Name)
	assert.Equal(t, "myorg.crow-1.2.3:x86-linux-gnu", id.String())
}

func TestIdentifierRejectsMalformedVersion(t *testing.T) {
	path := writeManifest(t, "hewg:\n  version: \"1\"\n  type: library\nproject:\n  version: not-a-version\n  name: x\n  org: o\n")
	m, err := manifest.Load(path)
	require.NoError(t, err)

	_, err = m.Identifier(identity.TargetTriplet{Arch: "x86", OS: "linux", Vendor: "gnu"})
	assert.Error(t, err)
}
