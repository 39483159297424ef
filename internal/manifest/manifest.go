// Package manifest decodes a project's hewg.scl file into a typed view and
// renders the PackageInfo that gets written alongside an installed package
// instance.
//
// Grounded on original_source/private/confs.hh (ConfigurationFile and its
// nested tables) and spec.md §6. The original parses its own "scl" grammar;
// this implementation resolves that Open Question (spec.md §10) by decoding
// the same table shape with gopkg.in/yaml.v3, the way the teacher's
// pkg/python manifests and pkg/testutil fixtures already lean on YAML/JSON
// for structured config (see DESIGN.md).
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/corvid3/hewg/internal/identity"
	"github.com/corvid3/hewg/internal/semver"
)

// PackageType enumerates the four artifact kinds spec.md §3 defines.
type PackageType string

const (
	Executable    PackageType = "Executable"
	StaticLibrary PackageType = "StaticLibrary"
	SharedLibrary PackageType = "SharedLibrary"
	Headers       PackageType = "Headers"
)

// hewgTypeToPackageType maps the manifest's own lowercase spelling of package type,
// matching original_source/src/confs.cc's project_type_from_string table.
var hewgTypeToPackageType = map[string]PackageType{
	"executable": Executable,
	"library":    StaticLibrary,
	"shared":     SharedLibrary,
	"headers":    Headers,
}

// HewgTable is the manifest's "hewg" top-level table.
type HewgTable struct {
	Version         string `yaml:"version"`
	Type            string `yaml:"type"`
	ProfileOverride string `yaml:"profile_override,omitempty"`
}

// ProjectTable is the manifest's "project" top-level table.
type ProjectTable struct {
	Version     string   `yaml:"version"`
	Name        string   `yaml:"name"`
	Org         string   `yaml:"org"`
	Description string   `yaml:"description,omitempty"`
	Authors     []string `yaml:"authors,omitempty"`
}

// LibrariesTable is the manifest's optional "libraries" table.
type LibrariesTable struct {
	Native []string `yaml:"native,omitempty"`
}

// ToolsTable is the manifest's optional "tools" table.
type ToolsTable struct {
	Name string `yaml:"name,omitempty"`
}

// LanguageTable is the manifest's "c" or "cxx" table.
type LanguageTable struct {
	Std     int      `yaml:"std,omitempty"`
	Flags   []string `yaml:"flags,omitempty"`
	Sources []string `yaml:"sources,omitempty"`
}

// DependsTable is the manifest's "depends" table, holding unparsed
// dependency-identifier text; the resolver parses each entry.
type DependsTable struct {
	Internal []string `yaml:"internal,omitempty"`
	External []string `yaml:"external,omitempty"`
}

// HookSet is one "hooks.prebuild"/"hooks.postbuild" table.
type HookSet struct {
	Once   []string `yaml:"once,omitempty"`
	Always []string `yaml:"always,omitempty"`
}

// HooksTable is the manifest's optional "hooks" table.
type HooksTable struct {
	Prebuild  HookSet `yaml:"prebuild,omitempty"`
	Postbuild HookSet `yaml:"postbuild,omitempty"`
}

// Manifest is the fully-decoded hewg.scl project manifest.
type Manifest struct {
	Hewg      HewgTable      `yaml:"hewg"`
	Project   ProjectTable   `yaml:"project"`
	Libraries LibrariesTable `yaml:"libraries,omitempty"`
	Tools     ToolsTable     `yaml:"tools,omitempty"`
	C         LanguageTable  `yaml:"c,omitempty"`
	Cxx       LanguageTable  `yaml:"cxx,omitempty"`
	Depends   DependsTable   `yaml:"depends,omitempty"`
	Hooks     HooksTable     `yaml:"hooks,omitempty"`
}

// Load reads and decodes the manifest at path.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decoding manifest %s: %w", path, err)
	}
	return m, nil
}

// PackageType resolves the manifest's "hewg.type" string to a PackageType.
func (m Manifest) PackageType() (PackageType, error) {
	t, ok := hewgTypeToPackageType[m.Hewg.Type]
	if !ok {
		return "", fmt.Errorf("unrecognized package type %q", m.Hewg.Type)
	}
	return t, nil
}

// Identifier builds this manifest's own PackageIdentifier for the given
// build target.
func (m Manifest) Identifier(target identity.TargetTriplet) (identity.PackageIdentifier, error) {
	ver, err := semver.Parse(m.Project.Version)
	if err != nil {
		return identity.PackageIdentifier{}, err
	}
	return identity.PackageIdentifier{
		Org:     m.Project.Org,
		Name:    m.Project.Name,
		Version: ver,
		Target:  target,
	}, nil
}

// PackageInfo is the on-disk manifest.json contract of spec.md §3/§4.12:
// the identifier, type, and *declared* (not resolved) dependency sets.
type PackageInfo struct {
	Identifier           identity.PackageIdentifier      `json:"identifier"`
	PackageType          PackageType                     `json:"package_type"`
	InternalDependencies []identity.DependencyIdentifier `json:"internal_dependencies"`
	ExternalDependencies []identity.DependencyIdentifier `json:"external_dependencies"`
}
