// Package pkgdb persists the set of installed PackageIdentifiers in a
// single JSON document, ~/.hewg/package_db.json.
//
// Grounded on original_source/private/packages.hh (PackageCacheDB) and
// spec.md §4.10. Atomic save uses github.com/google/renameio the way the
// distri build tool (other_examples, cmd-distri-build.go) writes its own
// store files, since the teacher repo has no atomic-file-replace helper of
// its own. A narrow, read-only blang/semver/v4 parse is used only to flag
// package_db.json entries that this module's own SemVer parser accepted but
// blang/semver/v4 rejects (see SanityCheckLegacyVersions below) — it is
// deliberately NOT used for the
// core SemVer component, which this repository exists to implement itself.
package pkgdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	blangsemver "github.com/blang/semver/v4"
	"github.com/google/renameio"

	"github.com/corvid3/hewg/internal/identity"
)

// DB is the set of installed PackageIdentifiers. No file lock is held;
// concurrent Save calls race and the last writer wins (spec.md §4.10).
type DB struct {
	path string
	ids  map[string]identity.PackageIdentifier // keyed by String() form
}

// Open loads path, or returns an empty DB if it does not exist.
func Open(path string) (*DB, error) {
	db := &DB{path: path, ids: make(map[string]identity.PackageIdentifier)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return db, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []identity.PackageIdentifier
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing package db %s: %w", path, err)
	}
	for _, id := range raw {
		db.ids[id.String()] = id
	}
	return db, nil
}

// Contains reports whether id is present.
func (db *DB) Contains(id identity.PackageIdentifier) bool {
	_, ok := db.ids[id.String()]
	return ok
}

// Insert adds id if absent.
func (db *DB) Insert(id identity.PackageIdentifier) {
	db.ids[id.String()] = id
}

// All returns every installed identifier, in Compare order.
func (db *DB) All() []identity.PackageIdentifier {
	out := make([]identity.PackageIdentifier, 0, len(db.ids))
	for _, id := range db.ids {
		out = append(out, id)
	}
	sortIdentifiers(out)
	return out
}

func sortIdentifiers(ids []identity.PackageIdentifier) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j].Compare(ids[j-1]) < 0; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// Save overwrites the whole document. Writes are atomic (rename into
// place via renameio) but there is no cross-process lock guarding the
// read-modify-write cycle, which is the documented last-writer-wins
// limitation from spec.md §4.10.
func (db *DB) Save() error {
	if err := os.MkdirAll(filepath.Dir(db.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(db.All(), "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(db.path, data, 0o644)
}

// SanityCheckLegacyVersions flags entries whose version text, already
// accepted by this module's own parser when Open loaded it, is rejected by
// blang/semver/v4 — a hint that package_db.json was hand-edited, not a
// fatal condition. Callers run this once after Open, before the resolver.
func SanityCheckLegacyVersions(db *DB) []string {
	var warnings []string
	for key, id := range db.ids {
		if _, err := blangsemver.Parse(id.Version.String()); err != nil {
			warnings = append(warnings, fmt.Sprintf("entry %q: %v", key, err))
		}
	}
	return warnings
}
