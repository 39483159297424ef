// Package installer copies a freshly built artifact into the package store,
// writes its manifest.json, updates the package DB, and swaps the bin
// symlink for executables.
//
// Grounded on original_source/src/install.cc and spec.md §4.12. The package
// instance directory is assembled in a scratch staging directory, packed
// into an OCI-style tar snapshot via internal/archive (the same codec
// internal/archive's own tests use to compare snapshots), and then swapped
// into place with two renames — the same stage-then-rename atomicity
// github.com/google/renameio gives per-file, applied here at the
// whole-directory level. renameio itself backs the individual file copies
// into staging; the bin symlink swap is a plain os.Symlink to a temporary
// name followed by os.Rename.
package installer

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"

	"github.com/corvid3/hewg/internal/archive"
	"github.com/corvid3/hewg/internal/identity"
	"github.com/corvid3/hewg/internal/manifest"
	"github.com/corvid3/hewg/internal/pkgdb"
)

// snapshotFileName is where the packed OCI tar snapshot of a package
// instance is kept alongside its artifacts, so a later install of the same
// identifier can be compared against it without re-walking the live tree.
const snapshotFileName = "snapshot.tar"

// SharedLibraryNotSupportedError reports an attempt to install a
// SharedLibrary package instance, which spec.md §4.12 explicitly defers.
type SharedLibraryNotSupportedError struct{}

func (e *SharedLibraryNotSupportedError) Error() string {
	return "installing shared-library packages is not yet supported"
}

// BuiltArtifact names the freshly built files an install operates on,
// already selected according to the package's type.
type BuiltArtifact struct {
	Type           manifest.PackageType
	ExecutablePath string   // Executable
	ArchivePaths   []string // StaticLibrary: non-PIC and PIC .a files
	IncludeDir     string   // StaticLibrary and Headers: the public header tree
}

// Store is the on-disk ~/.hewg package store.
type Store struct {
	Root string // ~/.hewg
}

func (s Store) packageDir(id identity.PackageIdentifier) string {
	return filepath.Join(s.Root, "packages", id.String())
}

func (s Store) binSymlink(name string) string {
	return filepath.Join(s.Root, "bin", name)
}

// Install performs the four-step install-writer contract: stage the
// package instance directory, write manifest.json with the *declared*
// (not resolved) dependency identifiers, insert into db and save, and for
// executables, repoint the bin symlink.
func Install(
	store Store,
	id identity.PackageIdentifier,
	internalDeps, externalDeps []identity.DependencyIdentifier,
	built BuiltArtifact,
	db *pkgdb.DB,
) error {
	if built.Type == manifest.SharedLibrary {
		return &SharedLibraryNotSupportedError{}
	}

	dir := store.packageDir(id)
	staging := dir + ".staging"
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return err
	}

	if err := copyArtifacts(staging, id.Name, built); err != nil {
		return err
	}

	info := manifest.PackageInfo{
		Identifier:           id,
		PackageType:          built.Type,
		InternalDependencies: internalDeps,
		ExternalDependencies: externalDeps,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(staging, "manifest.json"), data, 0o644); err != nil {
		return err
	}

	if err := stageThenPublish(staging, dir); err != nil {
		return err
	}

	db.Insert(id)
	if err := db.Save(); err != nil {
		return err
	}

	if built.Type == manifest.Executable {
		if err := updateBinSymlink(store, id.Name, filepath.Join(dir, id.Name)); err != nil {
			return err
		}
	}

	return nil
}

// copyArtifacts stages built's files under dir, the package instance
// directory. The public header tree is always installed at
// include/<name>/ (spec.md §4.9/§4.12's "include/<name>/ tree"), keyed by
// the package's own name rather than any path component of the build
// tree's IncludeDir, which is just the flat "include" directory the
// manifest's source layout scaffolds (internal/scaffold) and carries no
// package name of its own.
func copyArtifacts(dir, name string, built BuiltArtifact) error {
	switch built.Type {
	case manifest.Executable:
		return copyFile(built.ExecutablePath, filepath.Join(dir, filepath.Base(built.ExecutablePath)), 0o755)

	case manifest.StaticLibrary:
		for _, archive := range built.ArchivePaths {
			if err := copyFile(archive, filepath.Join(dir, filepath.Base(archive)), 0o644); err != nil {
				return err
			}
		}
		return copyTree(built.IncludeDir, filepath.Join(dir, "include", name))

	case manifest.Headers:
		return copyTree(built.IncludeDir, filepath.Join(dir, "include", name))

	default:
		return fmt.Errorf("copyArtifacts: unhandled package type %q", built.Type)
	}
}

func copyFile(src, dst string, perm fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return renameio.WriteFile(dst, data, perm)
}

func copyTree(srcRoot, dstRoot string) error {
	return filepath.Walk(srcRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dstRoot, rel)
		if info.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, src)
		return err
	})
}

// stageThenPublish packs staging — a fully-assembled package instance
// directory, artifacts and manifest.json included — into an OCI-style tar
// snapshot via internal/archive, writes that snapshot alongside the
// artifacts as snapshotFileName, and then swaps staging into dir's place.
// Since POSIX rename can't atomically replace a non-empty directory in one
// syscall, any previous instance at dir is first renamed out of the way to
// a backup path, staging is renamed into dir, and the backup is removed;
// the window between the two renames is the same one renameio's own
// per-file stage-then-rename leaves open for the file it's replacing.
func stageThenPublish(staging, dir string) error {
	layer, err := archive.SnapshotDir(staging, time.Now(), nil)
	if err != nil {
		return err
	}
	snapshot, err := os.Create(filepath.Join(staging, snapshotFileName))
	if err != nil {
		return err
	}
	if err := archive.WriteTo(layer, snapshot); err != nil {
		snapshot.Close()
		return err
	}
	if err := snapshot.Close(); err != nil {
		return err
	}

	backup := dir + ".previous"
	if err := os.RemoveAll(backup); err != nil {
		return err
	}
	if _, err := os.Stat(dir); err == nil {
		if err := os.Rename(dir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		return err
	}
	return os.RemoveAll(backup)
}

// updateBinSymlink atomically repoints the ~/.hewg/bin/<name> symlink,
// mirroring renameio's stage-then-rename pattern: os.Symlink can't replace
// an existing link in place, so a fresh link is built under a scratch name
// and renamed over the target, which is atomic on POSIX filesystems.
func updateBinSymlink(store Store, name, target string) error {
	link := store.binSymlink(name)
	if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
		return err
	}
	scratch := link + ".tmp"
	_ = os.Remove(scratch)
	if err := os.Symlink(target, scratch); err != nil {
		return err
	}
	return os.Rename(scratch, link)
}
