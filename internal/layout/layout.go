// Package layout maps source paths to their cached (object, depfile) pair
// and names link-stage artifacts, given a language's source root and a
// per-profile cache folder.
//
// Grounded on original_source/src/analysis.hh's is_subpathed_by / fingerprint
// helpers and spec.md §4.3. The original's cache directory names
// (cxx_objects/c_objects/cxx_depends/c_depends) are kept; the static-library
// PIE/non-PIC archive names are the ones spec.md states, which corrects a
// naming swap present in original_source/src/link.cc.
package layout

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Language selects which cache subdirectories and standard-flag dialect a
// source file belongs to.
type Language int

const (
	LangC Language = iota
	LangCxx
)

// UnknownExtensionError reports a source/header extension layout doesn't
// recognize.
type UnknownExtensionError struct {
	Path string
}

func (e *UnknownExtensionError) Error() string {
	return fmt.Sprintf("unknown source extension: %q", e.Path)
}

// ClassifyExtension maps a file extension to its language, per spec.md §4.3:
// .c -> C source, .h -> C header, .cc/.cpp -> C++ source, .hh/.hpp -> C++
// header. Returns (language, isHeader, error).
func ClassifyExtension(path string) (Language, bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c":
		return LangC, false, nil
	case ".h":
		return LangC, true, nil
	case ".cc", ".cpp":
		return LangCxx, false, nil
	case ".hh", ".hpp":
		return LangCxx, true, nil
	default:
		return 0, false, &UnknownExtensionError{Path: path}
	}
}

// ErrArtifactEscapesCache is returned when a computed cache-relative path
// would lie outside the cache folder (e.g. via ".." segments).
var ErrArtifactEscapesCache = errors.New("computed artifact path escapes cache folder")

// Cache is a single profile's (debug or release, PIC or non-PIC) cache
// folder layout rooted at Dir.
type Cache struct {
	Dir string
}

func objectsSubdir(lang Language) string {
	if lang == LangCxx {
		return "cxx_objects"
	}
	return "c_objects"
}

func dependsSubdir(lang Language) string {
	if lang == LangCxx {
		return "cxx_depends"
	}
	return "c_depends"
}

// ObjectPath returns the cached object-file path for a source file, given
// the root its path should be computed relative to (the project's src root
// for that language).
func (c Cache) ObjectPath(lang Language, srcRoot, srcPath string) (string, error) {
	return c.artifactPath(objectsSubdir(lang), srcRoot, srcPath, ".o")
}

// DepfilePath returns the cached depfile path for a source file.
func (c Cache) DepfilePath(lang Language, srcRoot, srcPath string) (string, error) {
	return c.artifactPath(dependsSubdir(lang), srcRoot, srcPath, ".d")
}

func (c Cache) artifactPath(subdir, srcRoot, srcPath, newExt string) (string, error) {
	rel, err := filepath.Rel(srcRoot, srcPath)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", ErrArtifactEscapesCache
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + newExt
	full := filepath.Join(c.Dir, subdir, rel)

	base, err := filepath.Abs(c.Dir)
	if err != nil {
		return "", err
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(absFull, base+string(filepath.Separator)) {
		return "", ErrArtifactEscapesCache
	}
	return full, nil
}

// ExecutableName returns the bare executable artifact name for a project.
func ExecutableName(project string) string { return project }

// StaticArchiveName returns the non-PIC static-library archive name.
func StaticArchiveName(project string) string { return "lib" + project + ".a" }

// StaticArchivePICName returns the PIC variant's static-library archive
// name.
func StaticArchivePICName(project string) string { return "lib" + project + "-PIE.a" }

// SharedLibraryName returns the shared-library artifact name.
func SharedLibraryName(project string) string { return "lib" + project + ".so" }
