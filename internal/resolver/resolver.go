// Package resolver materializes a dependency graph against the local
// package DB and derives the include set, link set, and fatal findings for
// a build.
//
// Grounded on original_source/private/packages.hh / src/packages.cc and
// spec.md §4.11. The original expresses this as a small Datalog-style
// fixed-point computation over package facts, dependency edges, and
// derived paths; spec.md §9 permits an equivalent closed-form DFS, which is
// what's implemented here, using k8s.io/apimachinery/pkg/util/sets for the
// cycle-detection name chain, include-directory deduplication, and
// version-conflict bookkeeping the way distri's package manager
// (other_examples, SeleniaProject-Orizon packagemanager-manager.go) keeps
// its own resolved-set accounting.
package resolver

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/corvid3/hewg/internal/identity"
	"github.com/corvid3/hewg/internal/manifest"
	"github.com/corvid3/hewg/internal/pkgdb"
)

// EdgeKind tags how a dependency edge was declared.
type EdgeKind int

const (
	Internal EdgeKind = iota
	External
)

// UnresolvedDependencyError reports that no installed package satisfied a
// DependencyIdentifier.
type UnresolvedDependencyError struct {
	Dependency identity.DependencyIdentifier
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("unresolved dependency: %s", e.Dependency)
}

// DependencyCycleError names the name-cycle chain that was detected.
type DependencyCycleError struct {
	Chain []string // org.name, in traversal order, repeating the start
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %v", e.Chain)
}

// MissingPackageManifestError reports that a selected package's
// manifest.json could not be read from the package store.
type MissingPackageManifestError struct {
	Identifier identity.PackageIdentifier
	Err        error
}

func (e *MissingPackageManifestError) Error() string {
	return fmt.Sprintf("missing manifest for %s: %v", e.Identifier, e.Err)
}

func (e *MissingPackageManifestError) Unwrap() error { return e.Err }

// VersionConflictError reports two different versions of the same
// (org, name, target) appearing in the link set.
type VersionConflictError struct {
	Org, Name string
	Target    identity.TargetTriplet
	Versions  []string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict for %s.%s:%s: %v", e.Org, e.Name, e.Target, e.Versions)
}

// PackageInfoLoader reads a selected dependency's manifest.json and
// include directory from the package store.
type PackageInfoLoader func(id identity.PackageIdentifier) (manifest.PackageInfo, string, error)

// Node is one package instance in the materialized graph.
type Node struct {
	Identifier identity.PackageIdentifier
	Type       manifest.PackageType
	IncludeDir string
	Edges      []Edge
}

// Edge is one dependency edge out of a Node.
type Edge struct {
	Kind  EdgeKind
	Child *Node
}

// Graph is the materialized dependency graph for one build.
type Graph struct {
	Root  *Node
	Nodes map[string]*Node // keyed by Identifier.String()
}

// Diagnostics is the resolver's phase-4 report: the full set of derived
// facts, always returned (spec.md §4.11 calls this optional; SPEC_FULL
// elevates it to always-present since callers consistently want it).
type Diagnostics struct {
	Acyclic              bool
	StaticChainReachable []identity.PackageIdentifier
	ExternalChainReached []identity.PackageIdentifier
	VersionConflicts     []*VersionConflictError
	IncludeSetConflicts  []string
}

// IncludeSet is the transitive closure of include directories reachable
// from the root, one per distinct directory.
type IncludeSet struct {
	Dirs []string // deduplicated, in discovery order
}

// LinkSet is the derived link-stage inputs.
type LinkSet struct {
	StaticArchives []identity.PackageIdentifier // contribute .a files
	SharedLibs     []string                     // -l<name> arguments, by package name
}

// Resolve runs all four phases against root's declared dependencies.
func Resolve(
	rootIdentifier identity.PackageIdentifier,
	rootIncludeDir string,
	internalDeps, externalDeps []identity.DependencyIdentifier,
	db *pkgdb.DB,
	load PackageInfoLoader,
) (*Graph, *IncludeSet, *LinkSet, *Diagnostics, error) {
	root := &Node{Identifier: rootIdentifier, Type: manifest.Executable, IncludeDir: rootIncludeDir}
	graph := &Graph{Root: root, Nodes: map[string]*Node{rootIdentifier.String(): root}}

	rootName := rootIdentifier.Org + "." + rootIdentifier.Name
	rootChain := nameChain{names: []string{rootName}, seen: sets.NewString(rootName)}

	if err := build(root, internalDeps, Internal, db, load, graph, rootChain); err != nil {
		return nil, nil, nil, nil, err
	}
	if err := build(root, externalDeps, External, db, load, graph, rootChain); err != nil {
		return nil, nil, nil, nil, err
	}

	includeSet := deriveIncludeSet(root)
	linkSet, conflicts := deriveLinkSet(root)

	diag := &Diagnostics{
		Acyclic:              true,
		VersionConflicts:     conflicts,
		StaticChainReachable: linkSet.StaticArchives,
	}
	for _, err := range conflicts {
		return graph, includeSet, linkSet, diag, err
	}

	return graph, includeSet, linkSet, diag, nil
}

// nameChain tracks the ordered ancestor chain of package names on the
// current DFS path, for reporting cycles in traversal order, plus a set
// mirror for O(1) membership checks.
type nameChain struct {
	names []string
	seen  sets.String
}

func (c nameChain) extend(name string) nameChain {
	names := append(append([]string(nil), c.names...), name)
	seen := c.seen.Clone()
	seen.Insert(name)
	return nameChain{names: names, seen: seen}
}

// build selects each dependency identifier against db, reads its
// PackageInfo, and recurses, tagging every edge with kind.
func build(
	parent *Node,
	deps []identity.DependencyIdentifier,
	kind EdgeKind,
	db *pkgdb.DB,
	load PackageInfoLoader,
	graph *Graph,
	chain nameChain,
) error {
	for _, dep := range deps {
		selected, err := selectCandidate(dep, db)
		if err != nil {
			return err
		}

		childName := selected.Org + "." + selected.Name
		if chain.seen.Has(childName) {
			return &DependencyCycleError{Chain: append(append([]string(nil), chain.names...), childName)}
		}

		if existing, ok := graph.Nodes[selected.String()]; ok {
			parent.Edges = append(parent.Edges, Edge{Kind: kind, Child: existing})
			continue
		}

		info, includeDir, err := load(selected)
		if err != nil {
			return &MissingPackageManifestError{Identifier: selected, Err: err}
		}

		child := &Node{Identifier: selected, Type: info.PackageType, IncludeDir: includeDir}
		graph.Nodes[selected.String()] = child
		parent.Edges = append(parent.Edges, Edge{Kind: kind, Child: child})

		childChain := chain.extend(childName)

		if err := build(child, info.InternalDependencies, Internal, db, load, graph, childChain); err != nil {
			return err
		}
		if err := build(child, info.ExternalDependencies, External, db, load, graph, childChain); err != nil {
			return err
		}
	}
	return nil
}

// selectCandidate implements phase 1: find installed identifiers sharing
// (org, name, target) and major version, filtered by kind.
func selectCandidate(dep identity.DependencyIdentifier, db *pkgdb.DB) (identity.PackageIdentifier, error) {
	var best *identity.PackageIdentifier
	for _, id := range db.All() {
		if id.Org != dep.Identifier.Org || id.Name != dep.Identifier.Name {
			continue
		}
		if id.Target.Compare(dep.Identifier.Target) != 0 {
			continue
		}
		if id.Version.Major() != dep.Identifier.Version.Major() {
			continue
		}

		switch dep.Kind {
		case identity.Exact:
			if id.Version.Equal(dep.Identifier.Version) {
				found := id
				return found, nil
			}
		case identity.ThisOrBetter:
			if id.Version.Compare(dep.Identifier.Version) >= 0 {
				if best == nil || id.Version.Compare(best.Version) > 0 {
					found := id
					best = &found
				}
			}
		}
	}
	if best != nil {
		return *best, nil
	}
	return identity.PackageIdentifier{}, &UnresolvedDependencyError{Dependency: dep}
}

// deriveIncludeSet walks the whole graph (regardless of edge kind) and
// collects every distinct include directory.
func deriveIncludeSet(root *Node) *IncludeSet {
	seen := sets.NewString()
	var dirs []string
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IncludeDir != "" && !seen.Has(n.IncludeDir) {
			seen.Insert(n.IncludeDir)
			dirs = append(dirs, n.IncludeDir)
		}
		for _, e := range n.Edges {
			walk(e.Child)
		}
	}
	for _, e := range root.Edges {
		walk(e.Child)
	}
	return &IncludeSet{Dirs: dirs}
}

// deriveLinkSet implements phase 3's link-set rules: a StaticLibrary node
// contributes its archive only along a path of entirely Internal edges; a
// SharedLibrary node contributes -l<name> but its own transitive
// dependencies are never re-linked; crossing an External edge stops
// further link-set traversal beneath it, since that external node's own
// prior link already accounts for its dependencies.
func deriveLinkSet(root *Node) (*LinkSet, []*VersionConflictError) {
	ls := &LinkSet{}
	versionsByKey := make(map[string][]identity.PackageIdentifier)

	var walk func(n *Node)
	walk = func(n *Node) {
		for _, e := range n.Edges {
			child := e.Child
			key := fmt.Sprintf("%s.%s:%s", child.Identifier.Org, child.Identifier.Name, child.Identifier.Target)

			switch child.Type {
			case manifest.StaticLibrary:
				if e.Kind == Internal {
					ls.StaticArchives = append(ls.StaticArchives, child.Identifier)
					versionsByKey[key] = append(versionsByKey[key], child.Identifier)
					walk(child)
				}
				// External static-library edges are short-circuited: the
				// external node's own prior link already resolved it.
			case manifest.SharedLibrary:
				ls.SharedLibs = append(ls.SharedLibs, child.Identifier.Name)
				versionsByKey[key] = append(versionsByKey[key], child.Identifier)
				// never re-link a shared library's own transitive deps
			case manifest.Headers:
				if e.Kind == Internal {
					walk(child)
				}
			}
		}
	}
	walk(root)

	var conflicts []*VersionConflictError
	for _, versions := range versionsByKey {
		distinct := sets.NewString()
		var texts []string
		for _, v := range versions {
			t := v.Version.String()
			if !distinct.Has(t) {
				distinct.Insert(t)
				texts = append(texts, t)
			}
		}
		if distinct.Len() > 1 {
			first := versions[0]
			conflicts = append(conflicts, &VersionConflictError{
				Org: first.Org, Name: first.Name, Target: first.Target, Versions: texts,
			})
		}
	}

	return ls, conflicts
}
