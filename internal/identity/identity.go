// Package identity implements the package and dependency identifier types:
// their textual grammars, parsing, and ordering rules.
//
// Grounded on original_source/private/packages.hh (package_identifier,
// dependency_identifier) and spec.md §4.2; the `org.name-version:target`
// grammar and the three ordering rules (org+name, then SemVer, then target
// text) are taken verbatim from the spec since the original C++ identifier
// comparator predates several of the edge cases the resolver now depends on.
package identity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/corvid3/hewg/internal/semver"
)

var (
	orgPattern    = regexp.MustCompile(`^[A-Za-z]+$`)
	namePattern   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	tripletToken  = `[A-Za-z0-9]+`
	tripletFull   = regexp.MustCompile(`^` + tripletToken + `-` + tripletToken + `-` + tripletToken + `$`)
	pidStrict     = regexp.MustCompile(`^([A-Za-z]+)\.([A-Za-z0-9]+)-([^:]+):(.+)$`)
	pidNoTarget   = regexp.MustCompile(`^([A-Za-z]+)\.([A-Za-z0-9]+)-([^:]+)$`)
)

// TargetTriplet is an architecture-os-vendor tag, e.g. "x86-linux-gnu".
// Triplets are compared textually; no alias/normalization table is defined
// (spec.md §10, Open Question).
type TargetTriplet struct {
	Arch, OS, Vendor string
}

// ParseTargetTriplet parses an "arch-os-vendor" string.
func ParseTargetTriplet(text string) (TargetTriplet, error) {
	if !tripletFull.MatchString(text) {
		return TargetTriplet{}, &MalformedIdentifierError{Text: text, Kind: "target triplet"}
	}
	parts := strings.SplitN(text, "-", 3)
	return TargetTriplet{Arch: parts[0], OS: parts[1], Vendor: parts[2]}, nil
}

func (t TargetTriplet) String() string {
	return fmt.Sprintf("%s-%s-%s", t.Arch, t.OS, t.Vendor)
}

// Compare orders triplets textually.
func (t TargetTriplet) Compare(rhs TargetTriplet) int {
	return strings.Compare(t.String(), rhs.String())
}

// MarshalJSON renders t as its "arch-os-vendor" textual form.
func (t TargetTriplet) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON parses t from its textual form.
func (t *TargetTriplet) UnmarshalJSON(data []byte) error {
	text, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := ParseTargetTriplet(text)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MalformedIdentifierError reports a syntactically invalid identifier.
type MalformedIdentifierError struct {
	Text string
	Kind string
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("malformed %s: %q", e.Kind, e.Text)
}

// PackageIdentifier is the (org, name, version, target) tuple naming one
// installed or buildable package instance.
type PackageIdentifier struct {
	Org     string
	Name    string
	Version semver.SemVer
	Target  TargetTriplet
}

// String formats the strict textual form "org.name-version:target".
func (p PackageIdentifier) String() string {
	return fmt.Sprintf("%s.%s-%s:%s", p.Org, p.Name, p.Version.String(), p.Target.String())
}

// Compare orders identifiers lexicographically on (org, name), then by
// SemVer order on version, then textually on target.
func (p PackageIdentifier) Compare(rhs PackageIdentifier) int {
	if c := strings.Compare(p.Org, rhs.Org); c != 0 {
		return c
	}
	if c := strings.Compare(p.Name, rhs.Name); c != 0 {
		return c
	}
	if c := p.Version.Compare(rhs.Version); c != 0 {
		return c
	}
	return p.Target.Compare(rhs.Target)
}

// Equal reports identifier equality under Compare.
func (p PackageIdentifier) Equal(rhs PackageIdentifier) bool { return p.Compare(rhs) == 0 }

// MarshalJSON renders p as its strict textual form, used by the package DB
// and manifest.json so identifiers round-trip as plain strings rather than
// as nested objects.
func (p PackageIdentifier) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON parses p from its strict textual form.
func (p *PackageIdentifier) UnmarshalJSON(data []byte) error {
	text, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := ParsePackageIdentifier(text)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// SameNameAs reports whether p and rhs share (org, name), ignoring version
// and target.
func (p PackageIdentifier) SameNameAs(rhs PackageIdentifier) bool {
	return p.Org == rhs.Org && p.Name == rhs.Name
}

// ParsePackageIdentifier implements the strict grammar
// "org.name-version:target" — target is mandatory.
func ParsePackageIdentifier(text string) (PackageIdentifier, error) {
	m := pidStrict.FindStringSubmatch(text)
	if m == nil {
		return PackageIdentifier{}, &MalformedIdentifierError{Text: text, Kind: "package identifier"}
	}
	return buildIdentifier(m[1], m[2], m[3], m[4])
}

// ParsePackageIdentifierOptionalTarget accepts a target-less
// "org.name-version" and fills in defaultTarget when the target is absent.
func ParsePackageIdentifierOptionalTarget(text string, defaultTarget TargetTriplet) (PackageIdentifier, error) {
	if m := pidStrict.FindStringSubmatch(text); m != nil {
		return buildIdentifier(m[1], m[2], m[3], m[4])
	}
	if m := pidNoTarget.FindStringSubmatch(text); m != nil {
		pid, err := buildIdentifier(m[1], m[2], m[3], defaultTarget.String())
		return pid, err
	}
	return PackageIdentifier{}, &MalformedIdentifierError{Text: text, Kind: "package identifier"}
}

func buildIdentifier(org, name, version, target string) (PackageIdentifier, error) {
	if !orgPattern.MatchString(org) {
		return PackageIdentifier{}, &MalformedIdentifierError{Text: org, Kind: "org"}
	}
	if !namePattern.MatchString(name) {
		return PackageIdentifier{}, &MalformedIdentifierError{Text: name, Kind: "package name"}
	}
	ver, err := semver.Parse(version)
	if err != nil {
		return PackageIdentifier{}, err
	}
	trip, err := ParseTargetTriplet(target)
	if err != nil {
		return PackageIdentifier{}, err
	}
	return PackageIdentifier{Org: org, Name: name, Version: ver, Target: trip}, nil
}

// DependencyKind selects exact-version or minimum-version matching.
type DependencyKind int

const (
	Exact DependencyKind = iota
	ThisOrBetter
)

func (k DependencyKind) String() string {
	if k == Exact {
		return "="
	}
	return ">="
}

// DependencyIdentifier is (kind, PackageIdentifier), the textual form used
// in manifest dependency lists: "=org.name-version[:target]" or
// ">=org.name-version[:target]".
type DependencyIdentifier struct {
	Kind       DependencyKind
	Identifier PackageIdentifier
}

func (d DependencyIdentifier) String() string {
	return d.Kind.String() + d.Identifier.String()
}

// Equal reports whether d and rhs name the identical (kind, identifier)
// pair. Per spec.md §4.2, a dependency set may legally hold both "=foo" and
// ">=foo" for the same underlying identifier simultaneously — those compare
// unequal here and are not deduplicated.
func (d DependencyIdentifier) Equal(rhs DependencyIdentifier) bool {
	return d.Kind == rhs.Kind && d.Identifier.Equal(rhs.Identifier)
}

// MarshalJSON renders d as its "=pid" / ">=pid" textual form.
func (d DependencyIdentifier) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON parses d from its textual form. Manifest dependency text
// always carries an explicit target once serialized, so no default target
// is needed here.
func (d *DependencyIdentifier) UnmarshalJSON(data []byte) error {
	text, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := ParseDependencyIdentifier(text, TargetTriplet{})
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDependencyIdentifier examines the leading operator ("=" selects
// Exact, ">=" selects ThisOrBetter) and parses the remainder as a
// PackageIdentifier with an optional target, defaulting to defaultTarget.
func ParseDependencyIdentifier(text string, defaultTarget TargetTriplet) (DependencyIdentifier, error) {
	var kind DependencyKind
	var rest string
	switch {
	case strings.HasPrefix(text, ">="):
		kind, rest = ThisOrBetter, text[2:]
	case strings.HasPrefix(text, "="):
		kind, rest = Exact, text[1:]
	default:
		return DependencyIdentifier{}, &MalformedIdentifierError{Text: text, Kind: "dependency identifier"}
	}
	pid, err := ParsePackageIdentifierOptionalTarget(rest, defaultTarget)
	if err != nil {
		return DependencyIdentifier{}, err
	}
	return DependencyIdentifier{Kind: kind, Identifier: pid}, nil
}
