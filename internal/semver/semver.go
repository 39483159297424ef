// Package semver parses and totally orders version strings per the
// semantic-versioning precedence rules, including the pre-release
// identifier comparison rules that the dependency resolver's correctness
// depends on.
//
// Grounded on original_source/src/semver.cc (parse_semver, operator<=>) and
// on the pre-release tie-break rules spelled out verbatim in spec.md §4.1;
// the regex itself is the standard semver.org grammar also used by the
// WoozyMasta-semver and afloesch-semver packages in this pack.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// semverPattern is the standard semver.org regular expression.
var semverPattern = regexp.MustCompile(
	`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
		`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
		`(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// SemVer is an immutable (major, minor, patch, prerelease?, build?) tuple.
type SemVer struct {
	major, minor, patch int
	prerelease          string
	hasPrerelease       bool
	build               string
	hasBuild            bool
}

// InvalidVersionError reports that a version string didn't match the
// semver grammar.
type InvalidVersionError struct {
	Text string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid semver: %q", e.Text)
}

// New constructs a SemVer directly from its already-validated components.
func New(major, minor, patch int, prerelease, build string) SemVer {
	v := SemVer{major: major, minor: minor, patch: patch}
	if prerelease != "" {
		v.prerelease, v.hasPrerelease = prerelease, true
	}
	if build != "" {
		v.build, v.hasBuild = build, true
	}
	return v
}

// Parse parses text using the standard semver grammar.
func Parse(text string) (SemVer, error) {
	m := semverPattern.FindStringSubmatch(text)
	if m == nil {
		return SemVer{}, &InvalidVersionError{Text: text}
	}

	major, err1 := strconv.Atoi(m[1])
	minor, err2 := strconv.Atoi(m[2])
	patch, err3 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return SemVer{}, &InvalidVersionError{Text: text}
	}

	v := SemVer{major: major, minor: minor, patch: patch}
	if m[4] != "" {
		v.prerelease, v.hasPrerelease = m[4], true
	}
	if m[5] != "" {
		v.build, v.hasBuild = m[5], true
	}
	return v, nil
}

func (v SemVer) Major() int { return v.major }
func (v SemVer) Minor() int { return v.minor }
func (v SemVer) Patch() int { return v.patch }

// Prerelease returns the dot-separated pre-release identifier string and
// whether one is present.
func (v SemVer) Prerelease() (string, bool) { return v.prerelease, v.hasPrerelease }

// Build returns the build-metadata string and whether one is present.
// Build metadata is carried for round-tripping but never affects ordering.
func (v SemVer) Build() (string, bool) { return v.build, v.hasBuild }

// String formats v back into semver textual form; Parse(v.String()) == v.
func (v SemVer) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.major, v.minor, v.patch)
	if v.hasPrerelease {
		b.WriteByte('-')
		b.WriteString(v.prerelease)
	}
	if v.hasBuild {
		b.WriteByte('+')
		b.WriteString(v.build)
	}
	return b.String()
}

// Compare returns -1, 0, or +1 as v is less than, equal to, or greater than
// rhs, per the total order of spec.md §3/§4.1. Build metadata is ignored.
func (v SemVer) Compare(rhs SemVer) int {
	if c := compareInt(v.major, rhs.major); c != 0 {
		return c
	}
	if c := compareInt(v.minor, rhs.minor); c != 0 {
		return c
	}
	if c := compareInt(v.patch, rhs.patch); c != 0 {
		return c
	}

	switch {
	case !v.hasPrerelease && !rhs.hasPrerelease:
		return 0
	case !v.hasPrerelease && rhs.hasPrerelease:
		// a version without a pre-release outranks one with
		return 1
	case v.hasPrerelease && !rhs.hasPrerelease:
		return -1
	}

	return comparePrerelease(v.prerelease, rhs.prerelease)
}

// MarshalJSON renders v as its textual form, so PackageIdentifier and
// PackageCacheDB round-trip through JSON via String()/Parse.
func (v SemVer) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(v.String())), nil
}

// UnmarshalJSON parses v from its textual form.
func (v *SemVer) UnmarshalJSON(data []byte) error {
	text, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Less reports whether v orders strictly before rhs.
func (v SemVer) Less(rhs SemVer) bool { return v.Compare(rhs) < 0 }

// Equal reports whether v and rhs are equal under Compare (build metadata
// is ignored, so "1.0.0+a" == "1.0.0+b").
func (v SemVer) Equal(rhs SemVer) bool { return v.Compare(rhs) == 0 }

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func comparePrerelease(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	n := len(aParts)
	if len(bParts) < n {
		n = len(bParts)
	}

	for i := 0; i < n; i++ {
		if c := compareIdentifier(aParts[i], bParts[i]); c != 0 {
			return c
		}
	}

	// all paired segments equal: shorter pre-release is smaller
	return compareInt(len(aParts), len(bParts))
}

func compareIdentifier(a, b string) int {
	aNum, aIsNum := isNumeric(a)
	bNum, bIsNum := isNumeric(b)

	switch {
	case aIsNum && bIsNum:
		// numeric comparison, no leading-zero normalization needed:
		// the grammar already forbids leading zeros in numeric identifiers
		return compareInt(aNum, bNum)
	case aIsNum && !bIsNum:
		// digits-only is always less than alphanumeric
		return -1
	case !aIsNum && bIsNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isNumeric(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
