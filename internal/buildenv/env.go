// Package buildenv holds the Environment record: the toolchain, target,
// and build flags threaded explicitly through the compile and link drivers,
// replacing any notion of global mutable configuration.
//
// Grounded on original_source/private/target.hh (Toolchain) and spec.md §5's
// "No global state leaks" design note.
package buildenv

import (
	"encoding/json"
	"os"
	"runtime"

	"github.com/corvid3/hewg/internal/identity"
)

// Toolchain names the executables used to build one target, resolved from
// ~/.hewg/targets/<triplet> (spec.md §6).
type Toolchain struct {
	CXX string
	CC  string
	LD  string
	AR  string
}

// Environment is constructed once per invocation and passed by reference
// into every driver; it owns the current target, toolchain, build
// settings, and Clock, so no package in this module needs a package-level
// mutable singleton.
type Environment struct {
	Target    identity.TargetTriplet
	Toolchain Toolchain
	Clock     Clock

	Release bool
	Force   bool
	Skip    bool
	Verbose bool
	Tasks   int
}

// PIC reports whether object code built under this environment should be
// position-independent. Shared libraries always require PIC; static
// libraries are built twice (see internal/layout's two archive names),
// once per PIC setting, so PIC is selected per compile-pass rather than
// being a property of Environment alone.
type PIC bool

const (
	NonPIC  PIC = false
	WantPIC PIC = true
)

// hostArch maps the running Go process's GOARCH to the triplet's
// architecture token. There is no alias/normalization table for target
// triplets in general (spec.md §9, Open Question); this table exists only
// to guess a default for the *current* host, not to reconcile triplets
// supplied in manifests or dependency identifiers.
var hostArch = map[string]string{
	"amd64": "x86_64",
	"386":   "x86",
	"arm64": "aarch64",
	"arm":   "arm",
}

// HostTarget guesses the current host's TargetTriplet from runtime.GOARCH
// and runtime.GOOS, for ParsePackageIdentifierOptionalTarget's default and
// for "hewg build" when no --target flag is given. Cross-compilation
// (target != execution host) is a Non-goal (spec.md §1); this is only ever
// the triplet this process is itself running under.
func HostTarget() identity.TargetTriplet {
	arch, ok := hostArch[runtime.GOARCH]
	if !ok {
		arch = runtime.GOARCH
	}
	vendor := "unknown"
	if runtime.GOOS == "linux" {
		vendor = "gnu"
	}
	return identity.TargetTriplet{Arch: arch, OS: runtime.GOOS, Vendor: vendor}
}

// ToolchainDescriptor is the on-disk shape of ~/.hewg/targets/<triplet>
// (spec.md §6): the four executable names invoked for that target.
type ToolchainDescriptor struct {
	CXX string `json:"cxx"`
	CC  string `json:"cc"`
	LD  string `json:"ld"`
	AR  string `json:"ar"`
}

// LoadToolchain reads a target descriptor file and converts it to a
// Toolchain. A missing "ld" means the default linker, matching spec.md
// §4.9's "optional -fuse-ld=<linker> if the toolchain specifies a
// non-default linker".
func LoadToolchain(path string) (Toolchain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Toolchain{}, err
	}
	var d ToolchainDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Toolchain{}, err
	}
	if d.CC == "" {
		d.CC = "cc"
	}
	if d.CXX == "" {
		d.CXX = "c++"
	}
	if d.AR == "" {
		d.AR = "ar"
	}
	return Toolchain{CXX: d.CXX, CC: d.CC, LD: d.LD, AR: d.AR}, nil
}
