// Package compiler drives per-language compilation: flag synthesis,
// staleness-gated scheduling across the worker pool, progress reporting,
// and the synthetic "hewgsym" translation unit.
//
// Grounded on original_source/private/compile.hh and src/compile.cc, and
// spec.md §4.8. Job scheduling reuses internal/workpool (thread_pool.cc in
// the original) and internal/runner (the process-spawn half of compile.cc);
// aggregated failures use github.com/datawire/dlib/dexec's sibling package
// derror.MultiError the way pkg/python/pypa/bdist collects RECORD-mismatch
// errors in the teacher.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"

	"github.com/corvid3/hewg/internal/buildenv"
	"github.com/corvid3/hewg/internal/layout"
	"github.com/corvid3/hewg/internal/runner"
	"github.com/corvid3/hewg/internal/staleness"
	"github.com/corvid3/hewg/internal/workpool"
)

// LanguageStandard holds a manifest-declared standard string, e.g. "c17" or
// "c++20", with the language's default applied.
func LanguageStandard(lang layout.Language, manifestStd int) string {
	if lang == layout.LangC {
		switch manifestStd {
		case 99, 11, 17, 23:
			return fmt.Sprintf("c%d", manifestStd)
		default:
			return "c17"
		}
	}
	switch manifestStd {
	case 98, 3, 11, 14, 17, 20, 23:
		return fmt.Sprintf("c++%02d", manifestStd)
	default:
		return "c++20"
	}
}

// TranslationUnit is one source file to compile, with its output paths
// already resolved by internal/layout.
type TranslationUnit struct {
	Lang       layout.Language
	SrcPath    string // absolute or cwd-relative path to the source
	RelSrcPath string // path relative to the working directory, for argv
	ObjPath    string
	DepPath    string
}

// BuildPlan is everything the driver needs to synthesize flags for one
// language's batch of translation units.
type BuildPlan struct {
	Env           *buildenv.Environment
	PIC           buildenv.PIC
	Std           string
	ManifestFlags []string
	IncludeDirs   []string // -I<pkg-include-dir> for resolved dependencies, in order
}

func (p BuildPlan) commonFlags(lang layout.Language) []string {
	flags := []string{"-c", "-Iprivate", "-Iinclude", "-fdiagnostics-color=always"}
	if p.Env.Release {
		flags = append(flags, "-O2")
	} else {
		flags = append(flags, "-Og", "-g")
	}
	if bool(p.PIC) {
		flags = append(flags, "-fPIC")
	}
	flags = append(flags, "-std="+p.Std)
	for _, dir := range p.IncludeDirs {
		flags = append(flags, "-I"+dir)
	}
	flags = append(flags, p.ManifestFlags...)
	return flags
}

// argv builds the full compiler invocation for one TU.
func (p BuildPlan) argv(tu TranslationUnit) []string {
	exe := p.Env.Toolchain.CC
	if tu.Lang == layout.LangCxx {
		exe = p.Env.Toolchain.CXX
	}
	argv := append([]string{exe}, p.commonFlags(tu.Lang)...)
	argv = append(argv,
		"-MMD", "-MF", tu.DepPath,
		"-o", tu.ObjPath,
		tu.RelSrcPath,
	)
	return argv
}

// FailedTUError names the relative path of a TU whose compile job exited
// nonzero.
type FailedTUError struct {
	RelPath string
	Output  string
}

func (e *FailedTUError) Error() string {
	return fmt.Sprintf("compile failed: %s\n%s", e.RelPath, e.Output)
}

// SelectStale filters sources down to those the staleness analyzer says
// must be rebuilt.
func SelectStale(paths staleness.PathFor, sources []string, readDepfile staleness.DepfileReader) ([]string, error) {
	return staleness.Select(paths, sources, readDepfile)
}

// Compile schedules one job per TU on pool, in order, and returns once all
// have resolved. On the first nonzero exit, the pool is drained so queued
// sibling jobs never start; in-flight jobs still complete and still report.
// If any TU failed, the aggregated derror.MultiError lists every failure.
func Compile(ctx context.Context, pool *workpool.Pool, plan BuildPlan, lang string, tus []TranslationUnit) error {
	n := len(tus)
	if n == 0 {
		return nil
	}

	var progress int32
	handles := make([]workpool.Handle, 0, n)

	for _, tu := range tus {
		tu := tu
		handles = append(handles, pool.Submit(func(ctx context.Context, workerID int) (interface{}, error) {
			i := atomic.AddInt32(&progress, 1)
			ramp := colorRamp(float64(i) / float64(n))
			dlog.Infof(ctx, "%s(%d/%d) [%s] %s\x1b[0m", ramp, i, n, lang, tu.RelSrcPath)

			argv := plan.argv(tu)
			if plan.Env.Verbose {
				dlog.Infof(ctx, "%v", argv)
			}
			res, err := runner.Run(ctx, argv)
			if err != nil {
				pool.Drain()
				return tu.RelSrcPath, err
			}
			if res.ExitCode != 0 {
				pool.Drain()
				return tu.RelSrcPath, &FailedTUError{RelPath: tu.RelSrcPath, Output: string(res.Output)}
			}
			return tu.RelSrcPath, nil
		}))
	}

	var errs derror.MultiError
	for _, h := range handles {
		if _, err := h.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// colorRamp renders an ANSI 256-color escape whose hue is a function of
// frac in [0, 1], so completion within a batch is visually monotonic.
func colorRamp(frac float64) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	code := 22 + int(frac*(196-22))
	return fmt.Sprintf("\x1b[38;5;%dm", code)
}

// HewgsymSource renders the synthetic "hewgsym" translation unit's C source,
// exposing the four process-wide symbols spec.md §4.8 names.
func HewgsymSource(pkgName string, major, minor, patch int, prerelease, metadata string, buildDateUnixSeconds int64) string {
	pre := "0"
	if prerelease != "" {
		pre = fmt.Sprintf("%q", prerelease)
	}
	meta := "0"
	if metadata != "" {
		meta = fmt.Sprintf("%q", metadata)
	}
	return fmt.Sprintf(`/* generated by hewg; regenerated every build */
int __hewg_version_package_%[1]s[3] = { %[2]d, %[3]d, %[4]d };
const char* __hewg_prerelease_package_%[1]s = %[5]s;
const char* __hewg_metadata_package_%[1]s = %[6]s;
long __hewg_build_date_package_%[1]s = %[7]dL;
`, pkgName, major, minor, patch, pre, meta, buildDateUnixSeconds)
}

// HewgsymPath returns where the generated hewgsym source/object live within
// the incremental cache root.
func HewgsymPath(cacheRoot string) (src, obj string) {
	return filepath.Join(cacheRoot, "hewgsyms.c"), filepath.Join(cacheRoot, "hewgsyms.o")
}
