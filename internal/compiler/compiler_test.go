package compiler_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid3/hewg/internal/buildenv"
	"github.com/corvid3/hewg/internal/compiler"
	"github.com/corvid3/hewg/internal/layout"
	"github.com/corvid3/hewg/internal/workpool"
)

func TestLanguageStandardDefaults(t *testing.T) {
	assert.Equal(t, "c17", compiler.LanguageStandard(layout.LangC, 0))
	assert.Equal(t, "c99", compiler.LanguageStandard(layout.LangC, 99))
	assert.Equal(t, "c++20", compiler.LanguageStandard(layout.LangCxx, 0))
	assert.Equal(t, "c++17", compiler.LanguageStandard(layout.LangCxx, 17))
}

// fakeCompiler writes a shell script that stands in for cc/c++: it creates
// the -o output file and, for the -MF path, a trivial depfile, then exits
// with exitCode.
func fakeCompiler(t *testing.T, exitCode int) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakecc")
	script := fmt.Sprintf(`#!/bin/sh
out=""
dep=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) shift; out="$1" ;;
    -MF) shift; dep="$1" ;;
  esac
  shift
done
[ -n "$out" ] && echo "obj" > "$out"
[ -n "$dep" ] && echo "$out: " > "$dep"
exit %d
`, exitCode)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestCompileSucceedsAndWritesObjects(t *testing.T) {
	cacheDir := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "a.cc")
	require.NoError(t, os.WriteFile(src, []byte("int main(){}"), 0o644))

	env := &buildenv.Environment{
		Toolchain: buildenv.Toolchain{CXX: fakeCompiler(t, 0), CC: fakeCompiler(t, 0)},
	}
	plan := compiler.BuildPlan{Env: env, Std: "c++20"}

	tu := compiler.TranslationUnit{
		Lang:       layout.LangCxx,
		SrcPath:    src,
		RelSrcPath: src,
		ObjPath:    filepath.Join(cacheDir, "a.o"),
		DepPath:    filepath.Join(cacheDir, "a.d"),
	}

	pool := workpool.New(context.Background(), 2)
	defer pool.Close()

	err := compiler.Compile(context.Background(), pool, plan, "cxx", []compiler.TranslationUnit{tu})
	require.NoError(t, err)

	_, err = os.Stat(tu.ObjPath)
	require.NoError(t, err)
}

func TestCompileAggregatesFailures(t *testing.T) {
	cacheDir := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "bad.cc")
	require.NoError(t, os.WriteFile(src, []byte("!!!"), 0o644))

	env := &buildenv.Environment{
		Toolchain: buildenv.Toolchain{CXX: fakeCompiler(t, 1), CC: fakeCompiler(t, 1)},
	}
	plan := compiler.BuildPlan{Env: env, Std: "c++20"}

	tu := compiler.TranslationUnit{
		Lang:       layout.LangCxx,
		SrcPath:    src,
		RelSrcPath: src,
		ObjPath:    filepath.Join(cacheDir, "bad.o"),
		DepPath:    filepath.Join(cacheDir, "bad.d"),
	}

	pool := workpool.New(context.Background(), 2)
	defer pool.Close()

	err := compiler.Compile(context.Background(), pool, plan, "cxx", []compiler.TranslationUnit{tu})
	require.Error(t, err)
}

func TestHewgsymSourceEmitsAllFourSymbols(t *testing.T) {
	src := compiler.HewgsymSource("crow", 1, 2, 3, "rc1", "build9", 1700000000)
	assert.Contains(t, src, "__hewg_version_package_crow[3] = { 1, 2, 3 }")
	assert.Contains(t, src, `__hewg_prerelease_package_crow = "rc1"`)
	assert.Contains(t, src, `__hewg_metadata_package_crow = "build9"`)
	assert.Contains(t, src, "__hewg_build_date_package_crow = 1700000000L")
}

func TestHewgsymPathLivesUnderCacheRoot(t *testing.T) {
	src, obj := compiler.HewgsymPath("/cache")
	assert.Equal(t, "/cache/hewgsyms.c", src)
	assert.Equal(t, "/cache/hewgsyms.o", obj)
}
