package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/datawire/dlib/dlog"

	"github.com/corvid3/hewg/internal/buildenv"
	"github.com/corvid3/hewg/internal/compiler"
	"github.com/corvid3/hewg/internal/hooks"
	"github.com/corvid3/hewg/internal/identity"
	"github.com/corvid3/hewg/internal/installer"
	"github.com/corvid3/hewg/internal/layout"
	"github.com/corvid3/hewg/internal/linker"
	"github.com/corvid3/hewg/internal/manifest"
	"github.com/corvid3/hewg/internal/pkgdb"
	"github.com/corvid3/hewg/internal/resolver"
	"github.com/corvid3/hewg/internal/runner"
	"github.com/corvid3/hewg/internal/staleness"
	"github.com/corvid3/hewg/internal/workpool"
)

func init() {
	var flagRelease bool
	var flagInstall bool
	var flagTarget string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile and link the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), buildOptions{
				release: flagRelease,
				install: flagInstall,
				target:  flagTarget,
			})
		},
	}
	cmd.Flags().BoolVar(&flagRelease, "release", false, "Build with optimizations and no debug info")
	cmd.Flags().BoolVar(&flagInstall, "install", false, "Install the built artifact into the package store")
	cmd.Flags().StringVar(&flagTarget, "target", "", "Target triplet to build for (default: the host triplet)")

	argparser.AddCommand(cmd)
}

type buildOptions struct {
	release bool
	install bool
	target  string
}

// compiledProfile is the object files of every TU (in both languages, stale
// ones freshly compiled) for one (PIC/non-PIC) pass, plus the always-regenerated
// hewgsym object (spec.md §4.8).
type compiledProfile struct {
	pic     buildenv.PIC
	objects []string
}

func runBuild(ctx context.Context, opts buildOptions) error {
	m, err := manifest.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	ptype, err := m.PackageType()
	if err != nil {
		return err
	}

	target := buildenv.HostTarget()
	if opts.target != "" {
		target, err = identity.ParseTargetTriplet(opts.target)
		if err != nil {
			return err
		}
	}

	home, err := hewgHome()
	if err != nil {
		return err
	}
	toolchain, err := buildenv.LoadToolchain(filepath.Join(home, "targets", target.String()))
	if err != nil {
		return fmt.Errorf("loading toolchain descriptor for %s: %w", target, err)
	}

	env := &buildenv.Environment{
		Target:    target,
		Toolchain: toolchain,
		Clock:     buildenv.NewClock(),
		Release:   opts.release,
		Force:     flagForce,
		Skip:      flagSkip,
		Verbose:   flagVerbose,
		Tasks:     flagTasks,
	}

	rootID, err := m.Identifier(target)
	if err != nil {
		return err
	}

	db, err := pkgdb.Open(filepath.Join(home, "package_db.json"))
	if err != nil {
		return err
	}
	for _, warning := range pkgdb.SanityCheckLegacyVersions(db) {
		dlog.Warnf(ctx, "package db: %s", warning)
	}

	internalDeps, err := parseDependencyIdents(m.Depends.Internal, target)
	if err != nil {
		return err
	}
	externalDeps, err := parseDependencyIdents(m.Depends.External, target)
	if err != nil {
		return err
	}

	store := installer.Store{Root: home}
	_, includeSet, linkSet, diag, err := resolver.Resolve(rootID, "include", internalDeps, externalDeps, db, packageLoader(store))
	if err != nil {
		return err
	}
	for _, conflict := range diag.IncludeSetConflicts {
		dlog.Warnf(ctx, "include set conflict: %s", conflict)
	}

	hookCache, err := hooks.Open(filepath.Join(".hcache", "hooks.json"))
	if err != nil {
		return err
	}
	prebuild := hooks.HookSet{Once: m.Hooks.Prebuild.Once, Always: m.Hooks.Prebuild.Always}
	postbuild := hooks.HookSet{Once: m.Hooks.Postbuild.Once, Always: m.Hooks.Postbuild.Always}
	if err := hooks.Run(hookCache, prebuild, runShellHook(ctx)); err != nil {
		return fmt.Errorf("prebuild hook: %w", err)
	}

	pool := workpool.New(ctx, env.Tasks)
	defer pool.Close()

	var profiles []compiledProfile
	switch ptype {
	case manifest.Executable:
		profile, err := buildProfile(ctx, pool, env, m, includeSet.Dirs, rootID, buildenv.NonPIC)
		if err != nil {
			return err
		}
		profiles = append(profiles, profile)
	case manifest.StaticLibrary:
		for _, pic := range []buildenv.PIC{buildenv.NonPIC, buildenv.WantPIC} {
			profile, err := buildProfile(ctx, pool, env, m, includeSet.Dirs, rootID, pic)
			if err != nil {
				return err
			}
			profiles = append(profiles, profile)
		}
	case manifest.SharedLibrary:
		profile, err := buildProfile(ctx, pool, env, m, includeSet.Dirs, rootID, buildenv.WantPIC)
		if err != nil {
			return err
		}
		profiles = append(profiles, profile)
	case manifest.Headers:
		// nothing to compile
	}

	targetDir := filepath.Join("target", target.String())
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}

	staticArchivePaths, err := canonicalStaticArchives(store, linkSet.StaticArchives)
	if err != nil {
		return err
	}
	nativeLibs := append(append([]string{}, m.Libraries.Native...), linkSet.SharedLibs...)

	var built installer.BuiltArtifact
	switch ptype {
	case manifest.Executable:
		exe, err := linker.LinkExecutable(ctx, linker.ExecutableSpec{
			Env:            env,
			Project:        m.Project.Name,
			TargetDir:      targetDir,
			Objects:        profiles[0].objects,
			Linker:         env.Toolchain.LD,
			NativeLibs:     nativeLibs,
			StaticArchives: staticArchivePaths,
		})
		if err != nil {
			return err
		}
		built = installer.BuiltArtifact{Type: ptype, ExecutablePath: exe}

	case manifest.StaticLibrary:
		result, err := linker.LinkStaticArchive(ctx, linker.StaticArchiveSpec{
			Env:           env,
			Project:       m.Project.Name,
			TargetDir:     targetDir,
			NonPICObjects: profiles[0].objects,
			PICObjects:    profiles[1].objects,
		})
		if err != nil {
			return err
		}
		built = installer.BuiltArtifact{
			Type:         ptype,
			ArchivePaths: []string{result.NonPICPath, result.PICPath},
			IncludeDir:   "include",
		}

	case manifest.SharedLibrary:
		so, err := linker.LinkSharedLibrary(ctx, linker.SharedLibrarySpec{
			Env:            env,
			Project:        m.Project.Name,
			TargetDir:      targetDir,
			PICObjects:     profiles[0].objects,
			Linker:         env.Toolchain.LD,
			NativeLibs:     nativeLibs,
			StaticArchives: staticArchivePaths,
		})
		if err != nil {
			return err
		}
		built = installer.BuiltArtifact{Type: ptype, ExecutablePath: so}

	case manifest.Headers:
		built = installer.BuiltArtifact{Type: ptype, IncludeDir: "include"}
	}

	if err := hooks.Run(hookCache, postbuild, runShellHook(ctx)); err != nil {
		return fmt.Errorf("postbuild hook: %w", err)
	}
	if err := hookCache.Save(); err != nil {
		return err
	}

	if opts.install {
		if err := countdown(ctx, flagSkip, "replacing any existing install of "+rootID.String(), 3); err != nil {
			return err
		}
		if err := installer.Install(store, rootID, internalDeps, externalDeps, built, db); err != nil {
			return err
		}
		dlog.Infof(ctx, "installed %s", rootID)
	}

	return nil
}

// buildProfile runs staleness analysis and compilation for every declared
// language under one (PIC/non-PIC) cache profile, then compiles the
// always-regenerated hewgsym TU into the same profile (spec.md §4.8).
func buildProfile(
	ctx context.Context,
	pool *workpool.Pool,
	env *buildenv.Environment,
	m manifest.Manifest,
	includeDirs []string,
	rootID identity.PackageIdentifier,
	pic buildenv.PIC,
) (compiledProfile, error) {
	cacheDir := filepath.Join(".hcache", "incremental", cacheKey(env.Target, env.Release, pic))
	cache := layout.Cache{Dir: cacheDir}

	var objects []string

	langs := []struct {
		name  string
		lang  layout.Language
		std   int
		flags []string
		srcs  []string
	}{
		{"cxx", layout.LangCxx, m.Cxx.Std, m.Cxx.Flags, m.Cxx.Sources},
		{"c", layout.LangC, m.C.Std, m.C.Flags, m.C.Sources},
	}

	for _, l := range langs {
		if len(l.srcs) == 0 {
			continue
		}
		srcRoot := sourceRoot(l.name)

		plan := compiler.BuildPlan{
			Env:           env,
			PIC:           pic,
			Std:           compiler.LanguageStandard(l.lang, l.std),
			ManifestFlags: l.flags,
			IncludeDirs:   includeDirs,
		}

		tus := make(map[string]compiler.TranslationUnit, len(l.srcs))
		for _, src := range l.srcs {
			objPath, err := cache.ObjectPath(l.lang, srcRoot, src)
			if err != nil {
				return compiledProfile{}, err
			}
			depPath, err := cache.DepfilePath(l.lang, srcRoot, src)
			if err != nil {
				return compiledProfile{}, err
			}
			tus[src] = compiler.TranslationUnit{
				Lang: l.lang, SrcPath: src, RelSrcPath: src,
				ObjPath: objPath, DepPath: depPath,
			}
		}

		paths := cachePathFor{cache: cache, lang: l.lang, srcRoot: srcRoot}
		stale, err := staleness.Select(paths, l.srcs, readDepfile)
		if err != nil {
			return compiledProfile{}, err
		}

		var staleTUs []compiler.TranslationUnit
		for _, src := range stale {
			staleTUs = append(staleTUs, tus[src])
		}
		if err := compiler.Compile(ctx, pool, plan, l.name, staleTUs); err != nil {
			return compiledProfile{}, err
		}

		for _, src := range l.srcs {
			objects = append(objects, tus[src].ObjPath)
		}
	}

	hewgsymObj, err := compileHewgsym(ctx, pool, env, m, rootID, cacheDir, pic)
	if err != nil {
		return compiledProfile{}, err
	}
	objects = append(objects, hewgsymObj)

	return compiledProfile{pic: pic, objects: objects}, nil
}

// compileHewgsym (re)generates and compiles the synthetic hewgsym TU into
// cacheDir. It is never staleness-gated: spec.md §4.8 requires it be
// regenerated every build to keep its embedded timestamp fresh.
func compileHewgsym(
	ctx context.Context,
	pool *workpool.Pool,
	env *buildenv.Environment,
	m manifest.Manifest,
	rootID identity.PackageIdentifier,
	cacheDir string,
	pic buildenv.PIC,
) (string, error) {
	pre, _ := rootID.Version.Prerelease()
	meta, _ := rootID.Version.Build()

	src, obj := compiler.HewgsymPath(cacheDir)
	text := compiler.HewgsymSource(
		m.Project.Name,
		rootID.Version.Major(), rootID.Version.Minor(), rootID.Version.Patch(),
		pre, meta, env.Clock.Now().Unix(),
	)
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(src, []byte(text), 0o644); err != nil {
		return "", err
	}

	dep := obj + ".d"
	plan := compiler.BuildPlan{Env: env, PIC: pic, Std: compiler.LanguageStandard(layout.LangC, 0)}
	tu := compiler.TranslationUnit{Lang: layout.LangC, SrcPath: src, RelSrcPath: src, ObjPath: obj, DepPath: dep}
	if err := compiler.Compile(ctx, pool, plan, "c", []compiler.TranslationUnit{tu}); err != nil {
		return "", err
	}
	return obj, nil
}

// cacheKey renders the per-profile cache folder name, spec.md §3:
// "<target>[-pic][-rel]".
func cacheKey(target identity.TargetTriplet, release bool, pic buildenv.PIC) string {
	key := target.String()
	if bool(pic) {
		key += "-pic"
	}
	if release {
		key += "-rel"
	}
	return key
}

// cachePathFor adapts layout.Cache to staleness.PathFor for one language and
// source root, so internal/staleness doesn't need to import internal/layout.
type cachePathFor struct {
	cache   layout.Cache
	lang    layout.Language
	srcRoot string
}

func (p cachePathFor) DepfilePath(srcPath string) (string, error) {
	return p.cache.DepfilePath(p.lang, p.srcRoot, srcPath)
}

func (p cachePathFor) ObjectPath(srcPath string) (string, error) {
	return p.cache.ObjectPath(p.lang, p.srcRoot, srcPath)
}

// runShellHook adapts internal/runner.Run to the func(name string) error
// callback internal/hooks.Run expects, running each hook name as a shell
// command line (spec.md §6's hook entries are shell snippets, not hook
// identifiers). internal/hooks never spawns a process itself (spec.md §1
// Non-goal); this CLI layer is the "caller-supplied callback" SPEC_FULL.md
// §4 describes.
func runShellHook(ctx context.Context) func(name string) error {
	return func(command string) error {
		dlog.Infof(ctx, "hook: %s", command)
		result, err := runner.Run(ctx, []string{"/bin/sh", "-c", command})
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("hook %q exited %d: %s", command, result.ExitCode, result.Output)
		}
		return nil
	}
}

func readDepfile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parseDependencyIdents(texts []string, target identity.TargetTriplet) ([]identity.DependencyIdentifier, error) {
	out := make([]identity.DependencyIdentifier, 0, len(texts))
	for _, text := range texts {
		dep, err := identity.ParseDependencyIdentifier(text, target)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

// packageLoader reads a selected dependency's manifest.json and derives its
// public include directory from the package store, satisfying
// resolver.PackageInfoLoader.
func packageLoader(store installer.Store) resolver.PackageInfoLoader {
	return func(id identity.PackageIdentifier) (manifest.PackageInfo, string, error) {
		dir := filepath.Join(store.Root, "packages", id.String())
		data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
		if err != nil {
			return manifest.PackageInfo{}, "", err
		}
		var info manifest.PackageInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return manifest.PackageInfo{}, "", err
		}
		return info, filepath.Join(dir, "include", id.Name), nil
	}
}

// canonicalStaticArchives resolves every link-set package identifier to the
// absolute canonical path of its non-PIC archive in the package store
// (spec.md §4.9).
func canonicalStaticArchives(store installer.Store, ids []identity.PackageIdentifier) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		dir := filepath.Join(store.Root, "packages", id.String())
		path, err := filepath.Abs(filepath.Join(dir, layout.StaticArchiveName(id.Name)))
		if err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}
