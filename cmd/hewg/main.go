// Command hewg drives the C/C++ build system and package manager core
// packages under internal/. Per spec.md §1, the CLI surface, option
// parsing, and init templates are collaborators at the core's interface,
// not the core itself; this entrypoint is the thin wiring that gives the
// core packages a real caller, in the same cobra-subcommand-per-file shape
// the teacher uses (main.go + cmd_*.go, one init() per subcommand).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/go-containerregistry/pkg/logs"
	"github.com/spf13/cobra"

	"github.com/datawire/dlib/dlog"

	"github.com/corvid3/hewg/internal/cliutil"
)

// version is overridden at link time with -ldflags, the way the teacher's
// own release tooling stamps its binaries; "devel" is the fallback for a
// plain build.
var version = "devel"

// Global flags, bound once in init() below and read by subcommands. These
// are deliberately the only package-level state in cmd/hewg: everything
// derived from them (target, toolchain, cache roots) is built fresh as a
// buildenv.Environment per invocation rather than cached in a singleton
// (spec.md §9, "No global state leaks").
var (
	flagForce   bool
	flagSkip    bool
	flagVerbose bool
	flagTasks   int
	flagConfig  string
)

var argparser = &cobra.Command{
	Use:   "hewg {[flags]|SUBCOMMAND...}",
	Short: "A C/C++ build system and package manager",

	Args: cliutil.OnlySubcommands,
	RunE: cliutil.RunSubcommands,

	Version: version,

	SilenceErrors: true, // main() reports the error itself
	SilenceUsage:  true, // our FlagErrorFunc reports usage
}

func init() {
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)

	flags := argparser.PersistentFlags()
	flags.BoolVar(&flagForce, "force", false,
		"Proceed past a hewg-version mismatch as a warning instead of a fatal error")
	flags.BoolVarP(&flagSkip, "skip", "s", false,
		"Skip the countdown before destructive operations")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false,
		"Print every compile command before it runs (link commands are not printed)")
	flags.IntVarP(&flagTasks, "tasks", "j", defaultTasks(),
		"Number of parallel compile jobs")
	flags.StringVarP(&flagConfig, "config", "c", "hewg.scl",
		"Path to the project manifest")
}

func main() {
	ctx := context.Background()

	logLevel := dlog.LogLevelInfo
	if flagVerbose {
		logLevel = dlog.LogLevelDebug
	}
	logs.Warn = dlog.StdLogger(ctx, dlog.LogLevelWarn)
	logs.Progress = dlog.StdLogger(ctx, logLevel)
	logs.Debug = dlog.StdLogger(ctx, dlog.LogLevelDebug)

	if err := argparser.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(argparser.ErrOrStderr(), "%s: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
