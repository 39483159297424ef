// Package runner spawns child processes, capturing merged stdout+stderr and
// enforcing an output cap, for the compile and link drivers.
//
// Grounded on original_source/src/compile.cc / src/link.cc's process-spawn
// helper and spec.md §4.7. Command execution itself is delegated to
// github.com/datawire/dlib/dexec the way the teacher's pkg/gobuild and
// pkg/dockerutil do it, for dlog-aware cancellation and logging integration.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/datawire/dlib/dexec"
)

// MaxOutput is the 5 MiB output cap from spec.md §4.7.
const MaxOutput = 5 * 1024 * 1024

// SpawnError reports that the child process could not even be started.
type SpawnError struct {
	Argv []string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning %v: %v", e.Argv, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// AbnormalTerminationError reports a process that was killed by a signal or
// otherwise did not exit normally. A plain nonzero exit code is NOT this
// error — it's returned in Result.ExitCode instead.
type AbnormalTerminationError struct {
	Argv []string
	Err  error
}

func (e *AbnormalTerminationError) Error() string {
	return fmt.Sprintf("abnormal termination of %v: %v", e.Argv, e.Err)
}

func (e *AbnormalTerminationError) Unwrap() error { return e.Err }

// OutputTooLargeError reports that a child's combined stdout+stderr
// exceeded MaxOutput.
type OutputTooLargeError struct {
	Argv  []string
	Limit int
}

func (e *OutputTooLargeError) Error() string {
	return fmt.Sprintf("output of %v exceeded %d bytes", e.Argv, e.Limit)
}

// Result is the outcome of a completed (not abnormally-terminated) process.
type Result struct {
	ExitCode int
	Output   []byte
}

// cappedBuffer hard-errors once more than limit bytes have been written,
// so a runaway child can't exhaust memory.
type cappedBuffer struct {
	buf      bytes.Buffer
	limit    int
	exceeded bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.buf.Len()+len(p) > c.limit {
		c.exceeded = true
		return 0, errors.New("output limit exceeded")
	}
	return c.buf.Write(p)
}

// Run spawns argv[0] with argv[1:], waits for it to finish, and returns its
// exit code and captured merged output. A spawn failure or abnormal
// termination (signal, etc.) is a hard error; a nonzero but normal exit
// code is returned in Result, not raised.
func Run(ctx context.Context, argv []string) (Result, error) {
	cmd := dexec.CommandContext(ctx, argv[0], argv[1:]...)

	out := &cappedBuffer{limit: MaxOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if out.exceeded {
		return Result{}, &OutputTooLargeError{Argv: argv, Limit: MaxOutput}
	}

	if err == nil {
		return Result{ExitCode: 0, Output: out.buf.Bytes()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Exited() {
			return Result{ExitCode: exitErr.ExitCode(), Output: out.buf.Bytes()}, nil
		}
		// killed by signal, or some other abnormal termination
		return Result{}, &AbnormalTerminationError{Argv: argv, Err: err}
	}

	return Result{}, &SpawnError{Argv: argv, Err: err}
}
