package grass

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mmr-tortoise/r-out-rgb/internal/logging"
)

// stderrTailLines limits how much module stderr ends up in error messages.
const stderrTailLines = 5

// Invocation describes a single module call.
type Invocation struct {
	// Module is the GRASS module name, e.g. "i.group".
	Module string

	// Args are the module arguments in GRASS syntax (key=value, -f, --quiet).
	Args []string

	// Silent discards everything the module writes to stdout and stderr.
	// Only cleanup calls use it.
	Silent bool
}

// String renders the invocation as it would be typed in a shell.
func (inv Invocation) String() string {
	if len(inv.Args) == 0 {
		return inv.Module
	}
	return inv.Module + " " + strings.Join(inv.Args, " ")
}

// Runner executes a module invocation and returns its stdout.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (string, error)
}

// CommandError reports a failed module call.
type CommandError struct {
	Invocation Invocation

	// Stderr is the trailing part of the module's stderr, if captured.
	Stderr string

	// Stdout is whatever the module printed before failing. Some modules
	// (g.findfile) report results on stdout and still exit non-zero.
	Stdout string

	Err error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Invocation.Module)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs modules as child processes.
//
// Children inherit the environment of this process at the moment they are
// started, so environment overrides applied around a call are visible to
// that call (and to GDAL inside it).
type ExecRunner struct {
	// GISBase, when non-empty, is searched for module executables before PATH.
	GISBase string

	// Stderr receives module stderr for non-silent calls, in addition to
	// the copy kept for error messages. Nil means os.Stderr.
	Stderr io.Writer

	logger zerolog.Logger
}

// NewExecRunner creates an ExecRunner for the given GRASS installation.
func NewExecRunner(gisBase string) *ExecRunner {
	return &ExecRunner{
		GISBase: gisBase,
		logger:  logging.GetLogger("grass"),
	}
}

// Run executes the module and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (string, error) {
	path := r.resolve(inv.Module)
	logging.LogCommand(r.logger, path, inv.Args)

	// #nosec G204 — the module name is a constant from this package.
	cmd := exec.CommandContext(ctx, path, inv.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if inv.Silent {
		// Only stdout is kept; it carries no user-facing noise and lets
		// callers parse key=value results.
		cmd.Stderr = io.Discard
	} else {
		passthrough := r.Stderr
		if passthrough == nil {
			passthrough = os.Stderr
		}
		cmd.Stderr = io.MultiWriter(passthrough, &stderr)
	}

	if err := cmd.Run(); err != nil {
		return stdout.String(), &CommandError{
			Invocation: inv,
			Stderr:     tail(stderr.String(), stderrTailLines),
			Stdout:     stdout.String(),
			Err:        err,
		}
	}
	return stdout.String(), nil
}

// resolve returns the executable path for a module. Python modules live in
// $GISBASE/scripts, compiled ones in $GISBASE/bin.
func (r *ExecRunner) resolve(module string) string {
	if r.GISBase == "" {
		return module
	}
	for _, dir := range []string{"bin", "scripts"} {
		candidate := filepath.Join(r.GISBase, dir, module)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return module
}

// tail returns the last n non-empty lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimSpace(line))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "; ")
}
