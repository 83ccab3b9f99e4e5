package grass

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeModule creates a fake module executable in <gisbase>/<dir>.
func writeModule(t *testing.T, gisBase, dir, name, script string) {
	t.Helper()

	binDir := filepath.Join(gisBase, dir)
	require.NoError(t, os.MkdirAll(binDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\n"+script), 0755))
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script modules require a POSIX shell")
	}
}

// TestExecRunner_InheritsEnvironment verifies that a module sees the
// environment of this process at call time.
func TestExecRunner_InheritsEnvironment(t *testing.T) {
	skipWithoutShell(t)
	gisBase := t.TempDir()
	writeModule(t, gisBase, "bin", "r.out.gdal", `echo "COMPRESS_OVERVIEW=$COMPRESS_OVERVIEW"`)

	t.Setenv("COMPRESS_OVERVIEW", "LZW")

	r := NewExecRunner(gisBase)
	out, err := r.Run(context.Background(), Invocation{Module: "r.out.gdal"})
	require.NoError(t, err)
	assert.Equal(t, "COMPRESS_OVERVIEW=LZW\n", out)
}

func TestExecRunner_ScriptsDir(t *testing.T) {
	skipWithoutShell(t)
	gisBase := t.TempDir()
	writeModule(t, gisBase, "scripts", "r.out.rgb.helper", `echo "$@"`)

	r := NewExecRunner(gisBase)
	out, err := r.Run(context.Background(), Invocation{Module: "r.out.rgb.helper", Args: []string{"a=1", "b=2"}})
	require.NoError(t, err)
	assert.Equal(t, "a=1 b=2\n", out)
}

// TestExecRunner_Failure checks the CommandError contents and that stderr
// reaches the passthrough writer for non-silent calls.
func TestExecRunner_Failure(t *testing.T) {
	skipWithoutShell(t)
	gisBase := t.TempDir()
	writeModule(t, gisBase, "bin", "i.group", "echo 'partial'\necho 'ERROR: Raster map <r1> not found' >&2\nexit 1\n")

	var passthrough bytes.Buffer
	r := NewExecRunner(gisBase)
	r.Stderr = &passthrough

	out, err := r.Run(context.Background(), Invocation{Module: "i.group", Args: []string{"group=g"}})
	require.Error(t, err)
	assert.Equal(t, "partial\n", out)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "i.group", cmdErr.Invocation.Module)
	assert.Equal(t, "ERROR: Raster map <r1> not found", cmdErr.Stderr)
	assert.Contains(t, cmdErr.Error(), "i.group failed")
	assert.Contains(t, passthrough.String(), "Raster map <r1> not found")
}

func TestExecRunner_SilentDiscardsStderr(t *testing.T) {
	skipWithoutShell(t)
	gisBase := t.TempDir()
	writeModule(t, gisBase, "bin", "g.remove", "echo 'Removing group' >&2\nexit 1\n")

	var passthrough bytes.Buffer
	r := NewExecRunner(gisBase)
	r.Stderr = &passthrough

	_, err := r.Run(context.Background(), Invocation{Module: "g.remove", Silent: true})
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Empty(t, cmdErr.Stderr)
	assert.Empty(t, passthrough.String())
}

func TestExecRunner_ResolveFallsBackToName(t *testing.T) {
	r := NewExecRunner(t.TempDir())
	assert.Equal(t, "g.region", r.resolve("g.region"))

	r = NewExecRunner("")
	assert.Equal(t, "g.region", r.resolve("g.region"))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "c; d", tail("a\n\nb\nc\n  \nd\n", 2))
	assert.Equal(t, "", tail("", 3))
	assert.Equal(t, "only", tail("only\n", 3))
}
