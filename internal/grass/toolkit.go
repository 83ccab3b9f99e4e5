package grass

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mmr-tortoise/r-out-rgb/internal/config"
	"github.com/mmr-tortoise/r-out-rgb/internal/logging"
	"github.com/mmr-tortoise/r-out-rgb/internal/model"
)

// Module names used by the toolkit.
const (
	ModuleGroup    = "i.group"
	ModuleExport   = "r.out.gdal"
	ModuleFindFile = "g.findfile"
	ModuleRemove   = "g.remove"
)

// ErrNoSession is returned by Open when no GRASS session is active.
var ErrNoSession = errors.New("not inside a GRASS session (GISRC is not set)")

// Toolkit exposes the four GRASS operations the exporter needs.
type Toolkit struct {
	runner    Runner
	verbosity int
	logger    zerolog.Logger
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithVerbosity sets the GRASS verbosity used for the main module calls.
// Level 3 and above runs them with --verbose, anything else with --quiet.
func WithVerbosity(verbosity int) Option {
	return func(t *Toolkit) {
		t.verbosity = verbosity
	}
}

// NewToolkit creates a Toolkit that executes modules through runner.
func NewToolkit(runner Runner, opts ...Option) *Toolkit {
	t := &Toolkit{
		runner:    runner,
		verbosity: logging.VerbosityStandard,
		logger:    logging.GetLogger("grass"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open returns a Toolkit backed by real module processes. It fails with
// ErrNoSession when cfg does not describe an active GRASS session.
func Open(cfg config.Config, verbosity int) (*Toolkit, error) {
	if !cfg.InSession() {
		return nil, ErrNoSession
	}
	return NewToolkit(NewExecRunner(cfg.GISBase), WithVerbosity(verbosity)), nil
}

// CreateGroup runs i.group to bundle layers into the imagery group name.
// Layer order is preserved; it becomes the band order of the group.
func (t *Toolkit) CreateGroup(ctx context.Context, name string, layers []string) error {
	inv := Invocation{
		Module: ModuleGroup,
		Args: []string{
			"group=" + name,
			"input=" + strings.Join(layers, ","),
			t.verbosityFlag(),
		},
	}
	_, err := t.runner.Run(ctx, inv)
	return err
}

// ExportGroup runs r.out.gdal to write the group to output as a GeoTIFF.
func (t *Toolkit) ExportGroup(ctx context.Context, group, output string, opts model.ExportOptions) error {
	args := []string{
		"input=" + group,
		"output=" + output,
		"format=GTiff",
	}
	if createOpt := opts.CreateOpt(); createOpt != "" {
		args = append(args, "createopt="+createOpt)
	}
	if opts.Overviews > 0 {
		args = append(args, "overviews="+strconv.Itoa(opts.Overviews))
	}
	args = append(args, t.verbosityFlag())

	_, err := t.runner.Run(ctx, Invocation{Module: ModuleExport, Args: args})
	return err
}

// Exists reports whether an element of the given kind named name is
// visible from the current mapset search path.
//
// g.findfile prints key=value pairs and exits non-zero when nothing is
// found, so a failed call with parseable output counts as "not found".
func (t *Toolkit) Exists(ctx context.Context, name string, kind model.ElementKind) (bool, error) {
	inv := Invocation{
		Module: ModuleFindFile,
		Args: []string{
			"-n",
			"element=" + findFileElement(kind),
			"file=" + name,
		},
		Silent: true,
	}

	stdout, err := t.runner.Run(ctx, inv)
	values := parseKeyValues(stdout)
	file, reported := values["file"]
	if err != nil && !reported {
		return false, err
	}

	t.logger.Debug().
		Str("name", name).
		Str("kind", kind.String()).
		Bool("found", file != "").
		Msg("Catalog lookup")
	return file != "", nil
}

// Remove deletes the element with g.remove -f. The call is silent: all
// module output is discarded.
func (t *Toolkit) Remove(ctx context.Context, name string, kind model.ElementKind) error {
	inv := Invocation{
		Module: ModuleRemove,
		Args: []string{
			"-f",
			"type=" + kind.String(),
			"name=" + name,
			"--quiet",
		},
		Silent: true,
	}
	if _, err := t.runner.Run(ctx, inv); err != nil {
		return fmt.Errorf("remove %s %q: %w", kind, name, err)
	}
	return nil
}

func (t *Toolkit) verbosityFlag() string {
	if t.verbosity >= logging.VerbosityVerbose {
		return "--verbose"
	}
	return "--quiet"
}

// findFileElement maps an element kind to the database element name that
// g.findfile expects. Raster maps are stored in the "cell" element.
func findFileElement(kind model.ElementKind) string {
	switch kind {
	case model.ElementRaster:
		return "cell"
	default:
		return kind.String()
	}
}

// parseKeyValues parses shell-style key=value output, one pair per line.
// Surrounding single or double quotes around values are removed.
func parseKeyValues(output string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(value, `"'`)
	}
	return values
}
