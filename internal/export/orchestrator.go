// Package export runs the RGB GeoTIFF export: group the three bands,
// then write the group with r.out.gdal while COMPRESS_OVERVIEW is forced
// to LZW.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mmr-tortoise/r-out-rgb/internal/envguard"
	"github.com/mmr-tortoise/r-out-rgb/internal/logging"
	"github.com/mmr-tortoise/r-out-rgb/internal/model"
	"github.com/mmr-tortoise/r-out-rgb/internal/resource"
)

// CompressOverviewEnv is read by GDAL when it builds overviews.
const CompressOverviewEnv = "COMPRESS_OVERVIEW"

// OverviewCompression is the value forced during the export call.
const OverviewCompression = "LZW"

// Errors returned by Export, wrapping the toolkit error.
var (
	ErrCreateGroup = errors.New("failed to create group")
	ErrExportGroup = errors.New("failed to export group")
)

// Toolkit is the part of the GRASS toolkit the orchestrator drives.
type Toolkit interface {
	CreateGroup(ctx context.Context, name string, layers []string) error
	ExportGroup(ctx context.Context, group, output string, opts model.ExportOptions) error
}

// Result describes a completed export.
type Result struct {
	Group   string              `json:"group"`
	Output  string              `json:"output"`
	Bands   model.BandTriple    `json:"bands"`
	Options model.ExportOptions `json:"options"`
}

// Orchestrator exports band triples. The tracker is owned by the caller,
// who is responsible for releasing it.
type Orchestrator struct {
	toolkit Toolkit
	tracker *resource.Tracker
	options model.ExportOptions
	newName func() string
	logger  zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNameGenerator replaces the group name generator.
func WithNameGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newName = fn
	}
}

// New creates an Orchestrator using the default export options.
func New(toolkit Toolkit, tracker *resource.Tracker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		toolkit: toolkit,
		tracker: tracker,
		options: model.DefaultExportOptions(),
		newName: model.NewGroupName,
		logger:  logging.GetLogger("export"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Export groups bands under a fresh ephemeral name and writes the group
// to output. The group name is tracked before i.group runs; removing the
// group is left to the tracker's owner.
func (o *Orchestrator) Export(ctx context.Context, bands model.BandTriple, output string) (*Result, error) {
	o.logger.Info().Msg("Export RGB GeoTiff...")

	group := o.newName()
	o.tracker.Track(group)

	log := o.logger.With().Str("group", group).Str("output", output).Logger()
	log.Debug().Strs("layers", bands.Layers()).Msg("Creating group")

	if err := o.toolkit.CreateGroup(ctx, group, bands.Layers()); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrCreateGroup, group, err)
	}

	if err := o.exportWithOverride(ctx, group, output); err != nil {
		return nil, err
	}

	return &Result{
		Group:   group,
		Output:  output,
		Bands:   bands,
		Options: o.options,
	}, nil
}

// exportWithOverride runs the export with COMPRESS_OVERVIEW forced to LZW.
// The previous value, or its absence, is restored on every return path.
func (o *Orchestrator) exportWithOverride(ctx context.Context, group, output string) (err error) {
	guard, err := envguard.Set(CompressOverviewEnv, OverviewCompression)
	if err != nil {
		return fmt.Errorf("%w %q: %w", ErrExportGroup, group, err)
	}
	defer func() {
		// A restore failure only matters if the export itself went fine.
		if restoreErr := guard.Restore(); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()

	done := logging.LogOperationStart(o.logger, "r.out.gdal")
	defer done()

	if err := o.toolkit.ExportGroup(ctx, group, output, o.options); err != nil {
		return fmt.Errorf("%w %q: %w", ErrExportGroup, group, err)
	}
	return nil
}
