package export

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/r-out-rgb/internal/model"
	"github.com/mmr-tortoise/r-out-rgb/internal/resource"
)

// fakeToolkit records calls and the observable process state at the time
// of each call.
type fakeToolkit struct {
	tracker *resource.Tracker

	createErr error
	exportErr error

	groupName       string
	groupLayers     []string
	trackedAtCreate []string

	exportCalled  bool
	exportGroup   string
	exportOutput  string
	exportOptions model.ExportOptions
	envAtExport   string
	envSetAtExp   bool
}

func (f *fakeToolkit) CreateGroup(_ context.Context, name string, layers []string) error {
	f.groupName = name
	f.groupLayers = layers
	f.trackedAtCreate = f.tracker.Names()
	return f.createErr
}

func (f *fakeToolkit) ExportGroup(_ context.Context, group, output string, opts model.ExportOptions) error {
	f.exportCalled = true
	f.exportGroup = group
	f.exportOutput = output
	f.exportOptions = opts
	f.envAtExport, f.envSetAtExp = os.LookupEnv(CompressOverviewEnv)
	return f.exportErr
}

// nopCatalog satisfies resource.Catalog for trackers that are never released.
type nopCatalog struct{}

func (nopCatalog) Exists(context.Context, string, model.ElementKind) (bool, error) { return false, nil }
func (nopCatalog) Remove(context.Context, string, model.ElementKind) error         { return nil }

func newFixture() (*Orchestrator, *fakeToolkit, *resource.Tracker) {
	tracker := resource.NewTracker(nopCatalog{})
	tk := &fakeToolkit{tracker: tracker}
	return New(tk, tracker), tk, tracker
}

func unsetEnv(t *testing.T) {
	t.Helper()
	t.Setenv(CompressOverviewEnv, "")
	require.NoError(t, os.Unsetenv(CompressOverviewEnv))
}

var bands = model.BandTriple{Red: "r1", Green: "g1", Blue: "b1"}

// TestExport_Success covers the happy path: group from [r1,g1,b1], export
// with the fixed options, LZW during the call, nothing left afterwards.
func TestExport_Success(t *testing.T) {
	unsetEnv(t)
	o, tk, tracker := newFixture()

	res, err := o.Export(context.Background(), bands, "/tmp/out.tif")
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "g1", "b1"}, tk.groupLayers)
	assert.Contains(t, tk.groupName, model.GroupNamePrefix)

	require.True(t, tk.exportCalled)
	assert.Equal(t, tk.groupName, tk.exportGroup)
	assert.Equal(t, "/tmp/out.tif", tk.exportOutput)
	assert.Equal(t, "COMPRESS=LZW,TILED=YES", tk.exportOptions.CreateOpt())
	assert.Equal(t, 5, tk.exportOptions.Overviews)

	assert.True(t, tk.envSetAtExp)
	assert.Equal(t, "LZW", tk.envAtExport)
	_, set := os.LookupEnv(CompressOverviewEnv)
	assert.False(t, set, "override must not leak after the export")

	assert.Equal(t, tk.groupName, res.Group)
	assert.Equal(t, "/tmp/out.tif", res.Output)
	assert.Equal(t, bands, res.Bands)
	assert.Equal(t, []string{tk.groupName}, tracker.Names())
}

// TestExport_TracksBeforeCreate verifies the name is registered before
// i.group is attempted.
func TestExport_TracksBeforeCreate(t *testing.T) {
	o, tk, _ := newFixture()

	_, err := o.Export(context.Background(), bands, "/tmp/out.tif")
	require.NoError(t, err)
	assert.Equal(t, []string{tk.groupName}, tk.trackedAtCreate)
}

// TestExport_CreateFails checks that a failed i.group stops the run,
// leaves the name tracked for cleanup and never touches the environment.
func TestExport_CreateFails(t *testing.T) {
	t.Setenv(CompressOverviewEnv, "DEFLATE")
	o, tk, tracker := newFixture()
	tk.createErr = errors.New("raster map <r1> not found")

	res, err := o.Export(context.Background(), bands, "/tmp/out.tif")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrCreateGroup)
	assert.ErrorIs(t, err, tk.createErr)

	assert.False(t, tk.exportCalled)
	assert.Equal(t, []string{tk.groupName}, tracker.Names())
	assert.Equal(t, "DEFLATE", os.Getenv(CompressOverviewEnv))
}

// TestExport_RestoresEnvironment covers the restoration law for both an
// absent and a pre-set COMPRESS_OVERVIEW, on success and on failure.
func TestExport_RestoresEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		prior     *string
		exportErr error
	}{
		{name: "absent success"},
		{name: "absent failure", exportErr: errors.New("GDAL error")},
		{name: "preset success", prior: strPtr("DEFLATE")},
		{name: "preset failure", prior: strPtr("DEFLATE"), exportErr: errors.New("GDAL error")},
		{name: "empty success", prior: strPtr("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prior == nil {
				unsetEnv(t)
			} else {
				t.Setenv(CompressOverviewEnv, *tt.prior)
			}

			o, tk, _ := newFixture()
			tk.exportErr = tt.exportErr

			_, err := o.Export(context.Background(), bands, "/tmp/out.tif")
			if tt.exportErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrExportGroup)
				assert.ErrorIs(t, err, tt.exportErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, "LZW", tk.envAtExport, "export must run with LZW overviews")

			got, set := os.LookupEnv(CompressOverviewEnv)
			if tt.prior == nil {
				assert.False(t, set)
				return
			}
			assert.True(t, set)
			assert.Equal(t, *tt.prior, got)
		})
	}
}

func TestExport_NameGenerator(t *testing.T) {
	tracker := resource.NewTracker(nopCatalog{})
	tk := &fakeToolkit{tracker: tracker}
	o := New(tk, tracker, WithNameGenerator(func() string { return "rgb_group_fixed" }))

	res, err := o.Export(context.Background(), bands, "/tmp/out.tiff")
	require.NoError(t, err)
	assert.Equal(t, "rgb_group_fixed", res.Group)
	assert.Equal(t, "rgb_group_fixed", tk.exportGroup)
}

// TestExport_FreshNamePerRun verifies two runs never share a group name.
func TestExport_FreshNamePerRun(t *testing.T) {
	o, tk, tracker := newFixture()

	_, err := o.Export(context.Background(), bands, "/tmp/a.tif")
	require.NoError(t, err)
	first := tk.groupName

	_, err = o.Export(context.Background(), bands, "/tmp/b.tif")
	require.NoError(t, err)

	assert.NotEqual(t, first, tk.groupName)
	assert.Len(t, tracker.Names(), 2)
}

func strPtr(s string) *string { return &s }
