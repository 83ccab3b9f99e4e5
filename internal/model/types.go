// Package model defines the domain types for the r.out.rgb CLI.
//
// All entities in this package are transient: they are built from CLI input
// at startup and discarded when the process exits.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ElementKind identifies a kind of GRASS database element. The GRASS
// catalog is queried and cleaned by (name, kind) pairs.
type ElementKind string

const (
	// ElementGroup is an imagery group (created by i.group). It only
	// references raster maps, so removing it never touches pixel data.
	ElementGroup ElementKind = "group"

	// ElementRaster is a raster map (cell element).
	ElementRaster ElementKind = "raster"
)

// String returns the string representation of ElementKind.
func (k ElementKind) String() string {
	return string(k)
}

// GroupNamePrefix is prepended to every ephemeral group name so leftovers
// from killed runs are easy to spot with `g.list type=group`.
const GroupNamePrefix = "rgb_group_"

// NewGroupName returns a fresh ephemeral group name of the form
// "rgb_group_<uuid>". A random UUIDv4 makes concurrent invocations against
// the same mapset collision-free without any coordination.
func NewGroupName() string {
	return GroupNamePrefix + uuid.NewString()
}

// BandTriple holds the three raster map identifiers that make up the
// composite. The identifiers are opaque to this tool; GRASS resolves them.
//
// Order matters: the exported GeoTIFF has band 1 = Red, band 2 = Green,
// band 3 = Blue, and the SLD relies on exactly that mapping.
type BandTriple struct {
	Red   string `json:"red"`
	Green string `json:"green"`
	Blue  string `json:"blue"`
}

// Layers returns the band identifiers in channel order (red, green, blue).
func (b BandTriple) Layers() []string {
	return []string{b.Red, b.Green, b.Blue}
}

// Validate checks that all three band identifiers are present.
// Whether the maps exist or are compatible is left to i.group.
func (b BandTriple) Validate() error {
	var missing []string
	if strings.TrimSpace(b.Red) == "" {
		missing = append(missing, "red")
	}
	if strings.TrimSpace(b.Green) == "" {
		missing = append(missing, "green")
	}
	if strings.TrimSpace(b.Blue) == "" {
		missing = append(missing, "blue")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing band option(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// ExportOptions controls how r.out.gdal encodes the GeoTIFF.
type ExportOptions struct {
	// CreateOptions are GDAL creation options in KEY=VALUE form.
	CreateOptions []string `json:"createOptions"`

	// Overviews is the number of overview levels built into the file.
	Overviews int `json:"overviews"`
}

// DefaultExportOptions returns the fixed options used for every RGB export:
// LZW compression, internal tiling and five overview levels.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		CreateOptions: []string{"COMPRESS=LZW", "TILED=YES"},
		Overviews:     5,
	}
}

// CreateOpt renders the creation options as the comma separated value
// expected by the r.out.gdal createopt parameter.
func (o ExportOptions) CreateOpt() string {
	return strings.Join(o.CreateOptions, ",")
}

// ErrInvalidOutputExtension is returned by ValidateOutputPath when the
// output file name does not end with .tif or .tiff.
var ErrInvalidOutputExtension = errors.New("output must end with .tif or .tiff")

// validOutputExtensions lists the accepted suffixes, compared against the
// lower-cased path.
var validOutputExtensions = []string{".tif", ".tiff"}

// ValidateOutputPath returns path unchanged if it ends with .tif or .tiff
// (case-insensitive). Any other path yields an error wrapping
// ErrInvalidOutputExtension.
func ValidateOutputPath(path string) (string, error) {
	lower := strings.ToLower(path)
	for _, ext := range validOutputExtensions {
		if strings.HasSuffix(lower, ext) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutputExtension, path)
}

// ExitCode defines standard CLI exit codes. These codes allow scripts and
// processing chains to tell a bad invocation from a failed GRASS module.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitUsage indicates a missing, duplicated or unknown option.
	ExitUsage ExitCode = 2

	// ExitInvalidOutput indicates the output path has the wrong extension.
	ExitInvalidOutput ExitCode = 3

	// ExitToolkitUnavailable indicates the GRASS modules cannot be run,
	// typically because the tool was started outside a GRASS session.
	ExitToolkitUnavailable ExitCode = 4

	// ExitGroupFailed indicates i.group failed.
	ExitGroupFailed ExitCode = 5

	// ExitExportFailed indicates r.out.gdal failed.
	ExitExportFailed ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
