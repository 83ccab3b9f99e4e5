// Package cli implements the cobra-based command line of r.out.rgb.
//
// The tool has a single action, so the root command performs the export
// itself. This file defines the root command, global flags, error
// formatting and exit code handling; export.go holds the export logic.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/r-out-rgb/internal/config"
	"github.com/mmr-tortoise/r-out-rgb/internal/logging"
	"github.com/mmr-tortoise/r-out-rgb/internal/model"
)

// Global flag variables. These are bound to cobra persistent flags on the
// root command.
var (
	// jsonOutput prints the result as a JSON object instead of the bare SLD.
	jsonOutput bool

	// verbose raises the GRASS verbosity to 3 (debug logging, --verbose modules).
	verbose bool

	// quiet lowers the GRASS verbosity to 0 (warnings only).
	quiet bool
)

// Settings resolved in PersistentPreRunE, shared with the export step.
var (
	settings  config.Config
	verbosity = logging.VerbosityStandard
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	flags := &exportFlags{}

	rootCmd := &cobra.Command{
		Use:   "r.out.rgb red=<map> green=<map> blue=<map> output=<file.tif>",
		Short: "Export an RGB raster composite as GeoTIFF and print its SLD",
		Long: `r.out.rgb exports three raster maps as a multi-band GeoTIFF composite
(band 1 = red, band 2 = green, band 3 = blue) and prints an SLD document
that styles the file as an RGB image.

The GeoTIFF is LZW compressed, tiled, and carries 5 overview levels.
The command must run inside a GRASS session.

Options can be given GRASS style (key=value) or as flags.

Examples:
  r.out.rgb red=lsat7_2002_30 green=lsat7_2002_20 blue=lsat7_2002_10 output=/tmp/rgb.tif
  r.out.rgb --red r --green g --blue b --output /tmp/rgb.tiff
  r.out.rgb --json red=r green=g blue=b output=/tmp/rgb.tif`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors lets Execute format errors (text or JSON).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		// Positional arguments are GRASS-style key=value options.
		Args: cobra.ArbitraryArgs,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "invalid environment", err)
			}
			settings = cfg
			verbosity = cfg.ResolveVerbosity(quiet, verbose)
			logging.Setup(cmd.ErrOrStderr(), verbosity)
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), flags, args)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose module output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet module output")

	rootCmd.Flags().StringVar(&flags.red, "red", "", "Raster map for the red channel")
	rootCmd.Flags().StringVar(&flags.green, "green", "", "Raster map for the green channel")
	rootCmd.Flags().StringVar(&flags.blue, "blue", "", "Raster map for the blue channel")
	rootCmd.Flags().StringVar(&flags.output, "output", "", "RGB output GeoTIFF file (.tif or .tiff)")

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError values carry their own exit codes; other errors default to
// exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(os.Stderr, cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(os.Stderr, err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// ExitCodeOf returns the exit code Execute would use for err.
func ExitCodeOf(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// the SLD.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "ERROR: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "ERROR: %s\n", message)
	}
}

// VerboseLog writes a debug message, shown only with --verbose.
func VerboseLog(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
