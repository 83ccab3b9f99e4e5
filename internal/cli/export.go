// Package cli — export.go implements the export action of r.out.rgb.
//
// Orchestration steps:
//  1. Merge key=value arguments into the flag values and check all four
//     options are present
//  2. Open the GRASS toolkit (requires a GRASS session)
//  3. Create the resource tracker and defer its release
//  4. Validate the output extension
//  5. Group the bands and export the group (internal/export)
//  6. Print the SLD (or the JSON result)
//
// Step 3 comes before any step that can fail on user input, so the
// deferred release covers every later return path.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/r-out-rgb/internal/config"
	"github.com/mmr-tortoise/r-out-rgb/internal/export"
	"github.com/mmr-tortoise/r-out-rgb/internal/grass"
	"github.com/mmr-tortoise/r-out-rgb/internal/model"
	"github.com/mmr-tortoise/r-out-rgb/internal/resource"
	"github.com/mmr-tortoise/r-out-rgb/internal/sld"
)

// exportFlags holds the four module options.
type exportFlags struct {
	red    string
	green  string
	blue   string
	output string
}

// toolkit is everything the export needs from GRASS.
type toolkit interface {
	export.Toolkit
	resource.Catalog
}

// newToolkit opens the GRASS toolkit. Tests replace it with a fake.
var newToolkit = func(cfg config.Config, verbosity int) (toolkit, error) {
	tk, err := grass.Open(cfg, verbosity)
	if err != nil {
		return nil, err
	}
	return tk, nil
}

// runExport is the main orchestration function of the command.
func runExport(ctx context.Context, out io.Writer, flags *exportFlags, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Collect options.
	if err := applyKeyValueArgs(flags, args); err != nil {
		return model.WrapCLIError(model.ExitUsage, "invalid arguments", err)
	}
	if err := flags.requireAll(); err != nil {
		return model.WrapCLIError(model.ExitUsage, "missing required options", err)
	}
	bands := model.BandTriple{Red: flags.red, Green: flags.green, Blue: flags.blue}

	// Step 2: Open the toolkit.
	tk, err := newToolkit(settings, verbosity)
	if err != nil {
		return model.WrapCLIError(model.ExitToolkitUnavailable, "GRASS modules are not available", err)
	}

	// Step 3: Everything created from here on is removed when we return.
	// WithoutCancel keeps cleanup running when the command context is done.
	tracker := resource.NewTracker(tk)
	defer func() {
		removed := tracker.Release(context.WithoutCancel(ctx))
		if len(removed) > 0 {
			VerboseLog("Removed temporary group(s): %s", strings.Join(removed, ", "))
		}
	}()

	// Step 4: Validate the output path before any group name exists.
	output, err := model.ValidateOutputPath(flags.output)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidOutput,
			"the parameter output has to end with .tif or .tiff", err)
	}

	// Step 5: Group and export.
	result, err := export.New(tk, tracker).Export(ctx, bands, output)
	if err != nil {
		switch {
		case errors.Is(err, export.ErrCreateGroup):
			return model.WrapCLIError(model.ExitGroupFailed, "i.group failed", err)
		case errors.Is(err, export.ErrExportGroup):
			return model.WrapCLIError(model.ExitExportFailed, "r.out.gdal failed", err)
		default:
			return model.WrapCLIError(model.ExitGeneralError, "export failed", err)
		}
	}

	// Step 6: Emit the SLD.
	log.Info().Msg("SLD for RGB GeoTiff...")
	if err := printExportResult(out, result, sld.Render()); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write SLD", err)
	}
	log.Info().Msgf("Created GeoTiff <%s>", result.Output)
	return nil
}

// applyKeyValueArgs fills flag values from GRASS-style key=value
// arguments. Giving the same option twice with different values is an
// error, whichever syntax was used.
func applyKeyValueArgs(flags *exportFlags, args []string) error {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("unexpected argument %q (expected key=value)", arg)
		}

		var target *string
		switch strings.ToLower(key) {
		case "red":
			target = &flags.red
		case "green":
			target = &flags.green
		case "blue":
			target = &flags.blue
		case "output":
			target = &flags.output
		default:
			return fmt.Errorf("unknown option %q", key)
		}

		if *target != "" && *target != value {
			return fmt.Errorf("option %q given more than once", key)
		}
		*target = value
	}
	return nil
}

// requireAll reports every missing option at once.
func (f *exportFlags) requireAll() error {
	var missing []string
	for _, opt := range []struct {
		name  string
		value string
	}{
		{"red", f.red},
		{"green", f.green},
		{"blue", f.blue},
		{"output", f.output},
	} {
		if strings.TrimSpace(opt.value) == "" {
			missing = append(missing, opt.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required option(s) not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// printExportResult writes the SLD as text, or a JSON object with the
// SLD and the export details when --json is set.
func printExportResult(w io.Writer, result *export.Result, doc string) error {
	if IsJSONOutput() {
		payload := struct {
			*export.Result
			SLD string `json:"sld"`
		}{Result: result, SLD: doc}

		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	_, err := io.WriteString(w, doc)
	return err
}
