// Package logging configures the zerolog logger shared by all components.
//
// Progress messages and diagnostics go to stderr; stdout is reserved for
// the SLD document, which is the tool's data product.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// GRASS verbosity levels as used by GRASS_VERBOSE and the --quiet /
// --verbose module flags.
const (
	VerbositySilent   = 0
	VerbosityQuiet    = 1
	VerbosityStandard = 2
	VerbosityVerbose  = 3
)

// LevelForVerbosity maps a GRASS verbosity level to a zerolog level.
func LevelForVerbosity(verbosity int) zerolog.Level {
	switch {
	case verbosity <= VerbosityQuiet:
		return zerolog.WarnLevel
	case verbosity == VerbosityStandard:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Setup installs a console logger writing to w as the global logger and
// sets the global level from verbosity.
func Setup(w io.Writer, verbosity int) {
	zerolog.SetGlobalLevel(LevelForVerbosity(verbosity))

	consoleWriter := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
	}
	log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()

	// Caller information only helps when debugging.
	if verbosity >= VerbosityVerbose {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given component name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// LogCommand logs a GRASS module invocation with its arguments.
func LogCommand(logger zerolog.Logger, module string, args []string) {
	logger.Debug().
		Str("module", module).
		Strs("args", args).
		Msg("Executing module")
}

// LogOperationStart logs the start of an operation and returns a function
// to log its completion with the elapsed time.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}
