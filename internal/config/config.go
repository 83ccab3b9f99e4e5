// Package config loads the runtime settings that come from the GRASS
// session environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-derived settings.
type Config struct {
	// GISBase is the GRASS installation directory. When set, module
	// executables are looked up in $GISBASE/bin and $GISBASE/scripts
	// before falling back to PATH.
	GISBase string `env:"GISBASE"`

	// GISRC points at the session file of the running GRASS session.
	// GRASS modules refuse to run without it.
	GISRC string `env:"GISRC"`

	// Verbosity is the default GRASS verbosity level (0-3).
	Verbosity int `env:"GRASS_VERBOSE" envDefault:"2"`
}

// Load parses Config from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// InSession reports whether a GRASS session is active.
func (c Config) InSession() bool {
	return c.GISRC != ""
}

// ResolveVerbosity combines the environment default with the --quiet and
// --verbose flags. Flags win over GRASS_VERBOSE; --quiet wins over
// --verbose because silencing is the safer choice in scripts.
func (c Config) ResolveVerbosity(quiet, verbose bool) int {
	switch {
	case quiet:
		return 0
	case verbose:
		return 3
	}
	if c.Verbosity < 0 {
		return 0
	}
	if c.Verbosity > 3 {
		return 3
	}
	return c.Verbosity
}
