// Package envguard applies a temporary override to a process environment
// variable and restores the previous state afterwards.
//
// GDAL reads some creation settings (COMPRESS_OVERVIEW among them) only
// from the environment, and r.out.gdal inherits the environment of this
// process. The override therefore has to be applied to the process itself,
// and must not outlive the one module call that needs it.
//
// Typical use:
//
//	g, err := envguard.Set("COMPRESS_OVERVIEW", "LZW")
//	if err != nil { /* handle */ }
//	defer g.Restore()
package envguard

import (
	"fmt"
	"os"
)

// Guard remembers the state of one environment variable as it was before
// Set changed it. Restore puts that state back.
//
// A Guard distinguishes "unset" from "set to the empty string": both are
// restored exactly.
type Guard struct {
	key      string
	prev     string
	wasSet   bool
	restored bool
}

// Snapshot captures the current state of key without modifying it.
func Snapshot(key string) *Guard {
	// os.LookupEnv is the only way to tell an empty value from an absent one.
	prev, ok := os.LookupEnv(key)
	return &Guard{key: key, prev: prev, wasSet: ok}
}

// Set snapshots key and then sets it to value. If setting fails the
// environment is left untouched and the error is returned.
func Set(key, value string) (*Guard, error) {
	g := Snapshot(key)
	if err := os.Setenv(key, value); err != nil {
		return nil, fmt.Errorf("set %s: %w", key, err)
	}
	return g, nil
}

// Key returns the name of the guarded variable.
func (g *Guard) Key() string {
	return g.key
}

// Previous returns the captured value and whether the variable was set
// at snapshot time.
func (g *Guard) Previous() (string, bool) {
	return g.prev, g.wasSet
}

// Restore puts the variable back into its snapshot state: unset if it was
// absent, otherwise the captured value. Calling Restore more than once is
// a no-op after the first successful call.
func (g *Guard) Restore() error {
	if g == nil || g.restored {
		return nil
	}

	var err error
	if g.wasSet {
		err = os.Setenv(g.key, g.prev)
	} else {
		err = os.Unsetenv(g.key)
	}
	if err != nil {
		return fmt.Errorf("restore %s: %w", g.key, err)
	}

	g.restored = true
	return nil
}
