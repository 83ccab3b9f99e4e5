// Package resource tracks the ephemeral GRASS elements created during one
// run and removes them when the run ends.
//
// A Tracker is created before anything else happens and released with
// defer, so cleanup runs on every return path of the command: success,
// validation failure and module failure alike.
package resource

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mmr-tortoise/r-out-rgb/internal/logging"
	"github.com/mmr-tortoise/r-out-rgb/internal/model"
)

// Catalog is the part of the GRASS toolkit the tracker needs.
type Catalog interface {
	Exists(ctx context.Context, name string, kind model.ElementKind) (bool, error)
	Remove(ctx context.Context, name string, kind model.ElementKind) error
}

// entry is one tracked element.
type entry struct {
	name string
	kind model.ElementKind
}

// Tracker owns the ephemeral elements of a run. Names are registered
// before the module that creates them is called, so a partially
// successful creation is still cleaned up.
type Tracker struct {
	catalog Catalog
	logger  zerolog.Logger

	mu      sync.Mutex
	entries []entry
}

// NewTracker creates an empty Tracker that cleans up through catalog.
func NewTracker(catalog Catalog) *Tracker {
	return &Tracker{
		catalog: catalog,
		logger:  logging.GetLogger("resource"),
	}
}

// Track registers an ephemeral group.
func (t *Tracker) Track(name string) {
	t.TrackKind(name, model.ElementGroup)
}

// TrackKind registers an ephemeral element of any kind.
func (t *Tracker) TrackKind(name string, kind model.ElementKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, entry{name: name, kind: kind})
	t.logger.Debug().Str("name", name).Str("kind", kind.String()).Msg("Tracking ephemeral element")
}

// Names returns the tracked names in registration order.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.name)
	}
	return names
}

// Len returns the number of tracked elements.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Release removes every tracked element that still exists and returns the
// names it removed. It is best effort: lookup and removal failures are
// logged at debug level and never returned, because nothing useful can be
// done about them while the command is exiting. The tracked list is
// cleared, so calling Release again is a no-op.
func (t *Tracker) Release(ctx context.Context) []string {
	t.mu.Lock()
	entries := t.entries
	t.entries = nil
	t.mu.Unlock()

	if t.catalog == nil {
		return nil
	}

	var removed []string
	for _, e := range entries {
		log := t.logger.With().Str("name", e.name).Str("kind", e.kind.String()).Logger()

		found, err := t.catalog.Exists(ctx, e.name, e.kind)
		if err != nil {
			log.Debug().Err(err).Msg("Lookup failed, skipping cleanup")
			continue
		}
		if !found {
			log.Debug().Msg("Nothing to clean up")
			continue
		}

		if err := t.catalog.Remove(ctx, e.name, e.kind); err != nil {
			log.Debug().Err(err).Msg("Removal failed")
			continue
		}
		removed = append(removed, e.name)
		log.Debug().Msg("Removed ephemeral element")
	}
	return removed
}
