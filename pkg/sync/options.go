package sync

import (
	"github.com/rs/zerolog"

	"github.com/PepeluiMoreno/sipi-api/pkg/geocode"
	"github.com/PepeluiMoreno/sipi-api/pkg/normalize"
)

// DefaultBatchSize is how many create-or-update operations are grouped into
// one repository commit. Batching bounds transaction size only; the pass is
// strictly sequential.
const DefaultBatchSize = 50

// Option configures an Engine.
type Option func(*Engine)

// WithBatchSize overrides the commit batch size. Values below one fall back
// to the default.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithDryRun makes the engine decide without persisting anything.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) {
		e.dryRun = dryRun
	}
}

// WithCategories supplies the per-run category lookup table. The engine never
// caches one process-wide; the orchestrator decides when to rebuild it.
func WithCategories(table normalize.CategoryTable) Option {
	return func(e *Engine) {
		e.categories = table
	}
}

// WithRegionResolver supplies the administrative-division resolver used when
// creating properties. Defaults to the unresolved stub.
func WithRegionResolver(r geocode.RegionResolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.regions = r
		}
	}
}

// WithPlaceResolver supplies the place-name resolver backing named scopes.
func WithPlaceResolver(r PlaceResolver) Option {
	return func(e *Engine) {
		e.places = r
	}
}

// WithLogger overrides the engine's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
