// Package sync implements the per-element decision engine that keeps the
// property registry aligned with upstream OSM data. One run is a single
// sequential pass: build query, fetch, then normalize and decide
// CREATE/UPDATE/SKIP per element, committing in batches. Only the fetch and
// named-scope resolution are run-fatal; a malformed element is counted and
// passed over.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/geocode"
	"github.com/PepeluiMoreno/sipi-api/pkg/logging"
	"github.com/PepeluiMoreno/sipi-api/pkg/normalize"
	"github.com/PepeluiMoreno/sipi-api/pkg/overpass"
	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
)

// Fetcher is the upstream element source. *overpass.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, scope overpass.Scope) ([]overpass.Element, error)
}

// PlaceResolver resolves a place name to a bounding box. *nominatim.Resolver
// satisfies it.
type PlaceResolver interface {
	BBox(ctx context.Context, place string) (geo.BBox, error)
}

// Target selects the spatial extent of a run: the whole of Spain, a named
// place, or an explicit bounding box. At most one of Place and BBox may be
// set; neither means the whole country.
type Target struct {
	Place string
	BBox  *geo.BBox
}

// Engine orchestrates query building, fetching, normalization, and the
// per-element decision state machine against the repository.
type Engine struct {
	repo    registry.Repository
	fetcher Fetcher
	places  PlaceResolver
	regions geocode.RegionResolver

	categories normalize.CategoryTable
	batchSize  int
	dryRun     bool
	logger     *zerolog.Logger

	// group collapses overlapping runs on the same scope key so two callers
	// cannot race on external ids.
	group singleflight.Group
}

// New creates an Engine backed by the given repository and fetcher.
func New(repo registry.Repository, fetcher Fetcher, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		fetcher:   fetcher,
		regions:   geocode.Unresolved{},
		batchSize: DefaultBatchSize,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run resolves the target to a scope and executes one sync pass. Concurrent
// calls for the same scope share a single pass and its result.
func (e *Engine) Run(ctx context.Context, target Target) (Stats, error) {
	if target.Place != "" && target.BBox != nil {
		return Stats{}, errors.NewValidationError("target", target, "place and bbox are mutually exclusive")
	}

	scope, err := e.resolveScope(ctx, target)
	if err != nil {
		return Stats{}, err
	}

	result, err, _ := e.group.Do(scope.Key(), func() (any, error) {
		return e.pass(ctx, scope)
	})
	if err != nil {
		return Stats{}, err
	}
	return result.(Stats), nil
}

// resolveScope maps a target onto an Overpass scope, resolving named places
// through the place resolver. Resolution failure aborts the run.
func (e *Engine) resolveScope(ctx context.Context, target Target) (overpass.Scope, error) {
	switch {
	case target.Place != "":
		if e.places == nil {
			return overpass.Scope{}, errors.NewGeocodeError(target.Place, "no place resolver configured", errors.ErrUnresolvedPlace)
		}
		box, err := e.places.BBox(ctx, target.Place)
		if err != nil {
			return overpass.Scope{}, err
		}
		e.logger.Info().Str("place", target.Place).Str("scope", overpass.Area(box).Key()).Msg("place resolved")
		return overpass.Area(box), nil
	case target.BBox != nil:
		return overpass.Area(*target.BBox), nil
	default:
		return overpass.Spain(), nil
	}
}

// pass runs the fetch and the sequential per-element loop for one scope.
func (e *Engine) pass(ctx context.Context, scope overpass.Scope) (Stats, error) {
	started := time.Now()

	log := e.logger.With().Str("scope", scope.Key()).Bool("dry_run", e.dryRun).Logger()
	log.Info().Msg("starting sync pass")

	elements, err := e.fetcher.Fetch(ctx, scope)
	if err != nil {
		switch {
		case errors.IsRateLimited(err):
			log.Warn().Err(err).Msg("upstream rate limited the fetch")
		case errors.IsTimeout(err):
			log.Warn().Err(err).Msg("fetch exceeded its timeout")
		}
		// No partial persistence from an incomplete fetch.
		return Stats{}, errors.NewSyncError(scope.Key(), nil, err)
	}

	stats := Stats{Elements: len(elements)}
	pending := 0

	for i, el := range elements {
		decision, err := e.processElement(ctx, el)
		if err != nil {
			stats.Errors++
			log.Warn().Err(err).Str("element", el.OSMID()).Msg("element failed, continuing")
			continue
		}

		switch decision {
		case decisionCreated:
			stats.Created++
		case decisionUpdated:
			stats.Updated++
		case decisionSkipped:
			stats.Skipped++
		}

		if decision != decisionSkipped {
			pending++
			// Commit every batch of creates and updates to bound
			// transaction size.
			if !e.dryRun && pending%e.batchSize == 0 {
				if err := e.repo.Commit(ctx); err != nil {
					return stats, errors.NewSyncError(scope.Key(), nil, err)
				}
				log.Debug().Int("flushed", pending).Str("progress", stats.String()).Msg("batch committed")
			}
		}

		if (i+1)%100 == 0 {
			log.Debug().Int("processed", i+1).Int("total", len(elements)).Msg("progress")
		}
	}

	if !e.dryRun {
		if err := e.repo.Commit(ctx); err != nil {
			return stats, errors.NewSyncError(scope.Key(), nil, err)
		}
	}

	stats.Duration = time.Since(started)
	log.Info().
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Dur("duration", stats.Duration).
		Msg("sync pass complete")

	return stats, nil
}

type decision int

const (
	decisionSkipped decision = iota
	decisionCreated
	decisionUpdated
)

// processElement runs normalize + decide + persist for one element. Any
// failure, panics included, is returned as an error so the caller can count
// it and continue with the next element.
func (e *Engine) processElement(ctx context.Context, el overpass.Element) (d decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = decisionSkipped
			err = errors.NewElementError(el.Type, el.ID, "decide", fmt.Errorf("panic: %v", r))
		}
	}()

	n, err := normalize.Normalize(el)
	if err != nil {
		return decisionSkipped, errors.NewElementError(el.Type, el.ID, "normalize", err)
	}

	ext, err := e.repo.FindExtensionByOSMID(ctx, n.OSMID)
	if err != nil {
		return decisionSkipped, errors.NewElementError(el.Type, el.ID, "decide", err)
	}

	if ext == nil {
		if !e.dryRun {
			if err := e.create(ctx, el, n); err != nil {
				// Another pass or a duplicate element in this fetch already
				// registered the external id; dedupe instead of erroring.
				if errors.IsAlreadyExists(err) {
					return decisionSkipped, nil
				}
				return decisionSkipped, errors.NewElementError(el.Type, el.ID, "persist", err)
			}
		}
		return decisionCreated, nil
	}

	// Monotonic revision: only a strictly newer upstream revision triggers an
	// update; an absent revision never does.
	if n.Version == 0 || n.Version <= ext.Version {
		return decisionSkipped, nil
	}

	if !e.dryRun {
		if err := e.update(ctx, el, n, ext); err != nil {
			return decisionSkipped, errors.NewElementError(el.Type, el.ID, "persist", err)
		}
	}
	return decisionUpdated, nil
}

// create builds a new property and extension pair and persists it atomically.
func (e *Engine) create(ctx context.Context, el overpass.Element, n normalize.Normalized) error {
	property := &registry.Property{
		ID:          uuid.NewString(),
		Name:        n.DisplayName(),
		Description: n.Description,
		Address:     n.Address,
		Heritage:    n.Heritage,
		Ruin:        n.Ruin,
		CreatedAt:   utc.Now(),
		UpdatedAt:   utc.Now(),
	}

	if n.Point != nil {
		lat, lon := n.Point.Lat, n.Point.Lon
		property.Latitude = &lat
		property.Longitude = &lon

		if refs, err := e.regions.ResolveRegion(ctx, lat, lon); err == nil && refs != nil {
			property.ProvinceID = refs.ProvinceID
			property.MunicipalityID = refs.MunicipalityID
		}
	}

	if !e.categories.Empty() {
		if id, ok := e.categories.Resolve(n.Tags); ok {
			property.CategoryID = id
		}
	}

	return e.repo.CreatePropertyWithExtension(ctx, property, e.buildExtension(property.ID, el, n))
}

// update fully replaces the stored extension with the fresh normalization
// ("last fetch wins"), then applies the asymmetric merge to the parent
// property.
func (e *Engine) update(ctx context.Context, el overpass.Element, n normalize.Normalized, old *registry.OSMExtension) error {
	ext := e.buildExtension(old.PropertyID, el, n)
	if err := e.repo.UpdateExtension(ctx, ext); err != nil {
		return err
	}

	property, err := e.repo.FindProperty(ctx, old.PropertyID)
	if err != nil {
		return err
	}
	if property == nil {
		return errors.NewNotFoundError("property", old.PropertyID)
	}

	fields := registry.Merge(property, n)
	if fields.Empty() {
		return nil
	}
	return e.repo.UpdateProperty(ctx, property.ID, fields)
}

// buildExtension maps a normalized element onto its extension record.
func (e *Engine) buildExtension(propertyID string, el overpass.Element, n normalize.Normalized) *registry.OSMExtension {
	raw, _ := json.Marshal(el)

	return &registry.OSMExtension{
		PropertyID: propertyID,

		OSMID:   n.OSMID,
		OSMType: n.OSMType,
		Version: n.Version,

		Name:         n.Name,
		InferredType: n.InferredType,
		Denomination: n.Denomination,
		Diocese:      n.Diocese,
		Operator:     n.Operator,

		Point: n.Point,

		HeritageStatus: n.HeritageStatus,
		Historic:       n.Historic,
		Ruins:          n.Ruin,
		HasPolygon:     n.HasPolygon,

		AddressStreet:   n.AddressStreet,
		AddressCity:     n.AddressCity,
		AddressPostcode: n.AddressPostcode,

		SourceUpdatedAt: n.SourceUpdatedAt,

		Tags: n.Tags,
		Raw:  raw,

		QAFlags:    n.QAFlags,
		SourceRefs: n.SourceRefs,

		SyncedAt:  utc.Now(),
		UpdatedAt: utc.Now(),
	}
}
