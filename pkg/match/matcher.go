// Package match ranks registry properties against an unlinked ad by
// blending name similarity with geographic proximity. Scoring is read-only:
// the matcher never mutates the registry and its results are never
// persisted.
package match

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/PepeluiMoreno/sipi-api/pkg/logging"
	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
)

const (
	// DefaultLimit caps how many candidates one lookup returns.
	DefaultLimit = 5

	// DefaultMinScore is the text-similarity floor below which a property
	// needs proximity to qualify.
	DefaultMinScore = 0.2

	// proximityRadiusMeters admits a property on distance alone, however
	// dissimilar its name.
	proximityRadiusMeters = 5000

	// distanceHalfLife is the distance at which the proximity score decays
	// to one half.
	distanceHalfLife = 500
)

// Matcher scores registry properties against unlinked ads. Similarity and
// distance are delegated to the repository so backends can push them down to
// the storage engine.
type Matcher struct {
	repo   registry.Repository
	logger *zerolog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger overrides the matcher's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a Matcher backed by the given repository.
func New(repo registry.Repository, opts ...Option) *Matcher {
	m := &Matcher{
		repo:   repo,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Query tunes one candidate lookup. The zero value means defaults.
type Query struct {
	// Limit caps the number of returned candidates. Zero or negative falls
	// back to DefaultLimit; a lookup that wants no candidates should not be
	// issued at all.
	Limit int

	// MinScore is the text-similarity floor; nil means DefaultMinScore.
	// An explicit 0 disables the floor so any shared trigram qualifies.
	// Proximity within the fixed radius bypasses the floor either way.
	MinScore *float64
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

func (q Query) minScore() float64 {
	if q.MinScore == nil {
		return DefaultMinScore
	}
	return *q.MinScore
}

// Candidates ranks every property against the ad with the given id and
// returns the best matches, highest combined score first. An unknown ad id
// yields an empty result, not an error.
func (m *Matcher) Candidates(ctx context.Context, adID string, q Query) ([]registry.Candidate, error) {
	ad, err := m.repo.FindUnlinkedAd(ctx, adID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		m.logger.Debug().Str("ad_id", adID).Msg("unlinked ad not found")
		return []registry.Candidate{}, nil
	}

	minScore := q.minScore()
	var candidates []registry.Candidate

	err = m.repo.ForEachProperty(ctx, func(p *registry.Property) error {
		if score, ok := m.score(ad, p, minScore); ok {
			candidates = append(candidates, registry.Candidate{Property: p, Score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if limit := q.limit(); len(candidates) > limit {
		candidates = candidates[:limit]
	}

	m.logger.Debug().
		Str("ad_id", adID).
		Str("title", ad.Title).
		Int("candidates", len(candidates)).
		Msg("matching complete")

	return candidates, nil
}

// score computes a property's combined score against the ad and reports
// whether the property qualifies as a candidate. Qualification is an OR
// gate: a name similar enough on its own, or a location close enough on its
// own.
func (m *Matcher) score(ad *registry.UnlinkedAd, p *registry.Property, minScore float64) (float64, bool) {
	text := m.repo.TextSimilarity(p.Name, ad.Title)

	point := p.Point()
	if ad.Point == nil || point == nil {
		return text, text > minScore
	}

	meters := m.repo.DistanceMeters(*point, *ad.Point)

	// Unbounded decay rather than a hard cutoff: far properties score low
	// but are not zeroed.
	distScore := 1 / (1 + meters/distanceHalfLife)
	combined := (text + distScore) / 2

	return combined, text > minScore || meters <= proximityRadiusMeters
}
