package registry

import (
	"context"

	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
)

// Repository is the persistence contract consumed by the sync engine and the
// candidate matcher. The repository owns transactional discipline: the core
// groups work into batches and calls Commit/Rollback but never holds locks of
// its own. Implementations live outside this core.
type Repository interface {
	// FindExtensionByOSMID returns the extension with the given "type/id"
	// natural key, or nil when none exists.
	FindExtensionByOSMID(ctx context.Context, osmID string) (*OSMExtension, error)

	// FindProperty returns the property owning an extension, or nil when
	// unknown.
	FindProperty(ctx context.Context, id string) (*Property, error)

	// CreatePropertyWithExtension persists a new property and its extension
	// as one unit.
	CreatePropertyWithExtension(ctx context.Context, p *Property, ext *OSMExtension) error

	// UpdateExtension overwrites the stored extension with ext.
	UpdateExtension(ctx context.Context, ext *OSMExtension) error

	// UpdateProperty applies the given field changes to the stored property.
	UpdateProperty(ctx context.Context, propertyID string, fields PropertyFields) error

	// Commit flushes the current unit of work; Rollback discards it.
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// FindUnlinkedAd returns the ad with the given id, or nil when unknown.
	FindUnlinkedAd(ctx context.Context, id string) (*UnlinkedAd, error)

	// TextSimilarity returns a trigram-style string similarity in [0,1].
	TextSimilarity(a, b string) float64

	// DistanceMeters returns the distance between two points in meters.
	DistanceMeters(a, b geo.Point) float64

	// ForEachProperty iterates every canonical property. Iteration stops when
	// fn returns an error, which is propagated.
	ForEachProperty(ctx context.Context, fn func(*Property) error) error
}
