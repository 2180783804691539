// Package memstore is an in-memory registry.Repository used by dry runs and
// tests. It stages mutations per unit of work and makes them durable only on
// Commit, mirroring the transactional discipline a database-backed
// repository would provide. It is not a persistence engine.
package memstore

import (
	"context"
	"sync"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
	"github.com/PepeluiMoreno/sipi-api/pkg/text"
)

// Store is an in-memory Repository. Reads observe staged writes from the
// current unit of work, so an external id created earlier in a batch is
// visible before the batch commits.
type Store struct {
	mu sync.RWMutex

	properties map[string]*registry.Property
	extensions map[string]*registry.OSMExtension // keyed by OSMID
	ads        map[string]*registry.UnlinkedAd

	stagedProperties map[string]*registry.Property
	stagedExtensions map[string]*registry.OSMExtension
}

var _ registry.Repository = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		properties:       make(map[string]*registry.Property),
		extensions:       make(map[string]*registry.OSMExtension),
		ads:              make(map[string]*registry.UnlinkedAd),
		stagedProperties: make(map[string]*registry.Property),
		stagedExtensions: make(map[string]*registry.OSMExtension),
	}
}

// SeedAd registers an unlinked ad fixture, bypassing staging.
func (s *Store) SeedAd(ad *registry.UnlinkedAd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ads[ad.ID] = ad
}

// SeedProperty registers a property fixture as already committed.
func (s *Store) SeedProperty(p *registry.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = cloneProperty(p)
}

// FindExtensionByOSMID returns the extension with the given external id, or
// nil when unknown.
func (s *Store) FindExtensionByOSMID(_ context.Context, osmID string) (*registry.OSMExtension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ext, ok := s.stagedExtensions[osmID]; ok {
		return cloneExtension(ext), nil
	}
	if ext, ok := s.extensions[osmID]; ok {
		return cloneExtension(ext), nil
	}
	return nil, nil
}

// FindProperty returns the property with the given id, or nil when unknown.
func (s *Store) FindProperty(_ context.Context, id string) (*registry.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.stagedProperties[id]; ok {
		return cloneProperty(p), nil
	}
	if p, ok := s.properties[id]; ok {
		return cloneProperty(p), nil
	}
	return nil, nil
}

// CreatePropertyWithExtension stages a new property and its extension as one
// unit. A duplicate external id is rejected.
func (s *Store) CreatePropertyWithExtension(_ context.Context, p *registry.Property, ext *registry.OSMExtension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.extensions[ext.OSMID]; ok {
		return errors.NewAlreadyExistsError("osm extension", ext.OSMID)
	}
	if _, ok := s.stagedExtensions[ext.OSMID]; ok {
		return errors.NewAlreadyExistsError("osm extension", ext.OSMID)
	}

	s.stagedProperties[p.ID] = cloneProperty(p)
	s.stagedExtensions[ext.OSMID] = cloneExtension(ext)
	return nil
}

// UpdateExtension stages a full replacement of the stored extension.
func (s *Store) UpdateExtension(_ context.Context, ext *registry.OSMExtension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.extensions[ext.OSMID]; !ok {
		if _, staged := s.stagedExtensions[ext.OSMID]; !staged {
			return errors.NewNotFoundError("osm extension", ext.OSMID)
		}
	}
	s.stagedExtensions[ext.OSMID] = cloneExtension(ext)
	return nil
}

// UpdateProperty stages a field-level update of the stored property.
func (s *Store) UpdateProperty(_ context.Context, propertyID string, fields registry.PropertyFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.stagedProperties[propertyID]
	if !ok {
		current, ok = s.properties[propertyID]
	}
	if !ok {
		return errors.NewNotFoundError("property", propertyID)
	}

	next := cloneProperty(current)
	fields.Apply(next)
	s.stagedProperties[propertyID] = next
	return nil
}

// Commit makes all staged mutations durable.
func (s *Store) Commit(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.stagedProperties {
		s.properties[id] = p
	}
	for id, ext := range s.stagedExtensions {
		s.extensions[id] = ext
	}
	s.stagedProperties = make(map[string]*registry.Property)
	s.stagedExtensions = make(map[string]*registry.OSMExtension)
	return nil
}

// Rollback discards all staged mutations.
func (s *Store) Rollback(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stagedProperties = make(map[string]*registry.Property)
	s.stagedExtensions = make(map[string]*registry.OSMExtension)
	return nil
}

// FindUnlinkedAd returns the ad with the given id, or nil when unknown.
func (s *Store) FindUnlinkedAd(_ context.Context, id string) (*registry.UnlinkedAd, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ads[id], nil
}

// TextSimilarity implements trigram similarity locally; database-backed
// repositories push this down to the storage engine.
func (s *Store) TextSimilarity(a, b string) float64 {
	return text.TrigramSimilarity(a, b)
}

// DistanceMeters returns the great-circle distance between two points.
func (s *Store) DistanceMeters(a, b geo.Point) float64 {
	return geo.HaversineMeters(a, b)
}

// ForEachProperty visits every committed property. Staged, uncommitted
// properties are not visited; a concurrent reader may transiently miss an
// entity that is mid-creation.
func (s *Store) ForEachProperty(_ context.Context, fn func(*registry.Property) error) error {
	s.mu.RLock()
	snapshot := make([]*registry.Property, 0, len(s.properties))
	for _, p := range s.properties {
		snapshot = append(snapshot, cloneProperty(p))
	}
	s.mu.RUnlock()

	for _, p := range snapshot {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of committed properties.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.properties)
}

func cloneProperty(p *registry.Property) *registry.Property {
	c := *p
	if p.Latitude != nil {
		v := *p.Latitude
		c.Latitude = &v
	}
	if p.Longitude != nil {
		v := *p.Longitude
		c.Longitude = &v
	}
	return &c
}

func cloneExtension(ext *registry.OSMExtension) *registry.OSMExtension {
	c := *ext
	if ext.Point != nil {
		v := *ext.Point
		c.Point = &v
	}
	c.Tags = cloneStringMap(ext.Tags)
	c.SourceRefs = cloneStringMap(ext.SourceRefs)
	if ext.QAFlags != nil {
		c.QAFlags = make(map[string]bool, len(ext.QAFlags))
		for k, v := range ext.QAFlags {
			c.QAFlags[k] = v
		}
	}
	return &c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
