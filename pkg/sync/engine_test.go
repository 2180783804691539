package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/overpass"
	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
)

// fakeRepo is an in-memory Repository double that records mutation and
// commit counts.
type fakeRepo struct {
	properties map[string]*registry.Property
	extensions map[string]*registry.OSMExtension // keyed by OSMID

	creates int
	updates int
	commits int

	failCreateFor      string // OSMID whose create should fail
	duplicateCreateFor string // OSMID whose create reports an existing row
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		properties: make(map[string]*registry.Property),
		extensions: make(map[string]*registry.OSMExtension),
	}
}

func (r *fakeRepo) FindExtensionByOSMID(_ context.Context, osmID string) (*registry.OSMExtension, error) {
	return r.extensions[osmID], nil
}

func (r *fakeRepo) FindProperty(_ context.Context, id string) (*registry.Property, error) {
	return r.properties[id], nil
}

func (r *fakeRepo) CreatePropertyWithExtension(_ context.Context, p *registry.Property, ext *registry.OSMExtension) error {
	if ext.OSMID == r.failCreateFor {
		return errors.NewAPIError("postgres", 0, "constraint violation")
	}
	if ext.OSMID == r.duplicateCreateFor {
		return errors.NewAlreadyExistsError("osm extension", ext.OSMID)
	}
	r.creates++
	r.properties[p.ID] = p
	r.extensions[ext.OSMID] = ext
	return nil
}

func (r *fakeRepo) UpdateExtension(_ context.Context, ext *registry.OSMExtension) error {
	r.extensions[ext.OSMID] = ext
	return nil
}

func (r *fakeRepo) UpdateProperty(_ context.Context, propertyID string, fields registry.PropertyFields) error {
	r.updates++
	p, ok := r.properties[propertyID]
	if !ok {
		return errors.NewNotFoundError("property", propertyID)
	}
	fields.Apply(p)
	return nil
}

func (r *fakeRepo) Commit(context.Context) error   { r.commits++; return nil }
func (r *fakeRepo) Rollback(context.Context) error { return nil }

func (r *fakeRepo) FindUnlinkedAd(context.Context, string) (*registry.UnlinkedAd, error) {
	return nil, nil
}

func (r *fakeRepo) TextSimilarity(a, b string) float64    { return 0 }
func (r *fakeRepo) DistanceMeters(a, b geo.Point) float64 { return 0 }

func (r *fakeRepo) ForEachProperty(_ context.Context, fn func(*registry.Property) error) error {
	for _, p := range r.properties {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// fakeFetcher returns canned elements or a canned error.
type fakeFetcher struct {
	elements []overpass.Element
	err      error
	scopes   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, scope overpass.Scope) ([]overpass.Element, error) {
	f.scopes = append(f.scopes, scope.Key())
	return f.elements, f.err
}

type fakePlaces struct {
	box geo.BBox
	err error
}

func (f *fakePlaces) BBox(context.Context, string) (geo.BBox, error) {
	return f.box, f.err
}

func ptr(v float64) *float64 { return &v }

func churchElement(id int64, version int64, name string) overpass.Element {
	return overpass.Element{
		Type:    "node",
		ID:      id,
		Lat:     ptr(40.4168),
		Lon:     ptr(-3.7038),
		Version: version,
		Tags: map[string]string{
			"name":     name,
			"building": "church",
			"religion": "christian",
		},
	}
}

func TestRunCreatesNewProperty(t *testing.T) {
	repo := newFakeRepo()
	fetcher := &fakeFetcher{elements: []overpass.Element{
		churchElement(101, 3, "Iglesia de San Andrés"),
	}}
	engine := New(repo, fetcher)

	stats, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 1, stats.Elements)

	ext := repo.extensions["node/101"]
	require.NotNil(t, ext)
	assert.Equal(t, int64(3), ext.Version)
	assert.NotEmpty(t, ext.PropertyID)

	p := repo.properties[ext.PropertyID]
	require.NotNil(t, p)
	assert.Equal(t, "Iglesia de San Andrés", p.Name)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, 40.4168, *p.Latitude, 1e-9)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestRunIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	fetcher := &fakeFetcher{elements: []overpass.Element{
		churchElement(101, 3, "Iglesia de San Andrés"),
		churchElement(102, 1, "Ermita de la Vera Cruz"),
	}}
	engine := New(repo, fetcher)

	first, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, repo.properties, 2)
}

func TestRunMonotonicRevision(t *testing.T) {
	tests := []struct {
		name    string
		stored  int64
		fetched int64
		updated bool
	}{
		{"newer revision updates", 3, 5, true},
		{"equal revision skips", 3, 3, false},
		{"older revision skips", 3, 2, false},
		{"absent revision skips", 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			fetcher := &fakeFetcher{elements: []overpass.Element{
				churchElement(101, tt.stored, "Iglesia Vieja"),
			}}
			engine := New(repo, fetcher)

			_, err := engine.Run(context.Background(), Target{})
			require.NoError(t, err)

			fetcher.elements = []overpass.Element{
				churchElement(101, tt.fetched, "Iglesia Nueva"),
			}
			stats, err := engine.Run(context.Background(), Target{})
			require.NoError(t, err)

			if tt.updated {
				assert.Equal(t, 1, stats.Updated)
				assert.Equal(t, tt.fetched, repo.extensions["node/101"].Version)
			} else {
				assert.Equal(t, 1, stats.Skipped)
				assert.Equal(t, tt.stored, repo.extensions["node/101"].Version)
			}
		})
	}
}

func TestRunUpdateNeverShrinksAddress(t *testing.T) {
	repo := newFakeRepo()

	long := churchElement(101, 1, "Iglesia de San Andrés")
	long.Tags["addr:street"] = "Plaza de San Andrés"
	long.Tags["addr:housenumber"] = "1"
	long.Tags["addr:postcode"] = "28005"
	long.Tags["addr:city"] = "Madrid"

	fetcher := &fakeFetcher{elements: []overpass.Element{long}}
	engine := New(repo, fetcher)

	_, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)

	var propertyID string
	for id := range repo.properties {
		propertyID = id
	}
	fullAddress := repo.properties[propertyID].Address
	require.NotEmpty(t, fullAddress)

	short := churchElement(101, 2, "Iglesia de San Andrés")
	short.Tags["addr:city"] = "Madrid"
	fetcher.elements = []overpass.Element{short}

	stats, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	// Extension carries the fresh, shorter address parts; the registry
	// property keeps the longer assembled address.
	assert.Empty(t, repo.extensions["node/101"].AddressStreet)
	assert.Equal(t, fullAddress, repo.properties[propertyID].Address)
}

func TestRunIsolatesElementFaults(t *testing.T) {
	repo := newFakeRepo()
	bad := churchElement(0, 1, "Sin identidad") // zero id fails normalization
	fetcher := &fakeFetcher{elements: []overpass.Element{
		churchElement(101, 1, "Iglesia A"),
		bad,
		churchElement(102, 1, "Iglesia B"),
	}}
	engine := New(repo, fetcher)

	stats, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 2, stats.Created)
	assert.Equal(t, 3, stats.Elements)
	assert.Equal(t, stats.Elements-stats.Errors, stats.Processed())
}

func TestRunIsolatesPersistFaults(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreateFor = "node/102"
	fetcher := &fakeFetcher{elements: []overpass.Element{
		churchElement(101, 1, "Iglesia A"),
		churchElement(102, 1, "Iglesia B"),
		churchElement(103, 1, "Iglesia C"),
	}}
	engine := New(repo, fetcher)

	stats, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 2, stats.Created)
	assert.Len(t, repo.properties, 2)
}

func TestRunDeduplicatesConcurrentCreate(t *testing.T) {
	repo := newFakeRepo()
	repo.duplicateCreateFor = "node/102"
	fetcher := &fakeFetcher{elements: []overpass.Element{
		churchElement(101, 1, "Iglesia A"),
		churchElement(102, 1, "Iglesia B"),
	}}
	engine := New(repo, fetcher)

	stats, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)

	// An external id that lost the insert race is a skip, not an error.
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Skipped)
}

// blockingFetcher parks every Fetch call until released so a test can hold a
// pass in flight.
type blockingFetcher struct {
	calls    int32
	started  chan struct{}
	release  chan struct{}
	elements []overpass.Element
}

func (f *blockingFetcher) Fetch(_ context.Context, _ overpass.Scope) ([]overpass.Element, error) {
	if atomic.AddInt32(&f.calls, 1) == 1 {
		close(f.started)
	}
	<-f.release
	return f.elements, nil
}

func TestRunSharesConcurrentPassOnSameScope(t *testing.T) {
	repo := newFakeRepo()
	fetcher := &blockingFetcher{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		elements: []overpass.Element{churchElement(101, 1, "Iglesia A")},
	}
	engine := New(repo, fetcher)

	type result struct {
		stats Stats
		err   error
	}
	results := make(chan result, 2)
	run := func() {
		stats, err := engine.Run(context.Background(), Target{})
		results <- result{stats, err}
	}

	go run()
	<-fetcher.started
	go run()
	// Give the second caller time to join the in-flight pass before the
	// fetch is released.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		assert.Equal(t, 1, r.stats.Created)
	}

	// One shared pass: a single fetch, a single create.
	assert.EqualValues(t, 1, atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, 1, repo.creates)
}

func TestRunCommitsInBatches(t *testing.T) {
	repo := newFakeRepo()
	var elements []overpass.Element
	for i := int64(1); i <= 5; i++ {
		elements = append(elements, churchElement(i, 1, "Iglesia"))
	}
	fetcher := &fakeFetcher{elements: elements}
	engine := New(repo, fetcher, WithBatchSize(2))

	_, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)

	// Two full batches plus the final flush of the remainder.
	assert.Equal(t, 3, repo.commits)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	fetcher := &fakeFetcher{elements: []overpass.Element{
		churchElement(101, 1, "Iglesia A"),
		churchElement(102, 1, "Iglesia B"),
	}}
	engine := New(repo, fetcher, WithDryRun(true))

	stats, err := engine.Run(context.Background(), Target{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Created)
	assert.Empty(t, repo.properties)
	assert.Zero(t, repo.commits)
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	repo := newFakeRepo()
	fetcher := &fakeFetcher{err: errors.NewAPIError("overpass", 504, "gateway timeout")}
	engine := New(repo, fetcher)

	stats, err := engine.Run(context.Background(), Target{})
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))
	assert.Zero(t, stats.Processed())
	assert.Zero(t, repo.commits)
}

func TestRunResolvesPlaceTarget(t *testing.T) {
	box := geo.BBox{South: 36.0, West: -6.0, North: 37.0, East: -5.0}
	repo := newFakeRepo()
	fetcher := &fakeFetcher{}
	engine := New(repo, fetcher, WithPlaceResolver(&fakePlaces{box: box}))

	_, err := engine.Run(context.Background(), Target{Place: "Cádiz"})
	require.NoError(t, err)
	require.Len(t, fetcher.scopes, 1)
	assert.Equal(t, overpass.Area(box).Key(), fetcher.scopes[0])
}

func TestRunUnresolvedPlaceIsFatal(t *testing.T) {
	repo := newFakeRepo()
	fetcher := &fakeFetcher{}
	engine := New(repo, fetcher, WithPlaceResolver(&fakePlaces{
		err: errors.NewGeocodeError("Nowhere", "no results", errors.ErrUnresolvedPlace),
	}))

	_, err := engine.Run(context.Background(), Target{Place: "Nowhere"})
	require.Error(t, err)
	assert.True(t, errors.IsUnresolvedPlace(err))
	assert.Empty(t, fetcher.scopes)
}

func TestRunRejectsAmbiguousTarget(t *testing.T) {
	repo := newFakeRepo()
	engine := New(repo, &fakeFetcher{})

	_, err := engine.Run(context.Background(), Target{
		Place: "Sevilla",
		BBox:  &geo.BBox{South: 36, West: -7, North: 38, East: -5},
	})
	require.Error(t, err)
}
