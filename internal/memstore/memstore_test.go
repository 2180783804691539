package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
)

func ptr(v float64) *float64 { return &v }

func testFixture(propertyID, osmID string) (*registry.Property, *registry.OSMExtension) {
	p := &registry.Property{
		ID:        propertyID,
		Name:      "Iglesia de San Andrés",
		Latitude:  ptr(40.4),
		Longitude: ptr(-3.7),
	}
	ext := &registry.OSMExtension{
		PropertyID: propertyID,
		OSMID:      osmID,
		OSMType:    "node",
		Version:    3,
		Tags:       map[string]string{"building": "church"},
	}
	return p, ext
}

func TestCreateVisibleBeforeCommit(t *testing.T) {
	ctx := context.Background()
	store := New()

	p, ext := testFixture("p1", "node/101")
	require.NoError(t, store.CreatePropertyWithExtension(ctx, p, ext))

	// The same unit of work must see its own staged write; the next element
	// in a batch with the same external id must dedupe against it.
	got, err := store.FindExtensionByOSMID(ctx, "node/101")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.PropertyID)

	err = store.CreatePropertyWithExtension(ctx, p, ext)
	require.Error(t, err)
	assert.True(t, errors.IsAlreadyExists(err))
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	store := New()

	p, ext := testFixture("p1", "node/101")
	require.NoError(t, store.CreatePropertyWithExtension(ctx, p, ext))
	require.NoError(t, store.Rollback(ctx))

	got, err := store.FindExtensionByOSMID(ctx, "node/101")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, store.Len())
}

func TestCommitMakesWritesDurable(t *testing.T) {
	ctx := context.Background()
	store := New()

	p, ext := testFixture("p1", "node/101")
	require.NoError(t, store.CreatePropertyWithExtension(ctx, p, ext))
	require.NoError(t, store.Commit(ctx))
	assert.Equal(t, 1, store.Len())

	got, err := store.FindProperty(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Iglesia de San Andrés", got.Name)
}

func TestUpdatePropertyAppliesFields(t *testing.T) {
	ctx := context.Background()
	store := New()

	p, ext := testFixture("p1", "node/101")
	require.NoError(t, store.CreatePropertyWithExtension(ctx, p, ext))
	require.NoError(t, store.Commit(ctx))

	name := "Iglesia de San Andrés Apóstol"
	require.NoError(t, store.UpdateProperty(ctx, "p1", registry.PropertyFields{Name: &name}))
	require.NoError(t, store.Commit(ctx))

	got, err := store.FindProperty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	// Untouched fields survive the update.
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 40.4, *got.Latitude, 1e-9)
}

func TestUpdateUnknownPropertyFails(t *testing.T) {
	ctx := context.Background()
	store := New()

	name := "x"
	err := store.UpdateProperty(ctx, "missing", registry.PropertyFields{Name: &name})
	require.Error(t, err)
}

func TestForEachPropertySkipsStaged(t *testing.T) {
	ctx := context.Background()
	store := New()

	committed, committedExt := testFixture("p1", "node/101")
	require.NoError(t, store.CreatePropertyWithExtension(ctx, committed, committedExt))
	require.NoError(t, store.Commit(ctx))

	staged, stagedExt := testFixture("p2", "node/102")
	require.NoError(t, store.CreatePropertyWithExtension(ctx, staged, stagedExt))

	var seen []string
	err := store.ForEachProperty(ctx, func(p *registry.Property) error {
		seen = append(seen, p.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, seen)
}

func TestClonesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := New()

	p, ext := testFixture("p1", "node/101")
	require.NoError(t, store.CreatePropertyWithExtension(ctx, p, ext))
	require.NoError(t, store.Commit(ctx))

	got, err := store.FindProperty(ctx, "p1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.FindProperty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Iglesia de San Andrés", again.Name)
}

func TestSimilarityAndDistance(t *testing.T) {
	store := New()

	assert.InDelta(t, 1.0, store.TextSimilarity("Ermita de San Isidro", "Ermita de San Isidro"), 1e-9)
	assert.Greater(t, store.TextSimilarity("Ermita de San Isidro", "Ermita de San Antonio"), 0.0)

	madrid := geo.Point{Lat: 40.4168, Lon: -3.7038}
	assert.InDelta(t, 0, store.DistanceMeters(madrid, madrid), 1e-6)
	coruna := geo.Point{Lat: 43.3623, Lon: -8.4115}
	d := store.DistanceMeters(madrid, coruna)
	assert.Greater(t, d, 450_000.0)
	assert.Less(t, d, 600_000.0)
}
