package nominatim

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
)

func TestBBoxResolves(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"display_name": "Soria, Castilla y León, España",
			"boundingbox": ["41.2573", "41.9362", "-3.1817", "-1.7443"]
		}]`))
	}))
	defer server.Close()

	resolver := New(WithAPIURL(server.URL))
	box, err := resolver.BBox(t.Context(), "Soria")
	require.NoError(t, err)

	assert.Equal(t, "Soria, España", gotQuery)
	assert.Equal(t, 41.2573, box.South)
	assert.Equal(t, 41.9362, box.North)
	assert.Equal(t, -3.1817, box.West)
	assert.Equal(t, -1.7443, box.East)
}

func TestBBoxNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	resolver := New(WithAPIURL(server.URL))
	_, err := resolver.BBox(t.Context(), "Atlántida")

	require.Error(t, err)
	assert.True(t, errors.IsUnresolvedPlace(err))
	var geoErr *errors.GeocodeError
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, "Atlántida", geoErr.Place)
}

func TestBBoxServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resolver := New(WithAPIURL(server.URL))
	_, err := resolver.BBox(t.Context(), "Soria")

	require.Error(t, err)
	var geoErr *errors.GeocodeError
	require.ErrorAs(t, err, &geoErr)
}

func TestBBoxMalformedBoundingBox(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"boundingbox": ["41.2", "not-a-number", "-3.1", "-1.7"]}]`))
	}))
	defer server.Close()

	resolver := New(WithAPIURL(server.URL))
	_, err := resolver.BBox(t.Context(), "Soria")
	require.Error(t, err)
}

func TestBBoxEmptyPlace(t *testing.T) {
	resolver := New()
	_, err := resolver.BBox(t.Context(), "")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
