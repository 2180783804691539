// Package nominatim resolves place names to bounding boxes through the
// Nominatim search API, so named scopes ("Soria", "Burgos") can drive
// bounding-box sync runs.
package nominatim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/logging"
)

const (
	// DefaultAPIURL is the public Nominatim endpoint.
	DefaultAPIURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies lookups to the upstream operators.
	DefaultUserAgent = "SIPI-Heritage-System/1.0"

	defaultTimeout = 30 * time.Second
)

// searchResult is the subset of a Nominatim search hit the resolver reads.
// The bounding box comes as [minlat, maxlat, minlon, maxlon] strings.
type searchResult struct {
	DisplayName string   `json:"display_name"`
	BoundingBox []string `json:"boundingbox"`
}

// Resolver resolves free-text place names to bounding boxes.
type Resolver struct {
	apiURL    string
	userAgent string
	http      *http.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAPIURL overrides the Nominatim endpoint.
func WithAPIURL(u string) Option {
	return func(r *Resolver) {
		if u != "" {
			r.apiURL = u
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(r *Resolver) {
		if h != nil {
			r.http = h
		}
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		apiURL:    DefaultAPIURL,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.http == nil {
		r.http = &http.Client{Timeout: defaultTimeout}
	}
	return r
}

// BBox resolves a place name (scoped to Spain) to its bounding box. No
// results is a resolution failure: the caller must abort the sync run for
// that named scope.
func (r *Resolver) BBox(ctx context.Context, place string) (geo.BBox, error) {
	if place == "" {
		return geo.BBox{}, errors.NewGeocodeError(place, "empty place name", errors.ErrInvalidInput)
	}

	query := url.Values{
		"q":      {place + ", España"},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return geo.BBox{}, errors.NewGeocodeError(place, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.http.Do(req)
	if err != nil {
		return geo.BBox{}, errors.NewGeocodeError(place, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return geo.BBox{}, errors.NewGeocodeError(place, "search failed", &errors.APIError{
			Source:     "nominatim",
			Endpoint:   r.apiURL,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		})
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.BBox{}, errors.NewGeocodeError(place, "malformed response body", err)
	}
	if len(results) == 0 {
		return geo.BBox{}, errors.NewGeocodeError(place, "no results", errors.ErrUnresolvedPlace)
	}

	box, err := parseBoundingBox(results[0].BoundingBox)
	if err != nil {
		return geo.BBox{}, errors.NewGeocodeError(place, "unparseable bounding box", err)
	}

	logging.Ctx(ctx).Debug().
		Str("place", place).
		Str("resolved", results[0].DisplayName).
		Msg("place resolved to bounding box")

	return box, nil
}

// parseBoundingBox converts Nominatim's [minlat, maxlat, minlon, maxlon]
// string quadruple into a BBox.
func parseBoundingBox(raw []string) (geo.BBox, error) {
	if len(raw) != 4 {
		return geo.BBox{}, errors.NewValidationError("boundingbox", raw, "expected four values")
	}

	values := make([]float64, 4)
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return geo.BBox{}, errors.NewValidationError("boundingbox", s, "not a number")
		}
		values[i] = v
	}

	return geo.BBox{South: values[0], North: values[1], West: values[2], East: values[3]}, nil
}
