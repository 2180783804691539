// Package geocode defines the reverse-geocoding collaborator used to resolve
// administrative divisions from coordinates. Real resolution lives outside
// this core; the shipped implementation is a stub that never resolves.
package geocode

import (
	"context"

	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
)

// RegionResolver resolves the administrative-division references for a
// coordinate. A nil result means the region is unknown.
type RegionResolver interface {
	ResolveRegion(ctx context.Context, lat, lon float64) (*registry.RegionRefs, error)
}

// Unresolved is the stub RegionResolver: every lookup returns unknown.
type Unresolved struct{}

// ResolveRegion implements RegionResolver.
func (Unresolved) ResolveRegion(context.Context, float64, float64) (*registry.RegionRefs, error) {
	return nil, nil
}
