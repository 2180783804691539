// Package overpass builds Overpass QL queries for christian religious
// buildings and fetches the matching raw elements over HTTP.
package overpass

import (
	"fmt"
	"time"

	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
)

// Default server-side timeouts. Whole-country area queries walk a far larger
// result set than bounding-box queries and need a much longer budget.
const (
	DefaultAreaTimeout = 1800 * time.Second
	DefaultBBoxTimeout = 180 * time.Second
)

// Scope is the spatial extent of a sync run: the whole of Spain (resolved
// server-side through its ISO area) or an explicit bounding box. The zero
// value is the whole-country scope.
type Scope struct {
	bbox geo.BBox
}

// Spain returns the whole-country scope.
func Spain() Scope {
	return Scope{}
}

// Area returns a bounding-box scope.
func Area(b geo.BBox) Scope {
	return Scope{bbox: b}
}

// IsSpain reports whether the scope covers the whole country.
func (s Scope) IsSpain() bool {
	return s.bbox.IsZero()
}

// BBox returns the bounding box of a box scope; the zero box for Spain.
func (s Scope) BBox() geo.BBox {
	return s.bbox
}

// Key returns a stable identifier for the scope, used to guard against
// overlapping sync runs on the same extent.
func (s Scope) Key() string {
	if s.IsSpain() {
		return "spain"
	}
	return fmt.Sprintf("bbox:%.6f,%.6f,%.6f,%.6f", s.bbox.South, s.bbox.West, s.bbox.North, s.bbox.East)
}

// String implements fmt.Stringer.
func (s Scope) String() string {
	return s.Key()
}

// Timeouts holds the configurable server-side query budgets per scope kind.
type Timeouts struct {
	Area time.Duration
	BBox time.Duration
}

// DefaultTimeouts returns the default query budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{Area: DefaultAreaTimeout, BBox: DefaultBBoxTimeout}
}

// For returns the budget for the given scope.
func (t Timeouts) For(s Scope) time.Duration {
	if s.IsSpain() {
		if t.Area > 0 {
			return t.Area
		}
		return DefaultAreaTimeout
	}
	if t.BBox > 0 {
		return t.BBox
	}
	return DefaultBBoxTimeout
}
