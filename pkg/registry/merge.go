package registry

import (
	"unicode/utf8"

	"github.com/PepeluiMoreno/sipi-api/pkg/normalize"
)

// PropertyFields holds the property field changes produced by the merge
// policy. Only non-nil pointers are applied.
type PropertyFields struct {
	Name      *string
	Latitude  *float64
	Longitude *float64
	Address   *string
	Heritage  *bool
	Ruin      *bool
}

// Empty reports whether the merge produced no changes at all.
func (f PropertyFields) Empty() bool {
	return f.Name == nil && f.Latitude == nil && f.Longitude == nil &&
		f.Address == nil && f.Heritage == nil && f.Ruin == nil
}

// Merge computes the asymmetric update of a stored property from freshly
// normalized upstream data:
//
//   - name is replaced only when the fetched name is non-empty and differs;
//   - coordinates are always refreshed when present in the fetch;
//   - the address is replaced only when the new one is strictly longer than
//     the stored one, so an update never discards address detail;
//   - heritage and ruin flags always follow the fetch.
//
// Merge is pure and never touches persistence.
func Merge(old *Property, n normalize.Normalized) PropertyFields {
	var fields PropertyFields

	if n.Name != "" && n.Name != old.Name {
		name := n.Name
		fields.Name = &name
	}

	if n.Point != nil {
		lat, lon := n.Point.Lat, n.Point.Lon
		fields.Latitude = &lat
		fields.Longitude = &lon
	}

	// Character count, not bytes: accented street names must not tip the
	// comparison.
	if utf8.RuneCountInString(n.Address) > utf8.RuneCountInString(old.Address) {
		addr := n.Address
		fields.Address = &addr
	}

	if n.Heritage != old.Heritage {
		heritage := n.Heritage
		fields.Heritage = &heritage
	}
	if n.Ruin != old.Ruin {
		ruin := n.Ruin
		fields.Ruin = &ruin
	}

	return fields
}

// Apply mutates p with the merged fields. Repository implementations may use
// it to translate PropertyFields into storage writes.
func (f PropertyFields) Apply(p *Property) {
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.Latitude != nil {
		p.Latitude = f.Latitude
	}
	if f.Longitude != nil {
		p.Longitude = f.Longitude
	}
	if f.Address != nil {
		p.Address = *f.Address
	}
	if f.Heritage != nil {
		p.Heritage = *f.Heritage
	}
	if f.Ruin != nil {
		p.Ruin = *f.Ruin
	}
}
