package overpass

import (
	"fmt"

	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
)

// Element is one raw tagged element as returned by the Overpass API. Nodes
// carry direct coordinates; ways and relations carry a precomputed center.
type Element struct {
	Type      string            `json:"type"`
	ID        int64             `json:"id"`
	Lat       *float64          `json:"lat,omitempty"`
	Lon       *float64          `json:"lon,omitempty"`
	Center    *Center           `json:"center,omitempty"`
	Version   int64             `json:"version,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Center is the precomputed center coordinate of a way or relation.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OSMID returns the stable "type/id" natural key of the element.
func (e Element) OSMID() string {
	return fmt.Sprintf("%s/%d", e.Type, e.ID)
}

// Point returns the element's coordinate: direct for nodes, the center for
// ways and relations, nil when neither is present.
func (e Element) Point() *geo.Point {
	if e.Lat != nil && e.Lon != nil {
		return &geo.Point{Lat: *e.Lat, Lon: *e.Lon}
	}
	if e.Center != nil {
		return &geo.Point{Lat: e.Center.Lat, Lon: e.Center.Lon}
	}
	return nil
}

// Tag returns the value of a tag, or the empty string when absent.
func (e Element) Tag(key string) string {
	return e.Tags[key]
}

// HasPolygon reports whether the element carries an area geometry upstream.
func (e Element) HasPolygon() bool {
	return e.Type == "way" || e.Type == "relation"
}

// response is the Overpass API envelope.
type response struct {
	Elements []Element `json:"elements"`
}
