// Package registry defines the canonical heritage-property model, the
// synchronization extension linking each property to its upstream OSM
// element, and the Repository contract every persistence layer must satisfy.
package registry

import (
	"encoding/json"

	"github.com/agentstation/utc"

	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
)

// Property is the authoritative record for one immovable heritage property.
// It is created once per unique upstream element and thereafter mutated only
// through the merge policy; nothing in this core ever deletes one.
type Property struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Address     string `json:"address,omitempty" yaml:"address,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`

	CategoryID          string `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	ConservationStateID string `json:"conservation_state_id,omitempty" yaml:"conservation_state_id,omitempty"`

	// Heritage marks a Bien de Interés Cultural designation.
	Heritage bool `json:"heritage" yaml:"heritage"`
	Ruin     bool `json:"ruin" yaml:"ruin"`

	ProvinceID     string `json:"province_id,omitempty" yaml:"province_id,omitempty"`
	MunicipalityID string `json:"municipality_id,omitempty" yaml:"municipality_id,omitempty"`

	CreatedAt utc.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`
}

// Point returns the property's coordinate, or nil when not georeferenced.
func (p *Property) Point() *geo.Point {
	if p.Latitude == nil || p.Longitude == nil {
		return nil
	}
	return &geo.Point{Lat: *p.Latitude, Lon: *p.Longitude}
}

// OSMExtension is the 1:1 synchronization record tying a Property to one
// upstream OSM element. OSMID ("type/id") is the natural key for idempotent
// re-sync and is unique across all extensions; a property never has more than
// one extension from the same upstream source.
type OSMExtension struct {
	PropertyID string `json:"property_id" yaml:"property_id"`

	OSMID   string `json:"osm_id" yaml:"osm_id"`
	OSMType string `json:"osm_type" yaml:"osm_type"`

	// Version is the upstream revision counter, expected non-decreasing
	// across syncs. Zero means the upstream never reported one.
	Version int64 `json:"version" yaml:"version"`

	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	InferredType string `json:"inferred_type,omitempty" yaml:"inferred_type,omitempty"`
	Denomination string `json:"denomination,omitempty" yaml:"denomination,omitempty"`
	Diocese      string `json:"diocese,omitempty" yaml:"diocese,omitempty"`
	Operator     string `json:"operator,omitempty" yaml:"operator,omitempty"`

	Point *geo.Point `json:"point,omitempty" yaml:"point,omitempty"`

	HeritageStatus string `json:"heritage_status,omitempty" yaml:"heritage_status,omitempty"`
	Historic       string `json:"historic,omitempty" yaml:"historic,omitempty"`
	Ruins          bool   `json:"ruins" yaml:"ruins"`
	HasPolygon     bool   `json:"has_polygon" yaml:"has_polygon"`

	AddressStreet   string `json:"address_street,omitempty" yaml:"address_street,omitempty"`
	AddressCity     string `json:"address_city,omitempty" yaml:"address_city,omitempty"`
	AddressPostcode string `json:"address_postcode,omitempty" yaml:"address_postcode,omitempty"`

	SourceUpdatedAt *utc.Time `json:"source_updated_at,omitempty" yaml:"source_updated_at,omitempty"`

	// Tags is the normalized tag snapshot; Raw the untouched upstream element.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Raw  json.RawMessage   `json:"raw,omitempty" yaml:"raw,omitempty"`

	// QAFlags holds only flags that are true; nil when none apply.
	QAFlags map[string]bool `json:"qa_flags,omitempty" yaml:"qa_flags,omitempty"`

	// SourceRefs holds only references present upstream; nil when none.
	SourceRefs map[string]string `json:"source_refs,omitempty" yaml:"source_refs,omitempty"`

	SyncedAt  utc.Time `json:"synced_at" yaml:"synced_at"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`
}

// UnlinkedAd is a classified-ad record not yet linked to a canonical
// property. It is read-only input to the candidate matcher.
type UnlinkedAd struct {
	ID    string     `json:"id" yaml:"id"`
	Title string     `json:"title" yaml:"title"`
	Point *geo.Point `json:"point,omitempty" yaml:"point,omitempty"`
}

// Candidate pairs a property with its match score in [0,1]. Candidates are a
// matcher output only and are never persisted.
type Candidate struct {
	Property *Property
	Score    float64
}

// RegionRefs carries the administrative-division references resolved from a
// coordinate.
type RegionRefs struct {
	ProvinceID     string
	MunicipalityID string
}
