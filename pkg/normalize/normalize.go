// Package normalize maps raw Overpass elements into the canonical field
// values, quality flags, and source references stored on a property's OSM
// extension. Normalization is pure: identical input always yields identical
// output, and nothing here touches the network or the repository.
package normalize

import (
	"strings"
	"time"

	"github.com/agentstation/utc"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/overpass"
)

// structuralTypes is the enumerated set of building values treated as
// heritage-relevant structures.
var structuralTypes = map[string]bool{
	"church":    true,
	"cathedral": true,
	"chapel":    true,
	"monastery": true,
	"convent":   true,
	"hermitage": true,
	"basilica":  true,
}

// QA flag names computed at normalization time.
const (
	FlagMissingName          = "missing_name"
	FlagMissingDenomination  = "missing_denomination"
	FlagMissingCoordinates   = "missing_coordinates"
	FlagIncompleteHeritage   = "incomplete_heritage"
	FlagRuinsWithoutHistoric = "ruins_without_historic"
)

// Normalized is the canonical projection of one raw element.
type Normalized struct {
	OSMID   string
	OSMType string
	NumID   int64
	Version int64

	Point      *geo.Point
	HasPolygon bool

	Name         string
	InferredType string
	Denomination string
	Diocese      string
	Operator     string

	HeritageStatus string
	Historic       string
	Heritage       bool
	Ruin           bool

	Description     string
	Address         string
	AddressStreet   string
	AddressCity     string
	AddressPostcode string

	SourceUpdatedAt *utc.Time

	// QAFlags holds only flags that are true; nil when none apply.
	QAFlags map[string]bool

	// SourceRefs holds only references present upstream; nil when none.
	SourceRefs map[string]string

	// Tags is the full upstream tag snapshot.
	Tags map[string]string
}

// DisplayName returns the element's name, or the registry placeholder when
// the upstream element is unnamed.
func (n Normalized) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return "Sin nombre"
}

// Normalize maps one raw element to its canonical projection. Elements
// without a kind or numeric id are malformed and rejected; every other
// incompleteness is recorded as a QA flag instead of an error.
func Normalize(el overpass.Element) (Normalized, error) {
	if el.Type == "" {
		return Normalized{}, errors.NewValidationError("type", el.Type, "element has no kind")
	}
	if el.ID == 0 {
		return Normalized{}, errors.NewValidationError("id", el.ID, "element has no numeric id")
	}

	tags := el.Tags
	n := Normalized{
		OSMID:   el.OSMID(),
		OSMType: el.Type,
		NumID:   el.ID,
		Version: el.Version,

		Point:      el.Point(),
		HasPolygon: el.HasPolygon(),

		Name:         tags["name"],
		InferredType: inferType(tags),
		Denomination: tags["denomination"],
		Diocese:      tags["diocese"],
		Operator:     tags["operator"],

		HeritageStatus: heritageStatus(tags),
		Historic:       tags["historic"],
		Heritage:       isHeritage(tags),
		Ruin:           isRuin(tags),

		AddressStreet:   tags["addr:street"],
		AddressCity:     tags["addr:city"],
		AddressPostcode: tags["addr:postcode"],

		SourceUpdatedAt: parseTimestamp(el.Timestamp),
		Tags:            tags,
	}

	n.Description = buildDescription(tags)
	n.Address = BuildAddress(tags)
	n.QAFlags = qaFlags(n, tags)
	n.SourceRefs = sourceRefs(tags)

	return n, nil
}

// inferType resolves the element's category tag by trying, in order, the
// structural building set, the worship amenity, and the minor marker tag.
func inferType(tags map[string]string) string {
	if building := tags["building"]; structuralTypes[building] {
		return building
	}
	if tags["amenity"] == "place_of_worship" {
		return "place_of_worship"
	}
	if pow := tags["place_of_worship"]; pow != "" {
		return pow
	}
	return ""
}

// heritageStatus picks the raw heritage status, preferring the free-text tag.
func heritageStatus(tags map[string]string) string {
	if h := tags["heritage"]; h != "" {
		return h
	}
	return tags["heritage:status"]
}

// isHeritage detects a Bien de Interés Cultural designation.
func isHeritage(tags map[string]string) bool {
	heritage := strings.ToLower(tags["heritage"])
	status := strings.ToLower(tags["heritage:status"])

	if strings.Contains(heritage, "bien de interés cultural") || strings.Contains(heritage, "bic") {
		return true
	}
	if _, ok := tags["ref:es:bic"]; ok {
		return true
	}
	return strings.Contains(status, "bic")
}

// isRuin detects a ruined building.
func isRuin(tags map[string]string) bool {
	return strings.ToLower(tags["ruins"]) == "yes" || strings.ToLower(tags["building"]) == "ruins"
}

// buildDescription assembles the free-text description in fixed order,
// omitting absent components.
func buildDescription(tags map[string]string) string {
	var parts []string

	if denomination := tags["denomination"]; denomination != "" {
		parts = append(parts, "Denominación: "+denomination)
	}
	if religion := tags["religion"]; religion != "" {
		parts = append(parts, "Religión: "+religion)
	}
	if architect := tags["architect"]; architect != "" {
		parts = append(parts, "Arquitecto: "+architect)
	}
	if startDate := tags["start_date"]; startDate != "" {
		parts = append(parts, "Construcción: "+startDate)
	}
	if description := tags["description"]; description != "" {
		parts = append(parts, description)
	}

	return strings.Join(parts, " | ")
}

// BuildAddress assembles the normalized address string in fixed order,
// omitting absent components. Exported because the merge policy compares
// freshly built addresses against stored ones.
func BuildAddress(tags map[string]string) string {
	var parts []string

	if street := tags["addr:street"]; street != "" {
		parts = append(parts, street)
	}
	if housenumber := tags["addr:housenumber"]; housenumber != "" {
		parts = append(parts, housenumber)
	}
	if postcode := tags["addr:postcode"]; postcode != "" {
		parts = append(parts, "CP "+postcode)
	}
	if city := tags["addr:city"]; city != "" {
		parts = append(parts, city)
	}

	return strings.Join(parts, ", ")
}

// qaFlags computes the data-quality flag set; nil when nothing is flagged.
func qaFlags(n Normalized, tags map[string]string) map[string]bool {
	flags := map[string]bool{}

	if tags["name"] == "" {
		flags[FlagMissingName] = true
	}
	if tags["denomination"] == "" {
		flags[FlagMissingDenomination] = true
	}
	if n.Point == nil {
		flags[FlagMissingCoordinates] = true
	}
	if (tags["heritage"] != "" || tags["ref:es:bic"] != "") && tags["heritage:operator"] == "" {
		flags[FlagIncompleteHeritage] = true
	}
	if n.Ruin && tags["historic"] == "" {
		flags[FlagRuinsWithoutHistoric] = true
	}

	if len(flags) == 0 {
		return nil
	}
	return flags
}

// sourceRefs extracts upstream source references; nil when none are present.
func sourceRefs(tags map[string]string) map[string]string {
	refs := map[string]string{}

	for key, name := range map[string]string{
		"ref:es:bic":   "bic",
		"ref:catastro": "catastro",
		"wikipedia":    "wikipedia",
		"wikidata":     "wikidata",
		"website":      "website",
		"source":       "source",
	} {
		if v := tags[key]; v != "" {
			refs[name] = v
		}
	}

	if len(refs) == 0 {
		return nil
	}
	return refs
}

// parseTimestamp parses the upstream RFC3339 timestamp; nil when absent or
// unparseable.
func parseTimestamp(ts string) *utc.Time {
	if ts == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil
	}
	t := utc.New(parsed)
	return &t
}
