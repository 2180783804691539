package overpass

import (
	"fmt"
	"strings"
)

// The five match criteria, broadest coverage through progressively looser
// tagging. They are OR'd and overlap on purpose: the same physical element may
// satisfy several blocks and is deduplicated downstream by its "type/id" key.
//
//  1. explicit place of worship, christian, catholic
//  2. specific building types, catholic
//  3. explicit place of worship, christian, denomination untagged
//  4. specific building types, christian, denomination untagged
//  5. minor markers (crosses, shrines, grottos), christian
var criteria = []string{
	`["amenity"="place_of_worship"]["religion"="christian"]["denomination"="catholic"]`,
	`["building"~"^(church|cathedral|chapel|monastery|convent|hermitage|basilica)$"]["denomination"="catholic"]`,
	`["amenity"="place_of_worship"]["religion"="christian"][!"denomination"]`,
	`["building"~"^(church|cathedral|chapel|monastery|convent|hermitage|basilica)$"]["religion"="christian"][!"denomination"]`,
	`["place_of_worship"~"^(cross|wayside_shrine|lourdes_grotto)$"]["religion"="christian"]`,
}

// elementKinds are the Overpass element kinds each criterion is queried for.
var elementKinds = []string{"node", "way", "rel"}

// BuildQuery renders the Overpass QL query for a scope. Area scopes resolve
// Spain's ISO area server-side; box scopes append the coordinate filter to
// each block. The timeout directive uses the scope's budget in whole seconds.
func BuildQuery(scope Scope, timeouts Timeouts) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", int(timeouts.For(scope).Seconds()))

	var filter string
	if scope.IsSpain() {
		b.WriteString(`area["ISO3166-1"="ES"]->.es;` + "\n")
		filter = "(area.es)"
	} else {
		box := scope.BBox()
		filter = fmt.Sprintf("(%g,%g,%g,%g)", box.South, box.West, box.North, box.East)
	}

	b.WriteString("(\n")
	for _, criterion := range criteria {
		for _, kind := range elementKinds {
			fmt.Fprintf(&b, "  %s%s%s;\n", kind, criterion, filter)
		}
	}
	b.WriteString(");\n")
	b.WriteString("out tags center qt;\n")

	return b.String()
}
