package normalize

// osmCategoryNames maps upstream building / place_of_worship tag values to
// the catalog category names used by the registry.
var osmCategoryNames = map[string]string{
	"cathedral":      "Catedral",
	"basilica":       "Basílica",
	"church":         "Iglesia",
	"chapel":         "Capilla",
	"monastery":      "Monasterio",
	"convent":        "Convento",
	"hermitage":      "Ermita",
	"wayside_shrine": "Humilladero",
	"bell_tower":     "Campanario",
	"cross":          "Cruz",
	"wayside_cross":  "Crucero",
	"lourdes_grotto": "Gruta",
}

// DefaultCategoryName is the catalog category assigned when no tag maps.
const DefaultCategoryName = "Iglesia"

// CategoryTable maps catalog category names to their registry identifiers.
// It is supplied explicitly per sync run by the orchestrator; the engine
// never caches one process-wide.
type CategoryTable struct {
	ids map[string]string
}

// NewCategoryTable builds a lookup table from category name to registry id.
func NewCategoryTable(ids map[string]string) CategoryTable {
	copied := make(map[string]string, len(ids))
	for name, id := range ids {
		copied[name] = id
	}
	return CategoryTable{ids: copied}
}

// Resolve maps an element's tags to a category id. The building tag is
// preferred over place_of_worship; unmapped or unknown tags fall back to the
// default category. The second return is false when even the default is
// missing from the table.
func (t CategoryTable) Resolve(tags map[string]string) (string, bool) {
	name := osmCategoryNames[tags["building"]]
	if name == "" {
		name = osmCategoryNames[tags["place_of_worship"]]
	}
	if name == "" {
		name = DefaultCategoryName
	}

	if id, ok := t.ids[name]; ok {
		return id, true
	}
	id, ok := t.ids[DefaultCategoryName]
	return id, ok
}

// Empty reports whether the table has no entries.
func (t CategoryTable) Empty() bool {
	return len(t.ids) == 0
}
