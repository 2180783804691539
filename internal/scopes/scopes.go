// Package scopes loads named sync scopes from a YAML file, letting operators
// target well-known provinces without a geocoding round-trip.
package scopes

import (
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/geo"
	"github.com/PepeluiMoreno/sipi-api/pkg/text"
)

// file is the on-disk shape:
//
//	scopes:
//	  sevilla:
//	    south: 36.85
//	    west: -6.54
//	    north: 38.20
//	    east: -4.65
type file struct {
	Scopes map[string]box `yaml:"scopes"`
}

type box struct {
	South float64 `yaml:"south"`
	West  float64 `yaml:"west"`
	North float64 `yaml:"north"`
	East  float64 `yaml:"east"`
}

// Set is a case- and accent-insensitive lookup of named bounding boxes.
type Set struct {
	boxes map[string]geo.BBox
}

// Load reads and validates a named-scope file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("scopes", "read scope file", err)
	}
	return parse(data, path)
}

// Parse decodes a named-scope document.
func Parse(data []byte) (*Set, error) {
	return parse(data, "")
}

func parse(data []byte, path string) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	set := &Set{boxes: make(map[string]geo.BBox, len(f.Scopes))}
	for name, b := range f.Scopes {
		bb := geo.BBox{South: b.South, West: b.West, North: b.North, East: b.East}
		if bb.South >= bb.North || bb.West >= bb.East {
			return nil, errors.NewValidationError("scope", name, "inverted bounding box")
		}
		set.boxes[keyFor(name)] = bb
	}
	return set, nil
}

// Lookup resolves a scope name. Matching ignores case and diacritics, so
// "Cádiz" and "cadiz" name the same scope.
func (s *Set) Lookup(name string) (geo.BBox, bool) {
	bb, ok := s.boxes[keyFor(name)]
	return bb, ok
}

// Names returns the defined scope names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.boxes))
	for name := range s.boxes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of defined scopes.
func (s *Set) Len() int {
	return len(s.boxes)
}

func keyFor(name string) string {
	return text.Fold(strings.TrimSpace(name))
}
