package memstore

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/PepeluiMoreno/sipi-api/pkg/errors"
	"github.com/PepeluiMoreno/sipi-api/pkg/registry"
)

// fixture is the YAML shape LoadFixture accepts: a list of properties and a
// list of unlinked ads, keyed by the registry types' yaml tags.
type fixture struct {
	Properties []*registry.Property   `yaml:"properties"`
	Ads        []*registry.UnlinkedAd `yaml:"ads"`
}

// LoadFixture builds a store pre-populated from a YAML file. It exists for
// the CLI's matching mode and for tests; real deployments inject their own
// repository.
func LoadFixture(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("memstore", "read fixture", err)
	}
	return parseFixture(data, path)
}

// ParseFixture builds a store from a YAML document.
func ParseFixture(data []byte) (*Store, error) {
	return parseFixture(data, "")
}

func parseFixture(data []byte, path string) (*Store, error) {
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	store := New()
	for _, p := range f.Properties {
		if p.ID == "" {
			return nil, errors.NewValidationError("property", p.Name, "missing id")
		}
		store.SeedProperty(p)
	}
	for _, ad := range f.Ads {
		if ad.ID == "" {
			return nil, errors.NewValidationError("ad", ad.Title, "missing id")
		}
		store.SeedAd(ad)
	}
	return store, nil
}
