package zipcode

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

// Country is one entry of the source select box.
type Country struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Catalogue is the fixed list of countries the geocoding API serves.
type Catalogue struct {
	countries []Country
	byCode    map[string]Country
}

// LoadCatalogue parses a YAML document with a top-level "countries" list.
func LoadCatalogue(data []byte) (*Catalogue, error) {
	var doc struct {
		Countries []Country `yaml:"countries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse countries: %w", err)
	}
	if len(doc.Countries) == 0 {
		return nil, fmt.Errorf("parse countries: empty catalogue")
	}

	seen := make(map[string]struct{}, len(doc.Countries))
	for i, country := range doc.Countries {
		code := strings.TrimSpace(country.Code)
		if code == "" || strings.TrimSpace(country.Name) == "" {
			return nil, fmt.Errorf("parse countries: entry %d needs code and name", i)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("parse countries: duplicate code %q", code)
		}
		seen[code] = struct{}{}
		doc.Countries[i].Code = code
	}

	return &Catalogue{
		countries: doc.Countries,
		byCode: lo.KeyBy(doc.Countries, func(c Country) string {
			return c.Code
		}),
	}, nil
}

var (
	defaultCatalogue     *Catalogue
	defaultCatalogueOnce sync.Once
)

// DefaultCatalogue returns the embedded catalogue. The embedded file is
// covered by tests, so a parse failure is a programming error.
func DefaultCatalogue() *Catalogue {
	defaultCatalogueOnce.Do(func() {
		catalogue, err := LoadCatalogue(countriesYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalogue = catalogue
	})
	return defaultCatalogue
}

// All returns the countries in display order.
func (c *Catalogue) All() []Country {
	out := make([]Country, len(c.countries))
	copy(out, c.countries)
	return out
}

// Get returns the country for a code.
func (c *Catalogue) Get(code string) (Country, bool) {
	country, ok := c.byCode[code]
	return country, ok
}

// Known reports whether code is in the catalogue.
func (c *Catalogue) Known(code string) bool {
	_, ok := c.Get(code)
	return ok
}
