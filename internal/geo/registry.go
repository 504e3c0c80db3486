// Package geo holds the canonical country registry shared by every source
// adapter.
package geo

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

//go:embed countries.yaml
var countriesYAML []byte

var geoIDRe = regexp.MustCompile(`^[A-Z]{2}$`)

// Country is the canonical identity of one country or territory.
type Country struct {
	GeoID      string `yaml:"geo_id" json:"geo_id"`
	Alpha3     string `yaml:"alpha3" json:"alpha3"`
	Name       string `yaml:"name" json:"name"`
	Continent  string `yaml:"continent" json:"continent"`
	Population int64  `yaml:"population" json:"population"`
}

type registryFile struct {
	Version   string    `yaml:"version"`
	Countries []Country `yaml:"countries"`
}

// Registry resolves canonical country metadata. It is read-only once built
// and safe for concurrent use.
type Registry struct {
	version  string
	byID     map[string]Country
	byAlpha3 map[string]string
}

// Load builds the registry from the embedded country list.
func Load() (*Registry, error) {
	return Parse(countriesYAML)
}

// Parse builds a registry from a YAML document shaped like countries.yaml.
func Parse(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode country registry: %w", err)
	}
	return New(f.Version, f.Countries)
}

// New builds a registry from an explicit list. GeoIDs must be two upper-case
// letters and unique.
func New(version string, countries []Country) (*Registry, error) {
	r := &Registry{
		version:  version,
		byID:     make(map[string]Country, len(countries)),
		byAlpha3: make(map[string]string, len(countries)),
	}
	for _, c := range countries {
		if !geoIDRe.MatchString(c.GeoID) {
			return nil, fmt.Errorf("country registry: invalid geo id %q", c.GeoID)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("country registry: %s has no name", c.GeoID)
		}
		if _, dup := r.byID[c.GeoID]; dup {
			return nil, fmt.Errorf("country registry: duplicate geo id %s", c.GeoID)
		}
		r.byID[c.GeoID] = c
		if c.Alpha3 != "" {
			r.byAlpha3[strings.ToUpper(c.Alpha3)] = c.GeoID
		}
	}
	return r, nil
}

// Version identifies the registry data set.
func (r *Registry) Version() string { return r.version }

// Len returns the number of countries.
func (r *Registry) Len() int { return len(r.byID) }

// NameForCode returns the canonical display name for geoID.
func (r *Registry) NameForCode(geoID string) (string, error) {
	c, ok := r.byID[geoID]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownGeoID, geoID)
	}
	return c.Name, nil
}

// Lookup returns the full country record for geoID.
func (r *Registry) Lookup(geoID string) (Country, bool) {
	c, ok := r.byID[geoID]
	return c, ok
}

// GeoIDForAlpha3 maps an ISO alpha-3 code to the canonical geoID.
func (r *Registry) GeoIDForAlpha3(alpha3 string) (string, bool) {
	id, ok := r.byAlpha3[strings.ToUpper(alpha3)]
	return id, ok
}

// Alpha3ForGeoID maps a canonical geoID to its alpha-3 code.
func (r *Registry) Alpha3ForGeoID(geoID string) (string, bool) {
	c, ok := r.byID[geoID]
	if !ok || c.Alpha3 == "" {
		return "", false
	}
	return c.Alpha3, true
}

// GeoIDs returns every registered code, sorted.
func (r *Registry) GeoIDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
