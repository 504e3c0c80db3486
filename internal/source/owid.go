package source

import (
	"log/slog"

	"github.com/couchcryptid/epi-series-etl/internal/geo"
)

// owidSchema describes the Our World in Data export (owid-covid-data.csv).
// OWID keys rows by ISO alpha-3 code and adds "OWID_"-prefixed aggregates
// (OWID_WRL, OWID_EUR, ...) which have no canonical country and are dropped.
var owidSchema = schema{
	kind: KindOWID,
	info: Info{
		FullName:  "Our World in Data",
		ShortName: "OWID",
		Link:      "https://covid.ourworldindata.org/data/owid-covid-data.csv",
	},
	date:        []string{"date"},
	geoID:       []string{"iso_code"},
	geoName:     []string{"location"},
	population:  []string{"population"},
	cases:       []string{"new_cases"},
	deaths:      []string{"new_deaths"},
	dateLayouts: []string{"2006-01-02", "01-02-06"},
	corrections: Corrections{
		Rules: map[string]string{
			"OWID_KOS": "XK",
		},
	},
	resolve: func(reg *geo.Registry, code string) string {
		if _, ok := reg.Lookup(code); ok {
			return code
		}
		if id, ok := reg.GeoIDForAlpha3(code); ok {
			return id
		}
		return code
	},
	unresolve: func(reg *geo.Registry, geoID string) string {
		if a3, ok := reg.Alpha3ForGeoID(geoID); ok {
			return a3
		}
		return geoID
	},
}

// OWID adapts the Our World in Data export.
type OWID struct {
	*base
}

// NewOWID normalizes an OWID export.
func NewOWID(t *Table, reg *geo.Registry, logger *slog.Logger) (*OWID, error) {
	b, err := newBase(owidSchema, t, reg, logger)
	if err != nil {
		return nil, err
	}
	return &OWID{base: b}, nil
}
