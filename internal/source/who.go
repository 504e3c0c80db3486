package source

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/geo"
)

// whoSchema describes the WHO global export (WHO-COVID-19-global-data.csv):
//
//	Date_reported,Country_code,Country,WHO_region,New_cases,Cumulative_cases,New_deaths,Cumulative_deaths
//
// WHO uses alpha-2 codes throughout. Its blank code belongs to "Other"
// (cases on international conveyances), not to a country, so there is no
// fallback and those rows are dropped. WHO carries no population; the
// registry's figure is used.
var whoSchema = schema{
	kind: KindWHO,
	info: Info{
		FullName:  "World Health Organization",
		ShortName: "WHO",
		Link:      "https://covid19.who.int/WHO-COVID-19-global-data.csv",
	},
	date:        []string{"Date_reported"},
	geoID:       []string{"Country_code"},
	geoName:     []string{"Country"},
	cases:       []string{"New_cases"},
	deaths:      []string{"New_deaths"},
	dateLayouts: []string{"2006-01-02", time.RFC3339, "1/2/2006", "01-02-06"},
	corrections: Corrections{},
}

// WHO adapts the WHO global export.
type WHO struct {
	*base
}

// NewWHO normalizes a WHO export.
func NewWHO(t *Table, reg *geo.Registry, logger *slog.Logger) (*WHO, error) {
	b, err := newBase(whoSchema, t, reg, logger)
	if err != nil {
		return nil, err
	}
	return &WHO{base: b}, nil
}
