package source

import (
	"log/slog"

	"github.com/couchcryptid/epi-series-etl/internal/geo"
)

// ecdcSchema describes the ECDC "geographic distribution" export, published
// daily until December 2020:
//
//	dateRep,day,month,year,cases,deaths,countriesAndTerritories,geoId,
//	countryterritoryCode,popData2019,continentExp,Cumulative_number_for_14_days...
//
// ECDC uses EU conventions for two codes and Namibia's "NA" is lost as a
// missing value by most exporters.
var ecdcSchema = schema{
	kind: KindECDC,
	info: Info{
		FullName:  "European Centre for Disease Prevention and Control",
		ShortName: "ECDC",
		Link:      "https://www.ecdc.europa.eu/en/publications-data/download-todays-data-geographic-distribution-covid-19-cases-worldwide",
	},
	date:        []string{"dateRep"},
	geoID:       []string{"geoId"},
	geoName:     []string{"countriesAndTerritories"},
	population:  []string{"popData2019", "popData2020", "popData2018"},
	cases:       []string{"cases"},
	deaths:      []string{"deaths"},
	dateLayouts: []string{"02/01/2006"},
	corrections: Corrections{
		Rules: map[string]string{
			"UK": "GB",
			"EL": "GR",
		},
		Fallback: "NA",
	},
}

// ECDC adapts the ECDC daily export.
type ECDC struct {
	*base
}

// NewECDC normalizes an ECDC export.
func NewECDC(t *Table, reg *geo.Registry, logger *slog.Logger) (*ECDC, error) {
	b, err := newBase(ecdcSchema, t, reg, logger)
	if err != nil {
		return nil, err
	}
	return &ECDC{base: b}, nil
}
