// Package fixture writes small, deterministic exports in each agency's
// layout. The three agencies agree on most dates and disagree on a few, so
// merge order is observable.
package fixture

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/epi-series-etl/internal/source"
)

// Options controls the generated date range.
type Options struct {
	Start time.Time
	Days  int
}

// DefaultOptions covers six weeks from 1 March 2020.
var DefaultOptions = Options{
	Start: time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC),
	Days:  42,
}

type country struct {
	geoID      string
	ecdcCode   string
	alpha3     string
	owidCode   string
	name       string
	continent  string
	whoRegion  string
	population int64
	base       int64
}

var countries = []country{
	{"DE", "DE", "DEU", "DEU", "Germany", "Europe", "EURO", 83019213, 400},
	{"FR", "FR", "FRA", "FRA", "France", "Europe", "EURO", 67012883, 350},
	{"GB", "UK", "GBR", "GBR", "United_Kingdom", "Europe", "EURO", 66647112, 300},
	{"GR", "EL", "GRC", "GRC", "Greece", "Europe", "EURO", 10724599, 40},
	{"NA", "", "NAM", "NAM", "Namibia", "Africa", "AFRO", 2494524, 5},
	{"XK", "XK", "XKX", "OWID_KOS", "Kosovo", "Europe", "EURO", 1798506, 12},
}

// GeoIDs lists the canonical codes present in every generated export.
func GeoIDs() []string {
	out := make([]string, len(countries))
	for i, c := range countries {
		out[i] = c.geoID
	}
	return out
}

// Cases returns the daily cases kind reports for geoID on day index d.
// WHO revises every fifth day upward by one; OWID reports nothing on the
// seventh day of each week.
func Cases(kind source.Kind, geoID string, d int) int64 {
	for i, c := range countries {
		if c.geoID != geoID {
			continue
		}
		v := c.base + int64((d*17+i*5)%23)*c.base/10
		switch {
		case kind == source.KindWHO && d%5 == 0:
			v++
		case kind == source.KindOWID && d%7 == 6:
			v = 0
		}
		return v
	}
	return 0
}

// Deaths returns the daily deaths kind reports for geoID on day index d.
// Every eleventh day carries a negative revision.
func Deaths(kind source.Kind, geoID string, d int) int64 {
	if d%11 == 10 {
		return -1
	}
	return Cases(kind, geoID, d) / 25
}

// WriteECDC writes a csv in the ECDC case distribution layout, newest date first.
func WriteECDC(w io.Writer, opt Options) error {
	return writeCSV(w, ecdcRows(opt))
}

// WriteECDCXLSX writes the same table as WriteECDC to an xlsx workbook.
func WriteECDCXLSX(path string, opt Options) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // saved below

	const sheet = "COVID-19-geographic-disbtributi"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, row := range ecdcRows(opt) {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(sheet, cellName, &vals); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func ecdcRows(opt Options) [][]string {
	rows := [][]string{{
		"dateRep", "day", "month", "year", "cases", "deaths", "countriesAndTerritories",
		"geoId", "countryterritoryCode", "popData2019", "continentExp",
	}}
	for d := opt.Days - 1; d >= 0; d-- {
		date := opt.Start.AddDate(0, 0, d)
		for _, c := range countries {
			rows = append(rows, []string{
				date.Format("02/01/2006"),
				strconv.Itoa(date.Day()), strconv.Itoa(int(date.Month())), strconv.Itoa(date.Year()),
				itoa(Cases(source.KindECDC, c.geoID, d)), itoa(Deaths(source.KindECDC, c.geoID, d)),
				c.name, c.ecdcCode, c.alpha3, itoa(c.population), c.continent,
			})
		}
		if d == 0 {
			rows = append(rows, []string{
				date.Format("02/01/2006"),
				strconv.Itoa(date.Day()), strconv.Itoa(int(date.Month())), strconv.Itoa(date.Year()),
				"696", "7", "Cases_on_an_international_conveyance_Japan", "JPG11668", "", "", "Other",
			})
		}
	}
	return rows
}

// WriteOWID writes a csv in the Our World in Data layout, including the
// World aggregate row the adapter must drop.
func WriteOWID(w io.Writer, opt Options) error {
	rows := [][]string{{
		"iso_code", "continent", "location", "date", "total_cases", "new_cases",
		"total_deaths", "new_deaths", "population",
	}}
	totals := make(map[string][2]int64)
	for _, c := range countries {
		for d := range opt.Days {
			t := totals[c.geoID]
			t[0] += Cases(source.KindOWID, c.geoID, d)
			t[1] += Deaths(source.KindOWID, c.geoID, d)
			totals[c.geoID] = t
			rows = append(rows, []string{
				c.owidCode, c.continent, c.name, opt.Start.AddDate(0, 0, d).Format("2006-01-02"),
				ftoa(t[0]), ftoa(Cases(source.KindOWID, c.geoID, d)),
				ftoa(t[1]), ftoa(Deaths(source.KindOWID, c.geoID, d)),
				ftoa(c.population),
			})
		}
	}
	for d := range opt.Days {
		rows = append(rows, []string{
			"OWID_WRL", "", "World", opt.Start.AddDate(0, 0, d).Format("2006-01-02"),
			"", "80000.0", "", "5000.0", "7794798729.0",
		})
	}
	return writeCSV(w, rows)
}

// WriteWHO writes a csv in the WHO global data layout, including the
// blank-coded "Other" rows the adapter must drop.
func WriteWHO(w io.Writer, opt Options) error {
	rows := [][]string{{
		"Date_reported", "Country_code", "Country", "WHO_region",
		"New_cases", "Cumulative_cases", "New_deaths", "Cumulative_deaths",
	}}
	for _, c := range countries {
		var cumCases, cumDeaths int64
		for d := range opt.Days {
			cases, deaths := Cases(source.KindWHO, c.geoID, d), Deaths(source.KindWHO, c.geoID, d)
			cumCases += cases
			cumDeaths += deaths
			rows = append(rows, []string{
				opt.Start.AddDate(0, 0, d).Format("2006-01-02"), c.geoID, c.name, c.whoRegion,
				itoa(cases), itoa(cumCases), itoa(deaths), itoa(cumDeaths),
			})
		}
	}
	for d := range opt.Days {
		rows = append(rows, []string{
			opt.Start.AddDate(0, 0, d).Format("2006-01-02"), " ", "Other", "Other", "0", "741", "0", "13",
		})
	}
	return writeCSV(w, rows)
}

// WriteAll writes one export per agency into dir and returns their paths by
// kind. With xlsx set the ECDC export is written as a workbook.
func WriteAll(dir string, opt Options, xlsx bool) (map[source.Kind]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := map[source.Kind]string{
		source.KindECDC: filepath.Join(dir, "ecdc.csv"),
		source.KindOWID: filepath.Join(dir, "owid-covid-data.csv"),
		source.KindWHO:  filepath.Join(dir, "WHO-COVID-19-global-data.csv"),
	}
	if xlsx {
		paths[source.KindECDC] = filepath.Join(dir, "ecdc.xlsx")
		if err := WriteECDCXLSX(paths[source.KindECDC], opt); err != nil {
			return nil, fmt.Errorf("write ecdc: %w", err)
		}
	} else if err := writeFile(paths[source.KindECDC], opt, WriteECDC); err != nil {
		return nil, fmt.Errorf("write ecdc: %w", err)
	}
	if err := writeFile(paths[source.KindOWID], opt, WriteOWID); err != nil {
		return nil, fmt.Errorf("write owid: %w", err)
	}
	if err := writeFile(paths[source.KindWHO], opt, WriteWHO); err != nil {
		return nil, fmt.Errorf("write who: %w", err)
	}
	return paths, nil
}

func writeFile(path string, opt Options, write func(io.Writer, Options) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, opt); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func ftoa(v int64) string { return strconv.FormatInt(v, 10) + ".0" }
