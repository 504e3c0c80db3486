// Package source turns each agency's raw export into canonical records.
//
// Every variant runs the same normalization pipeline, configured by a schema
// (column names, date layouts, code corrections). Normalization happens once,
// eagerly, when the adapter is constructed; adapters are immutable afterward
// and safe for concurrent reads.
package source

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/geo"
)

// Kind identifies a source variant in configuration.
type Kind string

const (
	KindECDC Kind = "ecdc"
	KindOWID Kind = "owid"
	KindWHO  Kind = "who"
)

// Drop reasons reported in Stats.
const (
	ReasonMalformedRow    = "malformed_row"
	ReasonUnparseableDate = "unparseable_date"
	ReasonUnknownGeoID    = "unknown_geo_id"
)

// Info describes where a source's data comes from.
type Info struct {
	FullName  string
	ShortName string
	Link      string
}

// Stats summarizes one normalization run.
type Stats struct {
	Rows     int
	Kept     int
	Dropped  map[string]int
	Duration time.Duration
}

// DroppedTotal sums the dropped rows over all reasons.
func (s Stats) DroppedTotal() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// Adapter exposes one agency's data in canonical form.
type Adapter interface {
	// Kind returns the configuration name of the variant.
	Kind() Kind
	// Info describes the data source.
	Info() Info
	// GeoIDs returns the canonical codes the source holds, sorted.
	GeoIDs() []string
	// Countries returns the (GeoID, GeoName) pairs the source holds.
	Countries() []domain.GeoPair
	// Records returns the date-ordered records for a canonical geoID.
	Records(geoID string) []domain.Record
	// CanonicalGeoID applies the source's code corrections to code.
	CanonicalGeoID(code string) string
	// CorrectGeoIDList maps canonical codes to the codes the source stores them under.
	CorrectGeoIDList(codes []string) []string
	// ContinentGroup returns the curated geoIDs of a continent.
	ContinentGroup(c geo.Continent) []string
	// ContinentGroupString returns the same group as a comma separated string.
	ContinentGroupString(c geo.Continent) string
	// Stats reports how many rows were read, kept and dropped.
	Stats() Stats
}

// schema configures the shared normalization pipeline for one variant.
type schema struct {
	kind        Kind
	info        Info
	date        []string
	geoID       []string
	geoName     []string
	population  []string
	cases       []string
	deaths      []string
	dateLayouts []string
	corrections Corrections
	// resolve turns a corrected code into a canonical geoID. nil means the
	// corrected code already is the geoID.
	resolve func(reg *geo.Registry, code string) string
	// unresolve is the inverse of resolve for codes without a correction rule.
	unresolve func(reg *geo.Registry, geoID string) string
}

// base holds the normalized records and implements everything in Adapter
// except the variant-specific identity.
type base struct {
	schema   schema
	registry *geo.Registry
	records  map[string][]domain.Record
	ids      []string
	stats    Stats
}

func (b *base) Kind() Kind { return b.schema.kind }
func (b *base) Info() Info { return b.schema.info }

func (b *base) GeoIDs() []string { return slices.Clone(b.ids) }

func (b *base) Countries() []domain.GeoPair {
	out := make([]domain.GeoPair, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, domain.GeoPair{GeoID: id, GeoName: b.records[id][0].GeoName})
	}
	return out
}

func (b *base) Records(geoID string) []domain.Record {
	return slices.Clone(b.records[geoID])
}

func (b *base) CanonicalGeoID(code string) string {
	c := b.schema.corrections.Canonical(code)
	if b.schema.resolve != nil && c != "" {
		return b.schema.resolve(b.registry, c)
	}
	return c
}

func (b *base) CorrectGeoIDList(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if src, ok := b.schema.corrections.Source(code); ok {
			out = append(out, src)
			continue
		}
		if b.schema.unresolve != nil {
			out = append(out, b.schema.unresolve(b.registry, code))
			continue
		}
		out = append(out, code)
	}
	return out
}

func (b *base) ContinentGroup(c geo.Continent) []string { return geo.Group(c) }

func (b *base) ContinentGroupString(c geo.Continent) string { return geo.GroupString(c) }

func (b *base) Stats() Stats {
	s := b.stats
	s.Dropped = maps.Clone(b.stats.Dropped)
	return s
}

type columns struct {
	date, geoID, geoName, population, cases, deaths int
}

func (s schema) locate(t *Table) (columns, error) {
	var cols columns
	var missing []string
	required := func(names []string) int {
		i, ok := t.Column(names...)
		if !ok {
			missing = append(missing, names[0])
		}
		return i
	}
	optional := func(names []string) int {
		i, _ := t.Column(names...)
		return i
	}
	cols.date = required(s.date)
	cols.geoID = required(s.geoID)
	cols.cases = required(s.cases)
	cols.deaths = required(s.deaths)
	cols.geoName = optional(s.geoName)
	cols.population = optional(s.population)
	if len(missing) > 0 {
		return cols, fmt.Errorf("%s export is missing columns %v", s.info.ShortName, missing)
	}
	return cols, nil
}

// newBase runs the normalization pipeline over t.
func newBase(s schema, t *Table, reg *geo.Registry, logger *slog.Logger) (*base, error) {
	start := time.Now()
	cols, err := s.locate(t)
	if err != nil {
		return nil, err
	}

	b := &base{
		schema:   s,
		registry: reg,
		records:  make(map[string][]domain.Record),
		stats:    Stats{Dropped: make(map[string]int)},
	}
	logger = logger.With("source", s.info.ShortName)

	byGeo := make(map[string]map[time.Time]domain.Record)
	warnedCodes := make(map[string]bool)
	renamed := make(map[string]bool)

	for i, row := range t.Rows {
		line := i + 2
		b.stats.Rows++

		rawCode := cell(row, cols.geoID)
		geoID := b.CanonicalGeoID(rawCode)
		country, ok := reg.Lookup(geoID)
		if !ok {
			b.stats.Dropped[ReasonUnknownGeoID]++
			if !warnedCodes[rawCode] {
				warnedCodes[rawCode] = true
				logger.Warn("unknown geo id, dropping its rows", "code", rawCode, "line", line)
			}
			continue
		}

		rec, reason, err := s.parseRow(row, cols, country)
		if err != nil {
			b.stats.Dropped[reason]++
			logger.Debug("dropping row", "error", &domain.RowError{Source: s.info.ShortName, Line: line, Err: err})
			continue
		}

		if srcName := cell(row, cols.geoName); srcName != "" && srcName != country.Name && !renamed[geoID] {
			renamed[geoID] = true
			logger.Debug("replacing source name with canonical name",
				"geo_id", geoID, "source_name", srcName, "canonical_name", country.Name)
		}

		dates, ok := byGeo[geoID]
		if !ok {
			dates = make(map[time.Time]domain.Record)
			byGeo[geoID] = dates
		}
		dates[rec.Date] = rec
	}

	for geoID, dates := range byGeo {
		recs := slices.Collect(maps.Values(dates))
		slices.SortFunc(recs, func(a, b domain.Record) int { return a.Date.Compare(b.Date) })
		b.records[geoID] = recs
		b.stats.Kept += len(recs)
	}
	b.ids = slices.Sorted(maps.Keys(b.records))
	b.stats.Duration = time.Since(start)

	logger.Info("source loaded",
		"rows", b.stats.Rows,
		"kept", b.stats.Kept,
		"dropped", b.stats.DroppedTotal(),
		"countries", len(b.ids),
		"duration", b.stats.Duration,
	)
	return b, nil
}

// parseRow builds a record from a row whose geoID is already resolved. The
// canonical name and continent always come from the registry.
func (s schema) parseRow(row []string, cols columns, country geo.Country) (domain.Record, string, error) {
	date, err := parseDate(cell(row, cols.date), s.dateLayouts)
	if err != nil {
		return domain.Record{}, ReasonUnparseableDate, err
	}
	cases, err := parseCount(cell(row, cols.cases))
	if err != nil {
		return domain.Record{}, ReasonMalformedRow, fmt.Errorf("cases: %w", err)
	}
	deaths, err := parseCount(cell(row, cols.deaths))
	if err != nil {
		return domain.Record{}, ReasonMalformedRow, fmt.Errorf("deaths: %w", err)
	}

	rec := domain.Record{
		Date:        date,
		GeoID:       country.GeoID,
		GeoName:     country.Name,
		Continent:   country.Continent,
		DailyCases:  cases,
		DailyDeaths: deaths,
	}
	if pop, err := parseCount(cell(row, cols.population)); err == nil && pop >= 0 {
		rec.Population = &pop
	} else if country.Population > 0 {
		pop := country.Population
		rec.Population = &pop
	}
	return rec, "", nil
}

func parseDate(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnparseableDate, s)
}

// parseCount parses a signed integer count. Some exports write counts as
// floats ("12.0"); those are accepted when integral.
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", domain.ErrMalformedRow)
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q is not a count", domain.ErrMalformedRow, s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q is out of range", domain.ErrMalformedRow, s)
	}
	return int64(f), nil
}
