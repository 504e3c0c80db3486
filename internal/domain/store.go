package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Series is one country's records ordered by date, plus any derived columns
// aligned index-for-index with the records. A Series is never modified after
// it is built; transformations produce new values.
type Series struct {
	geoID   string
	records []Record
	columns map[string][]Value
}

// GeoID returns the canonical code of the country.
func (s *Series) GeoID() string { return s.geoID }

// Len returns the number of dates in the series.
func (s *Series) Len() int { return len(s.records) }

// Records returns a copy of the records in date order.
func (s *Series) Records() []Record { return slices.Clone(s.records) }

// Record returns the i-th record.
func (s *Series) Record(i int) Record { return s.records[i] }

// Column resolves a numeric attribute, base or derived, matched case-insensitively.
func (s *Series) Column(name string) ([]Value, error) {
	switch {
	case strings.EqualFold(name, ColDailyCases):
		return s.intColumn(func(r Record) int64 { return r.DailyCases }), nil
	case strings.EqualFold(name, ColDailyDeaths):
		return s.intColumn(func(r Record) int64 { return r.DailyDeaths }), nil
	case strings.EqualFold(name, ColPopulation):
		out := make([]Value, len(s.records))
		for i, r := range s.records {
			if r.Population != nil {
				out[i] = Known(float64(*r.Population))
			}
		}
		return out, nil
	}
	if vals, ok := s.columns[name]; ok {
		return slices.Clone(vals), nil
	}
	for col, vals := range s.columns {
		if strings.EqualFold(col, name) {
			return slices.Clone(vals), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, name)
}

func (s *Series) intColumn(pick func(Record) int64) []Value {
	out := make([]Value, len(s.records))
	for i, r := range s.records {
		out[i] = Known(float64(pick(r)))
	}
	return out
}

// slice returns the sub-series [from, to).
func (s *Series) slice(from, to int) *Series {
	out := &Series{
		geoID:   s.geoID,
		records: s.records[from:to:to],
		columns: make(map[string][]Value, len(s.columns)),
	}
	for name, vals := range s.columns {
		out.columns[name] = vals[from:to:to]
	}
	return out
}

// Store maps canonical geoIDs to their series. Stores are immutable values:
// filters, windows and derived columns all return a new Store sharing the
// untouched record slices.
type Store struct {
	series  map[string]*Series
	ids     []string
	derived []string
}

// NewStore groups records by geoID and sorts each group by date. When two
// records share (geoID, date) the one appearing later in records wins.
func NewStore(records []Record) *Store {
	byGeo := make(map[string]map[time.Time]Record)
	for _, r := range records {
		r.Date = Day(r.Date)
		dates, ok := byGeo[r.GeoID]
		if !ok {
			dates = make(map[time.Time]Record)
			byGeo[r.GeoID] = dates
		}
		dates[r.Date] = r
	}

	s := &Store{series: make(map[string]*Series, len(byGeo))}
	for geoID, dates := range byGeo {
		recs := slices.Collect(maps.Values(dates))
		slices.SortFunc(recs, func(a, b Record) int { return a.Date.Compare(b.Date) })
		s.series[geoID] = &Series{geoID: geoID, records: recs, columns: map[string][]Value{}}
	}
	s.ids = slices.Sorted(maps.Keys(s.series))
	return s
}

// GeoIDs returns the codes present, sorted.
func (s *Store) GeoIDs() []string { return slices.Clone(s.ids) }

// Series returns the series for geoID.
func (s *Store) Series(geoID string) (*Series, bool) {
	ser, ok := s.series[geoID]
	return ser, ok
}

// Len returns the total number of records across all countries.
func (s *Store) Len() int {
	n := 0
	for _, ser := range s.series {
		n += ser.Len()
	}
	return n
}

// Countries returns the distinct (GeoID, GeoName) pairs, ordered by GeoID.
func (s *Store) Countries() []GeoPair {
	out := make([]GeoPair, 0, len(s.ids))
	for _, id := range s.ids {
		ser := s.series[id]
		if ser.Len() == 0 {
			continue
		}
		out = append(out, GeoPair{GeoID: id, GeoName: ser.records[0].GeoName})
	}
	return out
}

// Columns returns the table header: base columns then derived columns in the
// order they were added.
func (s *Store) Columns() []string {
	return append(slices.Clone(BaseColumns), s.derived...)
}

// DerivedColumns returns only the derived column names.
func (s *Store) DerivedColumns() []string { return slices.Clone(s.derived) }

// Rows flattens the store into table rows ordered by GeoID then Date.
func (s *Store) Rows() []Row {
	rows := make([]Row, 0, s.Len())
	for _, id := range s.ids {
		ser := s.series[id]
		for i, rec := range ser.records {
			row := Row{Record: rec}
			if len(s.derived) > 0 {
				row.Derived = make(map[string]Value, len(s.derived))
				for _, name := range s.derived {
					row.Derived[name] = ser.columns[name][i]
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// Filter keeps only the given geoIDs. Unknown codes are ignored.
func (s *Store) Filter(geoIDs ...string) *Store {
	keep := make(map[string]bool, len(geoIDs))
	for _, id := range geoIDs {
		keep[id] = true
	}
	return s.mapSeries(func(ser *Series) *Series {
		if !keep[ser.geoID] {
			return nil
		}
		return ser
	})
}

// Apply restricts every country's series to the window. Countries left with
// no rows are dropped from the result.
func (s *Store) Apply(w Window) (*Store, error) {
	switch w.kind {
	case windowNone:
		return s, nil
	case windowLastN:
		if w.n < 1 {
			return nil, fmt.Errorf("%w: last %d days", ErrInvalidWindow, w.n)
		}
		return s.mapSeries(func(ser *Series) *Series {
			n := int(min(w.n, int64(ser.Len())))
			return ser.slice(ser.Len()-n, ser.Len())
		}), nil
	case windowSinceCases:
		return s.mapSeries(func(ser *Series) *Series {
			var total int64
			for i, r := range ser.records {
				total += r.DailyCases
				if total >= w.n {
					return ser.slice(i, ser.Len())
				}
			}
			return nil
		}), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidWindow, w)
	}
}

// WithColumn returns a new store with column name computed by fn for every
// series. fn must return one value per record. Replacing an existing derived
// column keeps its position.
func (s *Store) WithColumn(name string, fn func(*Series) ([]Value, error)) (*Store, error) {
	for _, base := range BaseColumns {
		if strings.EqualFold(base, name) {
			return nil, fmt.Errorf("derived column %q shadows a base column", name)
		}
	}
	out := &Store{
		series:  make(map[string]*Series, len(s.series)),
		ids:     s.ids,
		derived: s.derived,
	}
	// Names differing only in case refer to one column; the new name replaces the old.
	prev := ""
	if i := slices.IndexFunc(s.derived, func(d string) bool { return strings.EqualFold(d, name) }); i >= 0 {
		prev = s.derived[i]
		out.derived = slices.Clone(s.derived)
		out.derived[i] = name
	} else {
		out.derived = append(slices.Clone(s.derived), name)
	}
	for id, ser := range s.series {
		vals, err := fn(ser)
		if err != nil {
			return nil, fmt.Errorf("column %s for %s: %w", name, id, err)
		}
		if len(vals) != ser.Len() {
			return nil, fmt.Errorf("column %s for %s: got %d values for %d records", name, id, len(vals), ser.Len())
		}
		cols := maps.Clone(ser.columns)
		if prev != "" {
			delete(cols, prev)
		}
		cols[name] = vals
		out.series[id] = &Series{geoID: id, records: ser.records, columns: cols}
	}
	return out, nil
}

// mapSeries builds a new store from fn's result per series; nil or empty
// results are dropped.
func (s *Store) mapSeries(fn func(*Series) *Series) *Store {
	out := &Store{series: make(map[string]*Series, len(s.series)), derived: s.derived}
	for _, id := range s.ids {
		ser := fn(s.series[id])
		if ser == nil || ser.Len() == 0 {
			continue
		}
		out.series[id] = ser
		out.ids = append(out.ids, id)
	}
	return out
}
