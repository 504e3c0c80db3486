package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Base column names of the canonical table, in output order.
const (
	ColDate        = "Date"
	ColGeoName     = "GeoName"
	ColGeoID       = "GeoID"
	ColPopulation  = "Population"
	ColContinent   = "Continent"
	ColDailyCases  = "DailyCases"
	ColDailyDeaths = "DailyDeaths"
)

// BaseColumns lists the canonical columns every store carries.
var BaseColumns = []string{
	ColDate, ColGeoName, ColGeoID, ColPopulation, ColContinent, ColDailyCases, ColDailyDeaths,
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Record is one country's figures for one calendar date, independent of the
// agency that reported them.
type Record struct {
	Date        time.Time `json:"date"`
	GeoID       string    `json:"geo_id"`
	GeoName     string    `json:"geo_name"`
	Continent   string    `json:"continent,omitempty"`
	Population  *int64    `json:"population,omitempty"`
	DailyCases  int64     `json:"daily_cases"`
	DailyDeaths int64     `json:"daily_deaths"`
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Value is a derived numeric value. Valid is false where the metric has no
// defined result for that date (for example R over a zero denominator).
type Value struct {
	Float float64
	Valid bool
}

// Known wraps f as a defined value.
func Known(f float64) Value { return Value{Float: f, Valid: true} }

// Missing is the undefined value.
var Missing = Value{}

// MarshalJSON encodes a missing value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float, 'g', -1, 64), nil
}

// UnmarshalJSON decodes null as a missing value.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Known(f)
	return nil
}

// GeoPair is a distinct (GeoID, GeoName) combination present in a store or source.
type GeoPair struct {
	GeoID   string `json:"geo_id"`
	GeoName string `json:"geo_name"`
}

// Row is one line of the flattened output table.
type Row struct {
	Record
	Derived map[string]Value `json:"derived,omitempty"`
}

// Key identifies the row across sinks as "<geoID>|<date>".
func (r Row) Key() string {
	return r.GeoID + "|" + r.Date.Format(DateLayout)
}
