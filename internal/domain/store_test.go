package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(d int) time.Time {
	return time.Date(2020, time.April, d, 0, 0, 0, 0, time.UTC)
}

func rec(geoID string, d int, cases int64) Record {
	return Record{Date: date(d), GeoID: geoID, GeoName: geoID + "-name", DailyCases: cases}
}

func cases(t *testing.T, s *Store, geoID string) []int64 {
	t.Helper()
	ser, ok := s.Series(geoID)
	require.True(t, ok)
	out := make([]int64, 0, ser.Len())
	for _, r := range ser.Records() {
		out = append(out, r.DailyCases)
	}
	return out
}

func TestNewStore_SortsAndDeduplicates(t *testing.T) {
	s := NewStore([]Record{
		rec("FR", 3, 30),
		rec("DE", 2, 2),
		rec("DE", 1, 1),
		{Date: date(2).Add(15 * time.Hour), GeoID: "DE", GeoName: "DE-name", DailyCases: 22},
	})

	assert.Equal(t, []string{"DE", "FR"}, s.GeoIDs())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int64{1, 22}, cases(t, s, "DE"), "later record for the same day wins")

	ser, _ := s.Series("DE")
	assert.Equal(t, date(2), ser.Record(1).Date, "dates are truncated to the day")
}

func TestStore_RowsAndColumns(t *testing.T) {
	s := NewStore([]Record{rec("GB", 2, 5), rec("DE", 1, 1), rec("GB", 1, 4)})

	want := []Row{
		{Record: rec("DE", 1, 1)},
		{Record: rec("GB", 1, 4)},
		{Record: rec("GB", 2, 5)},
	}
	if diff := cmp.Diff(want, s.Rows()); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, BaseColumns, s.Columns())
	assert.Equal(t, []GeoPair{{"DE", "DE-name"}, {"GB", "GB-name"}}, s.Countries())
	assert.Equal(t, "GB|2020-04-02", s.Rows()[2].Key())
}

func TestStore_Filter(t *testing.T) {
	s := NewStore([]Record{rec("DE", 1, 1), rec("FR", 1, 2), rec("GB", 1, 3)})

	f := s.Filter("GB", "DE", "ZZ")
	assert.Equal(t, []string{"DE", "GB"}, f.GeoIDs())
	assert.Equal(t, []string{"DE", "FR", "GB"}, s.GeoIDs())
}

func TestStore_Apply(t *testing.T) {
	s := NewStore([]Record{
		rec("DE", 1, 600), rec("DE", 2, 300), rec("DE", 3, 200), rec("DE", 4, 50),
		rec("FR", 3, 10), rec("FR", 4, 20),
	})

	t.Run("no window", func(t *testing.T) {
		out, err := s.Apply(NoWindow)
		require.NoError(t, err)
		assert.Equal(t, s.Len(), out.Len())
		assert.True(t, NoWindow.IsZero())
	})

	t.Run("last n days per country", func(t *testing.T) {
		out, err := s.Apply(LastNDays(3))
		require.NoError(t, err)
		assert.Equal(t, []int64{300, 200, 50}, cases(t, out, "DE"))
		assert.Equal(t, []int64{10, 20}, cases(t, out, "FR"))
	})

	t.Run("last n days below one", func(t *testing.T) {
		_, err := s.Apply(LastNDays(0))
		require.ErrorIs(t, err, ErrInvalidWindow)
	})

	t.Run("since cumulative cases", func(t *testing.T) {
		out, err := s.Apply(SinceCumulativeCases(900))
		require.NoError(t, err)
		assert.Equal(t, []string{"DE"}, out.GeoIDs())
		assert.Equal(t, []int64{300, 200, 50}, cases(t, out, "DE"), "600+300 reaches 900 exactly on day two")
	})

	t.Run("threshold of zero keeps everything", func(t *testing.T) {
		out, err := s.Apply(SinceCumulativeCases(0))
		require.NoError(t, err)
		assert.Equal(t, s.Len(), out.Len())
	})

	assert.Equal(t, "last 3 days", LastNDays(3).String())
	assert.Equal(t, "since 900 cumulative cases", SinceCumulativeCases(900).String())
}

func TestStore_WithColumn(t *testing.T) {
	s := NewStore([]Record{rec("DE", 1, 1), rec("DE", 2, 2)})

	double := func(ser *Series) ([]Value, error) {
		in, err := ser.Column(ColDailyCases)
		if err != nil {
			return nil, err
		}
		out := make([]Value, len(in))
		for i, v := range in {
			out[i] = Known(v.Float * 2)
		}
		return out, nil
	}

	out, err := s.WithColumn("Doubled", double)
	require.NoError(t, err)
	assert.Equal(t, []string{"Doubled"}, out.DerivedColumns())
	assert.Empty(t, s.DerivedColumns(), "original store unchanged")

	ser, _ := out.Series("DE")
	got, err := ser.Column("doubled")
	require.NoError(t, err)
	assert.Equal(t, []Value{Known(2), Known(4)}, got)

	orig, _ := s.Series("DE")
	_, err = orig.Column("Doubled")
	require.ErrorIs(t, err, ErrUnknownAttribute)

	again, err := out.WithColumn("Doubled", double)
	require.NoError(t, err)
	assert.Equal(t, []string{"Doubled"}, again.DerivedColumns(), "replacing keeps one entry")

	renamed, err := out.WithColumn("DOUBLED", func(ser *Series) ([]Value, error) {
		return []Value{Known(7), Known(8)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"DOUBLED"}, renamed.DerivedColumns(), "a case-only rename replaces the column")
	ser, _ = renamed.Series("DE")
	for _, name := range []string{"Doubled", "doubled", "DOUBLED"} {
		got, err := ser.Column(name)
		require.NoError(t, err)
		assert.Equal(t, []Value{Known(7), Known(8)}, got, name)
	}

	_, err = s.WithColumn("dailycases", double)
	require.Error(t, err)

	_, err = s.WithColumn("Short", func(*Series) ([]Value, error) { return []Value{Missing}, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 values for 2 records")
}

func TestStore_WindowKeepsDerivedAligned(t *testing.T) {
	s := NewStore([]Record{rec("DE", 1, 1), rec("DE", 2, 2), rec("DE", 3, 3)})
	s, err := s.WithColumn("Idx", func(ser *Series) ([]Value, error) {
		return []Value{Known(0), Missing, Known(2)}, nil
	})
	require.NoError(t, err)

	out, err := s.Apply(LastNDays(2))
	require.NoError(t, err)
	rows := out.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, Missing, rows[0].Derived["Idx"])
	assert.Equal(t, Known(2), rows[1].Derived["Idx"])
}

func TestSeries_PopulationColumn(t *testing.T) {
	pop := int64(83019213)
	s := NewStore([]Record{
		{Date: date(1), GeoID: "DE", Population: &pop},
		{Date: date(2), GeoID: "DE"},
	})
	ser, _ := s.Series("DE")
	got, err := ser.Column("population")
	require.NoError(t, err)
	assert.Equal(t, []Value{Known(83019213), Missing}, got)
}

func TestValue_JSON(t *testing.T) {
	row := Row{
		Record:  rec("DE", 1, 7),
		Derived: map[string]Value{"R": Missing, "DailyCases_avg7": Known(6.5)},
	}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"date": "2020-04-01T00:00:00Z",
		"geo_id": "DE",
		"geo_name": "DE-name",
		"daily_cases": 7,
		"daily_deaths": 0,
		"derived": {"R": null, "DailyCases_avg7": 6.5}
	}`, string(data))

	var back Row
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Missing, back.Derived["R"])
	assert.Equal(t, Known(6.5), back.Derived["DailyCases_avg7"])
}

func TestErrors(t *testing.T) {
	err := &NoDataError{Codes: []string{"XX", "YY"}}
	assert.ErrorIs(t, err, ErrNoDataForGeoID)
	assert.Equal(t, "no data for geo id: XX, YY", err.Error())

	rowErr := &RowError{Source: "who", Line: 4, Err: ErrMalformedRow}
	assert.ErrorIs(t, rowErr, ErrMalformedRow)
	assert.Equal(t, "who line 4: malformed row", rowErr.Error())
}
