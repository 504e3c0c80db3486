package indicator

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

var start = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

func storeOf(geoID string, cases ...int64) *domain.Store {
	recs := make([]domain.Record, len(cases))
	for i, c := range cases {
		recs[i] = domain.Record{
			Date:       start.AddDate(0, 0, i),
			GeoID:      geoID,
			GeoName:    geoID,
			DailyCases: c,
		}
	}
	return domain.NewStore(recs)
}

func column(t *testing.T, s *domain.Store, geoID, name string) []domain.Value {
	t.Helper()
	ser, ok := s.Series(geoID)
	require.True(t, ok)
	vals, err := ser.Column(name)
	require.NoError(t, err)
	return vals
}

func known(fs ...float64) []domain.Value {
	out := make([]domain.Value, len(fs))
	for i, f := range fs {
		out[i] = domain.Known(f)
	}
	return out
}

func repeat(v int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestLowpassFilter_PartialPrefix(t *testing.T) {
	in := storeOf("DE", 10, 20, 30)

	out, err := LowpassFilter(in, domain.ColDailyCases, 3)
	require.NoError(t, err)

	assert.Equal(t, "DailyCases_avg3", AverageColumn(domain.ColDailyCases, 3))
	assert.Equal(t, []string{"DailyCases_avg3"}, out.DerivedColumns())
	assert.Equal(t, known(10, 15, 20), column(t, out, "DE", "DailyCases_avg3"))
	assert.Empty(t, in.DerivedColumns(), "input store is untouched")
}

func TestLowpassFilter_SlidingWindow(t *testing.T) {
	out, err := LowpassFilter(storeOf("FR", 1, 2, 3, 4, 5, -5), "dailycases", 2)
	require.NoError(t, err)
	assert.Equal(t, known(1, 1.5, 2.5, 3.5, 4.5, 0), column(t, out, "FR", "dailycases_avg2"))
}

func TestLowpassFilter_CaseOnlyRepeatReplacesColumn(t *testing.T) {
	out, err := LowpassFilter(storeOf("FR", 1, 2, 3), "dailycases", 2)
	require.NoError(t, err)
	out, err = LowpassFilter(out, domain.ColDailyCases, 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"DailyCases_avg2"}, out.DerivedColumns())
	assert.Equal(t, known(1, 1.5, 2.5), column(t, out, "FR", "dailycases_avg2"))
	assert.Len(t, out.Rows()[0].Derived, 1)
}

func TestLowpassFilter_Errors(t *testing.T) {
	in := storeOf("DE", 1, 2, 3)

	_, err := LowpassFilter(in, domain.ColDailyCases, 0)
	require.ErrorIs(t, err, domain.ErrInvalidWindow)

	_, err = LowpassFilter(in, "Hospitalised", 7)
	require.ErrorIs(t, err, domain.ErrUnknownAttribute)
}

func TestReproductionRatio_TwoBlocks(t *testing.T) {
	cases := append(repeat(10, 7), repeat(20, 7)...)
	out, err := ReproductionRatio(storeOf("DE", cases...))
	require.NoError(t, err)

	r := column(t, out, "DE", ColumnR)
	require.Len(t, r, 14)
	for i := range 13 {
		assert.False(t, r[i].Valid, "date %d has no full history", i)
	}
	assert.Equal(t, domain.Known(2.0), r[13])
}

func TestReproductionRatio_ZeroDenominatorIsMissing(t *testing.T) {
	cases := append(repeat(0, 7), repeat(5, 8)...)
	out, err := ReproductionRatio(storeOf("GR", cases...))
	require.NoError(t, err)

	r := column(t, out, "GR", ColumnR)
	assert.Equal(t, domain.Missing, r[13])
	assert.Equal(t, domain.Known(7.0), r[14], "35 over the single 5 now in the earlier block")
}

func TestReproductionRatio_ShortSeries(t *testing.T) {
	out, err := ReproductionRatio(storeOf("NA", 1, 2, 3))
	require.NoError(t, err)
	for _, v := range column(t, out, "NA", ColumnR) {
		assert.False(t, v.Valid)
	}
}

func TestSmoothedR_MissingPropagates(t *testing.T) {
	withR, err := ReproductionRatio(storeOf("DE", repeat(10, 21)...))
	require.NoError(t, err)
	out, err := LowpassFilter(withR, ColumnR, 7)
	require.NoError(t, err)

	assert.Equal(t, []string{"R", "R_avg7"}, out.DerivedColumns())
	avg := column(t, out, "DE", "R_avg7")
	for i := range 19 {
		assert.False(t, avg[i].Valid, "window ending at %d holds a missing R", i)
	}
	assert.Equal(t, known(1, 1), avg[19:])

	rows := out.Rows()
	require.Len(t, rows, 21)
	assert.Equal(t, domain.Known(1), rows[20].Derived["R"])
	assert.Equal(t, domain.Missing, rows[0].Derived["R_avg7"])
}

func TestLowpassFilter_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("width one is the identity", prop.ForAll(
		func(cases []int64) bool {
			in := storeOf("DE", cases...)
			out, err := LowpassFilter(in, domain.ColDailyCases, 1)
			if err != nil {
				return false
			}
			ser, _ := out.Series("DE")
			avg, _ := ser.Column("DailyCases_avg1")
			for i, c := range cases {
				if avg[i] != domain.Known(float64(c)) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(30, gen.Int64Range(-1000, 100000)),
	))

	properties.Property("constant input stays constant", prop.ForAll(
		func(v int64, n, w int) bool {
			out, err := LowpassFilter(storeOf("DE", repeat(v, n)...), domain.ColDailyCases, w)
			if err != nil {
				return false
			}
			ser, _ := out.Series("DE")
			avg, _ := ser.Column(AverageColumn(domain.ColDailyCases, w))
			for _, a := range avg {
				if a != domain.Known(float64(v)) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(-50, 100000),
		gen.IntRange(1, 40),
		gen.IntRange(1, 14),
	))

	properties.TestingRun(t)
}
