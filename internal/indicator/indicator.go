// Package indicator derives smoothed columns from a combined store.
//
// Every function returns a new store and leaves its input untouched. Values
// with no defined result are stored as domain.Missing rather than zero.
package indicator

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// ColumnR is the name of the reproduction ratio column.
const ColumnR = "R"

// rBlock is the length of each of the two blocks compared by R.
const rBlock = 7

// AverageColumn names the column LowpassFilter writes for attribute and w.
func AverageColumn(attribute string, w int) string {
	return attribute + "_avg" + strconv.Itoa(w)
}

// LowpassFilter adds AverageColumn(attribute, w): the mean of attribute over
// the trailing w dates of each country. The first w-1 dates average over the
// values available so far. A missing value anywhere in the window makes the
// average missing.
func LowpassFilter(store *domain.Store, attribute string, w int) (*domain.Store, error) {
	if w < 1 {
		return nil, fmt.Errorf("%w: lowpass width %d", domain.ErrInvalidWindow, w)
	}
	return store.WithColumn(AverageColumn(attribute, w), func(s *domain.Series) ([]domain.Value, error) {
		in, err := s.Column(attribute)
		if err != nil {
			return nil, err
		}
		return trailingMean(in, w), nil
	})
}

// ReproductionRatio adds ColumnR: cases over the 7 dates ending at t divided
// by cases over the 7 dates before that. The first 13 dates and any date
// whose earlier block sums to zero are missing.
func ReproductionRatio(store *domain.Store) (*domain.Store, error) {
	return store.WithColumn(ColumnR, func(s *domain.Series) ([]domain.Value, error) {
		cases, err := s.Column(domain.ColDailyCases)
		if err != nil {
			return nil, err
		}
		return ratio(cases), nil
	})
}

func trailingMean(in []domain.Value, w int) []domain.Value {
	out := make([]domain.Value, len(in))
	for i := range in {
		window := in[max(0, i-w+1) : i+1]
		if sum, ok := blockSum(window); ok {
			out[i] = domain.Known(sum / float64(len(window)))
		}
	}
	return out
}

func ratio(cases []domain.Value) []domain.Value {
	out := make([]domain.Value, len(cases))
	for i := 2*rBlock - 1; i < len(cases); i++ {
		num, okNum := blockSum(cases[i-rBlock+1 : i+1])
		den, okDen := blockSum(cases[i-2*rBlock+1 : i-rBlock+1])
		if !okNum || !okDen || den == 0 {
			continue
		}
		out[i] = domain.Known(num / den)
	}
	return out
}

func blockSum(vals []domain.Value) (float64, bool) {
	var sum float64
	for _, v := range vals {
		if !v.Valid {
			return 0, false
		}
		sum += v.Float
	}
	return sum, true
}
