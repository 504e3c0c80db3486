package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/epi-series-etl/internal/combine"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/indicator"
	"github.com/couchcryptid/epi-series-etl/internal/source"
)

// SeriesTransformer implements Transformer: it merges the requested
// countries and appends the indicator columns.
type SeriesTransformer struct {
	geoIDs []string
	window domain.Window
	width  int
	logger *slog.Logger
}

// NewTransformer creates a SeriesTransformer. An empty geoIDs selects every
// country the sources hold.
func NewTransformer(geoIDs []string, window domain.Window, width int, logger *slog.Logger) *SeriesTransformer {
	return &SeriesTransformer{
		geoIDs: geoIDs,
		window: window,
		width:  width,
		logger: logger,
	}
}

func (t *SeriesTransformer) Transform(_ context.Context, adapters []source.Adapter) (*domain.Store, error) {
	store, err := combine.Build(adapters, t.geoIDs, t.window)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("combined store built", "countries", len(store.GeoIDs()), "rows", store.Len(), "window", t.window.String())
	return Derive(store, t.width)
}

// Derive appends the smoothed case and death columns, R, and smoothed R.
func Derive(store *domain.Store, width int) (*domain.Store, error) {
	steps := []func(*domain.Store) (*domain.Store, error){
		func(s *domain.Store) (*domain.Store, error) {
			return indicator.LowpassFilter(s, domain.ColDailyCases, width)
		},
		func(s *domain.Store) (*domain.Store, error) {
			return indicator.LowpassFilter(s, domain.ColDailyDeaths, width)
		},
		indicator.ReproductionRatio,
		func(s *domain.Store) (*domain.Store, error) {
			return indicator.LowpassFilter(s, indicator.ColumnR, width)
		},
	}
	var err error
	for _, step := range steps {
		if store, err = step(store); err != nil {
			return nil, fmt.Errorf("derive indicators: %w", err)
		}
	}
	return store, nil
}
