package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/observability"
	"github.com/couchcryptid/epi-series-etl/internal/source"
)

// Extractor loads every configured source. Adapters are returned in their
// declared order regardless of how they were loaded.
type Extractor interface {
	Extract(ctx context.Context) ([]source.Adapter, error)
}

// Transformer merges loaded sources into the output store.
type Transformer interface {
	Transform(ctx context.Context, adapters []source.Adapter) (*domain.Store, error)
}

// BatchLoader writes output rows to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, rows []domain.Row) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline periodically rebuilds the combined store and publishes its rows.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	batchSize   int
	refresh     time.Duration

	ready  atomic.Bool
	latest atomic.Pointer[domain.Store]
}

// New creates a Pipeline. A refresh interval of zero makes Run execute a
// single cycle.
func New(e Extractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, batchSize int, refresh time.Duration) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
		batchSize:   max(batchSize, 1),
		refresh:     refresh,
	}
}

// CheckReadiness returns nil once a combined store has been built and
// published, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no combined store published yet")
	}
	return nil
}

// Ready reports whether at least one cycle completed.
func (p *Pipeline) Ready() bool { return p.ready.Load() }

// Latest returns the most recently built store.
func (p *Pipeline) Latest() (*domain.Store, bool) {
	s := p.latest.Load()
	return s, s != nil
}

// Run executes refresh cycles until the context is cancelled. A failed cycle
// is logged and retried on the next tick; in single-cycle mode its error is
// returned.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "refresh_interval", p.refresh)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if p.refresh <= 0 {
		if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	ticker := p.clock.NewTicker(p.refresh)
	defer ticker.Stop()

	for {
		if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("refresh failed", "error", err, "next_attempt_in", p.refresh)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunOnce loads every source, builds the store with its indicators and
// publishes the rows.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	start := p.clock.Now()

	adapters, err := p.extractor.Extract(ctx)
	if err != nil {
		p.metrics.BuildErrors.Inc()
		return fmt.Errorf("extract: %w", err)
	}

	store, err := p.transformer.Transform(ctx, adapters)
	if err != nil {
		p.metrics.BuildErrors.Inc()
		var noData *domain.NoDataError
		if errors.As(err, &noData) {
			p.logger.Warn("requested countries have no data", "geo_ids", noData.Codes)
		}
		return fmt.Errorf("transform: %w", err)
	}

	p.latest.Store(store)
	p.metrics.CountriesInStore.Set(float64(len(store.GeoIDs())))

	rows := store.Rows()
	if err := p.publish(ctx, rows); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	p.ready.Store(true)
	elapsed := p.clock.Since(start)
	p.metrics.RefreshDuration.Observe(elapsed.Seconds())
	p.logger.Info("refresh complete",
		"countries", len(store.GeoIDs()),
		"rows", len(rows),
		"columns", store.Columns(),
		"duration", elapsed,
	)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, rows []domain.Row) error {
	for batch := range slices.Chunk(rows, p.batchSize) {
		if err := p.loadWithRetry(ctx, batch); err != nil {
			return err
		}
		p.metrics.RecordsPublished.Add(float64(len(batch)))
	}
	return nil
}

// loadWithRetry retries a failed batch with exponential backoff until it is
// written or the context is cancelled.
func (p *Pipeline) loadWithRetry(ctx context.Context, batch []domain.Row) error {
	backoff := initialBackoff
	for {
		err := p.loader.LoadBatch(ctx, batch)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(batch), "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
