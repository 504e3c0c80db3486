package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "epi_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	RowsRead           *prometheus.CounterVec   // labels: source
	RowsDropped        *prometheus.CounterVec   // labels: source, reason
	SourceLoadDuration *prometheus.HistogramVec // labels: source
	DownloadsTotal     *prometheus.CounterVec   // labels: source, outcome={fetched,cached,error}

	RecordsPublished prometheus.Counter
	BuildErrors      prometheus.Counter
	CountriesInStore prometheus.Gauge
	PipelineRunning  prometheus.Gauge
	RefreshDuration  prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsDropped,
		m.SourceLoadDuration,
		m.DownloadsTotal,
		m.RecordsPublished,
		m.BuildErrors,
		m.CountriesInStore,
		m.PipelineRunning,
		m.RefreshDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rows_read_total",
			Help:      "Raw rows read from each source export.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rows_dropped_total",
			Help:      "Raw rows dropped during normalization by source and reason.",
		}, []string{"source", "reason"}),
		SourceLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_load_duration_seconds",
			Help:      "Time to read and normalize one source export.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		DownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_downloads_total",
			Help:      "Source downloads by outcome.",
		}, []string{"source", "outcome"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Total output rows written to the sink topic.",
		}),
		BuildErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_errors_total",
			Help:      "Refresh cycles that failed to produce a combined store.",
		}),
		CountriesInStore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "countries_in_store",
			Help:      "Countries present in the latest combined store.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete load-build-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
}
