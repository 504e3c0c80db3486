package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/geo"
	"github.com/couchcryptid/epi-series-etl/internal/source"
)

// SourceSpec names one input export. Location is a local path or an
// http(s) URL to download.
type SourceSpec struct {
	Kind     source.Kind
	Location string
}

// IsRemote reports whether Location must be downloaded first.
func (s SourceSpec) IsRemote() bool {
	return strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://")
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Sources are merged in order; later sources win on the same country and date.
	Sources []SourceSpec
	GeoIDs  []string
	Window  domain.Window

	LowpassWidth    int
	DownloadDir     string
	DownloadTimeout time.Duration
	RefreshInterval time.Duration

	KafkaBrokers    []string
	KafkaSinkTopic  string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	BatchSize       int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	sources, err := ParseSources(sharedcfg.EnvOrDefault("SOURCES", "owid=data/owid-covid-data.csv,who=data/WHO-COVID-19-global-data.csv"))
	if err != nil {
		return nil, err
	}

	window, err := parseWindow()
	if err != nil {
		return nil, err
	}

	width, err := positiveInt("LOWPASS_WIDTH", "7")
	if err != nil {
		return nil, err
	}

	downloadTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("DOWNLOAD_TIMEOUT", "30s"))
	if err != nil || downloadTimeout <= 0 {
		return nil, errors.New("invalid DOWNLOAD_TIMEOUT: must be a positive duration")
	}

	refresh, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "6h"))
	if err != nil || refresh < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL: must be a duration, 0 to run once")
	}

	cfg := &Config{
		Sources:         sources,
		GeoIDs:          geo.ParseGeoIDList(sharedcfg.EnvOrDefault("GEO_IDS", "DE, GB, FR, ES, IT, CH, AT, GR, NA")),
		Window:          window,
		LowpassWidth:    width,
		DownloadDir:     sharedcfg.EnvOrDefault("DOWNLOAD_DIR", "data"),
		DownloadTimeout: downloadTimeout,
		RefreshInterval: refresh,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:  sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "epi-daily-series"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		BatchSize:       batchSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// ParseSources reads an ordered "kind=location" list such as
// "ecdc=data/ecdc.csv, who=https://covid19.who.int/WHO-COVID-19-global-data.csv".
func ParseSources(value string) ([]SourceSpec, error) {
	var specs []SourceSpec
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kind, location, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(location) == "" {
			return nil, fmt.Errorf("invalid SOURCES entry %q: want kind=location", part)
		}
		k, err := source.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("invalid SOURCES entry %q: %w", part, err)
		}
		specs = append(specs, SourceSpec{Kind: k, Location: strings.TrimSpace(location)})
	}
	if len(specs) == 0 {
		return nil, errors.New("SOURCES is required")
	}
	return specs, nil
}

func parseWindow() (domain.Window, error) {
	lastN := sharedcfg.EnvOrDefault("WINDOW_LAST_N_DAYS", "")
	since := sharedcfg.EnvOrDefault("WINDOW_SINCE_CASES", "")

	switch {
	case lastN != "" && since != "":
		return domain.NoWindow, errors.New("WINDOW_LAST_N_DAYS and WINDOW_SINCE_CASES are mutually exclusive")
	case lastN != "":
		n, err := strconv.Atoi(lastN)
		if err != nil || n < 1 {
			return domain.NoWindow, errors.New("invalid WINDOW_LAST_N_DAYS: must be a positive integer")
		}
		return domain.LastNDays(n), nil
	case since != "":
		n, err := strconv.ParseInt(since, 10, 64)
		if err != nil || n < 0 {
			return domain.NoWindow, errors.New("invalid WINDOW_SINCE_CASES: must be a non-negative integer")
		}
		return domain.SinceCumulativeCases(n), nil
	default:
		return domain.NoWindow, nil
	}
}

func positiveInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
