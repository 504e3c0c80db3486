package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/source"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []SourceSpec{
		{Kind: source.KindOWID, Location: "data/owid-covid-data.csv"},
		{Kind: source.KindWHO, Location: "data/WHO-COVID-19-global-data.csv"},
	}, cfg.Sources)
	assert.Equal(t, []string{"DE", "GB", "FR", "ES", "IT", "CH", "AT", "GR", "NA"}, cfg.GeoIDs)
	assert.True(t, cfg.Window.IsZero())
	assert.Equal(t, 7, cfg.LowpassWidth)
	assert.Equal(t, "data", cfg.DownloadDir)
	assert.Equal(t, 30*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 6*time.Hour, cfg.RefreshInterval)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "epi-daily-series", cfg.KafkaSinkTopic)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SOURCES", "ecdc=/tmp/ecdc.xlsx, who=https://example.org/who.csv")
	t.Setenv("GEO_IDS", "uk,gr , XK")
	t.Setenv("WINDOW_LAST_N_DAYS", "60")
	t.Setenv("LOWPASS_WIDTH", "14")
	t.Setenv("DOWNLOAD_DIR", "/var/cache/epi")
	t.Setenv("DOWNLOAD_TIMEOUT", "2m")
	t.Setenv("REFRESH_INTERVAL", "0s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, source.KindECDC, cfg.Sources[0].Kind)
	assert.False(t, cfg.Sources[0].IsRemote())
	assert.True(t, cfg.Sources[1].IsRemote())
	assert.Equal(t, []string{"UK", "GR", "XK"}, cfg.GeoIDs)
	assert.Equal(t, domain.LastNDays(60), cfg.Window)
	assert.Equal(t, 14, cfg.LowpassWidth)
	assert.Equal(t, "/var/cache/epi", cfg.DownloadDir)
	assert.Equal(t, 2*time.Minute, cfg.DownloadTimeout)
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestLoad_SinceCasesWindow(t *testing.T) {
	t.Setenv("WINDOW_SINCE_CASES", "1000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, domain.SinceCumulativeCases(1000), cfg.Window)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, "SHUTDOWN_TIMEOUT"},
		{"batch size", map[string]string{"BATCH_SIZE": "0"}, "BATCH_SIZE"},
		{"batch size too large", map[string]string{"BATCH_SIZE": "9999"}, "BATCH_SIZE"},
		{"unknown source kind", map[string]string{"SOURCES": "jhu=data/jhu.csv"}, "SOURCES"},
		{"source without location", map[string]string{"SOURCES": "who="}, "SOURCES"},
		{"empty sources", map[string]string{"SOURCES": " , "}, "SOURCES"},
		{"both windows", map[string]string{"WINDOW_LAST_N_DAYS": "7", "WINDOW_SINCE_CASES": "100"}, "mutually exclusive"},
		{"last n days", map[string]string{"WINDOW_LAST_N_DAYS": "0"}, "WINDOW_LAST_N_DAYS"},
		{"since cases", map[string]string{"WINDOW_SINCE_CASES": "-5"}, "WINDOW_SINCE_CASES"},
		{"lowpass width", map[string]string{"LOWPASS_WIDTH": "0"}, "LOWPASS_WIDTH"},
		{"download timeout", map[string]string{"DOWNLOAD_TIMEOUT": "soon"}, "DOWNLOAD_TIMEOUT"},
		{"refresh interval", map[string]string{"REFRESH_INTERVAL": "-1h"}, "REFRESH_INTERVAL"},
		{"brokers", map[string]string{"KAFKA_BROKERS": " , "}, "KAFKA_BROKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
