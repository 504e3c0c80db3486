package fixture

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/epi-series-etl/internal/geo"
	"github.com/couchcryptid/epi-series-etl/internal/source"
)

func load(t *testing.T, kind source.Kind, path string) source.Adapter {
	t.Helper()
	reg, err := geo.Load()
	require.NoError(t, err)
	a, err := source.Open(kind, path, reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return a
}

func TestWriteAll_LoadsThroughEveryAdapter(t *testing.T) {
	for _, xlsx := range []bool{false, true} {
		paths, err := WriteAll(t.TempDir(), DefaultOptions, xlsx)
		require.NoError(t, err)

		for kind, path := range paths {
			a := load(t, kind, path)
			assert.Equal(t, GeoIDs(), a.GeoIDs(), "%s xlsx=%v", kind, xlsx)

			stats := a.Stats()
			assert.Equal(t, len(countries)*DefaultOptions.Days, stats.Kept, kind)
			assert.Zero(t, stats.Dropped[source.ReasonMalformedRow], kind)

			de := a.Records("DE")
			require.Len(t, de, DefaultOptions.Days)
			assert.Equal(t, DefaultOptions.Start, de[0].Date)
			assert.Equal(t, Cases(kind, "DE", 5), de[5].DailyCases)
			assert.Equal(t, int64(-1), de[10].DailyDeaths)
		}
	}
}

func TestWriteECDC_SourceQuirks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteECDC(&buf, Options{Start: DefaultOptions.Start, Days: 2}))

	out := buf.String()
	assert.Contains(t, out, "02/03/2020,2,3,2020")
	assert.Contains(t, out, ",UK,GBR,")
	assert.Contains(t, out, ",EL,GRC,")
	assert.Contains(t, out, "Namibia,,NAM")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("02/03/2020")), bytes.Index(buf.Bytes(), []byte("01/03/2020")), "newest first")
}

func TestCases_AgenciesDisagreeOnSomeDays(t *testing.T) {
	assert.Equal(t, Cases(source.KindECDC, "DE", 1), Cases(source.KindWHO, "DE", 1))
	assert.Equal(t, Cases(source.KindECDC, "DE", 5)+1, Cases(source.KindWHO, "DE", 5))
	assert.Zero(t, Cases(source.KindOWID, "DE", 6))
	assert.Zero(t, Cases(source.KindECDC, "ZZ", 0))
}
