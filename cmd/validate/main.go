// Command validate checks a set of source exports before they are fed to the
// pipeline: every export must normalize with few dropped rows, and exports
// that report the same country must broadly agree on its case totals.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -sources ecdc=data/ecdc.csv,owid=data/owid-covid-data.csv,who=data/WHO-COVID-19-global-data.csv \
//	  -max-drop-ratio 0.01 \
//	  -tolerance 0.05
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/combine"
	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/geo"
	"github.com/couchcryptid/epi-series-etl/internal/indicator"
	"github.com/couchcryptid/epi-series-etl/internal/pipeline"
	"github.com/couchcryptid/epi-series-etl/internal/source"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	sources := flag.String("sources", "", "ordered kind=path list of exports to check")
	maxDrop := flag.Float64("max-drop-ratio", 0.01, "largest tolerated share of malformed or undated rows per export")
	tolerance := flag.Float64("tolerance", 0.05, "largest tolerated relative difference in case totals between exports")
	flag.Parse()

	if *sources == "" {
		flag.Usage()
		os.Exit(1)
	}

	specs, err := config.ParseSources(*sources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(specs, *maxDrop, *tolerance))
}

func run(specs []config.SourceSpec, maxDrop, tolerance float64) int {
	fmt.Println("=== Source Export Validation ===")
	fmt.Println()

	registry, err := geo.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load registry: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapters := make([]source.Adapter, 0, len(specs))
	for _, spec := range specs {
		if spec.IsRemote() {
			fmt.Fprintf(os.Stderr, "FATAL: %s is remote; download it first\n", spec.Location)
			return 1
		}
		a, err := source.Open(spec.Kind, spec.Location, registry, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		adapters = append(adapters, a)
	}

	phases := []*phase{
		validateNormalization(adapters, maxDrop),
		validateAgreement(adapters, tolerance),
		validateCombined(adapters),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	for _, a := range adapters {
		st := a.Stats()
		fmt.Printf("%-5s %7d rows, %7d kept, %5d dropped, %3d countries, loaded in %s\n",
			a.Info().ShortName, st.Rows, st.Kept, st.DroppedTotal(), len(a.GeoIDs()), st.Duration.Round(time.Millisecond))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateNormalization fails an export whose malformed or undated rows
// exceed maxDrop of its total. Rows for unknown codes (aggregates such as
// "World") are expected and not counted.
func validateNormalization(adapters []source.Adapter, maxDrop float64) *phase {
	p := &phase{name: "Normalization"}
	for _, a := range adapters {
		st := a.Stats()
		if st.Kept == 0 {
			p.errorf("%s: no rows survived normalization", a.Info().ShortName)
			continue
		}
		bad := st.Dropped[source.ReasonMalformedRow] + st.Dropped[source.ReasonUnparseableDate]
		if ratio := float64(bad) / float64(st.Rows); ratio > maxDrop {
			p.errorf("%s: %d of %d rows malformed or undated (%.2f%%)", a.Info().ShortName, bad, st.Rows, 100*ratio)
		}
	}
	return p
}

// validateAgreement compares case totals over the dates two exports share,
// per country.
func validateAgreement(adapters []source.Adapter, tolerance float64) *phase {
	p := &phase{name: "Cross-source agreement"}
	for i, a := range adapters {
		for _, b := range adapters[i+1:] {
			for _, geoID := range a.GeoIDs() {
				if !slices.Contains(b.GeoIDs(), geoID) {
					continue
				}
				ta, tb, n := overlapTotals(a.Records(geoID), b.Records(geoID))
				if n == 0 {
					continue
				}
				if diff := relDiff(ta, tb); diff > tolerance {
					p.errorf("%s: %s reports %d cases, %s reports %d over %d shared dates (%.1f%% apart)",
						geoID, a.Info().ShortName, ta, b.Info().ShortName, tb, n, 100*diff)
				}
			}
		}
	}
	return p
}

// validateCombined builds the combined store with indicators and rejects any
// non-finite R.
func validateCombined(adapters []source.Adapter) *phase {
	p := &phase{name: "Combined store"}
	store, err := combine.Build(adapters, nil, domain.NoWindow)
	if err != nil {
		p.errorf("build: %v", err)
		return p
	}
	store, err = pipeline.Derive(store, 7)
	if err != nil {
		p.errorf("derive: %v", err)
		return p
	}
	for _, id := range store.GeoIDs() {
		ser, _ := store.Series(id)
		r, err := ser.Column(indicator.ColumnR)
		if err != nil {
			p.errorf("%s: %v", id, err)
			continue
		}
		for i, v := range r {
			if v.Valid && (math.IsInf(v.Float, 0) || math.IsNaN(v.Float)) {
				p.errorf("%s %s: R is %v", id, ser.Record(i).Date.Format(domain.DateLayout), v.Float)
			}
		}
	}
	return p
}

func overlapTotals(a, b []domain.Record) (ta, tb int64, n int) {
	byDate := make(map[time.Time]int64, len(b))
	for _, r := range b {
		byDate[r.Date] = r.DailyCases
	}
	for _, r := range a {
		if v, ok := byDate[r.Date]; ok {
			ta += r.DailyCases
			tb += v
			n++
		}
	}
	return ta, tb, n
}

func relDiff(a, b int64) float64 {
	hi := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	if hi == 0 {
		return 0
	}
	return math.Abs(float64(a-b)) / hi
}
