// Command genfixture writes deterministic sample exports in the ECDC, OWID
// and WHO layouts so the service can run locally without network access.
//
// Usage:
//
//	go run ./cmd/genfixture -out data -days 60
//	SOURCES=ecdc=data/ecdc.csv,owid=data/owid-covid-data.csv,who=data/WHO-COVID-19-global-data.csv go run ./cmd/epietl
package main

import (
	"flag"
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/epi-series-etl/internal/fixture"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "output directory")
	start := flag.String("start", fixture.DefaultOptions.Start.Format("2006-01-02"), "first reporting date (YYYY-MM-DD)")
	days := flag.Int("days", fixture.DefaultOptions.Days, "number of reporting days")
	xlsx := flag.Bool("xlsx", false, "write the ECDC export as an xlsx workbook")
	flag.Parse()

	first, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	if *days < 1 {
		return fmt.Errorf("invalid -days %d: must be positive", *days)
	}

	paths, err := fixture.WriteAll(*out, fixture.Options{Start: first, Days: *days}, *xlsx)
	if err != nil {
		return err
	}

	kinds := slices.Sorted(maps.Keys(paths))
	specs := make([]string, 0, len(kinds))
	for _, k := range kinds {
		log.Printf("%s: %s", k, paths[k])
		specs = append(specs, fmt.Sprintf("%s=%s", k, paths[k]))
	}
	log.Printf("countries: %v, days: %d", fixture.GeoIDs(), *days)
	log.Printf("SOURCES=%s", strings.Join(specs, ","))
	return nil
}
