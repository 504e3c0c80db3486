// Package combine merges several normalized sources into one store.
package combine

import (
	"slices"
	"strings"

	"github.com/couchcryptid/epi-series-etl/internal/domain"
	"github.com/couchcryptid/epi-series-etl/internal/geo"
	"github.com/couchcryptid/epi-series-etl/internal/source"
)

// Build merges the requested countries from adapters into one store and
// applies the window.
//
// Each requested code is passed through every adapter's own code
// corrections, so "UK", "GB" and "GBR" all reach the same canonical country,
// and that country's rows are then gathered from every adapter. Adapters are
// visited in the given order; when two adapters report the same country and
// date, the later adapter's record wins.
//
// Codes that yield no rows from any adapter are reported together in a
// *domain.NoDataError and no store is returned. Blank codes are ignored, and
// a request with no codes left selects every country any adapter holds. The window is applied after that check,
// so a country that never reaches a SinceCumulativeCases threshold is simply
// absent from the result.
func Build(adapters []source.Adapter, geoIDs []string, window domain.Window) (*domain.Store, error) {
	geoIDs = nonBlank(geoIDs)
	if len(geoIDs) == 0 {
		geoIDs = allGeoIDs(adapters)
	}

	var (
		targets []string
		missing []string
	)
	for _, code := range unique(geoIDs) {
		found := false
		for _, a := range adapters {
			if id := a.CanonicalGeoID(code); len(a.Records(id)) > 0 {
				targets = append(targets, id)
				found = true
			}
		}
		if !found {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.NoDataError{Codes: missing}
	}
	targets = unique(targets)

	// NewStore keeps the last record per (geoID, date), so appending adapter
	// by adapter makes later adapters override earlier ones.
	var merged []domain.Record
	for _, a := range adapters {
		for _, id := range targets {
			merged = append(merged, a.Records(id)...)
		}
	}
	return domain.NewStore(merged).Apply(window)
}

// BuildFromString is Build with a comma separated code list such as "DE, GB, FR".
func BuildFromString(adapters []source.Adapter, geoIDs string, window domain.Window) (*domain.Store, error) {
	return Build(adapters, geo.ParseGeoIDList(geoIDs), window)
}

func allGeoIDs(adapters []source.Adapter) []string {
	var ids []string
	for _, a := range adapters {
		ids = append(ids, a.GeoIDs()...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// nonBlank trims codes and drops empty ones. A blank code must not reach a
// source's fallback rule.
func nonBlank(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func unique(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
