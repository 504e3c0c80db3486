package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownGeoID is returned when a code has no canonical registry entry.
	ErrUnknownGeoID = errors.New("unknown geo id")
	// ErrMalformedRow marks a source row missing a required numeric field.
	ErrMalformedRow = errors.New("malformed row")
	// ErrUnparseableDate marks a source row whose date does not match the source layout.
	ErrUnparseableDate = errors.New("unparseable date")
	// ErrNoDataForGeoID is wrapped by NoDataError.
	ErrNoDataForGeoID = errors.New("no data for geo id")
	// ErrInvalidWindow is returned for window sizes below one.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrUnknownAttribute is returned when a metric names a column the store does not have.
	ErrUnknownAttribute = errors.New("unknown attribute")
)

// NoDataError lists the requested codes that produced zero rows across all sources.
type NoDataError struct {
	Codes []string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoDataForGeoID, strings.Join(e.Codes, ", "))
}

func (e *NoDataError) Unwrap() error { return ErrNoDataForGeoID }

// RowError describes a dropped source row.
type RowError struct {
	Source string
	Line   int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.Source, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
