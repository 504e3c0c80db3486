package source

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/epi-series-etl/internal/geo"
)

// ParseKind validates a configured source name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindECDC, KindOWID, KindWHO:
		return k, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", s)
	}
}

// New normalizes t with the variant named by kind.
func New(kind Kind, t *Table, reg *geo.Registry, logger *slog.Logger) (Adapter, error) {
	var (
		a   Adapter
		err error
	)
	switch kind {
	case KindECDC:
		a, err = adapt(NewECDC(t, reg, logger))
	case KindOWID:
		a, err = adapt(NewOWID(t, reg, logger))
	case KindWHO:
		a, err = adapt(NewWHO(t, reg, logger))
	default:
		err = fmt.Errorf("unknown source kind %q", kind)
	}
	return a, err
}

// adapt avoids wrapping a nil variant pointer in a non-nil interface.
func adapt[T Adapter](v T, err error) (Adapter, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Open reads a csv or xlsx export from path and normalizes it.
func Open(kind Kind, path string, reg *geo.Registry, logger *slog.Logger) (Adapter, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	a, err := New(kind, t, reg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return a, nil
}
