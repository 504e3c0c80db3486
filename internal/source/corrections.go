package source

import (
	"maps"
	"slices"
	"strings"
)

// Corrections fixes a source's known country-code disagreements with the
// canonical registry. Rules map a source code to its canonical code and must
// be one-to-one so the inverse is well defined. Fallback is the canonical
// code assigned to rows whose code is missing; "" leaves them unresolved.
type Corrections struct {
	Rules    map[string]string
	Fallback string
}

// Canonical applies the rules to a source code.
func (c Corrections) Canonical(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return c.Fallback
	}
	if to, ok := c.Rules[code]; ok {
		return to
	}
	return code
}

// Source maps a canonical code back to the code the source stores it under.
// Codes without a rule map to themselves.
func (c Corrections) Source(canonical string) (string, bool) {
	for _, from := range slices.Sorted(maps.Keys(c.Rules)) {
		if c.Rules[from] == canonical {
			return from, true
		}
	}
	return canonical, false
}

// SourceCodes returns the source-side codes of every rule, sorted.
func (c Corrections) SourceCodes() []string {
	return slices.Sorted(maps.Keys(c.Rules))
}
