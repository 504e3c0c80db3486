package domain

import "fmt"

type windowKind int

const (
	windowNone windowKind = iota
	windowLastN
	windowSinceCases
)

// Window restricts a combined series per country. The zero value keeps
// everything.
type Window struct {
	kind windowKind
	n    int64
}

// NoWindow keeps every date.
var NoWindow = Window{}

// LastNDays keeps the last n dates present for each country.
func LastNDays(n int) Window { return Window{kind: windowLastN, n: int64(n)} }

// SinceCumulativeCases drops each country's dates before the first date at
// which its running DailyCases total reaches n.
func SinceCumulativeCases(n int64) Window { return Window{kind: windowSinceCases, n: n} }

// IsZero reports whether the window keeps everything.
func (w Window) IsZero() bool { return w.kind == windowNone }

func (w Window) String() string {
	switch w.kind {
	case windowNone:
		return "none"
	case windowLastN:
		return fmt.Sprintf("last %d days", w.n)
	case windowSinceCases:
		return fmt.Sprintf("since %d cumulative cases", w.n)
	default:
		return "invalid"
	}
}
