// Package governance derives a workspace's operating mode from readiness and
// its governance document, and gates actions against that mode.
//
// Every path through this package resolves missing, ambiguous or failing input
// to the most restrictive mode. Modes are never persisted.
package governance

import "strings"

// Mode is the derived capability tier of a workspace.
type Mode string

const (
	// ModeGuarded permits reads only.
	ModeGuarded Mode = "GUARDED"
	// ModeAdvisory permits reads and non-governed advisory actions.
	ModeAdvisory Mode = "ADVISORY"
	// ModeOperational permits governed actions.
	ModeOperational Mode = "OPERATIONAL"
)

// Modes lists the modes from least to most permissive.
var Modes = []Mode{ModeGuarded, ModeAdvisory, ModeOperational}

// Rank orders modes by permissiveness. Unknown values rank as GUARDED.
func (m Mode) Rank() int {
	switch m {
	case ModeAdvisory:
		return 1
	case ModeOperational:
		return 2
	default:
		return 0
	}
}

// Valid reports whether m is one of the three defined modes.
func (m Mode) Valid() bool {
	return m == ModeGuarded || m == ModeAdvisory || m == ModeOperational
}

// Normalize maps any undefined value, including the zero value, to GUARDED.
func (m Mode) Normalize() Mode {
	if !m.Valid() {
		return ModeGuarded
	}
	return m
}

func (m Mode) String() string {
	return string(m.Normalize())
}

// ParseMode parses a mode name case-insensitively. Unknown names yield
// GUARDED and ok=false.
func ParseMode(s string) (m Mode, ok bool) {
	m = Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return ModeGuarded, false
	}
	return m, true
}

// Min returns the less permissive of a and b.
func Min(a, b Mode) Mode {
	a, b = a.Normalize(), b.Normalize()
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}
