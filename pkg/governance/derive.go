package governance

import (
	"fmt"

	"github.com/aretw0/continuum/pkg/core"
)

// Reasons attached by Derive.
const (
	ReasonNotReady           = "workspace is not ready"
	ReasonGovernanceMissing  = "workspace reports READY but no governance document was found"
	ReasonGovernanceAdvisory = "governance document is not under change control"
	ReasonGovernanceActive   = "governance document is under change control"
)

// Resolution is the result of mode resolution.
type Resolution struct {
	Mode    Mode     `json:"mode"`
	Reasons []string `json:"reasons"`

	// Readiness is what the readiness service reported, or a synthesized
	// NOT_READY when it could not be reached.
	Readiness Readiness `json:"-"`
}

// Derive maps readiness and the governance document to a mode. doc is nil when
// the governance key did not resolve. It has no side effects.
func Derive(readiness Readiness, doc *core.CanonicalDocument) Resolution {
	if !readiness.Ready() {
		reasons := []string{ReasonNotReady}
		if readiness.Status != StatusNotReady {
			reasons = []string{fmt.Sprintf("unrecognized readiness status %q treated as NOT_READY", readiness.Status)}
		}
		reasons = append(reasons, readiness.Reasons...)
		return Resolution{Mode: ModeGuarded, Reasons: reasons, Readiness: readiness}
	}

	if doc == nil {
		return Resolution{Mode: ModeGuarded, Reasons: []string{ReasonGovernanceMissing}, Readiness: readiness}
	}

	if !doc.Governed {
		return Resolution{
			Mode:      ModeAdvisory,
			Reasons:   []string{fmt.Sprintf("%s (%s)", ReasonGovernanceAdvisory, doc.Key)},
			Readiness: readiness,
		}
	}

	return Resolution{
		Mode:      ModeOperational,
		Reasons:   []string{fmt.Sprintf("%s (%s)", ReasonGovernanceActive, doc.Key)},
		Readiness: readiness,
	}
}

// guarded builds a GUARDED resolution for a failure.
func guarded(readiness Readiness, reasons ...string) Resolution {
	return Resolution{Mode: ModeGuarded, Reasons: reasons, Readiness: readiness}
}
