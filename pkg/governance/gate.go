package governance

import (
	"context"
	"fmt"
	"strings"
)

// ActionKind classifies what an action does.
type ActionKind string

const (
	ActionRead     ActionKind = "read"
	ActionAdvisory ActionKind = "advisory"
	ActionMutation ActionKind = "mutation"
)

// Action describes an operation about to be executed.
type Action struct {
	Name     string     `json:"name"`
	Kind     ActionKind `json:"kind"`
	Governed bool       `json:"governed"`
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed     bool   `json:"allowed"`
	Explanation string `json:"explanation"`
	Mode        Mode   `json:"mode"`
}

// CheckGovernedActionAllowed reports whether a governed action may run under
// mode. Only OPERATIONAL allows it.
func CheckGovernedActionAllowed(mode Mode, reasons []string) Decision {
	return Check(mode, reasons, Action{Name: "governed action", Kind: ActionMutation, Governed: true})
}

// Check decides whether action may run under mode.
//
//	OPERATIONAL: everything
//	ADVISORY:    reads, and non-governed advisory actions
//	GUARDED:     reads only
//
// Undefined modes behave as GUARDED and undefined kinds are denied.
func Check(mode Mode, reasons []string, action Action) Decision {
	mode = mode.Normalize()
	d := Decision{Mode: mode}

	switch action.Kind {
	case ActionRead, ActionAdvisory, ActionMutation:
	default:
		d.Explanation = fmt.Sprintf("%s denied: unknown action kind %q", label(action), action.Kind)
		return d
	}

	switch mode {
	case ModeOperational:
		d.Allowed = true
	case ModeAdvisory:
		d.Allowed = action.Kind == ActionRead || (action.Kind == ActionAdvisory && !action.Governed)
	default:
		d.Allowed = action.Kind == ActionRead
	}

	verdict := "denied"
	if d.Allowed {
		verdict = "allowed"
	}
	d.Explanation = fmt.Sprintf("%s %s in %s mode", label(action), verdict, mode)
	if len(reasons) > 0 {
		d.Explanation += ": " + strings.Join(reasons, "; ")
	}
	return d
}

func label(a Action) string {
	name := a.Name
	if name == "" {
		name = string(a.Kind)
	}
	if a.Governed {
		return "governed " + name
	}
	return name
}

// ModeResolver resolves the current mode of a workspace.
type ModeResolver interface {
	Resolve(ctx context.Context, workspaceID string) Resolution
}

// Gate authorizes actions against a freshly resolved mode. It keeps no state:
// the mode can change between two calls, so it is resolved on every call.
type Gate struct {
	modes ModeResolver
}

// NewGate creates a Gate.
func NewGate(modes ModeResolver) *Gate {
	return &Gate{modes: modes}
}

// Authorize resolves the workspace mode and checks action against it. Call it
// immediately before executing the action.
func (g *Gate) Authorize(ctx context.Context, workspaceID string, action Action) Decision {
	res := g.modes.Resolve(ctx, workspaceID)
	return Check(res.Mode, res.Reasons, action)
}
