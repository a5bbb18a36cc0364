package governance

import "context"

// ReadinessStatus is the externally computed workspace status.
type ReadinessStatus string

const (
	StatusReady    ReadinessStatus = "READY"
	StatusNotReady ReadinessStatus = "NOT_READY"
)

// Readiness reports whether a workspace has its minimum canonical documents.
type Readiness struct {
	Status  ReadinessStatus `json:"status"`
	Reasons []string        `json:"reasons"`
}

// Ready is true only for an explicit READY status.
func (r Readiness) Ready() bool {
	return r.Status == StatusReady
}

// ReadinessService is the external readiness collaborator.
type ReadinessService interface {
	WorkspaceReadiness(ctx context.Context, workspaceID string) (Readiness, error)
}

// ReadinessFunc adapts a function to ReadinessService.
type ReadinessFunc func(ctx context.Context, workspaceID string) (Readiness, error)

// WorkspaceReadiness implements ReadinessService.
func (f ReadinessFunc) WorkspaceReadiness(ctx context.Context, workspaceID string) (Readiness, error) {
	return f(ctx, workspaceID)
}

// StaticReadiness returns the same readiness for every workspace.
func StaticReadiness(r Readiness) ReadinessService {
	return ReadinessFunc(func(context.Context, string) (Readiness, error) {
		return r, nil
	})
}
