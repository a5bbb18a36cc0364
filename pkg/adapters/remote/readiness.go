package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/continuum/pkg/governance"
)

// ReadinessClient asks the readiness service for a workspace's readiness:
//
//	GET {base}/workspaces/{id}/readiness -> {"status": "READY"|"NOT_READY", "reasons": [...]}
type ReadinessClient struct {
	c *client
}

// NewReadinessClient creates a ReadinessClient.
func NewReadinessClient(cfg Config) (*ReadinessClient, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ReadinessClient{c: c}, nil
}

// WorkspaceReadiness implements governance.ReadinessService.
func (r *ReadinessClient) WorkspaceReadiness(ctx context.Context, workspaceID string) (governance.Readiness, error) {
	var out governance.Readiness
	if err := r.c.do(ctx, http.MethodGet, []string{"workspaces", workspaceID, "readiness"}, nil, &out); err != nil {
		return governance.Readiness{}, fmt.Errorf("workspace readiness %s: %w", workspaceID, err)
	}
	return out, nil
}

// ComponentType implements introspection.Component.
func (r *ReadinessClient) ComponentType() string {
	return "remote-readiness"
}

var _ governance.ReadinessService = (*ReadinessClient)(nil)
