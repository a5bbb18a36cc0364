package governance

import "context"

// staleKeys are computed fields that may linger in stored metadata. They are
// dropped and recomputed on every representation.
var staleKeys = []string{"aiMode", "ai_mode", "mode", "readiness"}

// Workspace holds a workspace's stored fields.
type Workspace struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// WorkspaceView is the outward representation of a workspace. Readiness and
// AIMode are computed on every request and never persisted.
type WorkspaceView struct {
	Workspace
	Readiness     Readiness `json:"readiness"`
	AIMode        Mode      `json:"aiMode"`
	AIModeReasons []string  `json:"aiModeReasons"`
}

// NodeView is a node representation that embeds its workspace.
type NodeView struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name,omitempty"`
	Workspace *WorkspaceView `json:"workspace,omitempty"`
}

// Annotate builds the view of ws with freshly computed readiness and mode.
func Annotate(ctx context.Context, modes ModeResolver, ws Workspace) WorkspaceView {
	res := modes.Resolve(ctx, ws.ID)
	return WorkspaceView{
		Workspace:     stripComputed(ws),
		Readiness:     res.Readiness,
		AIMode:        res.Mode.Normalize(),
		AIModeReasons: res.Reasons,
	}
}

// AnnotateNode builds a node view embedding an annotated workspace.
func AnnotateNode(ctx context.Context, modes ModeResolver, id, nodeType, name string, ws Workspace) NodeView {
	view := Annotate(ctx, modes, ws)
	return NodeView{ID: id, Type: nodeType, Name: name, Workspace: &view}
}

func stripComputed(ws Workspace) Workspace {
	if ws.Metadata == nil {
		return ws
	}
	meta := make(map[string]any, len(ws.Metadata))
	for k, v := range ws.Metadata {
		meta[k] = v
	}
	for _, k := range staleKeys {
		delete(meta, k)
	}
	ws.Metadata = meta
	return ws
}
