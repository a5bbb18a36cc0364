package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"

	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
	"github.com/aretw0/continuum/pkg/registry"
)

// ErrWatchUnsupported is returned by Watch when the store cannot report changes.
var ErrWatchUnsupported = errors.New("store does not support watching")

// Engine wires the document store, key resolver, mode resolver, action gate
// and registry loader together. It is safe for concurrent use.
type Engine struct {
	store    core.DocumentStore
	keys     *core.KeyResolver
	modes    *governance.Resolver
	gate     *governance.Gate
	registry *registry.Loader
	logger   *slog.Logger

	watchPattern string
	errorHandler func(error)

	mu       sync.Mutex
	watching bool
}

// Store returns the underlying document store.
func (e *Engine) Store() core.DocumentStore {
	return e.store
}

// FindByKey resolves a logical key to its canonical document.
func (e *Engine) FindByKey(ctx context.Context, key string) (core.CanonicalDocument, error) {
	return e.keys.FindByKey(ctx, key)
}

// FindMatch resolves a key and reports the matching tier and candidates.
func (e *Engine) FindMatch(ctx context.Context, key string) (core.Match, error) {
	return e.keys.FindMatch(ctx, key)
}

// GovernanceKey returns the governance document key of a workspace.
func (e *Engine) GovernanceKey(workspaceID string) string {
	return e.modes.GovernanceKey(workspaceID)
}

// ResolveMode computes the current operating mode of a workspace. It never
// fails: unreachable collaborators yield GUARDED.
func (e *Engine) ResolveMode(ctx context.Context, workspaceID string) governance.Resolution {
	return e.modes.Resolve(ctx, workspaceID)
}

// Resolve implements governance.ModeResolver.
func (e *Engine) Resolve(ctx context.Context, workspaceID string) governance.Resolution {
	return e.ResolveMode(ctx, workspaceID)
}

// Authorize resolves the workspace mode and checks action against it.
func (e *Engine) Authorize(ctx context.Context, workspaceID string, action governance.Action) governance.Decision {
	d := e.gate.Authorize(ctx, workspaceID, action)
	if !d.Allowed {
		e.logger.Info("action denied", "workspace", workspaceID, "action", action.Name, "mode", d.Mode)
	}
	return d
}

// Workspace returns the view of ws with freshly computed readiness and mode.
func (e *Engine) Workspace(ctx context.Context, ws governance.Workspace) governance.WorkspaceView {
	return governance.Annotate(ctx, e.modes, ws)
}

// Node returns a node view embedding its annotated workspace.
func (e *Engine) Node(ctx context.Context, id, nodeType, name string, ws governance.Workspace) governance.NodeView {
	return governance.AnnotateNode(ctx, e.modes, id, nodeType, name, ws)
}

// LoadRegistry returns the model registry, memoized until invalidated.
func (e *Engine) LoadRegistry(ctx context.Context) (registry.LoadResult, error) {
	return e.registry.Load(ctx)
}

// InvalidateRegistry drops the memoized registry.
func (e *Engine) InvalidateRegistry() {
	e.registry.Invalidate()
}

// RegistryKey returns the key of the registry document.
func (e *Engine) RegistryKey() string {
	return e.registry.Key()
}

// SetGoverned passes a governed-flag change through to the store. The
// registry is invalidated when the toggled document is the registry document,
// or when that cannot be told.
func (e *Engine) SetGoverned(ctx context.Context, id string, governed bool) error {
	toggler, ok := e.store.(core.GovernanceToggler)
	if !ok {
		return fmt.Errorf("set governed on %q: %w", id, core.ErrReadOnly)
	}
	if err := toggler.SetGoverned(ctx, id, governed); err != nil {
		return fmt.Errorf("set governed on %q: %w", id, err)
	}

	doc, err := e.keys.FindByKey(ctx, e.registry.Key())
	if err != nil || doc.ID == id {
		e.registry.Invalidate()
	}
	e.logger.Info("governed flag changed", "id", id, "governed", governed)
	return nil
}

// Watch invalidates the registry whenever the store reports a change, until
// ctx is done. A renamed or new document can change which document the
// registry key resolves to, so every event invalidates.
func (e *Engine) Watch(ctx context.Context) error {
	w, ok := e.store.(core.Watchable)
	if !ok {
		return ErrWatchUnsupported
	}

	e.mu.Lock()
	if e.watching {
		e.mu.Unlock()
		return errors.New("engine is already watching")
	}
	events, err := w.Watch(ctx, e.watchPattern)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.watching = true
	e.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer e.setWatching(false)
		for event := range events {
			e.logger.Debug("document changed, invalidating registry", "event", event.String())
			e.registry.Invalidate()
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		e.logger.Error("registry watcher panic", "error", err)
		if e.errorHandler != nil {
			e.errorHandler(err)
		}
	}))
	return nil
}

func (e *Engine) setWatching(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watching = v
}

// EngineState exposes internal state for observability.
type EngineState struct {
	Store    any                  `json:"store"`
	Resolver any                  `json:"resolver"`
	Registry registry.LoaderState `json:"registry"`
	Watching bool                 `json:"watching"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	e.mu.Lock()
	watching := e.watching
	e.mu.Unlock()

	s := EngineState{
		Resolver: e.keys.State(),
		Registry: e.registry.State().(registry.LoaderState),
		Watching: watching,
	}
	switch st := e.store.(type) {
	case introspection.Introspectable:
		s.Store = st.State()
	case introspection.Component:
		s.Store = st.ComponentType()
	}
	return s
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var (
	_ governance.ModeResolver      = (*Engine)(nil)
	_ introspection.Introspectable = (*Engine)(nil)
	_ introspection.Component      = (*Engine)(nil)
)
