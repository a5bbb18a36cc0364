package governance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/continuum/pkg/core"
)

// DefaultKeyTemplate derives the governance document key from a workspace ID.
const DefaultKeyTemplate = "{workspace}-governance.md"

// KeyFinder resolves a logical key to a canonical document.
// *core.KeyResolver implements it.
type KeyFinder interface {
	FindByKey(ctx context.Context, key string) (core.CanonicalDocument, error)
}

// ModeObserver receives every resolved mode.
type ModeObserver interface {
	ObserveModeResolution(mode string)
}

// Resolver resolves a workspace's operating mode. It holds no mutable state;
// every call contacts the readiness service and the key finder afresh.
type Resolver struct {
	readiness   ReadinessService
	keys        KeyFinder
	keyTemplate string
	timeout     time.Duration
	logger      *slog.Logger
	observer    ModeObserver
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKeyTemplate sets the governance key template; "{workspace}" is replaced
// by the workspace ID.
func WithKeyTemplate(tmpl string) Option {
	return func(r *Resolver) {
		if tmpl != "" {
			r.keyTemplate = tmpl
		}
	}
}

// WithTimeout bounds each external call.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers a ModeObserver.
func WithObserver(o ModeObserver) Option {
	return func(r *Resolver) {
		r.observer = o
	}
}

// NewResolver creates a Resolver.
func NewResolver(readiness ReadinessService, keys KeyFinder, opts ...Option) *Resolver {
	r := &Resolver{
		readiness:   readiness,
		keys:        keys,
		keyTemplate: DefaultKeyTemplate,
		timeout:     core.DefaultTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GovernanceKey returns the governance document key for workspaceID.
func (r *Resolver) GovernanceKey(workspaceID string) string {
	return strings.ReplaceAll(r.keyTemplate, "{workspace}", workspaceID)
}

// Resolve derives the operating mode for workspaceID. It never fails: every
// error, timeout or panic in a collaborator yields GUARDED with a reason.
func (r *Resolver) Resolve(ctx context.Context, workspaceID string) (res Resolution) {
	logger := r.logger.With("workspace_id", workspaceID)

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("mode resolution panic", "error", recovered)
			res = guarded(notReady("mode resolution failed"), fmt.Sprintf("mode resolution failed: %v", recovered))
		}
		res.Mode = res.Mode.Normalize()
		if r.observer != nil {
			r.observer.ObserveModeResolution(string(res.Mode))
		}
	}()

	if workspaceID == "" {
		return guarded(notReady("workspace id is empty"), "workspace id is empty")
	}
	if r.readiness == nil || r.keys == nil {
		return guarded(notReady("governance collaborators are not configured"), "governance collaborators are not configured")
	}

	readiness, err := r.fetchReadiness(ctx, workspaceID)
	if err != nil {
		reason := fmt.Sprintf("readiness service unavailable: %v", err)
		logger.Warn("falling back to GUARDED", "reason", reason)
		return guarded(notReady(reason), reason)
	}

	if !readiness.Ready() {
		return Derive(readiness, nil)
	}

	key := r.GovernanceKey(workspaceID)
	doc, err := r.findGovernance(ctx, key)
	if err != nil {
		var nf *core.NotFoundError
		if errors.As(err, &nf) && nf.Cause == nil {
			logger.Warn("READY workspace has no governance document",
				"key", key,
				"available_keys", nf.AvailableKeys,
			)
			return Derive(readiness, nil)
		}
		reason := fmt.Sprintf("governance lookup failed: %v", err)
		logger.Warn("falling back to GUARDED", "key", key, "reason", reason)
		return guarded(readiness, reason)
	}

	return Derive(readiness, &doc)
}

func (r *Resolver) fetchReadiness(ctx context.Context, workspaceID string) (Readiness, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	readiness, err := r.readiness.WorkspaceReadiness(callCtx, workspaceID)
	if err != nil {
		return Readiness{}, core.Transient(callCtx, err)
	}
	if err := callCtx.Err(); err != nil {
		// A result that arrives after the deadline is discarded.
		return Readiness{}, core.Transient(callCtx, err)
	}
	return readiness, nil
}

func (r *Resolver) findGovernance(ctx context.Context, key string) (core.CanonicalDocument, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.keys.FindByKey(callCtx, key)
}

func notReady(reason string) Readiness {
	return Readiness{Status: StatusNotReady, Reasons: []string{reason}}
}
