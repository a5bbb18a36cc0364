package continuum

import (
	"log/slog"
	"time"

	"github.com/aretw0/continuum/internal/platform"
	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
	"github.com/aretw0/continuum/pkg/registry"
)

// --- Types ---

// Engine is the composed governance core.
type Engine = platform.Engine

// Document is a canonical document.
type Document = core.CanonicalDocument

// Mode is a workspace operating mode.
type Mode = governance.Mode

// Action describes an operation about to be executed.
type Action = governance.Action

// Workspace holds a workspace's stored fields.
type Workspace = governance.Workspace

// Modes.
const (
	ModeGuarded     = governance.ModeGuarded
	ModeAdvisory    = governance.ModeAdvisory
	ModeOperational = governance.ModeOperational
)

// Readiness statuses.
const (
	StatusReady    = governance.StatusReady
	StatusNotReady = governance.StatusNotReady
)

// --- Configuration ---

// Option defines a functional option for configuring the Engine.
type Option = platform.Option

// WithAdapter selects the document store adapter: "fs", "remote" or "memory".
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithStore injects a document store.
func WithStore(store core.DocumentStore) Option {
	return platform.WithStore(store)
}

// WithReadiness injects the readiness service.
func WithReadiness(r governance.ReadinessService) Option {
	return platform.WithReadiness(r)
}

// WithReadinessURL points the engine at a remote readiness service.
func WithReadinessURL(url string) Option {
	return platform.WithReadinessURL(url)
}

// WithStaticReadiness answers every workspace with the same status.
func WithStaticReadiness(status governance.ReadinessStatus, reasons ...string) Option {
	return platform.WithStaticReadiness(status, reasons...)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithReadOnly disables governed-flag writes.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithMustExist requires the document directory to exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithKeyTemplate sets the governance key template.
func WithKeyTemplate(tmpl string) Option {
	return platform.WithKeyTemplate(tmpl)
}

// WithRegistryKey sets the key of the model registry document.
func WithRegistryKey(key string) Option {
	return platform.WithRegistryKey(key)
}

// WithTimeout bounds every call to an external service.
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithRegistryCacheTTL expires the memoized registry after d.
func WithRegistryCacheTTL(d time.Duration) Option {
	return platform.WithRegistryCacheTTL(d)
}

// WithFallbackRegistry replaces the built-in fallback registry.
func WithFallbackRegistry(reg registry.Registry) Option {
	return platform.WithFallbackRegistry(reg)
}

// --- Factory ---

// New creates an Engine over the documents at uri.
func New(uri string, opts ...Option) (*Engine, error) {
	return platform.New(uri, opts...)
}

// Init builds the document store alone.
func Init(uri string, opts ...Option) (core.DocumentStore, error) {
	return platform.Init(uri, opts...)
}

// FindRoot looks upwards from startDir for a document root.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
