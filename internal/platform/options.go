package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
	"github.com/aretw0/continuum/pkg/registry"
)

// Observer receives the engine's counters. *metrics.Metrics implements it.
type Observer interface {
	governance.ModeObserver
	registry.LoadObserver
	core.KeyObserver
}

// options holds the internal configuration of an Engine.
type options struct {
	store     core.DocumentStore
	readiness governance.ReadinessService
	logger    *slog.Logger
	adapter   string

	// fs adapter
	readOnly  bool
	mustExist bool
	systemDir string
	include   []string

	// remote adapters
	readinessURL string
	token        string
	rps          float64
	burst        int

	staticReadiness *governance.Readiness

	keyTemplate     string
	registryKey     string
	timeout         time.Duration
	cacheTTL        time.Duration
	clock           registry.Clock
	requireGoverned bool
	fallback        *registry.Registry
	observer        Observer
	watchPattern    string
	errorHandler    func(error)
}

// Option defines a functional option for configuring the Engine.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:     "fs",
		keyTemplate: governance.DefaultKeyTemplate,
		registryKey: registry.DefaultKey,
		timeout:     core.DefaultTimeout,
	}
}

// WithAdapter selects the document store adapter by name: "fs" (default),
// "remote" or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithStore injects a document store. The adapter is then ignored.
func WithStore(store core.DocumentStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithReadiness injects the readiness service.
func WithReadiness(r governance.ReadinessService) Option {
	return func(o *options) {
		o.readiness = r
	}
}

// WithReadinessURL points the engine at a remote readiness service.
func WithReadinessURL(url string) Option {
	return func(o *options) {
		o.readinessURL = url
	}
}

// WithStaticReadiness answers every workspace with the same status.
// Meant for local use, where no readiness service runs.
func WithStaticReadiness(status governance.ReadinessStatus, reasons ...string) Option {
	return func(o *options) {
		o.staticReadiness = &governance.Readiness{Status: status, Reasons: reasons}
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReadOnly disables governed-flag writes and index persistence.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithMustExist fails initialization when the document directory is absent
// instead of creating it.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithSystemDir sets the hidden directory holding the index (default ".continuum").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithInclude sets the doublestar patterns of the files the fs adapter reads.
func WithInclude(patterns ...string) Option {
	return func(o *options) {
		o.include = patterns
	}
}

// WithToken sets the bearer token sent to remote services.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithRateLimit limits requests to remote services. Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		o.rps = rps
		o.burst = burst
	}
}

// WithKeyTemplate sets the governance key template ({workspace} is replaced).
func WithKeyTemplate(tmpl string) Option {
	return func(o *options) {
		if tmpl != "" {
			o.keyTemplate = tmpl
		}
	}
}

// WithRegistryKey sets the key of the model registry document.
func WithRegistryKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.registryKey = key
		}
	}
}

// WithTimeout bounds every call to an external service.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRegistryCacheTTL expires the memoized registry after d. Zero keeps it
// until invalidated.
func WithRegistryCacheTTL(d time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = d
	}
}

// WithClock sets the time source of the registry cache.
func WithClock(now registry.Clock) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithRequireGoverned makes an ungoverned registry document fall back.
func WithRequireGoverned(required bool) Option {
	return func(o *options) {
		o.requireGoverned = required
	}
}

// WithFallbackRegistry replaces the built-in fallback registry.
func WithFallbackRegistry(reg registry.Registry) Option {
	return func(o *options) {
		o.fallback = &reg
	}
}

// WithObserver registers the counters fed by mode resolutions, registry loads
// and key resolutions.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithWatchPattern restricts which document changes invalidate the registry
// while watching. Empty means every document.
func WithWatchPattern(pattern string) Option {
	return func(o *options) {
		o.watchPattern = pattern
	}
}

// WithWatcherErrorHandler registers a callback for errors raised inside the
// watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
