package platform

import (
	"strings"

	"github.com/aretw0/continuum/internal/config"
	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
	"github.com/aretw0/continuum/pkg/registry"
)

// New builds an Engine.
//
//	engine, err := continuum.New("./docs", continuum.WithReadOnly(true))
//
// The uri argument is adapter-specific (a directory for "fs", a base URL for
// "remote").
func New(uri string, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}

	store, err := initStore(uri, o)
	if err != nil {
		return nil, err
	}
	readiness, err := initReadiness(o)
	if err != nil {
		return nil, err
	}

	resolverOpts := []core.ResolverOption{
		core.WithResolverTimeout(o.timeout),
		core.WithResolverLogger(o.logger),
	}
	modeOpts := []governance.Option{
		governance.WithKeyTemplate(o.keyTemplate),
		governance.WithTimeout(o.timeout),
		governance.WithLogger(o.logger),
	}
	loaderOpts := []registry.LoaderOption{
		registry.WithKey(o.registryKey),
		registry.WithLoaderTimeout(o.timeout),
		registry.WithRequireGoverned(o.requireGoverned),
		registry.WithLoaderLogger(o.logger),
		registry.WithCache(registry.NewCache(registry.WithTTL(o.cacheTTL), registry.WithClock(o.clock))),
	}
	if o.fallback != nil {
		loaderOpts = append(loaderOpts, registry.WithFallback(*o.fallback))
	}
	if o.observer != nil {
		resolverOpts = append(resolverOpts, core.WithKeyObserver(o.observer))
		modeOpts = append(modeOpts, governance.WithObserver(o.observer))
		loaderOpts = append(loaderOpts, registry.WithLoadObserver(o.observer))
	}

	keys := core.NewKeyResolver(store, resolverOpts...)
	modes := governance.NewResolver(readiness, keys, modeOpts...)

	return &Engine{
		store:        store,
		keys:         keys,
		modes:        modes,
		gate:         governance.NewGate(modes),
		registry:     registry.NewLoader(keys, loaderOpts...),
		logger:       o.logger,
		watchPattern: o.watchPattern,
		errorHandler: o.errorHandler,
	}, nil
}

// FromConfig builds an Engine from a loaded configuration. Extra options are
// applied last, so callers can inject a logger or an observer.
func FromConfig(cfg *config.Config, extra ...Option) (*Engine, error) {
	uri, opts := ConfigOptions(cfg)
	return New(uri, append(opts, extra...)...)
}

// ConfigOptions translates cfg into the uri and options New expects.
func ConfigOptions(cfg *config.Config) (string, []Option) {
	uri := cfg.Documents.Path
	opts := []Option{
		WithReadOnly(cfg.Documents.ReadOnly),
		WithKeyTemplate(cfg.Governance.KeyTemplate),
		WithRegistryKey(cfg.Registry.Key),
		WithRegistryCacheTTL(cfg.Registry.CacheTTL.Duration),
		WithRequireGoverned(cfg.Registry.RequireGoverned),
		WithTimeout(cfg.Remote.Timeout.Duration),
		WithRateLimit(cfg.Remote.RequestsPerSecond, cfg.Remote.Burst),
		WithToken(cfg.Remote.Token),
	}
	if len(cfg.Documents.Include) > 0 {
		opts = append(opts, WithInclude(cfg.Documents.Include...))
	}
	if cfg.Documents.URL != "" {
		uri = cfg.Documents.URL
		opts = append(opts, WithAdapter("remote"))
	}

	switch {
	case cfg.Readiness.URL != "":
		opts = append(opts, WithReadinessURL(cfg.Readiness.URL))
	case cfg.Readiness.Static != "":
		opts = append(opts, WithStaticReadiness(
			governance.ReadinessStatus(strings.ToUpper(cfg.Readiness.Static)),
			"static readiness from configuration",
		))
	}
	return uri, opts
}
