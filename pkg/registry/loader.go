package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aretw0/continuum/pkg/core"
)

// DefaultKey is the logical key of the registry document.
const DefaultKey = "model-registry.md"

// KeyFinder resolves a logical key to a canonical document.
type KeyFinder interface {
	FindByKey(ctx context.Context, key string) (core.CanonicalDocument, error)
}

// LoadObserver receives the source of every load that reached the store.
type LoadObserver interface {
	ObserveRegistryLoad(source string)
}

// Loader loads the registry from the canonical document, falling back to a
// static registry. Results are memoized in its Cache until Invalidate.
type Loader struct {
	keys            KeyFinder
	key             string
	fallback        func() (Registry, error)
	cache           *Cache
	group           singleflight.Group
	timeout         time.Duration
	requireGoverned bool
	logger          *slog.Logger
	observer        LoadObserver
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithKey sets the registry document key.
func WithKey(key string) LoaderOption {
	return func(l *Loader) {
		if key != "" {
			l.key = key
		}
	}
}

// WithFallback replaces the built-in default registry.
func WithFallback(reg Registry) LoaderOption {
	return func(l *Loader) {
		l.fallback = func() (Registry, error) { return reg.Clone(), nil }
	}
}

// WithCache sets the cache the loader memoizes into.
func WithCache(c *Cache) LoaderOption {
	return func(l *Loader) {
		if c != nil {
			l.cache = c
		}
	}
}

// WithLoaderTimeout bounds the store lookup.
func WithLoaderTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithRequireGoverned makes an ungoverned registry document degrade to the
// fallback, as if its content were invalid.
func WithRequireGoverned(required bool) LoaderOption {
	return func(l *Loader) {
		l.requireGoverned = required
	}
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLoadObserver registers a LoadObserver.
func WithLoadObserver(o LoadObserver) LoaderOption {
	return func(l *Loader) {
		l.observer = o
	}
}

// NewLoader creates a Loader.
func NewLoader(keys KeyFinder, opts ...LoaderOption) *Loader {
	l := &Loader{
		keys:     keys,
		key:      DefaultKey,
		fallback: Default,
		timeout:  core.DefaultTimeout,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.cache == nil {
		l.cache = NewCache()
	}
	return l
}

// Key returns the registry document key.
func (l *Loader) Key() string {
	return l.key
}

// Load returns the registry and its provenance.
//
// A missing document yields the fallback without error; a found but invalid
// document, or a store failure, yields the fallback with LoadResult.Error set.
// The returned error is non-nil only when the fallback registry itself is
// invalid, since nothing safer remains. Concurrent misses share one fetch.
func (l *Loader) Load(ctx context.Context) (LoadResult, error) {
	if res, ok := l.cache.Get(); ok {
		return res, nil
	}

	gen := l.cache.Generation()
	v, err, _ := l.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		// A flight that finished between Get and Do may already have stored.
		if res, ok := l.cache.Get(); ok {
			return res, nil
		}
		res, err := l.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return LoadResult{}, err
		}
		if !l.cache.Store(gen, res) {
			l.logger.Debug("registry cache invalidated during load, result not cached")
		}
		if l.observer != nil {
			l.observer.ObserveRegistryLoad(string(res.Source))
		}
		return res, nil
	})
	if err != nil {
		return LoadResult{}, err
	}
	return v.(LoadResult).Clone(), nil
}

// Invalidate drops the memoized result. The next Load re-resolves from scratch.
func (l *Loader) Invalidate() {
	l.cache.Invalidate()
	l.logger.Debug("registry cache invalidated", "key", l.key)
}

func (l *Loader) fetch(ctx context.Context) (LoadResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	doc, err := l.keys.FindByKey(callCtx, l.key)
	if err != nil {
		var nf *core.NotFoundError
		if (errors.As(err, &nf) && nf.Cause == nil) || (nf == nil && core.IsNotFound(err)) {
			l.logger.Info("registry document not found, using local fallback", "key", l.key)
			return l.useFallback("")
		}
		return l.degrade(fmt.Sprintf("registry lookup failed: %v", err))
	}

	if l.requireGoverned && !doc.Governed {
		return l.degrade(fmt.Sprintf("registry document %q is not governed", doc.Key))
	}

	reg, err := Parse(doc.Content)
	if err != nil {
		return l.degrade(fmt.Sprintf("registry document %q: %v", doc.Key, err))
	}
	if err := CheckUniqueModelIDs(reg); err != nil {
		return l.degrade(fmt.Sprintf("registry document %q: %v", doc.Key, err))
	}

	return LoadResult{
		Registry:    reg,
		Source:      SourceCanonical,
		DocumentKey: doc.Key,
		LoadedAt:    l.cache.Now(),
	}, nil
}

func (l *Loader) degrade(reason string) (LoadResult, error) {
	l.logger.Warn("using local fallback registry", "key", l.key, "reason", reason)
	return l.useFallback(reason)
}

func (l *Loader) useFallback(reason string) (LoadResult, error) {
	reg, err := l.fallback()
	if err == nil {
		err = Validate(reg)
	}
	if err == nil {
		err = CheckUniqueModelIDs(reg)
	}
	if err != nil {
		l.logger.Error("fallback registry is invalid", "error", err)
		return LoadResult{}, fmt.Errorf("fallback registry: %w", err)
	}

	return LoadResult{
		Registry: reg,
		Source:   SourceLocalFallback,
		Error:    reason,
		LoadedAt: l.cache.Now(),
	}, nil
}
