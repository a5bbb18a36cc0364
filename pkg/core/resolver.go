package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultTimeout bounds every call a resolver makes to its store.
const DefaultTimeout = 5 * time.Second

// KeyObserver receives the tier of every successful resolution.
type KeyObserver interface {
	ObserveKeyResolution(tier string)
}

// KeyResolver resolves logical keys against a DocumentStore.
type KeyResolver struct {
	store    DocumentStore
	timeout  time.Duration
	logger   *slog.Logger
	observer KeyObserver
}

// ResolverOption configures a KeyResolver.
type ResolverOption func(*KeyResolver)

// WithResolverTimeout bounds the store call. Zero keeps DefaultTimeout.
func WithResolverTimeout(d time.Duration) ResolverOption {
	return func(r *KeyResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithResolverLogger sets the logger used for ambiguity and failure warnings.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *KeyResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithKeyObserver registers an observer (e.g. metrics) for resolutions.
func WithKeyObserver(o KeyObserver) ResolverOption {
	return func(r *KeyResolver) {
		r.observer = o
	}
}

// NewKeyResolver creates a KeyResolver over store.
func NewKeyResolver(store DocumentStore, opts ...ResolverOption) *KeyResolver {
	r := &KeyResolver{
		store:   store,
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store.
func (r *KeyResolver) Store() DocumentStore {
	return r.store
}

// FindByKey lists the store and applies MatchKey.
//
// It fails with *NotFoundError when no document matches, listing every key the
// store holds. A store failure or timeout is reported the same way, with the
// failure attached as Cause (errors.Is(err, ErrTransient) holds for timeouts).
func (r *KeyResolver) FindByKey(ctx context.Context, key string) (CanonicalDocument, error) {
	_, doc, err := r.find(ctx, key)
	return doc, err
}

// FindMatch is FindByKey but also returns the tier and candidate set.
func (r *KeyResolver) FindMatch(ctx context.Context, key string) (Match, error) {
	m, _, err := r.find(ctx, key)
	return m, err
}

func (r *KeyResolver) find(ctx context.Context, key string) (Match, CanonicalDocument, error) {
	if key == "" {
		return Match{}, CanonicalDocument{}, &NotFoundError{Key: key, Cause: errors.New("empty key")}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	docs, err := r.store.List(callCtx)
	if err != nil {
		cause := classify(callCtx, err)
		r.logger.Warn("document store unavailable during key resolution", "key", key, "error", cause)
		return Match{}, CanonicalDocument{}, &NotFoundError{Key: key, Cause: cause}
	}

	m, ok := MatchKey(docs, key)
	if !ok {
		return Match{}, CanonicalDocument{}, &NotFoundError{Key: key, AvailableKeys: Keys(docs)}
	}

	if m.Ambiguous() {
		r.logger.Warn("ambiguous key resolution, using first match in store order",
			"key", key,
			"tier", m.Tier.String(),
			"selected", m.Document.Key,
			"candidates", m.Candidates,
		)
	} else if m.Tier != TierExact {
		r.logger.Debug("key resolved by fallback tier", "key", key, "tier", m.Tier.String(), "selected", m.Document.Key)
	}

	if r.observer != nil {
		r.observer.ObserveKeyResolution(m.Tier.String())
	}
	return m, m.Document, nil
}

// classify marks deadline and cancellation failures as transient.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrTransient) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

// Transient wraps err as a transient failure if the context expired.
// Adapters use it to tag timeouts uniformly.
func Transient(ctx context.Context, err error) error {
	return classify(ctx, err)
}
