package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/continuum/pkg/adapters/memory"
	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/registry"
)

const canonicalContent = `
providers:
  - id: acme
    displayName: Acme AI
models:
  - id: acme-large
    providerId: acme
    displayName: Acme Large
    capabilities: [chat]
    status: active
`

func registryDoc(content string) core.CanonicalDocument {
	return core.CanonicalDocument{ID: "model-registry", Key: "model-registry.md", Governed: true, Content: content}
}

func TestLoad_Canonical(t *testing.T) {
	store := memory.New(registryDoc(canonicalContent))
	l := registry.NewLoader(core.NewKeyResolver(store))

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registry.SourceCanonical, res.Source)
	assert.Empty(t, res.Error)
	assert.Equal(t, "model-registry.md", res.DocumentKey)
	_, ok := res.Registry.Model("acme-large")
	assert.True(t, ok)
}

func TestLoad_MissingDocumentFallsBackSilently(t *testing.T) {
	store := memory.New(core.CanonicalDocument{ID: "other", Key: "charter.md"})
	l := registry.NewLoader(core.NewKeyResolver(store))

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registry.SourceLocalFallback, res.Source)
	assert.Empty(t, res.Error)

	def, err := registry.Default()
	require.NoError(t, err)
	assert.Equal(t, def, res.Registry)
}

func TestLoad_UnparseableDocumentFallsBackWithError(t *testing.T) {
	store := memory.New(registryDoc("# Registry\n\nnot yet written"))
	l := registry.NewLoader(core.NewKeyResolver(store))

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registry.SourceLocalFallback, res.Source)
	assert.NotEmpty(t, res.Error)
	assert.Contains(t, res.Error, "model-registry.md")
}

func TestLoad_CanonicalDuplicateIDFallsBack(t *testing.T) {
	content := `
providers:
  - {id: a, displayName: A}
  - {id: b, displayName: B}
models:
  - {id: shared, providerId: a, displayName: S, capabilities: [], status: active}
  - {id: shared, providerId: b, displayName: S, capabilities: [], status: active}
`
	l := registry.NewLoader(core.NewKeyResolver(memory.New(registryDoc(content))))

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registry.SourceLocalFallback, res.Source)
	assert.Contains(t, res.Error, `duplicate model id "shared"`)
}

func TestLoad_FallbackDuplicateIDFailsLoad(t *testing.T) {
	bad := registry.Registry{
		Providers: []registry.Provider{{ID: "a", DisplayName: "A"}, {ID: "b", DisplayName: "B"}},
		Models: []registry.Model{
			{ID: "dup", ProviderID: "a", DisplayName: "D", Status: registry.StatusActive},
			{ID: "dup", ProviderID: "b", DisplayName: "D", Status: registry.StatusActive},
		},
	}
	l := registry.NewLoader(core.NewKeyResolver(memory.New()), registry.WithFallback(bad))

	_, err := l.Load(context.Background())
	require.Error(t, err)
	var ve *registry.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "dup", ve.DuplicateID)
}

type slowStore struct{}

func (slowStore) List(ctx context.Context) ([]core.CanonicalDocument, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowStore) Get(ctx context.Context, id string) (core.CanonicalDocument, error) {
	<-ctx.Done()
	return core.CanonicalDocument{}, ctx.Err()
}

func TestLoad_StoreTimeoutFallsBack(t *testing.T) {
	l := registry.NewLoader(core.NewKeyResolver(slowStore{}), registry.WithLoaderTimeout(20*time.Millisecond))

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registry.SourceLocalFallback, res.Source)
	assert.Contains(t, res.Error, "registry lookup failed")
}

func TestLoad_RequireGoverned(t *testing.T) {
	doc := registryDoc(canonicalContent)
	doc.Governed = false
	l := registry.NewLoader(core.NewKeyResolver(memory.New(doc)), registry.WithRequireGoverned(true))

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registry.SourceLocalFallback, res.Source)
	assert.Contains(t, res.Error, "not governed")
}

// countingStore counts List calls and can hold them until released.
type countingStore struct {
	*memory.Store
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newCountingStore(docs ...core.CanonicalDocument) *countingStore {
	return &countingStore{Store: memory.New(docs...)}
}

func (s *countingStore) List(ctx context.Context) ([]core.CanonicalDocument, error) {
	s.calls.Add(1)
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.release != nil {
		<-s.release
	}
	return s.Store.List(ctx)
}

func TestLoad_MemoizedUntilInvalidate(t *testing.T) {
	store := newCountingStore()
	l := registry.NewLoader(core.NewKeyResolver(store))
	ctx := context.Background()

	first, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.SourceLocalFallback, first.Source)

	// The document appears, but the cached provenance still stands.
	store.Put(registryDoc(canonicalContent))
	cached, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.SourceLocalFallback, cached.Source)
	assert.Equal(t, int32(1), store.calls.Load())

	l.Invalidate()
	fresh, err := l.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.SourceCanonical, fresh.Source)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestLoad_ConcurrentMissesCoalesce(t *testing.T) {
	store := newCountingStore(registryDoc(canonicalContent))
	store.entered = make(chan struct{}, 1)
	store.release = make(chan struct{})
	l := registry.NewLoader(core.NewKeyResolver(store))

	const callers = 16
	var wg sync.WaitGroup
	results := make([]registry.LoadResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.Load(context.Background())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	<-store.entered
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Equal(t, int32(1), store.calls.Load())
	for _, res := range results {
		assert.Equal(t, registry.SourceCanonical, res.Source)
		assert.Len(t, res.Registry.Models, 1)
	}
}

func TestLoad_InvalidateDuringFlightIsNotCached(t *testing.T) {
	store := newCountingStore(registryDoc(canonicalContent))
	store.entered = make(chan struct{}, 1)
	store.release = make(chan struct{})
	l := registry.NewLoader(core.NewKeyResolver(store))

	done := make(chan registry.LoadResult)
	go func() {
		res, _ := l.Load(context.Background())
		done <- res
	}()

	<-store.entered
	l.Invalidate()
	close(store.release)
	<-done

	state := l.State().(registry.LoaderState)
	assert.False(t, state.Cached)

	_, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestLoad_ResultsAreIndependentCopies(t *testing.T) {
	l := registry.NewLoader(core.NewKeyResolver(memory.New(registryDoc(canonicalContent))))

	a, err := l.Load(context.Background())
	require.NoError(t, err)
	a.Registry.Models[0].DisplayName = "mutated"

	b, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme Large", b.Registry.Models[0].DisplayName)
}

func TestLoad_CacheTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newCountingStore(registryDoc(canonicalContent))
	l := registry.NewLoader(core.NewKeyResolver(store),
		registry.WithCache(registry.NewCache(registry.WithTTL(time.Minute), registry.WithClock(clock))),
	)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now, res.LoadedAt)

	now = now.Add(2 * time.Minute)
	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())
}
