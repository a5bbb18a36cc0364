package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/continuum/internal/config"
	"github.com/aretw0/continuum/internal/metrics"
	"github.com/aretw0/continuum/internal/platform"
	"github.com/aretw0/continuum/pkg/adapters/memory"
	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
	"github.com/aretw0/continuum/pkg/registry"
)

const registryBody = "# Models\n\n```yaml\nproviders:\n  - id: acme\n    displayName: Acme AI\nmodels:\n  - id: acme-large\n    providerId: acme\n    displayName: Acme Large\n    capabilities: [chat]\n    status: active\n```\n"

func seededStore() *memory.Store {
	return memory.New(
		core.CanonicalDocument{ID: "ws-1-governance", Key: "ws-1-governance.md", Governed: false},
		core.CanonicalDocument{ID: "model-registry", Key: "model-registry.md", Governed: true, Content: registryBody},
	)
}

func newEngine(t *testing.T, opts ...platform.Option) *platform.Engine {
	t.Helper()
	e, err := platform.New("", opts...)
	require.NoError(t, err)
	return e
}

// readOnlyStore hides the memory store's SetGoverned.
type readOnlyStore struct {
	core.DocumentStore
}

func TestEngine_ResolveMode(t *testing.T) {
	ctx := context.Background()

	t.Run("No Readiness Service Is Guarded", func(t *testing.T) {
		e := newEngine(t, platform.WithStore(seededStore()))
		res := e.ResolveMode(ctx, "ws-1")
		assert.Equal(t, governance.ModeGuarded, res.Mode)
		assert.Contains(t, res.Reasons, platform.ReasonNoReadinessService)
	})

	t.Run("Ready With Ungoverned Document Is Advisory", func(t *testing.T) {
		e := newEngine(t,
			platform.WithStore(seededStore()),
			platform.WithStaticReadiness(governance.StatusReady),
		)
		assert.Equal(t, governance.ModeAdvisory, e.ResolveMode(ctx, "ws-1").Mode)
	})

	t.Run("Ready Without Document Is Guarded", func(t *testing.T) {
		e := newEngine(t,
			platform.WithStore(seededStore()),
			platform.WithStaticReadiness(governance.StatusReady),
		)
		assert.Equal(t, governance.ModeGuarded, e.ResolveMode(ctx, "ws-2").Mode)
	})

	t.Run("Custom Key Template", func(t *testing.T) {
		store := memory.New(core.CanonicalDocument{ID: "charter", Key: "charters/ws-1.md", Governed: true})
		e := newEngine(t,
			platform.WithStore(store),
			platform.WithStaticReadiness(governance.StatusReady),
			platform.WithKeyTemplate("charters/{workspace}.md"),
		)
		assert.Equal(t, "charters/ws-1.md", e.GovernanceKey("ws-1"))
		assert.Equal(t, governance.ModeOperational, e.ResolveMode(ctx, "ws-1").Mode)
	})
}

func TestEngine_AuthorizeFollowsGovernedFlag(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t,
		platform.WithStore(seededStore()),
		platform.WithStaticReadiness(governance.StatusReady),
	)
	action := governance.Action{Name: "publish", Kind: governance.ActionMutation, Governed: true}

	d := e.Authorize(ctx, "ws-1", action)
	assert.False(t, d.Allowed)
	assert.Equal(t, governance.ModeAdvisory, d.Mode)

	require.NoError(t, e.SetGoverned(ctx, "ws-1-governance", true))

	d = e.Authorize(ctx, "ws-1", action)
	assert.True(t, d.Allowed)
	assert.Equal(t, governance.ModeOperational, d.Mode)
}

func TestEngine_Registry(t *testing.T) {
	ctx := context.Background()

	t.Run("Canonical Document", func(t *testing.T) {
		e := newEngine(t, platform.WithStore(seededStore()))
		res, err := e.LoadRegistry(ctx)
		require.NoError(t, err)
		assert.Equal(t, registry.SourceCanonical, res.Source)
		_, ok := res.Registry.Model("acme-large")
		assert.True(t, ok)
	})

	t.Run("Custom Fallback", func(t *testing.T) {
		fallback := registry.Registry{
			Providers: []registry.Provider{{ID: "p", DisplayName: "P"}},
			Models:    []registry.Model{{ID: "m", ProviderID: "p", DisplayName: "M", Status: registry.StatusActive}},
		}
		e := newEngine(t, platform.WithStore(memory.New()), platform.WithFallbackRegistry(fallback))
		res, err := e.LoadRegistry(ctx)
		require.NoError(t, err)
		assert.Equal(t, registry.SourceLocalFallback, res.Source)
		assert.Equal(t, fallback, res.Registry)
	})

	t.Run("Require Governed", func(t *testing.T) {
		store := seededStore()
		require.NoError(t, store.SetGoverned(ctx, "model-registry", false))
		e := newEngine(t, platform.WithStore(store), platform.WithRequireGoverned(true))
		res, err := e.LoadRegistry(ctx)
		require.NoError(t, err)
		assert.Equal(t, registry.SourceLocalFallback, res.Source)
		assert.Contains(t, res.Error, "not governed")
	})

	t.Run("Toggling Registry Document Invalidates", func(t *testing.T) {
		e := newEngine(t, platform.WithStore(seededStore()))
		_, err := e.LoadRegistry(ctx)
		require.NoError(t, err)
		require.True(t, e.State().(platform.EngineState).Registry.Cached)

		require.NoError(t, e.SetGoverned(ctx, "ws-1-governance", true))
		assert.True(t, e.State().(platform.EngineState).Registry.Cached)

		require.NoError(t, e.SetGoverned(ctx, "model-registry", false))
		assert.False(t, e.State().(platform.EngineState).Registry.Cached)
	})

	t.Run("Expires After TTL", func(t *testing.T) {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		e := newEngine(t,
			platform.WithStore(seededStore()),
			platform.WithRegistryCacheTTL(time.Minute),
			platform.WithClock(func() time.Time { return now }),
		)
		_, err := e.LoadRegistry(ctx)
		require.NoError(t, err)
		assert.True(t, e.State().(platform.EngineState).Registry.Cached)

		now = now.Add(2 * time.Minute)
		assert.False(t, e.State().(platform.EngineState).Registry.Cached)
	})
}

func TestEngine_SetGovernedReadOnly(t *testing.T) {
	e := newEngine(t, platform.WithStore(readOnlyStore{seededStore()}))
	err := e.SetGoverned(context.Background(), "ws-1-governance", true)
	assert.True(t, errors.Is(err, core.ErrReadOnly))
}

func TestEngine_FindByKey(t *testing.T) {
	e := newEngine(t, platform.WithStore(seededStore()))

	doc, err := e.FindByKey(context.Background(), "MODEL-REGISTRY.md")
	require.NoError(t, err)
	assert.Equal(t, "model-registry", doc.ID)

	_, err = e.FindByKey(context.Background(), "missing.md")
	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"ws-1-governance.md", "model-registry.md"}, nf.AvailableKeys)
}

func TestEngine_Workspace(t *testing.T) {
	e := newEngine(t, platform.WithStore(seededStore()), platform.WithStaticReadiness(governance.StatusReady))

	view := e.Workspace(context.Background(), governance.Workspace{
		ID:       "ws-1",
		Metadata: map[string]any{"aiMode": "OPERATIONAL", "owner": "ops"},
	})
	assert.Equal(t, governance.ModeAdvisory, view.AIMode)
	assert.Equal(t, map[string]any{"owner": "ops"}, view.Metadata)

	node := e.Node(context.Background(), "n-1", "task", "Draft", governance.Workspace{ID: "ws-1"})
	require.NotNil(t, node.Workspace)
	assert.Equal(t, governance.ModeAdvisory, node.Workspace.AIMode)
}

func TestEngine_Observer(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := newEngine(t,
		platform.WithStore(seededStore()),
		platform.WithStaticReadiness(governance.StatusReady),
		platform.WithObserver(m),
	)

	e.ResolveMode(context.Background(), "ws-1")
	_, err := e.LoadRegistry(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModeResolutions.WithLabelValues("ADVISORY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryLoads.WithLabelValues("canonical")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.KeyResolutions.WithLabelValues("exact")))
}

func TestEngine_Watch(t *testing.T) {
	t.Run("Unsupported Store", func(t *testing.T) {
		e := newEngine(t, platform.WithStore(seededStore()))
		assert.ErrorIs(t, e.Watch(context.Background()), platform.ErrWatchUnsupported)
	})

	t.Run("Change Invalidates Registry", func(t *testing.T) {
		root := t.TempDir()
		registryFile := filepath.Join(root, "model-registry.md")
		require.NoError(t, os.WriteFile(registryFile, []byte("---\ngoverned: true\n---\n"+registryBody), 0644))

		e, err := platform.New(root)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, e.Watch(ctx))
		assert.Error(t, e.Watch(ctx), "second watch must fail")

		res, err := e.LoadRegistry(ctx)
		require.NoError(t, err)
		require.Equal(t, registry.SourceCanonical, res.Source)

		require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# notes\n"), 0644))

		assert.Eventually(t, func() bool {
			return !e.State().(platform.EngineState).Registry.Cached
		}, 2*time.Second, 20*time.Millisecond)

		cancel()
		assert.Eventually(t, func() bool {
			return !e.State().(platform.EngineState).Watching
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestFromConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ws-9-governance.md"), []byte("---\ngoverned: true\n---\n# Charter\n"), 0644))

	cfg := config.Default()
	cfg.Documents.Path = root
	cfg.Readiness.Static = "ready"

	e, err := platform.FromConfig(cfg)
	require.NoError(t, err)

	res := e.ResolveMode(context.Background(), "ws-9")
	assert.Equal(t, governance.ModeOperational, res.Mode)
	assert.Equal(t, "fs-store", e.Store().(interface{ ComponentType() string }).ComponentType())
}

func TestConfigOptions_RemoteDocuments(t *testing.T) {
	cfg := config.Default()
	cfg.Documents.URL = "http://documents.internal"

	uri, _ := platform.ConfigOptions(cfg)
	assert.Equal(t, "http://documents.internal", uri)

	e, err := platform.FromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "remote-document-store", e.Store().(interface{ ComponentType() string }).ComponentType())
}

func TestInit(t *testing.T) {
	t.Run("Unknown Adapter", func(t *testing.T) {
		_, err := platform.Init("x", platform.WithAdapter("s3"))
		assert.EqualError(t, err, "unknown adapter: s3")
	})

	t.Run("Filesystem Creates Directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "docs")
		_, err := platform.Init(dir)
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Must Exist", func(t *testing.T) {
		_, err := platform.Init(filepath.Join(t.TempDir(), "missing"), platform.WithMustExist(true))
		assert.Error(t, err)
	})

	t.Run("Remote Requires Valid URL", func(t *testing.T) {
		_, err := platform.Init("ftp://docs", platform.WithAdapter("remote"))
		assert.Error(t, err)
	})
}
