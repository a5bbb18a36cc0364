package governance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/continuum/pkg/adapters/memory"
	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
)

type brokenStore struct{}

func (brokenStore) List(context.Context) ([]core.CanonicalDocument, error) {
	return nil, errors.New("document service returned 503")
}

func (brokenStore) Get(context.Context, string) (core.CanonicalDocument, error) {
	return core.CanonicalDocument{}, errors.New("document service returned 503")
}

type modeCounter map[string]int

func (c modeCounter) ObserveModeResolution(mode string) { c[mode]++ }

func ready() governance.ReadinessService {
	return governance.StaticReadiness(governance.Readiness{Status: governance.StatusReady})
}

func newResolver(readiness governance.ReadinessService, store core.DocumentStore, opts ...governance.Option) *governance.Resolver {
	return governance.NewResolver(readiness, core.NewKeyResolver(store), opts...)
}

func TestResolve_Modes(t *testing.T) {
	store := memory.New(
		core.CanonicalDocument{ID: "a", Key: "alpha-governance.md", Governed: true},
		core.CanonicalDocument{ID: "b", Key: "Beta-Governance.md", Governed: false},
	)
	r := newResolver(ready(), store)
	ctx := context.Background()

	assert.Equal(t, governance.ModeOperational, r.Resolve(ctx, "alpha").Mode)
	assert.Equal(t, governance.ModeAdvisory, r.Resolve(ctx, "beta").Mode)

	missing := r.Resolve(ctx, "gamma")
	assert.Equal(t, governance.ModeGuarded, missing.Mode)
	assert.Equal(t, []string{governance.ReasonGovernanceMissing}, missing.Reasons)
}

func TestResolve_NotReadySkipsLookup(t *testing.T) {
	notReady := governance.StaticReadiness(governance.Readiness{
		Status:  governance.StatusNotReady,
		Reasons: []string{"charter missing"},
	})
	r := newResolver(notReady, brokenStore{})

	res := r.Resolve(context.Background(), "alpha")
	assert.Equal(t, governance.ModeGuarded, res.Mode)
	assert.Contains(t, res.Reasons, "charter missing")
}

func TestResolve_ReadinessFailure(t *testing.T) {
	failing := governance.ReadinessFunc(func(context.Context, string) (governance.Readiness, error) {
		return governance.Readiness{}, errors.New("dial tcp: connection refused")
	})
	store := memory.New(core.CanonicalDocument{ID: "a", Key: "alpha-governance.md", Governed: true})
	r := newResolver(failing, store)

	res := r.Resolve(context.Background(), "alpha")
	assert.Equal(t, governance.ModeGuarded, res.Mode)
	require.Len(t, res.Reasons, 1)
	assert.Contains(t, res.Reasons[0], "readiness service unavailable")
	assert.Equal(t, governance.StatusNotReady, res.Readiness.Status)
}

func TestResolve_ReadinessTimeout(t *testing.T) {
	slow := governance.ReadinessFunc(func(ctx context.Context, _ string) (governance.Readiness, error) {
		<-ctx.Done()
		return governance.Readiness{}, ctx.Err()
	})
	store := memory.New(core.CanonicalDocument{ID: "a", Key: "alpha-governance.md", Governed: true})
	r := newResolver(slow, store, governance.WithTimeout(20*time.Millisecond))

	start := time.Now()
	res := r.Resolve(context.Background(), "alpha")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, governance.ModeGuarded, res.Mode)
}

func TestResolve_LateReadinessIsDiscarded(t *testing.T) {
	late := governance.ReadinessFunc(func(ctx context.Context, _ string) (governance.Readiness, error) {
		<-ctx.Done()
		return governance.Readiness{Status: governance.StatusReady}, nil
	})
	store := memory.New(core.CanonicalDocument{ID: "a", Key: "alpha-governance.md", Governed: true})
	r := newResolver(late, store, governance.WithTimeout(10*time.Millisecond))

	assert.Equal(t, governance.ModeGuarded, r.Resolve(context.Background(), "alpha").Mode)
}

func TestResolve_StoreFailure(t *testing.T) {
	r := newResolver(ready(), brokenStore{})

	res := r.Resolve(context.Background(), "alpha")
	assert.Equal(t, governance.ModeGuarded, res.Mode)
	require.Len(t, res.Reasons, 1)
	assert.Contains(t, res.Reasons[0], "governance lookup failed")
}

func TestResolve_PanicIsGuarded(t *testing.T) {
	panicking := governance.ReadinessFunc(func(context.Context, string) (governance.Readiness, error) {
		panic("nil map")
	})
	r := newResolver(panicking, memory.New())

	assert.Equal(t, governance.ModeGuarded, r.Resolve(context.Background(), "alpha").Mode)
}

func TestResolve_UnconfiguredAndEmptyWorkspace(t *testing.T) {
	assert.Equal(t, governance.ModeGuarded, governance.NewResolver(nil, nil).Resolve(context.Background(), "alpha").Mode)
	assert.Equal(t, governance.ModeGuarded, newResolver(ready(), memory.New()).Resolve(context.Background(), "").Mode)
}

func TestResolve_KeyTemplateAndObserver(t *testing.T) {
	store := memory.New(core.CanonicalDocument{ID: "g", Key: "governance/alpha.md", Governed: true})
	counter := modeCounter{}
	r := newResolver(ready(), store,
		governance.WithKeyTemplate("governance/{workspace}.md"),
		governance.WithObserver(counter),
	)

	assert.Equal(t, "governance/alpha.md", r.GovernanceKey("alpha"))
	assert.Equal(t, governance.ModeOperational, r.Resolve(context.Background(), "alpha").Mode)
	assert.Equal(t, governance.ModeGuarded, r.Resolve(context.Background(), "").Mode)
	assert.Equal(t, 1, counter["OPERATIONAL"])
	assert.Equal(t, 1, counter["GUARDED"])
}

func TestResolve_RecomputedEveryCall(t *testing.T) {
	store := memory.New(core.CanonicalDocument{ID: "g", Key: "alpha-governance.md", Governed: false})
	r := newResolver(ready(), store)
	ctx := context.Background()

	assert.Equal(t, governance.ModeAdvisory, r.Resolve(ctx, "alpha").Mode)
	require.NoError(t, store.SetGoverned(ctx, "g", true))
	assert.Equal(t, governance.ModeOperational, r.Resolve(ctx, "alpha").Mode)
}
