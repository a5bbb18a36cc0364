package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCache_TTLWithInjectedClock(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache(WithTTL(time.Minute), WithClock(clock.Now))

	assert.True(t, c.Store(c.Generation(), LoadResult{Source: SourceCanonical}))
	_, ok := c.Get()
	assert.True(t, ok)

	clock.Advance(59 * time.Second)
	_, ok = c.Get()
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get()
	assert.False(t, ok)
}

func TestCache_StaleGenerationIsRejected(t *testing.T) {
	c := NewCache()
	gen := c.Generation()
	c.Invalidate()

	assert.False(t, c.Store(gen, LoadResult{Source: SourceCanonical}))
	_, ok := c.Get()
	assert.False(t, ok)

	assert.True(t, c.Store(c.Generation(), LoadResult{Source: SourceLocalFallback}))
	res, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, SourceLocalFallback, res.Source)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := NewCache()
	c.Store(0, LoadResult{Registry: Registry{Models: []Model{{ID: "m", Capabilities: []string{"chat"}}}}})

	res, _ := c.Get()
	res.Registry.Models[0].Capabilities[0] = "mutated"

	again, _ := c.Get()
	assert.Equal(t, "chat", again.Registry.Models[0].Capabilities[0])
}
