package registry

import (
	"time"

	"github.com/aretw0/introspection"
)

// LoaderState exposes internal state for observability.
type LoaderState struct {
	Key        string     `json:"key"`
	Cached     bool       `json:"cached"`
	Source     Source     `json:"source,omitempty"`
	Generation uint64     `json:"generation"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
}

// State implements introspection.Introspectable.
func (l *Loader) State() any {
	s := LoaderState{
		Key:        l.key,
		Generation: l.cache.Generation(),
	}
	if res, ok := l.cache.Get(); ok {
		s.Cached = true
		s.Source = res.Source
		s.LoadedAt = &res.LoadedAt
	}
	return s
}

// ComponentType implements introspection.Component.
func (l *Loader) ComponentType() string {
	return "registry-loader"
}

var _ introspection.Introspectable = (*Loader)(nil)
var _ introspection.Component = (*Loader)(nil)
