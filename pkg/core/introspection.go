package core

import (
	"github.com/aretw0/introspection"
)

// ResolverState exposes internal state for observability.
type ResolverState struct {
	Timeout   string `json:"timeout"`
	StoreType string `json:"store_type"`
}

// State implements introspection.Introspectable.
func (r *KeyResolver) State() any {
	storeType := "unknown"
	if r.store != nil {
		storeType = "store"
		// Try to get component type if store implements introspection.Component
		if comp, ok := r.store.(introspection.Component); ok {
			storeType = comp.ComponentType()
		}
	}

	return ResolverState{
		Timeout:   r.timeout.String(),
		StoreType: storeType,
	}
}

// ComponentType implements introspection.Component.
func (r *KeyResolver) ComponentType() string {
	return "key-resolver"
}

var _ introspection.Introspectable = (*KeyResolver)(nil)
var _ introspection.Component = (*KeyResolver)(nil)
