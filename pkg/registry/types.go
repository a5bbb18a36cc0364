// Package registry loads the model/provider registry, preferring the governed
// canonical document and degrading to a built-in default.
package registry

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a model definition.
type Status string

const (
	StatusActive       Status = "active"
	StatusDeprecated   Status = "deprecated"
	StatusExperimental Status = "experimental"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeprecated || s == StatusExperimental
}

// Provider is an AI API provider.
type Provider struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// Model is a model definition. ID is unique across the whole registry.
type Model struct {
	ID           string   `json:"id" yaml:"id"`
	ProviderID   string   `json:"providerId" yaml:"providerId"`
	DisplayName  string   `json:"displayName" yaml:"displayName"`
	APIModelName string   `json:"apiModelName,omitempty" yaml:"apiModelName,omitempty"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Status       Status   `json:"status" yaml:"status"`
	Notes        string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Registry is the set of providers and models available for selection.
type Registry struct {
	Providers []Provider `json:"providers" yaml:"providers"`
	Models    []Model    `json:"models" yaml:"models"`
}

// Model returns the definition with the given id.
func (r Registry) Model(id string) (Model, bool) {
	for _, m := range r.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Provider returns the provider with the given id.
func (r Registry) Provider(id string) (Provider, bool) {
	for _, p := range r.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// ModelsByProvider returns the models of one provider in registry order.
func (r Registry) ModelsByProvider(providerID string) []Model {
	var out []Model
	for _, m := range r.Models {
		if m.ProviderID == providerID {
			out = append(out, m)
		}
	}
	return out
}

// Capabilities returns the sorted set of capability strings used by any model.
// They are not checked against an enumeration.
func (r Registry) Capabilities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range r.Models {
		for _, c := range m.Capabilities {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (r Registry) Clone() Registry {
	out := Registry{}
	if r.Providers != nil {
		out.Providers = append([]Provider(nil), r.Providers...)
	}
	if r.Models != nil {
		out.Models = make([]Model, len(r.Models))
		for i, m := range r.Models {
			if m.Capabilities != nil {
				m.Capabilities = append([]string(nil), m.Capabilities...)
			}
			out.Models[i] = m
		}
	}
	return out
}

// Source tags where a loaded registry came from.
type Source string

const (
	SourceCanonical     Source = "canonical"
	SourceLocalFallback Source = "local-fallback"
)

// LoadResult is a registry together with its provenance.
type LoadResult struct {
	Registry Registry `json:"registry"`
	Source   Source   `json:"source"`
	// Error describes why a found document was not used. Empty when the
	// document was used or simply absent.
	Error string `json:"error,omitempty"`
	// DocumentKey is the key of the canonical document, when one was used.
	DocumentKey string    `json:"documentKey,omitempty"`
	LoadedAt    time.Time `json:"loadedAt"`
}

// Clone returns a deep copy.
func (r LoadResult) Clone() LoadResult {
	r.Registry = r.Registry.Clone()
	return r
}
