package registry

import (
	_ "embed"
)

//go:embed default_registry.yaml
var defaultRegistryYAML string

// Default returns the built-in registry. The error is non-nil only if the
// embedded definition is itself invalid.
func Default() (Registry, error) {
	return Parse(defaultRegistryYAML)
}
