// Package metrics exposes Prometheus counters for mode resolutions, registry
// loads and key resolutions. It implements the observer interfaces of the
// governance, registry and core packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
	"github.com/aretw0/continuum/pkg/registry"
)

// Namespace prefixes every metric name.
const Namespace = "continuum"

// Metrics holds the engine's counters.
type Metrics struct {
	ModeResolutions *prometheus.CounterVec
	RegistryLoads   *prometheus.CounterVec
	KeyResolutions  *prometheus.CounterVec
}

// New registers the counters with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ModeResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mode_resolutions_total",
			Help:      "Operating mode resolutions by resulting mode",
		}, []string{"mode"}),

		RegistryLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "registry_loads_total",
			Help:      "Model registry loads that reached the document store, by source",
		}, []string{"source"}),

		KeyResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "key_resolutions_total",
			Help:      "Successful key resolutions by matching tier",
		}, []string{"tier"}),
	}
}

// ObserveModeResolution implements governance.ModeObserver.
func (m *Metrics) ObserveModeResolution(mode string) {
	m.ModeResolutions.WithLabelValues(mode).Inc()
}

// ObserveRegistryLoad implements registry.LoadObserver.
func (m *Metrics) ObserveRegistryLoad(source string) {
	m.RegistryLoads.WithLabelValues(source).Inc()
}

// ObserveKeyResolution implements core.KeyObserver.
func (m *Metrics) ObserveKeyResolution(tier string) {
	m.KeyResolutions.WithLabelValues(tier).Inc()
}

var (
	_ governance.ModeObserver = (*Metrics)(nil)
	_ registry.LoadObserver   = (*Metrics)(nil)
	_ core.KeyObserver        = (*Metrics)(nil)
)
