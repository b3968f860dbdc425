// Package metrics holds the metric interfaces of the server and the global
// Prometheus registry they report to.
//
// Metrics are optional. Until InitRegistry is called every constructor returns
// a no-op implementation.
//
// Usage:
//
//	metrics.InitRegistry()
//	wwwMetrics := prometheus.NewWWWMetrics()
//	adapter := www.New(config, wwwMetrics)
//
//	// Or pass nil for no-op behavior
//	adapter := www.New(config, nil)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is written once by InitRegistry
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the global registry with the Go runtime and process
// collectors attached. Later calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global registry, or nil before InitRegistry.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
