package config

import (
	"fmt"

	"github.com/marmos91/wwwserver/pkg/adapter"
	"github.com/marmos91/wwwserver/pkg/adapter/www"
	"github.com/marmos91/wwwserver/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// Parameters:
//   - cfg: The complete configuration
//   - wwwMetrics: Optional web adapter metrics collector (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: List of enabled adapters ready to be added to the server
//   - error: Any error during adapter creation
func CreateAdapters(cfg *Config, wwwMetrics metrics.WWWMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.WWW.Enabled {
		adapters = append(adapters, www.New(cfg.Adapters.WWW, wwwMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
