package config

import (
	"fmt"
)

// validate validates the configuration.
func validate(cfg *Config) error {
	switch cfg.Input.Source {
	case "udp":
		if cfg.Input.Addr == "" {
			return fmt.Errorf("input.addr is required when input.source is udp")
		}
	case "file":
		if cfg.Input.Path == "" {
			return fmt.Errorf("input.path is required when input.source is file")
		}
	case "stdin":
		// No further fields required.
	default:
		return fmt.Errorf("input.source must be udp, file, or stdin (got %q)", cfg.Input.Source)
	}

	if cfg.Pool.Size <= 0 {
		return fmt.Errorf("pool.size must be positive")
	}

	if cfg.Monitor.Enabled {
		if cfg.Monitor.Port <= 0 || cfg.Monitor.Port > 65535 {
			return fmt.Errorf("monitor.port must be between 1 and 65535")
		}
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	return nil
}
