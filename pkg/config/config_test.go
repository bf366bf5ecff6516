package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/p25framer/pkg/assembler"
	"github.com/dbehnke/p25framer/pkg/p25sync"
)

func TestLoad_UsesDefaults_WhenNoFile(t *testing.T) {
	viper.Reset()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "udp", cfg.Input.Source)
	require.Equal(t, 2, cfg.Pool.Size)
	require.False(t, cfg.Monitor.Enabled)
	require.NotEmpty(t, cfg.Logging.Level)
	require.Equal(t, 9090, cfg.Metrics.Prometheus.Port)
	require.Equal(t, p25sync.DefaultPattern, cfg.Decoder.SyncPattern)
	require.False(t, cfg.Decoder.Inverted)
	require.Equal(t, assembler.DefaultStatusSchedule, cfg.Decoder.StatusSchedule)
}

func TestValidate_Errors(t *testing.T) {
	t.Run("unknown input source", func(t *testing.T) {
		cfg := &Config{Input: InputConfig{Source: "carrier-pigeon"}, Pool: PoolConfig{Size: 1}}
		require.Error(t, validate(cfg))
	})

	t.Run("udp source missing addr", func(t *testing.T) {
		cfg := &Config{Input: InputConfig{Source: "udp"}, Pool: PoolConfig{Size: 1}}
		require.Error(t, validate(cfg))
	})

	t.Run("file source missing path", func(t *testing.T) {
		cfg := &Config{Input: InputConfig{Source: "file"}, Pool: PoolConfig{Size: 1}}
		require.Error(t, validate(cfg))
	})

	t.Run("non-positive pool size", func(t *testing.T) {
		cfg := &Config{Input: InputConfig{Source: "stdin"}, Pool: PoolConfig{Size: 0}}
		require.Error(t, validate(cfg))
	})

	t.Run("monitor enabled with invalid port", func(t *testing.T) {
		cfg := &Config{
			Input:   InputConfig{Source: "stdin"},
			Pool:    PoolConfig{Size: 1},
			Monitor: MonitorConfig{Enabled: true, Port: 70000},
		}
		require.Error(t, validate(cfg))
	})

	t.Run("mqtt enabled without broker", func(t *testing.T) {
		cfg := &Config{
			Input: InputConfig{Source: "stdin"},
			Pool:  PoolConfig{Size: 1},
			MQTT:  MQTTConfig{Enabled: true},
		}
		require.Error(t, validate(cfg))
	})

	t.Run("valid config passes", func(t *testing.T) {
		cfg := &Config{
			Input: InputConfig{Source: "stdin"},
			Pool:  PoolConfig{Size: 2},
			Metrics: MetricsConfig{
				Enabled:    true,
				Prometheus: PrometheusConfig{Enabled: true, Port: 9090},
			},
		}
		require.NoError(t, validate(cfg))
	})
}
