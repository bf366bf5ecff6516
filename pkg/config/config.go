// Package config loads p25framer's configuration via spf13/viper:
// defaults set programmatically, overridden by an optional YAML file,
// overridden again by environment variables under a fixed prefix.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/dbehnke/p25framer/pkg/assembler"
	"github.com/dbehnke/p25framer/pkg/p25sync"
)

// Config is the root configuration for the p25framer process.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Input   InputConfig   `mapstructure:"input"`
	Decoder DecoderConfig `mapstructure:"decoder"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig identifies this decoder instance in logs and emitted
// messages.
type ServerConfig struct {
	Name string `mapstructure:"name"`
}

// InputConfig selects where the dibit stream comes from.
type InputConfig struct {
	// Source is "udp", "file", or "stdin".
	Source string `mapstructure:"source"`
	Addr   string `mapstructure:"addr"` // host:port for udp
	Path   string `mapstructure:"path"` // file path for file
}

// DecoderConfig holds the Framer's construction-time sync/polarity/
// status-schedule parameters, letting an operator retune for a
// different sync word or an inverted demodulator output without a
// code change.
type DecoderConfig struct {
	SyncPattern    uint64 `mapstructure:"sync_pattern"`
	Inverted       bool   `mapstructure:"inverted"`
	StatusSchedule []int  `mapstructure:"status_schedule"`
}

// PoolConfig bounds the Framer's fixed-size assembler pool: no
// unbounded growth on repeated sync matches.
type PoolConfig struct {
	Size int `mapstructure:"size"`
}

// MonitorConfig holds the websocket monitor hub's settings.
type MonitorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MQTTConfig holds the MQTT sink's settings.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from an optional file plus environment
// variables under the P25FRAMER_ prefix.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/p25framer")
	}

	viper.SetEnvPrefix("P25FRAMER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file is fine, defaults apply.
		} else if os.IsNotExist(err) {
			// Explicitly named file missing is also fine.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.name", "p25framer")

	viper.SetDefault("input.source", "udp")
	viper.SetDefault("input.addr", "0.0.0.0:4200")

	viper.SetDefault("decoder.sync_pattern", p25sync.DefaultPattern)
	viper.SetDefault("decoder.inverted", false)
	viper.SetDefault("decoder.status_schedule", assembler.DefaultStatusSchedule)

	viper.SetDefault("pool.size", 2)

	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.host", "0.0.0.0")
	viper.SetDefault("monitor.port", 8080)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.topic_prefix", "p25/framer")
	viper.SetDefault("mqtt.client_id", "p25framer")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retained", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
