// Package config loads AgentBridge runtime configuration from defaults, an
// optional YAML file, and environment variable overrides, in that order.
package config

import (
	"fmt"

	"github.com/TheKoma-X/AgentBridge/workflow"
)

// Config is the complete runtime configuration for the AgentBridge CLI and
// embedding services.
type Config struct {
	// Engine holds workflow engine tuning knobs.
	Engine workflow.EngineConfig `yaml:"engine" env:"ENGINE"`

	// Log controls structured logging output.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics controls the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry controls OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// LogConfig controls zap logger construction.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig controls the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Addr is the listen address for the metrics HTTP server.
	Addr string `yaml:"addr" env:"ADDR"`
	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig controls OpenTelemetry trace and metric export.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLPEndpoint is the host:port of an OTLP gRPC collector.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() *Config {
	return &Config{
		Engine: workflow.EngineConfig{
			MaxConcurrent:   8,
			EventBuffer:     64,
			HistoryCapacity: workflow.DefaultHistoryCapacity,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Addr:      ":9090",
			Namespace: "agentbridge",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "agentbridge",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrent < 0 {
		return fmt.Errorf("engine.max_concurrent must not be negative, got %d", c.Engine.MaxConcurrent)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be in [0, 1], got %v", c.Telemetry.SampleRate)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must be set when metrics are enabled")
	}
	return nil
}
