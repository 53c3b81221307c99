// Package config loads autoshutdown configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

// ErrMissingTable is returned by ValidateTable when no audit table is configured.
var ErrMissingTable = errors.New("table: DDB_TABLE_NAME is required")

// Config is the root configuration structure.
type Config struct {
	AWS     AWSConfig       `yaml:"aws"`
	Table   TableConfig     `yaml:"table"`
	Filter  shutdown.Filter `yaml:"filter" ignored:"true"`
	Journal JournalConfig   `yaml:"journal"`
	OTEL    OTELConfig      `yaml:"otel"`
	Server  ServerConfig    `yaml:"server"`
	Log     LogConfig       `yaml:"log"`
}

// AWSConfig holds AWS client settings.
type AWSConfig struct {
	Region           string `yaml:"region" envconfig:"AWS_REGION"`
	Profile          string `yaml:"profile" envconfig:"AWS_PROFILE"`
	EC2Endpoint      string `yaml:"ec2_endpoint" envconfig:"EC2_ENDPOINT"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint" envconfig:"DYNAMODB_ENDPOINT"`
}

// TableConfig names the DynamoDB audit table.
type TableConfig struct {
	Name string `yaml:"name" envconfig:"DDB_TABLE_NAME"`
}

// JournalConfig holds the optional local journal location.
type JournalConfig struct {
	Path string `yaml:"path" envconfig:"AUTOSHUTDOWN_JOURNAL"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `yaml:"endpoint" envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool          `yaml:"insecure" envconfig:"OTEL_INSECURE"`
	ServiceName string        `yaml:"service_name" envconfig:"OTEL_SERVICE_NAME"`
	Traces      TracesConfig  `yaml:"traces"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `yaml:"enabled" envconfig:"OTEL_TRACES_ENABLED"`
	SampleRate float64 `yaml:"sample_rate" envconfig:"OTEL_TRACES_SAMPLE_RATE"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled    bool `yaml:"enabled" envconfig:"OTEL_METRICS_ENABLED"`
	Prometheus bool `yaml:"prometheus" envconfig:"PROMETHEUS_ENABLED"`
}

// ServerConfig holds HTTP trigger settings.
type ServerConfig struct {
	Address string `yaml:"address" envconfig:"SERVER_ADDRESS"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `yaml:"level" envconfig:"LOG_LEVEL"`
	Console bool   `yaml:"console" envconfig:"LOG_CONSOLE"`
}

// Load reads the YAML file at path (skipped when empty), overlays environment
// variables, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Filter.State == "" && len(cfg.Filter.Tags) == 0 {
		cfg.Filter = shutdown.DefaultFilter()
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "autoshutdown"
	}
	if cfg.OTEL.Traces.Enabled && cfg.OTEL.Traces.SampleRate == 0 {
		cfg.OTEL.Traces.SampleRate = 1.0
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.Filter.State == "" {
		return fmt.Errorf("filter: state is required")
	}
	for i, tag := range c.Filter.Tags {
		if tag.Key == "" {
			return fmt.Errorf("filter: tags[%d] has an empty key", i)
		}
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}

// ValidateTable checks that an audit table is configured. Commands that only
// read (list, history) skip this.
func (c *Config) ValidateTable() error {
	if c.Table.Name == "" {
		return ErrMissingTable
	}
	return nil
}
