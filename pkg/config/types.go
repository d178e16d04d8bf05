// Package config loads the runtime configuration of the library components
// from YAML, TOML, or JSON files.
package config

import (
	"github.com/alexisbeaulieu97/netlib/pkg/db"
	"github.com/alexisbeaulieu97/netlib/pkg/logging"
	"github.com/alexisbeaulieu97/netlib/pkg/metrics"
	"github.com/alexisbeaulieu97/netlib/pkg/placement"
	"github.com/alexisbeaulieu97/netlib/pkg/rpc"
)

// Config is the root configuration document.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" json:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics" json:"metrics"`
	Database  DatabaseConfig  `yaml:"database" toml:"database" json:"database"`
	RPC       RPCConfig       `yaml:"rpc" toml:"rpc" json:"rpc"`
	Placement PlacementConfig `yaml:"placement" toml:"placement" json:"placement"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" toml:"format" json:"format" validate:"oneof=json console"`
}

// MetricsConfig controls the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace" json:"namespace" validate:"required,no_whitespace"`
	Address   string `yaml:"address" toml:"address" json:"address" validate:"omitempty,hostname_port"`
}

// DatabaseConfig locates the SQLite file and tunes the retry decorator.
type DatabaseConfig struct {
	Path             string   `yaml:"path" toml:"path" json:"path"`
	MaxRetries       int      `yaml:"max_retries" toml:"max_retries" json:"max_retries" validate:"gte=0"`
	RetryInterval    Duration `yaml:"retry_interval" toml:"retry_interval" json:"retry_interval" validate:"gt=0"`
	IncRetryInterval bool     `yaml:"inc_retry_interval" toml:"inc_retry_interval" json:"inc_retry_interval"`
	MaxRetryInterval Duration `yaml:"max_retry_interval" toml:"max_retry_interval" json:"max_retry_interval" validate:"gtefield=RetryInterval"`
}

// RPCConfig tunes the backing-off RPC client.
type RPCConfig struct {
	ResponseTimeout Duration `yaml:"response_timeout" toml:"response_timeout" json:"response_timeout" validate:"gt=0"`
	// MaxTimeout defaults to ten times ResponseTimeout when zero.
	MaxTimeout Duration `yaml:"max_timeout" toml:"max_timeout" json:"max_timeout" validate:"omitempty,gtefield=ResponseTimeout"`
}

// PlacementConfig points the placement client at its endpoint.
type PlacementConfig struct {
	Endpoint     string   `yaml:"endpoint" toml:"endpoint" json:"endpoint" validate:"omitempty,url"`
	Microversion string   `yaml:"microversion" toml:"microversion" json:"microversion" validate:"required,microversion"`
	Timeout      Duration `yaml:"timeout" toml:"timeout" json:"timeout" validate:"gt=0"`
	Token        string   `yaml:"token" toml:"token" json:"token"`
}

// Default returns the configuration used when no file is given. Loaded files
// are applied on top of it.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
		Metrics: MetricsConfig{
			Namespace: metrics.DefaultNamespace,
		},
		Database: DatabaseConfig{
			MaxRetries:       db.DefaultMaxRetries,
			RetryInterval:    Duration(db.DefaultRetryInterval),
			IncRetryInterval: true,
			MaxRetryInterval: Duration(db.DefaultMaxRetryInterval),
		},
		RPC: RPCConfig{
			ResponseTimeout: Duration(rpc.DefaultResponseTimeout),
		},
		Placement: PlacementConfig{
			Microversion: placement.DefaultMicroversion,
			Timeout:      Duration(placement.DefaultTimeout),
		},
	}
}

// LoggingOptions maps the logging section onto logging.Options.
func (c Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
	}
}

// RetryOptions maps the database section onto db.RetryOptions.
func (c Config) RetryOptions() db.RetryOptions {
	return db.RetryOptions{
		MaxRetries:       c.Database.MaxRetries,
		RetryInterval:    c.Database.RetryInterval.Std(),
		IncRetryInterval: c.Database.IncRetryInterval,
		MaxRetryInterval: c.Database.MaxRetryInterval.Std(),
	}
}

// Timeouts builds the RPC timeout table from the rpc section.
func (c Config) Timeouts() *rpc.Timeouts {
	return rpc.NewTimeouts(c.RPC.ResponseTimeout.Std(), c.RPC.MaxTimeout.Std())
}

// PlacementOptions maps the placement section onto placement.Options.
func (c Config) PlacementOptions() placement.Options {
	return placement.Options{
		Endpoint:     c.Placement.Endpoint,
		Microversion: c.Placement.Microversion,
		Token:        c.Placement.Token,
		Timeout:      c.Placement.Timeout.Std(),
	}
}
