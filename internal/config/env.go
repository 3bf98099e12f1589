package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the environment variables that override the file.
// Unset variables leave the pointer nil.
type envOverrides struct {
	Model        *string        `env:"QDIE_MODEL"`
	Validate     *bool          `env:"QDIE_VALIDATE"`
	BatchSize    *int           `env:"QDIE_BATCH_SIZE"`
	BatchDelay   *time.Duration `env:"QDIE_BATCH_DELAY"`
	Debug        *bool          `env:"QDIE_DEBUG"`
	LogLevel     *string        `env:"QDIE_LOG_LEVEL"`
	OTelEnabled  *bool          `env:"QDIE_OTEL_ENABLED"`
	OTelEndpoint *string        `env:"QDIE_OTEL_ENDPOINT"`
	DarkMode     *bool          `env:"QDIE_DARK_MODE"`
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	o, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.Model != nil {
		c.Oracle.Model = *o.Model
	}
	if o.Validate != nil {
		c.Oracle.Validate = *o.Validate
	}
	if o.BatchSize != nil {
		c.Batch.DefaultSize = *o.BatchSize
	}
	if o.BatchDelay != nil {
		c.Batch.Delay = o.BatchDelay.String()
	}
	if o.Debug != nil {
		c.Logging.DebugMode = *o.Debug
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
	if o.OTelEndpoint != nil {
		c.Telemetry.Endpoint = *o.OTelEndpoint
		if o.OTelEnabled == nil && *o.OTelEndpoint != "" {
			c.Telemetry.Enabled = true
		}
	}
	if o.OTelEnabled != nil {
		c.Telemetry.Enabled = *o.OTelEnabled
	}
	if o.DarkMode != nil {
		c.UI.DarkMode = *o.DarkMode
	}
	return nil
}
