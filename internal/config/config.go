package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DirName is the per-workspace directory holding config, logs and usage.
const DirName = ".qdie"

// FileName is the config file inside DirName.
const FileName = "config.yaml"

// Config holds all qdie configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Generative service
	Oracle OracleConfig `yaml:"oracle"`

	// Batch roll loop
	Batch BatchConfig `yaml:"batch"`

	// Decay/oscillation animation
	Dynamics DynamicsConfig `yaml:"dynamics"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Tracing
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`
}

// BatchConfig configures the sequential batch loop.
type BatchConfig struct {
	DefaultSize int    `yaml:"default_size"`
	MaxSize     int    `yaml:"max_size"`
	Delay       string `yaml:"delay"` // pause between requests
}

// DynamicsConfig holds the animation defaults.
type DynamicsConfig struct {
	Oscillation   bool    `yaml:"oscillation"`
	Decoherence   float64 `yaml:"decoherence"` // 0..1
	FrameInterval string  `yaml:"frame_interval"`
}

// TelemetryConfig configures opt-in OpenTelemetry export.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	ShowTutorial bool `yaml:"show_tutorial"`
	DarkMode     bool `yaml:"dark_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "qdie",
		Version: "0.3.0",

		Oracle: OracleConfig{
			Model:             "gemini-2.5-flash",
			APIKeyEnv:         "GEMINI_API_KEY",
			FallbackAPIKeyEnv: "API_KEY",
			Validate:          true,
			Timeout:           "0s",
		},

		Batch: BatchConfig{
			DefaultSize: 10,
			MaxSize:     1000,
			Delay:       "1s",
		},

		Dynamics: DynamicsConfig{
			Oscillation:   false,
			Decoherence:   0,
			FrameInterval: "16ms",
		},

		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},

		UI: UIConfig{
			ShowTutorial: true,
		},
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, DirName, FileName)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetBatchDelay returns the inter-request batch delay.
func (c *Config) GetBatchDelay() time.Duration {
	d, err := time.ParseDuration(c.Batch.Delay)
	if err != nil || d < 0 {
		return time.Second
	}
	return d
}

// GetFrameInterval returns the animation frame interval.
func (c *Config) GetFrameInterval() time.Duration {
	d, err := time.ParseDuration(c.Dynamics.FrameInterval)
	if err != nil || d <= 0 {
		return 16 * time.Millisecond
	}
	return d
}

// GetOracleTimeout returns the optional per-call timeout; 0 means none.
func (c *Config) GetOracleTimeout() time.Duration {
	return c.Oracle.GetTimeout()
}

// Validate validates the configuration. The credential is not checked here:
// its absence is reported at call time.
func (c *Config) Validate() error {
	if c.Oracle.Model == "" {
		return fmt.Errorf("oracle.model must not be empty")
	}
	if c.Oracle.APIKeyEnv == "" {
		return fmt.Errorf("oracle.api_key_env must name an environment variable")
	}
	if c.Batch.DefaultSize < 1 {
		return fmt.Errorf("batch.default_size must be >= 1, got %d", c.Batch.DefaultSize)
	}
	if c.Batch.MaxSize < c.Batch.DefaultSize {
		return fmt.Errorf("batch.max_size (%d) must be >= batch.default_size (%d)", c.Batch.MaxSize, c.Batch.DefaultSize)
	}
	if _, err := time.ParseDuration(c.Batch.Delay); err != nil {
		return fmt.Errorf("invalid batch.delay %q: %w", c.Batch.Delay, err)
	}
	if c.Dynamics.Decoherence < 0 || c.Dynamics.Decoherence > 1 {
		return fmt.Errorf("dynamics.decoherence must be in [0,1], got %v", c.Dynamics.Decoherence)
	}
	if _, err := time.ParseDuration(c.Dynamics.FrameInterval); err != nil {
		return fmt.Errorf("invalid dynamics.frame_interval %q: %w", c.Dynamics.FrameInterval, err)
	}
	return nil
}
