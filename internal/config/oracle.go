package config

import (
	"os"
	"strings"
	"time"
)

// OracleConfig configures the generative service that produces rolls.
type OracleConfig struct {
	Model string `yaml:"model"`

	// Names of the environment variables holding the credential. The key
	// itself never lives in the config file.
	APIKeyEnv         string `yaml:"api_key_env"`
	FallbackAPIKeyEnv string `yaml:"fallback_api_key_env"`

	// Validate rejects records that break the declared shape.
	Validate bool `yaml:"validate"`

	// Timeout for one call, "0s" disables it.
	Timeout string `yaml:"timeout"`
}

// LookupAPIKey reads the credential from the environment at call time.
func (o OracleConfig) LookupAPIKey() (string, bool) {
	for _, name := range []string{o.APIKeyEnv, o.FallbackAPIKeyEnv} {
		if name == "" {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

// GetTimeout returns the per-call timeout; 0 means none.
func (o OracleConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(o.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
