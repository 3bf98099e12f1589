package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "qdie", cfg.Name)
	assert.Equal(t, "gemini-2.5-flash", cfg.Oracle.Model)
	assert.True(t, cfg.Oracle.Validate)
	assert.Equal(t, 10, cfg.Batch.DefaultSize)
	assert.Equal(t, time.Second, cfg.GetBatchDelay())
	assert.Equal(t, 16*time.Millisecond, cfg.GetFrameInterval())
	assert.Zero(t, cfg.GetOracleTimeout())
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DirName, FileName)

	cfg := DefaultConfig()
	cfg.Oracle.Model = "gemini-2.5-pro"
	cfg.Batch.Delay = "250ms"
	cfg.Dynamics.Oscillation = true
	cfg.Dynamics.Decoherence = 0.4
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", loaded.Oracle.Model)
	assert.Equal(t, 250*time.Millisecond, loaded.GetBatchDelay())
	assert.True(t, loaded.Dynamics.Oscillation)
	assert.InDelta(t, 0.4, loaded.Dynamics.Decoherence, 1e-9)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Batch, cfg.Batch)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle: [unterminated"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QDIE_MODEL", "gemini-env")
	t.Setenv("QDIE_VALIDATE", "false")
	t.Setenv("QDIE_BATCH_DELAY", "2s")
	t.Setenv("QDIE_BATCH_SIZE", "50")
	t.Setenv("QDIE_DEBUG", "true")
	t.Setenv("QDIE_OTEL_ENDPOINT", "http://collector:4318")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())

	assert.Equal(t, "gemini-env", cfg.Oracle.Model)
	assert.False(t, cfg.Oracle.Validate)
	assert.Equal(t, 2*time.Second, cfg.GetBatchDelay())
	assert.Equal(t, 50, cfg.Batch.DefaultSize)
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
	assert.True(t, cfg.Telemetry.Enabled, "endpoint alone enables telemetry")
}

func TestEnvOverrides_ExplicitDisableWins(t *testing.T) {
	t.Setenv("QDIE_OTEL_ENDPOINT", "http://collector:4318")
	t.Setenv("QDIE_OTEL_ENABLED", "false")

	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnvOverrides())
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestEnvOverrides_BadValue(t *testing.T) {
	t.Setenv("QDIE_BATCH_SIZE", "many")

	cfg := DefaultConfig()
	assert.Error(t, cfg.applyEnvOverrides())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Oracle.Model = "" }},
		{"no key env", func(c *Config) { c.Oracle.APIKeyEnv = "" }},
		{"zero batch", func(c *Config) { c.Batch.DefaultSize = 0 }},
		{"max below default", func(c *Config) { c.Batch.MaxSize = 5 }},
		{"bad delay", func(c *Config) { c.Batch.Delay = "soon" }},
		{"decoherence high", func(c *Config) { c.Dynamics.Decoherence = 1.5 }},
		{"bad frame interval", func(c *Config) { c.Dynamics.FrameInterval = "fast" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOracleConfig_LookupAPIKey(t *testing.T) {
	o := OracleConfig{APIKeyEnv: "QDIE_TEST_PRIMARY", FallbackAPIKeyEnv: "QDIE_TEST_FALLBACK"}

	t.Setenv("QDIE_TEST_PRIMARY", "")
	t.Setenv("QDIE_TEST_FALLBACK", "")
	_, ok := o.LookupAPIKey()
	assert.False(t, ok)

	t.Setenv("QDIE_TEST_FALLBACK", "fallback")
	key, ok := o.LookupAPIKey()
	assert.True(t, ok)
	assert.Equal(t, "fallback", key)

	t.Setenv("QDIE_TEST_PRIMARY", " primary ")
	key, _ = o.LookupAPIKey()
	assert.Equal(t, "primary", key)
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("oracle"))

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("oracle"))

	c.Categories = map[string]bool{"oracle": false}
	assert.False(t, c.IsCategoryEnabled("oracle"))
	assert.True(t, c.IsCategoryEnabled("batch"))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DirName, FileName)
	require.NoError(t, DefaultConfig().Save(path))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	cfg := DefaultConfig()
	cfg.Dynamics.Decoherence = 0.75
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-reloaded:
		assert.InDelta(t, 0.75, got.Dynamics.Decoherence, 1e-9)
	case <-time.After(5 * time.Second):
		t.Fatal("config reload not observed")
	}
}
