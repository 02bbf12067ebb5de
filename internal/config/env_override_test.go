package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("paths and level", func(t *testing.T) {
		t.Setenv("SITEMERGE_INPUT_DIR", "/srv/input")
		t.Setenv("SITEMERGE_DB", "/srv/runs.db")
		t.Setenv("SITEMERGE_DB_DRIVER", "sqlite")
		t.Setenv("SITEMERGE_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "/srv/input", cfg.Input.Dir)
		assert.Equal(t, "/srv/runs.db", cfg.Output.DatabasePath)
		assert.Equal(t, "sqlite", cfg.Output.DatabaseDriver)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("empty values leave config alone", func(t *testing.T) {
		t.Setenv("SITEMERGE_INPUT_DIR", "")
		t.Setenv("SITEMERGE_SEED", "")

		cfg := &Config{Input: InputConfig{Dir: "keep"}, Generator: GeneratorConfig{Seed: 5}}
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "keep", cfg.Input.Dir)
		assert.Equal(t, uint64(5), cfg.Generator.Seed)
	})

	t.Run("seed", func(t *testing.T) {
		t.Setenv("SITEMERGE_SEED", "1234")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, uint64(1234), cfg.Generator.Seed)
	})

	t.Run("bad seed", func(t *testing.T) {
		t.Setenv("SITEMERGE_SEED", "-3")

		cfg := DefaultConfig()
		assert.Error(t, cfg.applyEnvOverrides())
	})
}
