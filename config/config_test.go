package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "5250", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"en", "es"}, cfg.Locales)
	assert.Equal(t, "nonblocking", cfg.Refresh.DefaultMode)
	assert.Equal(t, 30*time.Second, cfg.Refresh.Timeout)
	assert.Equal(t, 256, cfg.Refresh.QueueSize)
	assert.Equal(t, "@every 1m", cfg.Refresh.CatchUpSpec)
	assert.Equal(t, 5*time.Second, cfg.RetryDelayDuration())
}

func TestLoadConfig_EnvFileAndOverrides(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"REFRESH_DEFAULT_MODE=blocking\nCATALOG_LOCALES=fr,de\nREFRESH_TIMEOUT=5s\nPORT=9000\n",
	), 0o600))

	// The environment wins over the file
	t.Setenv("PORT", "8080")
	t.Cleanup(func() {
		for _, k := range []string{"REFRESH_DEFAULT_MODE", "CATALOG_LOCALES", "REFRESH_TIMEOUT"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "blocking", cfg.Refresh.DefaultMode)
	assert.Equal(t, []string{"fr", "de"}, cfg.Locales)
	assert.Equal(t, 5*time.Second, cfg.Refresh.Timeout)
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	t.Setenv("REFRESH_QUEUE_SIZE", "lots")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
