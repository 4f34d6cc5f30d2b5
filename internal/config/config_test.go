package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/app/Sinopac.pfx", cfg.Broker.DefaultCAPath)
	assert.Equal(t, 0.8, cfg.Guard.TrafficRatio)
	assert.Equal(t, 12288, cfg.Guard.MemoryLimitMB)
	assert.Equal(t, 200, cfg.Quotes.BatchSize)
	assert.Equal(t, 1000, cfg.Quotes.BatchIntervalMs)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
broker:
  bridge_url: http://bridge:9217
quotes:
  batch_size: 50
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://bridge:9217", cfg.Broker.BridgeURL)
	assert.Equal(t, 50, cfg.Quotes.BatchSize)
	// Untouched sections keep defaults.
	assert.Equal(t, 0.8, cfg.Guard.TrafficRatio)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("BRIDGE_URL", "http://env-bridge:9217")

	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "http://env-bridge:9217", cfg.Broker.BridgeURL)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load(writeConfig(t, "{}"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
