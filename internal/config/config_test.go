package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsoc/sentry/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 100, cfg.MaxEvents)
	assert.Equal(t, 50, cfg.MaxAlerts)
	assert.Equal(t, "synthetic", cfg.Mode)
	assert.Equal(t, 3*time.Second, cfg.SyntheticInterval())
	assert.Equal(t, time.Minute, cfg.LiveInterval())
	assert.Equal(t, 30*time.Second, cfg.Cooldown())
	assert.Equal(t, 500*time.Millisecond, cfg.Stagger())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentry.yaml")
	body := "http_addr: \":9090\"\nmax_events: 200\nstagger_ms: 250\nmode: live\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 200, cfg.MaxEvents)
	assert.Equal(t, 250*time.Millisecond, cfg.Stagger())
	assert.Equal(t, "live", cfg.Mode)
	assert.Equal(t, 50, cfg.MaxAlerts, "unset fields keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_events: 200\n"), 0o644))

	t.Setenv("SENTRY_MAX_EVENTS", "42")
	t.Setenv("SENTRY_MODE", "live")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.MaxEvents)
	assert.Equal(t, "live", cfg.Mode)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("SENTRY_MAX_EVENTS", "-1")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_BadMode(t *testing.T) {
	t.Setenv("SENTRY_MODE", "hybrid")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadThreatIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indicators.yaml")
	body := `"198.51.100.77":
  reputation: malicious
  score: 91
  category: Botnet
  country: NL
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	table, err := LoadThreatIndex(path)
	require.NoError(t, err)
	require.Contains(t, table, "198.51.100.77")
	assert.Equal(t, model.ReputationMalicious, table["198.51.100.77"].Reputation)
	assert.Equal(t, 91, table["198.51.100.77"].Score)

	empty, err := LoadThreatIndex("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = LoadThreatIndex(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
