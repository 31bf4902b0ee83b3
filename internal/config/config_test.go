package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 60*time.Second, cfg.IdleWindow)
	assert.Equal(t, 30*time.Second, cfg.ReaperInterval)
	assert.Equal(t, 10*time.Second, cfg.BroadcastInterval)
	assert.Equal(t, "data/analytics.db", cfg.DatabasePath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IDLE_WINDOW_SECONDS", "120")
	t.Setenv("ALLOWED_ORIGINS", "https://example.com, https://blog.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.IdleWindow)
	assert.Equal(t, []string{"https://example.com", "https://blog.example.com"}, cfg.AllowedOrigins)
}

func TestDurationEnvRejectsGarbage(t *testing.T) {
	t.Setenv("IDLE_WINDOW_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.IdleWindow)
}

func TestParseOrigins(t *testing.T) {
	assert.Empty(t, parseOrigins(""))
	assert.Equal(t, []string{"a"}, parseOrigins("a"))
	assert.Equal(t, []string{"a", "b"}, parseOrigins(" a , b ,"))
}
