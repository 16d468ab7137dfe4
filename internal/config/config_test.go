package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"DB_PATH", "TELEGRAM_BOT_TOKEN", "TIMEZONE", "WHOOP_CLIENT_ID", "WHOOP_CLIENT_SECRET",
	"WHOOP_REDIRECT_URL", "FATSECRET_CLIENT_ID", "FATSECRET_CLIENT_SECRET", "FATSECRET_SHARED_SECRET",
	"GCP_PROJECT", "GCP_LOCATION", "GCP_MODEL", "GCP_CREDENTIALS_FILE", "GCP_TEMPERATURE", "HTTP_ADDR", "APP_BASE_URL",
	"HTTP_TIMEOUT", "DEBUG_TOKEN", "LOG_LEVEL", "LOG_PRETTY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	if _, err := os.Stat(botTokenSecret); err == nil {
		t.Skip("docker secret present")
	}
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", " 123:abc ")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", c.TelegramToken)
	assert.Equal(t, DefaultDBPath, c.DBPath)
	assert.Equal(t, DefaultTimezone, c.Timezone.String())
	assert.Equal(t, 15*time.Second, c.HTTPTimeout)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.LogPretty)
	assert.InDelta(t, 0.3, c.GCPTemperature, 1e-6)
	assert.False(t, c.WhoopEnabled())
	assert.False(t, c.FatSecretEnabled())
	assert.False(t, c.AssistantEnabled())
}

func TestLoadOverrides(t *testing.T) {
	if _, err := os.Stat(botTokenSecret); err == nil {
		t.Skip("docker secret present")
	}
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "x.db"))
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("APP_BASE_URL", "https://bot.example.com/")
	t.Setenv("WHOOP_CLIENT_ID", "id")
	t.Setenv("WHOOP_CLIENT_SECRET", "secret")
	t.Setenv("FATSECRET_CLIENT_ID", "fid")
	t.Setenv("FATSECRET_CLIENT_SECRET", "fsec")
	t.Setenv("FATSECRET_SHARED_SECRET", "fshared")
	t.Setenv("GCP_PROJECT", "proj")
	t.Setenv("GCP_TEMPERATURE", "0.7")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, c.Timezone)
	assert.Equal(t, 3*time.Second, c.HTTPTimeout)
	assert.True(t, c.LogPretty)
	assert.Equal(t, "https://bot.example.com", c.BaseURL)
	assert.Equal(t, "https://bot.example.com/whoop/callback", c.WhoopRedirectURL)
	assert.True(t, c.WhoopEnabled())
	assert.True(t, c.FatSecretEnabled())
	assert.True(t, c.AssistantEnabled())
	assert.InDelta(t, 0.7, c.GCPTemperature, 1e-6)
}

func TestLoadErrors(t *testing.T) {
	if _, err := os.Stat(botTokenSecret); err == nil {
		t.Skip("docker secret present")
	}
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("X_DUR", "soon")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_FLOAT", "warm")
	assert.InDelta(t, 0.3, getFloatEnv("X_FLOAT", 0.3), 1e-6)
	assert.Equal(t, time.Minute, getDurationEnv("X_DUR", time.Minute))
	assert.True(t, getBoolEnv("X_BOOL", true))
}

func TestSecretOrEnvPrefersFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(p, []byte("from-file\n"), 0o600))
	t.Setenv("SOME_TOKEN", "from-env")
	assert.Equal(t, "from-file", secretOrEnv(p, "SOME_TOKEN"))
	assert.Equal(t, "from-env", secretOrEnv(filepath.Join(t.TempDir(), "missing"), "SOME_TOKEN"))
}
