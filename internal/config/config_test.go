package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ORIGINS", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model",
		"ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS", "STORE_DRIVER", "SQLITE_PATH",
		"DATABASE_URL", "REDIS_URL", "RATE_LIMIT_PER_MINUTE", "HISTORY_LIMIT",
		"ORACLE_TIMEOUT", "PERSONA_ID", "ENV", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Engine.HistoryLimit)
	assert.Equal(t, 20*time.Second, cfg.Engine.OracleTimeout)
	assert.Equal(t, "naive-elder", cfg.Engine.PersonaID)
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.6, *cfg.AI.Temperature, 1e-9)
	assert.False(t, cfg.AI.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Log.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/honeypot")
	t.Setenv("ORACLE_TIMEOUT", "3s")
	t.Setenv("HISTORY_LIMIT", "0")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "ep-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Engine.OracleTimeout)
	assert.Equal(t, 1, cfg.Engine.HistoryLimit)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadClampsHistoryLimit(t *testing.T) {
	for raw, want := range map[string]int{"-3": 1, "3": 3, "5": 5, "50": MaxHistoryLimit} {
		t.Run(raw, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HISTORY_LIMIT", raw)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, want, cfg.Engine.HistoryLimit)
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad driver":       {"STORE_DRIVER": "mongo"},
		"postgres no url":  {"STORE_DRIVER": "postgres"},
		"bad timeout":      {"ORACLE_TIMEOUT": "soon"},
		"negative timeout": {"ORACLE_TIMEOUT": "-1s"},
		"bad port":         {"PORT": "80 80"},
		"bad temperature":  {"ARK_TEMPERATURE": "warm"},
		"zero rate limit":  {"RATE_LIMIT_PER_MINUTE": "0"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
