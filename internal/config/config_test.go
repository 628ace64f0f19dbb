package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithSQLite(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, "User", cfg.DefaultName)
	assert.False(t, cfg.GoogleCalendarEnabled())
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("SESSION_IDLE_TTL", "soon")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("SESSION_IDLE_TTL", "")
	t.Setenv("STORE_DRIVER", "mongo")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_DRIVER=sqlite\nAPP_TIMEZONE=UTC\nSTATIC_TOKENS=abc=u1, svc\nADMIN_TOKENS=root\n"), 0o600))
	// godotenv does not override variables that are already set
	for _, k := range []string{"STORE_DRIVER", "APP_TIMEZONE", "STATIC_TOKENS", "ADMIN_TOKENS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"abc": "u1", "svc": ""}, cfg.StaticTokens)
	assert.Equal(t, map[string]bool{"root": true}, cfg.AdminTokens)
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
