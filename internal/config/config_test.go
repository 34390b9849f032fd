package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "ADDR", "DB_DRIVER", "DB_DSN", "SESSION_NAME", "SESSION_STORE", "SESSION_DURATION", "EXCLUDED_PATHS", "BCRYPT_COST")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8082", cfg.Addr)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "session_id", cfg.SessionName)
	assert.Equal(t, StoreUser, cfg.SessionStore)
	assert.Zero(t, cfg.SessionDuration)
	assert.Equal(t, []string{"/api/v1/status/", "/api/v1/auth_session/login/"}, cfg.ExcludedPaths)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_DSN", "root:pw@tcp(localhost:3306)/auth")
	t.Setenv("SESSION_NAME", "sid")
	t.Setenv("SESSION_DURATION", "60")
	t.Setenv("SESSION_STORE", "db")
	t.Setenv("EXCLUDED_PATHS", "/api/v1/status/, /api/v1/stat*")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "sid", cfg.SessionName)
	assert.Equal(t, time.Minute, cfg.SessionDuration)
	assert.Equal(t, StoreDB, cfg.SessionStore)
	assert.Equal(t, []string{"/api/v1/status/", "/api/v1/stat*"}, cfg.ExcludedPaths)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadDuration(t *testing.T) {
	unsetEnv(t, "BCRYPT_COST")
	t.Setenv("SESSION_DURATION", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.SessionDuration)
}

func TestLoad_BadCost(t *testing.T) {
	t.Setenv("BCRYPT_COST", "high")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, "BCRYPT_COST")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SESSION_NAME=from_file\nLOG_FORMAT=json\n"), 0o600))

	// godotenv does not override variables that already exist
	unsetEnv(t, "SESSION_NAME", "LOG_FORMAT")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.SessionName)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "oracle" }, false},
		{"empty dsn", func(c *Config) { c.DBDSN = "" }, false},
		{"unknown store", func(c *Config) { c.SessionStore = "redis" }, false},
		{"mongo without uri", func(c *Config) { c.SessionStore = StoreMongo }, false},
		{"mongo with uri", func(c *Config) { c.SessionStore = StoreMongo; c.MongoURI = "mongodb://localhost:27017" }, true},
		{"cost too high", func(c *Config) { c.BcryptCost = 99 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
