package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, 5000, cfg.Lottery.DefaultAnimationDurationMs)
	assert.InDelta(t, 0.7, cfg.Lottery.RevealFraction, 1e-9)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := "Server:\n  Port: \"9000\"\nStorage:\n  Driver: mongodb\nMongoDB:\n  Database: lotto_test\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("SERVER_ALLOWEDORIGINS", "http://a.example, http://b.example")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, DriverMongoDB, cfg.Storage.Driver)
	assert.Equal(t, "lotto_test", cfg.MongoDB.Database)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoDB.URI)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "unknown Storage.Driver")

	t.Setenv("STORAGE_DRIVER", "bolt")
	t.Setenv("AUTH_ENABLED", "true")
	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "JWT.Secret")

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("LOTTERY_REVEALFRACTION", "1.5")
	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "RevealFraction")
}
