package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 12, cfg.Catalog.DefaultLimit)
	assert.Equal(t, 100, cfg.Catalog.MaxLimit)
	assert.Equal(t, 4, cfg.Catalog.SimilarLimit)
	assert.Equal(t, 3, cfg.Catalog.TopLimit)
	assert.Equal(t, "auto", cfg.Storage.Backend)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.SendGrid.Enabled())
}

func TestParse_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Parse()
	assert.Error(t, err)
}

func TestParse_ListsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CATALOG_DEFAULT_LIMIT", "20")
	t.Setenv("CATALOG_MAX_LIMIT", "10")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, 20, cfg.Catalog.DefaultLimit)
	assert.Equal(t, 20, cfg.Catalog.MaxLimit, "max limit is raised to the default")
}

func TestLoad_ReportsDotEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.DotEnvLoaded)

	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("LOG_LEVEL=debug\n"), 0o600))

	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.DotEnvLoaded)
	assert.Equal(t, "debug", cfg.LogLevel)
}
