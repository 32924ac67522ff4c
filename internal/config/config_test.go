package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, GatewayMemory, cfg.Gateway.Type)
	assert.True(t, cfg.Coordinator.Coalesce)
	assert.Equal(t, 30*time.Minute, cfg.Cache.SweepInterval)
	assert.Empty(t, cfg.App.APIKeys)

	d := cfg.Cache.Durations()
	assert.Equal(t, time.Minute, d.Short)
	assert.Equal(t, 5*time.Minute, d.Medium)
	assert.Equal(t, time.Hour, d.Long)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CACHE_BACKEND", "Postgres")
	t.Setenv("CACHE_DB_HOST", "db")
	t.Setenv("CACHE_DB_PASS", "secret")
	t.Setenv("CACHE_TTL_SHORT", "30s")
	t.Setenv("GATEWAY_TYPE", "mongo")
	t.Setenv("COORDINATOR_COALESCE", "false")
	t.Setenv("API_KEYS", "k1, ,k2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, BackendPostgres, cfg.Cache.Backend)
	assert.Equal(t, "postgres://fintrack:secret@db:5432/fintrack?sslmode=disable", cfg.Cache.PostgresDSN())
	assert.Equal(t, "fintrack:secret@tcp(db:3306)/fintrack?parseTime=true", cfg.Cache.MySQLDSN())
	assert.Equal(t, 30*time.Second, cfg.Cache.Durations().Short)
	assert.Equal(t, GatewayMongoDB, cfg.Gateway.Type)
	assert.False(t, cfg.Coordinator.Coalesce)
	assert.Equal(t, []string{"k1", "k2"}, cfg.App.APIKeys)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache backend")
}

func TestLoad_RejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("CACHE_TTL_LONG", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL_LONG")
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Setenv("GATEWAY_TYPE", "firestore")

	assert.Panics(t, func() { MustLoad() })
}
