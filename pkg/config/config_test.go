package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Inventory.DefaultReorderLevel)
	assert.Equal(t, 100, cfg.Inventory.MovementsMaxLimit)
	assert.Equal(t, 30*time.Second, cfg.DB.TxTimeout())
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_EnvSobrescribe(t *testing.T) {
	t.Setenv("INVENTORY_DEFAULT_REORDER_LEVEL", "12")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("DASHBOARD_CACHE_TTL_SECONDS", "15")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Inventory.DefaultReorderLevel)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 15*time.Second, cfg.Dashboard.CacheTTL())
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_ReorderNegativoFalla(t *testing.T) {
	t.Setenv("INVENTORY_DEFAULT_REORDER_LEVEL", "-1")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_AdminInicial(t *testing.T) {
	t.Setenv("ADMIN_EMAIL", "admin@ferre.co")
	t.Setenv("ADMIN_PASSWORD", "corta")
	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("ADMIN_PASSWORD", "clave-segura")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.JWT.BootstrapAdmin())
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "erp", Password: "p@ss:word", DBName: "erp", SSLMode: "disable"}
	assert.Equal(t, "postgres://erp:p%40ss%3Aword@db:5432/erp?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
