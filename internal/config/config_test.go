package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "STORAGE", "LOG_LEVEL", "DATABASE_URL", "POSTGRES_HOST", "POSTGRES_PORT",
	"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
	"DATABASE_MAX_OPEN_CONNS", "DATABASE_MAX_IDLE_CONNS", "DATABASE_CONN_MAX_LIFETIME",
	"DB_AUTO_MIGRATE", "JWT_SECRET", "SHIPPING_FEE", "RESTORE_STOCK_ON_CANCEL",
	"PAYMENT_GATEWAY_URL", "PAYMENT_GATEWAY_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// 空文字は未設定扱い
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.False(t, cfg.RestoreStockOnCancel)
	assert.True(t, cfg.ShippingFee.IsZero())
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=bookstore sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/books?sslmode=disable")
	t.Setenv("STORAGE", "Memory")
	t.Setenv("SHIPPING_FEE", "30000")
	t.Setenv("RESTORE_STOCK_ON_CANCEL", "true")
	t.Setenv("PAYMENT_GATEWAY_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "30000", cfg.ShippingFee.String())
	assert.True(t, cfg.RestoreStockOnCancel)
	assert.Equal(t, 3*time.Second, cfg.PaymentGatewayTimeout)
	assert.Equal(t, "postgres://u:p@db:5432/books?sslmode=disable", cfg.Database.DSN())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{}},
		{name: "bad port", env: map[string]string{"JWT_SECRET": "s", "POSTGRES_PORT": "abc"}},
		{name: "bad bool", env: map[string]string{"JWT_SECRET": "s", "RESTORE_STOCK_ON_CANCEL": "maybe"}},
		{name: "negative fee", env: map[string]string{"JWT_SECRET": "s", "SHIPPING_FEE": "-1"}},
		{name: "unknown storage", env: map[string]string{"JWT_SECRET": "s", "STORAGE": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
