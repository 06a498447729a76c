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

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageJSON, cfg.Storage)
	assert.Equal(t, "bank_data.json", cfg.DataFile)
	assert.Equal(t, "receipts", cfg.ReceiptDir)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORAGE", StoragePostgres)
	t.Setenv("IDLE_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout())
}

func TestLoad_UnknownStorage(t *testing.T) {
	t.Setenv("STORAGE", "redis")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORAGE")
}

func TestPostgresConnStr(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: "5433", DBUser: "app", DBPassword: "secret", DBName: "cashpoint",
	}
	assert.Equal(t,
		"host=db port=5433 user=app password=secret dbname=cashpoint sslmode=disable",
		cfg.PostgresConnStr())

	cfg.DBConnStr = "host=explicit dbname=other"
	assert.Equal(t, "host=explicit dbname=other", cfg.PostgresConnStr(), "full DSN wins")
}
