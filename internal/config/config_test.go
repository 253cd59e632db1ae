package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PAYMENT_CURRENCY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "inr", cfg.Payment.Currency)
	assert.Equal(t, 10, cfg.Store.PageSize)
	assert.Equal(t, 5, cfg.Store.LowStockThreshold)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PAYMENT_CURRENCY", "USD")
	t.Setenv("LOW_STOCK_THRESHOLD", "3")
	t.Setenv("FRONTEND_URLS", "https://a.example, https://b.example,")
	t.Setenv("DB_AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.Equal(t, 3, cfg.Store.LowStockThreshold)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Database.AutoMigrate)
}

func TestValidateProduction(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Database:    DatabaseConfig{Driver: "postgres"},
		JWT:         JWTConfig{SecretKey: "your-secret-key-change-in-production"},
		Store:       StoreConfig{PageSize: 10},
	}
	assert.Error(t, cfg.Validate())

	cfg.JWT.SecretKey = "s3cret"
	cfg.Database.Password = "pw"
	assert.Error(t, cfg.Validate(), "stripe key is required in production")

	cfg.Payment.StripeSecretKey = "sk_live_x"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())
}

func TestSQLiteDSNIsFilePath(t *testing.T) {
	d := DatabaseConfig{Driver: "sqlite", Database: "nepshop.db"}
	assert.Equal(t, "nepshop.db", d.DSN())

	d.Driver = "postgres"
	assert.Contains(t, d.DSN(), "dbname=nepshop.db")
}
