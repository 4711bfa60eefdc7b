package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "crm-sync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "crm", cfg.Database.DBName)
		assert.Equal(t, "/wp-json/wc/v3", cfg.Platform.APIPath)
		assert.Equal(t, 30*time.Second, cfg.Platform.Timeout)
		assert.Equal(t, 30*time.Minute, cfg.Sync.RunTimeout)
		assert.Equal(t, 35*time.Minute, cfg.Sync.LockTTL)
		assert.Equal(t, "database", cfg.Sync.LockBackend)
		assert.Equal(t, []string{"email"}, cfg.Sync.OrderMatchKeys)
		assert.Equal(t, "57", cfg.Sync.CountryCallingCode)
		assert.Equal(t, 100, cfg.Sync.PageSize)
		assert.Zero(t, cfg.Sync.ScheduleInterval)
		assert.Equal(t, 2, cfg.Sync.RetryAttempts)
		assert.Equal(t, time.Minute, cfg.Sync.RetryDelay)
		assert.Equal(t, "crm-sync", cfg.Telemetry.ServiceName)
	})

	t.Run("reads schedule settings", func(t *testing.T) {
		t.Setenv("CRM_SYNC_SCHEDULE_INTERVAL", "15m")
		t.Setenv("CRM_SYNC_RETRY_ATTEMPTS", "0")
		t.Setenv("CRM_SYNC_RETRY_DELAY", "30s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 15*time.Minute, cfg.Sync.ScheduleInterval)
		assert.Equal(t, 0, cfg.Sync.RetryAttempts)
		assert.Equal(t, 30*time.Second, cfg.Sync.RetryDelay)
	})

	t.Run("rejects negative retry attempts", func(t *testing.T) {
		t.Setenv("CRM_SYNC_RETRY_ATTEMPTS", "-1")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("reads platform credentials from unprefixed env vars", func(t *testing.T) {
		t.Setenv(EnvPlatformURL, "https://shop.example.com")
		t.Setenv(EnvConsumerKey, "ck_test")
		t.Setenv(EnvConsumerSecret, "cs_test")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "https://shop.example.com", cfg.Platform.URL)
		assert.Equal(t, "ck_test", cfg.Platform.ConsumerKey)
		assert.Equal(t, "cs_test", cfg.Platform.ConsumerSecret)
		assert.NoError(t, cfg.RequirePlatform())
	})

	t.Run("loads values from environment variables with CRM prefix", func(t *testing.T) {
		t.Setenv("CRM_DATABASE_DRIVER", "sqlite")
		t.Setenv("CRM_DATABASE_PATH", "/tmp/crm-test.db")
		t.Setenv("CRM_SYNC_RUN_TIMEOUT", "10m")
		t.Setenv("CRM_SYNC_LOCK_BACKEND", "redis")
		t.Setenv("CRM_SYNC_ORDER_MATCH_KEYS", "email,phone")
		t.Setenv("CRM_SYNC_PHASES", "categories, products")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "/tmp/crm-test.db", cfg.Database.DSN())
		assert.Equal(t, 10*time.Minute, cfg.Sync.RunTimeout)
		assert.Equal(t, 15*time.Minute, cfg.Sync.LockTTL)
		assert.Equal(t, "redis", cfg.Sync.LockBackend)
		assert.Equal(t, []string{"email", "phone"}, cfg.Sync.OrderMatchKeys)
		assert.True(t, cfg.Sync.PhaseEnabled("products"))
		assert.False(t, cfg.Sync.PhaseEnabled("orders"))
	})

	t.Run("rejects unknown match key", func(t *testing.T) {
		t.Setenv("CRM_SYNC_ORDER_MATCH_KEYS", "email,passport")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		t.Setenv("CRM_DATABASE_MAX_OPEN_CONNS", "2")
		t.Setenv("CRM_DATABASE_MAX_IDLE_CONNS", "5")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects lock ttl shorter than run timeout", func(t *testing.T) {
		t.Setenv("CRM_SYNC_RUN_TIMEOUT", "1h")
		t.Setenv("CRM_SYNC_LOCK_TTL", "10m")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestRequirePlatform(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(p *PlatformConfig)
		wantMsg string
	}{
		{"missing everything", func(p *PlatformConfig) {}, EnvPlatformURL},
		{"missing secret", func(p *PlatformConfig) {
			p.URL = "https://shop.example.com"
			p.ConsumerKey = "ck"
		}, EnvConsumerSecret},
		{"bad url", func(p *PlatformConfig) {
			p.URL = "not a url"
			p.ConsumerKey = "ck"
			p.ConsumerSecret = "cs"
		}, EnvPlatformURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			c.Platform.URL, c.Platform.ConsumerKey, c.Platform.ConsumerSecret = "", "", ""
			tt.mutate(&c.Platform)

			err := c.RequirePlatform()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		User:     "crm",
		Password: "p@ss word",
		DBName:   "crm",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://crm:p%40ss%20word@db:5432/crm?sslmode=disable", d.DSN())
}
