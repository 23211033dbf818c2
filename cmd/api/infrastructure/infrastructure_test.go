package infrastructure

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-api/internal/adapter/db/gormdb"
	"user-api/internal/config"
)

func sqliteConfig(path string, migrate bool) *config.Config {
	return &config.Config{
		DB: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			Path:         path,
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			AutoMigrate:  migrate,
		},
		Logger: config.LoggerConfig{Level: "info", SlowQuerySeconds: 1},
	}
}

func TestNewDatabase_SQLiteWithMigration(t *testing.T) {
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "users.db"), true)

	db, err := NewDatabase(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	assert.True(t, db.Migrator().HasTable(&gormdb.UserSchema{}))
}

func TestNewDatabase_WithoutMigration(t *testing.T) {
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "users.db"), false)

	db, err := NewDatabase(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	assert.False(t, db.Migrator().HasTable(&gormdb.UserSchema{}))
}

func TestNewDatabase_InMemoryUsesSingleConnection(t *testing.T) {
	cfg := sqliteConfig(":memory:", true)

	db, err := NewDatabase(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(db) })

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	cfg := sqliteConfig("", false)
	cfg.DB.Driver = "oracle"

	_, err := NewDatabase(cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
}

func TestCloseDatabase_Nil(t *testing.T) {
	assert.NoError(t, CloseDatabase(nil))
}

func TestNewRedisClient(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		client, err := NewRedisClient(context.Background(), &config.Config{}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("Connected", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{
			RateLimit: config.RateLimitConfig{Enabled: true},
			Redis:     config.RedisConfig{Host: mr.Host(), Port: mr.Port()},
		}

		client, err := NewRedisClient(context.Background(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, client)
		t.Cleanup(func() { _ = client.Close() })
	})

	t.Run("Unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := &config.Config{
			RateLimit: config.RateLimitConfig{Enabled: true},
			Redis:     config.RedisConfig{Host: mr.Host(), Port: mr.Port()},
		}
		mr.Close()

		_, err := NewRedisClient(context.Background(), cfg, zaptest.NewLogger(t))
		assert.ErrorContains(t, err, "failed to connect to Redis")
	})
}
