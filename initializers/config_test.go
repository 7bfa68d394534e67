package initializers

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrayerLoop/recordsync/stores"
)

var configKeys = []string{
	"PORT", "SECRET", "LOG_LEVEL", "LOG_FORMAT", "LOCAL_STORE", "REDIS_URL", "REDIS_PREFIX", "DB_URL",
	"REMOTE_STORE", "FIREBASE_SERVICE_ACCOUNT_PATH", "FIREBASE_PROJECT_ID", "FIREBASE_STORAGE_BUCKET", "MEDIA_STAGING_DIR",
	"NOTIFICATION_WINDOW", "PUSH_ENABLED", "STRICT_OWNERSHIP", "CORS_ALLOWED_ORIGINS",
}

func clearConfigEnv(t *testing.T) {
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, LocalStoreMemory, cfg.LocalStore)
	assert.Equal(t, RemoteStoreFirestore, cfg.RemoteStore)
	assert.Equal(t, "recordsync:", cfg.RedisPrefix)
	assert.Equal(t, 50, cfg.NotificationWindow)
	assert.False(t, cfg.PushEnabled)
	assert.False(t, cfg.StrictOwnership)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadConfigCORSOrigins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SECRET", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,https://admin.example.com ")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		expectError string
	}{
		{name: "missing secret", env: map[string]string{}, expectError: "SECRET is required"},
		{name: "bad window", env: map[string]string{"SECRET": "s", "NOTIFICATION_WINDOW": "many"}, expectError: "NOTIFICATION_WINDOW"},
		{name: "negative window", env: map[string]string{"SECRET": "s", "NOTIFICATION_WINDOW": "-1"}, expectError: "NOTIFICATION_WINDOW"},
		{name: "bad push flag", env: map[string]string{"SECRET": "s", "PUSH_ENABLED": "sometimes"}, expectError: "PUSH_ENABLED"},
		{name: "bad strict flag", env: map[string]string{"SECRET": "s", "STRICT_OWNERSHIP": "maybe"}, expectError: "STRICT_OWNERSHIP"},
		{name: "bad log level", env: map[string]string{"SECRET": "s", "LOG_LEVEL": "loud"}, expectError: "LOG_LEVEL"},
		{name: "bad log format", env: map[string]string{"SECRET": "s", "LOG_FORMAT": "xml"}, expectError: "LOG_FORMAT"},
		{name: "redis without url", env: map[string]string{"SECRET": "s", "LOCAL_STORE": "redis"}, expectError: "REDIS_URL"},
		{name: "postgres without url", env: map[string]string{"SECRET": "s", "LOCAL_STORE": "postgres"}, expectError: "DB_URL"},
		{name: "unknown local store", env: map[string]string{"SECRET": "s", "LOCAL_STORE": "sqlite"}, expectError: "LOCAL_STORE"},
		{name: "unknown remote store", env: map[string]string{"SECRET": "s", "REMOTE_STORE": "dynamo"}, expectError: "REMOTE_STORE"},
		{name: "push on memory remote", env: map[string]string{"SECRET": "s", "REMOTE_STORE": "memory", "PUSH_ENABLED": "true"}, expectError: "PUSH_ENABLED"},
		{name: "bad cors origin", env: map[string]string{"SECRET": "s", "CORS_ALLOWED_ORIGINS": "app.example.com"}, expectError: "CORS_ALLOWED_ORIGINS"},
		{name: "valid redis", env: map[string]string{"SECRET": "s", "LOCAL_STORE": "Redis", "REDIS_URL": "redis://localhost:6379/0"}},
		{name: "valid memory remote", env: map[string]string{"SECRET": "s", "REMOTE_STORE": "memory", "STRICT_OWNERSHIP": "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig()

			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&Config{LogLevel: "debug", LogFormat: "text"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	logger = NewLogger(&Config{LogLevel: "warn", LogFormat: "json"})
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestConnectStoresInMemory(t *testing.T) {
	log, hook := test.NewNullLogger()

	b, err := ConnectStores(context.Background(), &Config{RemoteStore: RemoteStoreMemory, LocalStore: LocalStoreMemory}, log)
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &stores.MemoryDocumentStore{}, b.Remote)
	assert.IsType(t, &stores.MemoryLocalStore{}, b.Local)
	assert.Nil(t, b.Firebase)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)
}
