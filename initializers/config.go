package initializers

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	LocalStoreMemory   = "memory"
	LocalStoreRedis    = "redis"
	LocalStorePostgres = "postgres"

	RemoteStoreFirestore = "firestore"
	RemoteStoreMemory    = "memory"
)

type Config struct {
	Port      string
	JWTSecret string
	LogLevel  string
	LogFormat string

	LocalStore  string
	RedisURL    string
	RedisPrefix string
	DatabaseURL string

	RemoteStore                string
	FirebaseServiceAccountPath string
	FirebaseProjectID          string
	FirebaseStorageBucket      string
	MediaStagingDir            string

	NotificationWindow int
	PushEnabled        bool
	StrictOwnership    bool

	CORSOrigins []string
}

// LoadEnv reads a .env file when one is present. Deployed environments set
// variables directly.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded")
	}
}

func LoadConfig() (*Config, error) {
	window, err := strconv.Atoi(getEnv("NOTIFICATION_WINDOW", "50"))
	if err != nil || window < 0 {
		return nil, errors.New("invalid NOTIFICATION_WINDOW")
	}
	push, err := strconv.ParseBool(getEnv("PUSH_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid PUSH_ENABLED")
	}
	strict, err := strconv.ParseBool(getEnv("STRICT_OWNERSHIP", "false"))
	if err != nil {
		return nil, errors.New("invalid STRICT_OWNERSHIP")
	}

	cfg := &Config{
		Port:                       getEnv("PORT", "8080"),
		JWTSecret:                  os.Getenv("SECRET"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  strings.ToLower(getEnv("LOG_FORMAT", "json")),
		LocalStore:                 strings.ToLower(getEnv("LOCAL_STORE", LocalStoreMemory)),
		RedisURL:                   os.Getenv("REDIS_URL"),
		RedisPrefix:                getEnv("REDIS_PREFIX", "recordsync:"),
		DatabaseURL:                os.Getenv("DB_URL"),
		RemoteStore:                strings.ToLower(getEnv("REMOTE_STORE", RemoteStoreFirestore)),
		FirebaseServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		FirebaseProjectID:          os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseStorageBucket:      os.Getenv("FIREBASE_STORAGE_BUCKET"),
		MediaStagingDir:            os.Getenv("MEDIA_STAGING_DIR"),
		NotificationWindow:         window,
		PushEnabled:                push,
		StrictOwnership:            strict,
		CORSOrigins:                splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("SECRET is required")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}

	for _, origin := range cfg.CORSOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return nil, fmt.Errorf("invalid CORS_ALLOWED_ORIGINS entry %q", origin)
		}
	}

	switch cfg.LocalStore {
	case LocalStoreMemory:
	case LocalStoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis local store")
		}
	case LocalStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DB_URL is required for the postgres local store")
		}
	default:
		return nil, fmt.Errorf("unknown LOCAL_STORE %q", cfg.LocalStore)
	}

	switch cfg.RemoteStore {
	case RemoteStoreFirestore:
	case RemoteStoreMemory:
		if cfg.PushEnabled {
			return nil, errors.New("PUSH_ENABLED requires the firestore remote store")
		}
	default:
		return nil, fmt.Errorf("unknown REMOTE_STORE %q", cfg.RemoteStore)
	}

	return cfg, nil
}

func splitAndTrim(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
