package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MigrationsPath  string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type StorageConfig struct {
	Provider   string // "disk" or "gcs"
	ReceiptDir string // disk provider root
	GCSBucket  string
}

type Config struct {
	App struct {
		Port string
	}
	Postgres PostgresConfig
	Storage  StorageConfig
}

// Load reads configuration from the environment, optionally seeding it from a
// .env file first. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getEnv("APP_PORT", "8080")

	for _, required := range []struct {
		name string
		dst  *string
	}{
		{"DB_HOST", &cfg.Postgres.Host},
		{"DB_PORT", &cfg.Postgres.Port},
		{"DB_USER", &cfg.Postgres.User},
		{"DB_PASSWORD", &cfg.Postgres.Password},
		{"DB_NAME", &cfg.Postgres.DBName},
	} {
		*required.dst = os.Getenv(required.name)
		if *required.dst == "" {
			return nil, fmt.Errorf("%s is required", required.name)
		}
	}

	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")
	cfg.Postgres.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(getEnvInt("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME_MINUTES", 30)) * time.Minute

	cfg.Storage.Provider = getEnv("STORAGE_PROVIDER", "disk")
	cfg.Storage.ReceiptDir = getEnv("RECEIPT_DIR", "uploads/receipts")
	cfg.Storage.GCSBucket = os.Getenv("GCS_BUCKET")
	if cfg.Storage.Provider == "gcs" && cfg.Storage.GCSBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required when STORAGE_PROVIDER=gcs")
	}

	return cfg, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
