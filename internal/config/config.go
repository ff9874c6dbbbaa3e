package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"metroads/internal/database"
)

// Config metroads（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  database.Config
	Redis     struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Auth struct {
		TokenTTLHours int
		SeedAdmin     bool
		AdminAccount  string
		AdminPassword string
	}
	ObjectStore ObjectStoreConfig
}

// ObjectStoreConfig 二进制对象存储服务配置
type ObjectStoreConfig struct {
	Enabled bool
	BaseURL string // e.g. "http://localhost:9000/metroads"
	Token   string // bearer token, optional
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, metroads falls
	// back to in-memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "metroads")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Auth.TokenTTLHours = parseInt(getEnv("AUTH_TOKEN_TTL_HOURS", "24"), 24)
	cfg.Auth.SeedAdmin = getEnv("SEED_ADMIN", "true") == "true"
	cfg.Auth.AdminAccount = getEnv("ADMIN_ACCOUNT", "admin")
	cfg.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", "ChangeMe123!")

	cfg.ObjectStore.Enabled = getEnv("OBJSTORE_ENABLED", "false") == "true"
	cfg.ObjectStore.BaseURL = getEnv("OBJSTORE_BASE_URL", "http://localhost:9000/metroads")
	cfg.ObjectStore.Token = getEnv("OBJSTORE_TOKEN", "")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
