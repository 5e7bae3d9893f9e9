// Package config loads service configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the forecasting service.
type Config struct {
	HTTPBind   string // address:port for the HTTP server
	DataPath   string // durable CSV booking store
	CacheSize  int    // fitted models retained by the runner
	CORSOrigin string // Access-Control-Allow-Origin value
	LogLevel   string // debug, info, warn, error
}

// Load reads configuration from the environment. A missing .env file is
// not an error; explicit environment variables always win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPBind:   getEnv("HTTP_BIND", ":8080"),
		DataPath:   getEnv("DATA_PATH", "updated_data.csv"),
		CacheSize:  getEnvInt("MODEL_CACHE_SIZE", 8),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
