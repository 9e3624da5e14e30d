// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// telegram
	TGApiID      int
	TGApiHash    string
	TGSessionStr string

	// rate limiting
	RateRPS    float64 // token bucket refill rate for API calls
	DelayMinMs int     // lower bound of the random inter-batch delay
	DelayMaxMs int     // upper bound of the random inter-batch delay

	// export
	OutputDir string

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment, honoring a local .env file
// if one is present.
func Load() (*Config, error) {
	// missing .env is fine, the environment may carry everything
	_ = godotenv.Load()

	cfg := &Config{
		TGApiID:      getEnvInt("TG_API_ID", 0),
		TGApiHash:    getEnv("TG_API_HASH", ""),
		TGSessionStr: getEnv("TG_SESSION_STRING", ""),
		RateRPS:      getEnvFloat("TG_RATE_RPS", 2.0),
		DelayMinMs:   getEnvInt("TG_DELAY_MIN_MS", 1000),
		DelayMaxMs:   getEnvInt("TG_DELAY_MAX_MS", 3000),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
