package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL  string
	RedisURL     string
	OpenAIAPIKey string
	APIAddr      string

	InputDir    string // where OCR markdown pages live
	OutputDir   string // root of csv_* directories and workbooks
	Tolerance   decimal.Decimal
	Workers     int
	CompileCron string
	LogLevel    string
}

// LoadConfig reads configuration from environment variables (.env file)
func LoadConfig() (*Config, error) {
	// Load .env file. In production, env variables are often set directly.
	_ = godotenv.Load()

	tolerance, err := decimal.NewFromString(getEnv("ECL_TOLERANCE", "1"))
	if err != nil {
		tolerance = decimal.NewFromInt(1)
	}

	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		APIAddr:      getEnv("API_ADDR", ":8080"),
		InputDir:     getEnv("ECL_INPUT_DIR", "."),
		OutputDir:    getEnv("ECL_OUTPUT_DIR", "batch_processing_output"),
		Tolerance:    tolerance,
		Workers:      getEnvInt("ECL_WORKERS", 4),
		CompileCron:  getEnv("ECL_COMPILE_CRON", "0 * * * *"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}, nil
}

// Helper function to get env var or return default
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
