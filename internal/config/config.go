package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv            string
	Debug             bool
	Version           string
	BotToken          string
	SentryDSN         string
	MongoDBURI        string
	MongoDBDatabase   string
	DefaultLanguage   string
	SupportAdminID    int64
	SchedulerInterval time.Duration
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	supportAdminStr := getEnv("SUPPORT_ADMIN_ID", "")
	var supportAdminID int64
	if supportAdminStr != "" {
		var err error
		supportAdminID, err = strconv.ParseInt(supportAdminStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SUPPORT_ADMIN_ID: %w", err)
		}
	} else {
		log.Println("Warning: SUPPORT_ADMIN_ID is not set. Support messages will be dropped.")
	}

	schedulerInterval, err := time.ParseDuration(getEnv("SCHEDULER_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_INTERVAL: %w", err)
	}

	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Debug:             debug,
		Version:           getEnv("VERSION", "dev"),
		BotToken:          getEnv("TELEGRAM_BOT_TOKEN", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		MongoDBURI:        getEnv("MONGODB_URI", ""),
		MongoDBDatabase:   getEnv("MONGODB_DATABASE", ""),
		DefaultLanguage:   getEnv("DEFAULT_LANGUAGE", "ru"),
		SupportAdminID:    supportAdminID,
		SchedulerInterval: schedulerInterval,
	}

	// Basic validation for essential variables
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.MongoDBDatabase == "" {
		return nil, fmt.Errorf("MONGODB_DATABASE is required")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
