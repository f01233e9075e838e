package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath      string
	LogLevel          string
	Port              int
	DevMode           bool
	NavAPIBaseURL     string
	CalendarSyncURL   string
	DiscordWebhookURL string

	// Cron schedules (robfig/cron v3, with seconds field)
	ConfirmSchedule      string
	DcaSchedule          string
	NavFetchSchedule     string
	CalendarSyncSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvAsInt("PORT", 8010),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		DatabasePath:      getEnv("DB_PATH", "./data/fundtrack.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		NavAPIBaseURL:     getEnv("NAV_API_BASE_URL", "https://api.fund.eastmoney.com"),
		CalendarSyncURL:   getEnv("CALENDAR_SYNC_URL", ""),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),

		ConfirmSchedule:      getEnv("CONFIRM_SCHEDULE", "0 30 19 * * *"),
		DcaSchedule:          getEnv("DCA_SCHEDULE", "0 35 9 * * 1-5"),
		NavFetchSchedule:     getEnv("NAV_FETCH_SCHEDULE", "0 0 19 * * *"),
		CalendarSyncSchedule: getEnv("CALENDAR_SYNC_SCHEDULE", "0 0 6 * * 1"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number, got %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
