package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret          string
	JWTExpirationHours int

	// Background Workers
	WorkerCount int

	// CORS
	AllowedOrigins []string

	// Sentry
	SentryDSN string

	// Fee accounting business rules
	AcademicYearStartMonth  int // calendar month of academic month 1 (1-12)
	CancellationWindowHours int // how long a completed transaction stays cancellable
	FraudWindowHours        int // trailing window for duplicate-collection checks
	FraudMaxTransactions    int // per-window transaction count threshold per collector
	DefaulterSyncMinutes    int // interval for the defaulter resync job
	ReminderIntervalDays    int // minimum days between reminders per defaulter
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		WorkerCount:        getEnvAsInt("WORKER_COUNT", 5),
		AllowedOrigins:     getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:          getEnv("SENTRY_DSN", ""),

		AcademicYearStartMonth:  getEnvAsInt("ACADEMIC_YEAR_START_MONTH", 4),
		CancellationWindowHours: getEnvAsInt("CANCELLATION_WINDOW_HOURS", 24),
		FraudWindowHours:        getEnvAsInt("FRAUD_WINDOW_HOURS", 1),
		FraudMaxTransactions:    getEnvAsInt("FRAUD_MAX_TRANSACTIONS", 20),
		DefaulterSyncMinutes:    getEnvAsInt("DEFAULTER_SYNC_INTERVAL_MINUTES", 60),
		ReminderIntervalDays:    getEnvAsInt("REMINDER_INTERVAL_DAYS", 3),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if cfg.AcademicYearStartMonth < 1 || cfg.AcademicYearStartMonth > 12 {
		return nil, fmt.Errorf("ACADEMIC_YEAR_START_MONTH must be between 1 and 12")
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
