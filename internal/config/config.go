package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port               string
	DBConn             string
	LogLevel           string
	JWTSecret          string
	SMTPHost           string
	SMTPPort           string
	SMTPUsername       string
	SMTPPassword       string
	SenderEmail        string
	ReminderCron       string
	ReminderWindowDays int
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	windowDays, err := strconv.Atoi(getEnv("REMINDER_WINDOW_DAYS", "3"))
	if err != nil {
		return nil, fmt.Errorf("REMINDER_WINDOW_DAYS must be an integer: %w", err)
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBConn:             getEnv("DB_CONN", "host=localhost port=5432 user=billing password=billing dbname=billing sslmode=disable"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		SMTPHost:           getEnv("SMTP_HOST", "localhost"),
		SMTPPort:           getEnv("SMTP_PORT", "1025"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SenderEmail:        getEnv("SENDER_EMAIL", "billing@localhost"),
		ReminderCron:       getEnv("REMINDER_CRON", "0 8 * * *"),
		ReminderWindowDays: windowDays,
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.ReminderWindowDays < 0 {
		return nil, fmt.Errorf("REMINDER_WINDOW_DAYS must not be negative")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
