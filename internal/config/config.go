package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Email      EmailConfig
	Rewards    RewardsConfig
	Classifier ClassifierConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // "development", "production", "test"
	Debug       bool
	// BaseURL is the public application URL used when building shareable
	// invite links.
	BaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type EmailConfig struct {
	Provider     string // "resend", "smtp", "console"
	FromAddress  string
	FromName     string
	ResendAPIKey string
	// SMTP settings (for Mailpit in local dev)
	SMTPHost string
	SMTPPort int
}

// RewardsConfig selects how XP awards reach the rewards platform.
type RewardsConfig struct {
	Provider  string // "http", "console"
	Endpoint  string
	APIKey    string
	TimeoutMS int
}

// ClassifierConfig holds the New/Established engagement thresholds. These are
// product policy, not structural constants, so they are tunable per
// environment.
type ClassifierConfig struct {
	NewMoodEntryLimit int
	NewXPLimit        int
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("SERVER_DEBUG", false),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "kindred"),
			Password: getEnv("DB_PASSWORD", "kindred"),
			DBName:   getEnv("DB_NAME", "kindred_social"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "console"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@kindredwellness.app"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Kindred"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		},
		Rewards: RewardsConfig{
			Provider:  getEnv("REWARDS_PROVIDER", "console"),
			Endpoint:  getEnv("REWARDS_ENDPOINT", ""),
			APIKey:    getEnv("REWARDS_API_KEY", ""),
			TimeoutMS: getEnvInt("REWARDS_TIMEOUT_MS", 3000),
		},
		Classifier: ClassifierConfig{
			NewMoodEntryLimit: getEnvInt("CLASSIFIER_MAX_MOOD_ENTRIES", 3),
			NewXPLimit:        getEnvInt("CLASSIFIER_MAX_XP", 10),
		},
	}

	if cfg.Rewards.Provider == "http" && cfg.Rewards.Endpoint == "" {
		return nil, fmt.Errorf("REWARDS_ENDPOINT is required when REWARDS_PROVIDER=http")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
