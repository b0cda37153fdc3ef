package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Environment string

	EventsJSONPath   string
	EventsXMLPath    string
	BackupDir        string
	AutosaveInterval time.Duration
	BackupInterval   time.Duration
	ShutdownTimeout  time.Duration

	// DBUrl is optional; when empty users are kept in memory.
	DBUrl string

	JWTSecret string
	JWTExpiry time.Duration

	Email            EmailConfig
	NotifyRecipients []string
}

// EmailConfig selects and configures the outgoing mailer.
type EmailConfig struct {
	Provider              string
	FromAddress           string
	FromName              string
	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	SESInsecureSkipVerify bool
}

// Load loads configuration from environment variables
// It attempts to load from .env file if not in production
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// In production we rely on system environment variables only
	if env != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: .env file couldn't be loaded: %v", err)
		}
	}

	cfg := &Config{
		Environment:    env,
		EventsJSONPath: getEnv("EVENTS_JSON_PATH", "events.json"),
		EventsXMLPath:  getEnv("EVENTS_XML_PATH", "events.xml"),
		BackupDir:      getEnv("BACKUP_DIR", "."),
		DBUrl:          os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Email: EmailConfig{
			Provider:           getEnv("EMAIL_PROVIDER", "noop"),
			FromAddress:        os.Getenv("EMAIL_FROM_ADDRESS"),
			FromName:           os.Getenv("EMAIL_FROM_NAME"),
			AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		},
		NotifyRecipients: splitList(os.Getenv("NOTIFY_RECIPIENTS")),
	}

	var err error
	if cfg.AutosaveInterval, err = getDuration("AUTOSAVE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BackupInterval, err = getDuration("BACKUP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if v := os.Getenv("SES_INSECURE_SKIP_VERIFY"); v != "" {
		if cfg.Email.SESInsecureSkipVerify, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("SES_INSECURE_SKIP_VERIFY: %w", err)
		}
	}

	if cfg.JWTSecret == "" {
		if env == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
