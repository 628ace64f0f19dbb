// Package config loads service settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	StoreDriver  string // postgres or sqlite
	DatabaseURL  string
	SQLitePath   string
	StoreTimeout time.Duration

	Timezone    string
	Location    *time.Location
	DefaultName string

	JWTSecret    string
	StaticTokens map[string]string // token -> user ID, "" for tokens without a member
	AdminTokens  map[string]bool

	SessionIdleTTL time.Duration

	AMQPURL      string
	AMQPExchange string

	ResendAPIKey string
	MailFrom     string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// Load reads envFile (if it exists) and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		StoreDriver:        strings.ToLower(getEnvOrDefault("STORE_DRIVER", "postgres")),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnvOrDefault("SQLITE_PATH", "gym.db"),
		Timezone:           getEnvOrDefault("APP_TIMEZONE", "Local"),
		DefaultName:        getEnvOrDefault("DEFAULT_DISPLAY_NAME", "User"),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_HMAC_SECRET")),
		StaticTokens:       parseStaticTokens(os.Getenv("STATIC_TOKENS")),
		AdminTokens:        parseTokenSet(os.Getenv("ADMIN_TOKENS")),
		AMQPURL:            os.Getenv("AMQP_URL"),
		AMQPExchange:       getEnvOrDefault("AMQP_EXCHANGE", "gym.reservations"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		MailFrom:           getEnvOrDefault("MAIL_FROM", "reservas@polygym.com"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	var err error
	if cfg.SessionIdleTTL, err = getEnvAsDurationOrDefault("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getEnvAsDurationOrDefault("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	switch cfg.StoreDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL required when STORE_DRIVER=postgres")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// GoogleCalendarEnabled reports whether OAuth2 credentials are configured.
func (c *Config) GoogleCalendarEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	slog.Debug("environment variable not set, using default", "key", key, "default", defaultValue)
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

// parseStaticTokens reads "tok1=user1,tok2". A token without "=" carries no
// member identity.
func parseStaticTokens(raw string) map[string]string {
	out := map[string]string{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		token, user, _ := strings.Cut(item, "=")
		out[strings.TrimSpace(token)] = strings.TrimSpace(user)
	}
	return out
}

func parseTokenSet(raw string) map[string]bool {
	out := map[string]bool{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[t] = true
		}
	}
	return out
}
