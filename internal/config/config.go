package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is the development signing key used when SECRET_KEY
// is unset. It is public, so it is refused when auth is required.
const DefaultJWTSecret = "supersecretkey"

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port     string
	LogLevel string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory", "sqlite" or "firestore"
	SQLitePath     string
	UseMockLLM     bool // true = use mock even on GCP

	Email EmailConfig

	JWTSecret   string
	TokenTTL    time.Duration
	RequireAuth bool
}

// EmailConfig holds the escalation mailer settings. Sender and Password
// empty means the channel is not configured.
type EmailConfig struct {
	Sender            string
	Password          string
	SMTPServer        string
	FallbackRecipient string
	Timeout           time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// Load reads all env vars and builds the config
func Load() (*Config, error) {
	modeStr := getEnv("FLASHCOACH_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port:     getEnv("PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GCPProjectID: getEnv("FLASHCOACH_GCP_PROJECT", ""),
		GCPLocation:  getEnv("FLASHCOACH_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("FLASHCOACH_MODEL_NAME", "gemini-2.5-flash-lite"),

		StorageBackend: getEnv("FLASHCOACH_STORAGE_BACKEND", "memory"),
		SQLitePath:     getEnv("FLASHCOACH_SQLITE_PATH", "./data/flashcoach.db"),
		UseMockLLM:     getBoolEnv("FLASHCOACH_USE_MOCK_LLM", mode == ModeLocal),

		Email: EmailConfig{
			Sender:            os.Getenv("EMAIL_SENDER"),
			Password:          os.Getenv("EMAIL_PASSWORD"),
			SMTPServer:        getEnv("SMTP_SERVER", "smtp.gmail.com"),
			FallbackRecipient: os.Getenv("CRP_EMAIL_FALLBACK"),
			Timeout:           getDurationEnv("SMTP_TIMEOUT", 15*time.Second),
		},

		JWTSecret:   getEnv("SECRET_KEY", DefaultJWTSecret),
		TokenTTL:    getDurationEnv("TOKEN_TTL", 24*time.Hour),
		RequireAuth: getBoolEnv("FLASHCOACH_REQUIRE_AUTH", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.StorageBackend {
	case "memory":
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("FLASHCOACH_SQLITE_PATH cannot be empty for sqlite storage")
		}
	case "firestore":
		if c.GCPProjectID == "" {
			return fmt.Errorf("FLASHCOACH_GCP_PROJECT is required for firestore storage")
		}
	default:
		return fmt.Errorf("unknown FLASHCOACH_STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return fmt.Errorf("FLASHCOACH_GCP_PROJECT must be set in gcp mode")
	}
	if !c.UseMockLLM && c.GCPProjectID == "" {
		return fmt.Errorf("FLASHCOACH_GCP_PROJECT is required for the Vertex LLM client")
	}
	if c.RequireAuth && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("SECRET_KEY must be set to a non-default value when auth is required")
	}
	return nil
}
