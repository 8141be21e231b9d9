package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied to every configuration variable.
const EnvPrefix = "CHEFBOT"

// Config carries every runtime setting for the service.
type Config struct {
	AppEnv           string `envconfig:"APP_ENV" default:"development"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPListenAddr   string `envconfig:"HTTP_LISTEN_ADDR" default:":8080"`
	PublicBasePath   string `envconfig:"PUBLIC_BASE_PATH"`
	MetricsNamespace string `envconfig:"METRICS_NAMESPACE" default:"chefbot"`

	// Persistence. Driver selects between the Postgres store ("postgres")
	// and the local SQLite store ("sqlite").
	DatabaseDriver string `envconfig:"DATABASE_DRIVER" default:"postgres"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	DatabaseSchema string `envconfig:"DATABASE_SCHEMA"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"data/chefbot.db"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisTLS      bool   `envconfig:"REDIS_TLS" default:"false"`

	MenuCacheTTL time.Duration `envconfig:"MENU_CACHE_TTL" default:"5m"`

	GroqBaseURL string        `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com"`
	GroqAPIKey  string        `envconfig:"GROQ_API_KEY"`
	GroqModel   string        `envconfig:"GROQ_MODEL" default:"llama-3.3-70b-versatile"`
	GroqTimeout time.Duration `envconfig:"GROQ_TIMEOUT" default:"15s"`

	WhatsAppGraphBaseURL string        `envconfig:"WHATSAPP_GRAPH_BASE_URL" default:"https://graph.facebook.com/v17.0"`
	WhatsAppToken        string        `envconfig:"WHATSAPP_TOKEN"`
	WhatsAppVerifyToken  string        `envconfig:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppSendTimeout  time.Duration `envconfig:"WHATSAPP_SEND_TIMEOUT" default:"10s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DatabaseDriver)) {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("CHEFBOT_DATABASE_URL is required when driver is postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("CHEFBOT_SQLITE_PATH is required when driver is sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.WhatsAppVerifyToken == "" {
		return fmt.Errorf("CHEFBOT_WHATSAPP_VERIFY_TOKEN is required")
	}
	return nil
}

// UseSQLite reports whether the SQLite store is selected.
func (c *Config) UseSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(c.DatabaseDriver), "sqlite")
}
