package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/birbparty/birb-baas/internal/cache"
	"github.com/birbparty/birb-baas/internal/database"
	"github.com/birbparty/birb-baas/internal/queue"
)

// Storage backends for the session store
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Event backends
const (
	EventsLocal = "local"
	EventsNATS  = "nats"
)

// Config selects how an App is assembled: where it points, where the
// session is kept and how session events travel.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string

	Storage string
	Events  string

	// Tracing wraps the transport in client spans
	Tracing bool

	// Backend settings, loaded only for the selected backend
	Redis    *cache.Config
	Postgres *database.Config
	NATS     *queue.Config
}

// NewConfigFromEnv reads BAAS_* variables and the settings of the selected
// backends.
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:     os.Getenv("BAAS_API_KEY"),
		BaseURL:    getEnvOrDefault("BAAS_BASE_URL", "http://localhost:8080"),
		APIVersion: getEnvOrDefault("BAAS_API_VERSION", "v1"),
		Storage:    strings.ToLower(getEnvOrDefault("BAAS_STORAGE", StorageMemory)),
		Events:     strings.ToLower(getEnvOrDefault("BAAS_EVENTS", EventsLocal)),
		Tracing:    os.Getenv("BAAS_TRACING") == "true",
	}

	if err := cfg.LoadBackends(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBackends reads the environment settings of the selected storage and
// event backends. It is called again after flags change the selection.
func (c *Config) LoadBackends() error {
	var err error

	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.Redis == nil {
			if c.Redis, err = cache.NewConfigFromEnv(); err != nil {
				return fmt.Errorf("failed to load redis config: %w", err)
			}
		}
	case StoragePostgres:
		if c.Postgres == nil {
			if c.Postgres, err = database.NewConfigFromEnv(); err != nil {
				return fmt.Errorf("failed to load postgres config: %w", err)
			}
		}
	default:
		return fmt.Errorf("invalid storage backend %q", c.Storage)
	}

	switch c.Events {
	case EventsLocal:
	case EventsNATS:
		if c.NATS == nil {
			if c.NATS, err = queue.NewConfigFromEnv(); err != nil {
				return fmt.Errorf("failed to load nats config: %w", err)
			}
		}
	default:
		return fmt.Errorf("invalid events backend %q", c.Events)
	}

	return nil
}

// Validate checks the settings needed to build an App
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required (BAAS_API_KEY)")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required (BAAS_BASE_URL)")
	}
	return c.LoadBackends()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
