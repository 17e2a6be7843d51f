package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/birbparty/birb-baas/internal/storage"
)

// Blob backends for file and media vault streams
const (
	BlobBackendMemory = "memory"
	BlobBackendSpaces = "spaces"
)

// Config holds the mock API configuration
type Config struct {
	// Server configuration
	Host string
	Port int

	// APIKeys lists the accepted application keys; empty accepts any key
	APIKeys []string
	// TokenTTL is the lifetime of issued access tokens
	TokenTTL time.Duration
	// RequireAuth rejects anonymous requests to module routes
	RequireAuth bool

	RequestTimeout  int
	ShutdownTimeout int
	MetricsPath     string

	BlobBackend string
	Spaces      storage.SpacesConfig
}

// DefaultConfig returns the configuration used by tests
func DefaultConfig() *Config {
	return &Config{
		Host:            "0.0.0.0",
		Port:            8080,
		TokenTTL:        time.Hour,
		RequestTimeout:  30,
		ShutdownTimeout: 10,
		MetricsPath:     "/metrics",
		BlobBackend:     BlobBackendMemory,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	cfg.Host = getEnvOrDefault("MOCK_API_HOST", cfg.Host)

	port, err := strconv.Atoi(getEnvOrDefault("MOCK_API_PORT", strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("invalid MOCK_API_PORT: %w", err)
	}
	cfg.Port = port

	if keys := os.Getenv("MOCK_API_KEYS"); keys != "" {
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.APIKeys = append(cfg.APIKeys, k)
			}
		}
	}

	ttl, err := time.ParseDuration(getEnvOrDefault("MOCK_API_TOKEN_TTL", cfg.TokenTTL.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid MOCK_API_TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	cfg.RequireAuth = os.Getenv("MOCK_API_REQUIRE_AUTH") == "true"

	if cfg.RequestTimeout, err = strconv.Atoi(getEnvOrDefault("REQUEST_TIMEOUT", "30")); err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = strconv.Atoi(getEnvOrDefault("SHUTDOWN_TIMEOUT", "10")); err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.MetricsPath = getEnvOrDefault("METRICS_PATH", cfg.MetricsPath)

	cfg.BlobBackend = getEnvOrDefault("MOCK_API_BLOB_BACKEND", cfg.BlobBackend)
	switch cfg.BlobBackend {
	case BlobBackendMemory:
	case BlobBackendSpaces:
		cfg.Spaces = storage.NewSpacesConfigFromEnv()
	default:
		return nil, fmt.Errorf("invalid MOCK_API_BLOB_BACKEND %q", cfg.BlobBackend)
	}

	return cfg, nil
}

// AcceptsKey reports whether requests for apiKey are served
func (c *Config) AcceptsKey(apiKey string) bool {
	if len(c.APIKeys) == 0 {
		return apiKey != ""
	}
	for _, k := range c.APIKeys {
		if k == apiKey {
			return true
		}
	}
	return false
}

// Address returns the listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewBlobStore builds the configured stream store
func (c *Config) NewBlobStore() (storage.BlobStore, error) {
	if c.BlobBackend == BlobBackendSpaces {
		return storage.NewSpacesStore(c.Spaces)
	}
	return storage.NewMemoryStore(), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
