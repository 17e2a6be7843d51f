package queue

import (
	"fmt"
	"os"
	"time"
)

// Config holds event bridge configuration
type Config struct {
	// NATS connection settings
	URL      string
	Name     string
	User     string
	Password string

	// SubjectPrefix roots every subject the bridge uses
	SubjectPrefix string
	// Session groups the App instances that share session events; each
	// session publishes under "<prefix>.<session>.<event>"
	Session string

	ReconnectWait time.Duration
	FlushTimeout  time.Duration
}

// NewConfigFromEnv creates a new Config from environment variables
func NewConfigFromEnv() (*Config, error) {
	reconnectWait, err := time.ParseDuration(getEnvOrDefault("NATS_RECONNECT_WAIT", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_RECONNECT_WAIT: %w", err)
	}

	flushTimeout, err := time.ParseDuration(getEnvOrDefault("NATS_FLUSH_TIMEOUT", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NATS_FLUSH_TIMEOUT: %w", err)
	}

	cfg := &Config{
		URL:           getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
		Name:          getEnvOrDefault("NATS_NAME", "birb-baas"),
		User:          os.Getenv("NATS_USER"),
		Password:      os.Getenv("NATS_PASSWORD"),
		SubjectPrefix: getEnvOrDefault("BAAS_EVENTS_SUBJECT", "baas.events"),
		Session:       getEnvOrDefault("BAAS_EVENTS_SESSION", "default"),
		ReconnectWait: reconnectWait,
		FlushTimeout:  flushTimeout,
	}
	return cfg, cfg.Validate()
}

// Validate checks that subjects built from the config are well formed
func (c *Config) Validate() error {
	if c.SubjectPrefix == "" {
		return fmt.Errorf("subject prefix is required")
	}
	if c.Session == "" {
		return fmt.Errorf("session is required")
	}
	if !validToken(c.Session) {
		return fmt.Errorf("invalid session %q: must not contain '.', '*', '>' or whitespace", c.Session)
	}
	return nil
}

// Subject returns the subject an event is published on
func (c *Config) Subject(event string) string {
	return c.SubjectPrefix + "." + c.Session + "." + event
}

// Wildcard returns the subject matching every event of the session
func (c *Config) Wildcard() string {
	return c.SubjectPrefix + "." + c.Session + ".*"
}

func validToken(s string) bool {
	for _, r := range s {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return false
		}
	}
	return true
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
