package cleanup

import (
	"os"
	"strconv"
	"time"
)

// LoadConfig loads cleanup configuration from environment variables
func LoadConfig() Config {
	return Config{
		GracePeriod:         getEnvDuration("CLEANUP_GRACE_PERIOD", 5*time.Minute),
		Interval:            getEnvDuration("CLEANUP_INTERVAL", time.Minute),
		DryRun:              getEnvBool("CLEANUP_DRY_RUN", false),
		ArchiveBeforeDelete: getEnvBool("CLEANUP_ARCHIVE", false),
		NotifySubject:       getEnvString("CLEANUP_NOTIFY_SUBJECT", "baas.sessions.expired"),
	}
}

// getEnvString gets a string value from environment or returns default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment or returns default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration value from environment or returns default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
