package assistant

import (
	"os"
	"time"
)

// Config holds the endpoints and credentials for the two remote
// collaborators: the assistant backend that interprets free text and the
// execution API that applies resolved actions to the property domain.
type Config struct {
	OracleURL    string
	ExecutionURL string
	APIKey       string
	Timeout      time.Duration
}

// NewConfigFromEnv builds the configuration from environment variables.
func NewConfigFromEnv() Config {
	return Config{
		OracleURL:    getEnv("ASSISTANT_API_URL", "http://localhost:9090/api/v1/assistant/messages"),
		ExecutionURL: getEnv("EXECUTION_API_URL", "http://localhost:9090/api/v1/assistant/execute"),
		APIKey:       getEnv("ASSISTANT_API_KEY", ""),
		Timeout:      getDurationEnv("ASSISTANT_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
