// Package config holds the environment-driven configuration surface.
package config

import (
	"os"
	"strconv"
	"time"
)

// Validation and transport defaults
const (
	// DefaultPort is the HTTP listen port
	DefaultPort = "8080"
	// DefaultMaxUploadBytes caps the uploaded document size (10 MB)
	DefaultMaxUploadBytes = 10 * 1024 * 1024
	// DefaultMaxPromptChars caps the review prompt length
	DefaultMaxPromptChars = 500
	// DefaultAgentTimeout bounds a single document-analysis call
	DefaultAgentTimeout = 2 * time.Minute
)

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// GetEnvInt retrieves an integer environment variable with a fallback value
// if not set or not parseable
func GetEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// Database holds the connection options for the review archive. The archive
// is optional; it is enabled only when DB_HOST is set.
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// Enabled reports whether a database was configured.
func (d Database) Enabled() bool {
	return d.Host != ""
}

// Config is the full runtime configuration of the service.
type Config struct {
	Port           string
	MaxUploadBytes int
	MaxPromptChars int
	AgentTimeout   time.Duration

	AnthropicAPIKey  string
	AnthropicBaseURL string

	Database Database
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:           GetEnv("PORT", DefaultPort),
		MaxUploadBytes: GetEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
		MaxPromptChars: GetEnvInt("MAX_PROMPT_CHARS", DefaultMaxPromptChars),
		AgentTimeout:   time.Duration(GetEnvInt("AGENT_TIMEOUT_SECONDS", int(DefaultAgentTimeout/time.Second))) * time.Second,

		AnthropicAPIKey:  GetEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: GetEnv("ANTHROPIC_BASE_URL", ""),

		Database: Database{
			Host:     GetEnv("DB_HOST", ""),
			Port:     GetEnvInt("DB_PORT", 5432),
			User:     GetEnv("DB_USER", "postgres"),
			Password: GetEnv("DB_PASSWORD", "postgres"),
			Name:     GetEnv("DB_NAME", "deepcritic"),
		},
	}
}
