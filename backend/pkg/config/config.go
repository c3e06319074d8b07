package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "diarygraph/backend/pkg/errors"
)

// Entry source kinds
const (
	SourceNeo4j = "neo4j"
	SourceFile  = "file"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Entries
	EntrySource   string
	EntriesFile   string
	EntryCacheTTL time.Duration

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// AI analysis
	LLMURL         string
	LLMAPIKey      string
	ModelID        string
	AnalyzeMissing bool

	// Graph view sessions
	TickInterval     time.Duration
	SessionTTL       time.Duration
	LayoutTuningFile string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		EntrySource:      strings.ToLower(getEnv("ENTRY_SOURCE", SourceNeo4j)),
		EntriesFile:      getEnv("ENTRIES_FILE", ""),
		EntryCacheTTL:    time.Duration(getEnvInt("ENTRY_CACHE_TTL_SECONDS", 30)) * time.Second,
		Neo4jURI:         getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:        getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:    getEnv("NEO4J_PASSWORD", "password"),
		LLMURL:           getEnv("LLM_URL", "http://localhost:4000"),
		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		ModelID:          getEnv("MODEL_ID", "gpt-4o-mini"),
		AnalyzeMissing:   getEnvBool("ANALYZE_MISSING", false),
		TickInterval:     time.Duration(getEnvInt("TICK_INTERVAL_MS", 16)) * time.Millisecond,
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		LayoutTuningFile: getEnv("LAYOUT_TUNING_FILE", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.EntrySource {
	case SourceNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	case SourceFile:
		if c.EntriesFile == "" {
			return apperrors.NewConfigMissingRequired("ENTRIES_FILE")
		}
	default:
		return apperrors.NewConfigValidationFailed("ENTRY_SOURCE", fmt.Sprintf("unknown source %q", c.EntrySource))
	}
	if c.AnalyzeMissing && c.LLMURL == "" {
		return apperrors.NewConfigMissingRequired("LLM_URL")
	}
	if c.TickInterval <= 0 {
		return apperrors.NewConfigValidationFailed("TICK_INTERVAL_MS", "must be positive")
	}
	if c.SessionTTL <= 0 {
		return apperrors.NewConfigValidationFailed("SESSION_TTL_MINUTES", "must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
