package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// Content store
	DatabasePath string // SQLite file path

	// Cache backend selection: "memory", "filesystem" or "redis"
	CacheType      string
	CacheDir       string // filesystem backend only
	CacheKeyPrefix string
	CacheTimeout   time.Duration // default TTL for cached entries
	RedisURL       string        // redis backend only

	// Search behaviour
	ExcerptLength      int
	SearchSettingsPath string        // optional search.yaml (stopwords, warm-up queries)
	ReindexInterval    time.Duration // 0 disables the scheduled reindex job

	// Admin endpoints (reindex, cache invalidation)
	AdminToken string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: strings.ToLower(getEnv("ENVIRONMENT", "development")),

		DatabasePath: getEnv("DATABASE_PATH", "webbly.db"),

		CacheType:      strings.ToLower(getEnv("CACHE_TYPE", "filesystem")),
		CacheDir:       getEnv("CACHE_DIR", "cache"),
		CacheKeyPrefix: getEnv("CACHE_KEY_PREFIX", "webbly_"),
		CacheTimeout:   getDurationEnv("CACHE_DEFAULT_TIMEOUT", 5*time.Minute),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),

		ExcerptLength:      getIntEnv("SEARCH_EXCERPT_LENGTH", 200),
		SearchSettingsPath: getEnv("SEARCH_SETTINGS_PATH", ""),
		ReindexInterval:    getDurationEnv("REINDEX_INTERVAL", 0),

		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}
}

// SearchSettings tunes the text analysis side of search.
// Loaded from a YAML file so site operators can adjust stopwords and
// warm-up queries without a rebuild.
type SearchSettings struct {
	Stopwords        []string `yaml:"stopwords"`
	CommonQueries    []string `yaml:"common_queries"`
	MinKeywordLength int      `yaml:"min_keyword_length"`
	MaxKeywords      int      `yaml:"max_keywords"`
}

// DefaultSearchSettings mirrors the stock Webbly configuration.
func DefaultSearchSettings() *SearchSettings {
	return &SearchSettings{
		Stopwords:        []string{"the", "be", "to", "of", "and", "a", "in", "that", "have"},
		CommonQueries:    []string{"welcome", "about", "contact", "news"},
		MinKeywordLength: 4,
		MaxKeywords:      10,
	}
}

// LoadSearchSettings loads search settings from a YAML file, filling any
// omitted field from the defaults. An empty path returns the defaults.
func LoadSearchSettings(path string) (*SearchSettings, error) {
	settings := DefaultSearchSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read search settings file: %w", err)
	}

	var loaded SearchSettings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse search settings YAML: %w", err)
	}

	if len(loaded.Stopwords) > 0 {
		settings.Stopwords = loaded.Stopwords
	}
	if len(loaded.CommonQueries) > 0 {
		settings.CommonQueries = loaded.CommonQueries
	}
	if loaded.MinKeywordLength > 0 {
		settings.MinKeywordLength = loaded.MinKeywordLength
	}
	if loaded.MaxKeywords > 0 {
		settings.MaxKeywords = loaded.MaxKeywords
	}

	return settings, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
