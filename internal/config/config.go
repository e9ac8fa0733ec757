// Package config loads service configuration from the environment, with an
// optional YAML file for structure-validation profiles.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"paperforge/internal/errcode"
	"paperforge/internal/outline"
)

type Config struct {
	Port string

	// Document store connection
	StoreURL    string
	StoreAPIKey string

	// Auth service
	AuthURL string

	// Claude generation
	AnthropicAPIKey string
	AnthropicModel  string

	// Pacing and failure tolerance
	PaceBaseDelay        time.Duration
	PaceMultiplier       float64
	MaxRateLimitRetries  int
	MaxConsecutiveErrors int
	MinSectionWords      int

	// Backoff
	BackoffMaxRetries int
	BackoffMaxDelay   time.Duration

	// Upload limits
	MaxUploadBytes int64

	// Knowledge base
	KnowledgeDir string

	// Run state
	RunTTL time.Duration

	// Structure validation profiles; nil means built-in defaults.
	ProfilesPath string

	// PDF import
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		StoreURL:    envOr("STORE_URL", "http://localhost:8080"),
		StoreAPIKey: os.Getenv("STORE_API_KEY"),

		AuthURL: envOr("AUTH_URL", "http://localhost:8081"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),

		PaceBaseDelay:        envDuration("PACE_BASE_DELAY", 20*time.Second),
		PaceMultiplier:       envFloat("PACE_MULTIPLIER", 1.5),
		MaxRateLimitRetries:  envInt("MAX_RATE_LIMIT_RETRIES", 3),
		MaxConsecutiveErrors: envInt("MAX_CONSECUTIVE_ERRORS", 3),
		MinSectionWords:      envInt("MIN_SECTION_WORDS", 3000),

		BackoffMaxRetries: envInt("BACKOFF_MAX_RETRIES", 6),
		BackoffMaxDelay:   envDuration("BACKOFF_MAX_DELAY", 6*time.Minute),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		KnowledgeDir: envOr("KNOWLEDGE_DIR", "knowledge_base"),

		RunTTL: envDuration("RUN_TTL", 1*time.Hour),

		ProfilesPath: os.Getenv("PROFILES_PATH"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.PaceBaseDelay <= 0 {
		cfg.PaceBaseDelay = 20 * time.Second
	}
	if cfg.PaceMultiplier < 1 {
		cfg.PaceMultiplier = 1.5
	}
	if cfg.MaxRateLimitRetries <= 0 {
		cfg.MaxRateLimitRetries = 3
	}
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = 3
	}
	if cfg.MinSectionWords <= 0 {
		cfg.MinSectionWords = 3000
	}
	if cfg.BackoffMaxRetries <= 0 {
		cfg.BackoffMaxRetries = 6
	}
	if cfg.BackoffMaxDelay <= 0 {
		cfg.BackoffMaxDelay = 6 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.StoreAPIKey == "" {
		return errcode.New(errcode.Configuration, "STORE_API_KEY is required")
	}
	if c.AnthropicAPIKey == "" {
		return errcode.New(errcode.Configuration, "ANTHROPIC_API_KEY is required")
	}
	return nil
}

// Profiles returns the structure-validation bounds, loading the YAML file
// named by PROFILES_PATH when set.
func (c Config) Profiles() (outline.Profiles, error) {
	if c.ProfilesPath == "" {
		return outline.DefaultProfiles(), nil
	}
	data, err := os.ReadFile(c.ProfilesPath)
	if err != nil {
		return outline.Profiles{}, errcode.Wrap(errcode.Configuration, err, "read profiles file %s", c.ProfilesPath)
	}
	profiles := outline.DefaultProfiles()
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return outline.Profiles{}, errcode.Wrap(errcode.Configuration, err, "parse profiles file %s", c.ProfilesPath)
	}
	return profiles, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
