package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// NATS configuration
	NatsURL               string        `yaml:"nats_url"`
	NatsTranscriptSubject string        `yaml:"nats_transcript_subject"`
	NatsParseSubject      string        `yaml:"nats_parse_subject"`
	NatsStateSubject      string        `yaml:"nats_state_subject"`
	NatsHistorySubject    string        `yaml:"nats_history_subject"`
	NatsUpdatesPrefix     string        `yaml:"nats_updates_prefix"`
	NatsTimeout           time.Duration `yaml:"nats_timeout"`

	// LLM configuration
	LLMProvider string        `yaml:"llm_provider"`
	LLMAPIKey   string        `yaml:"llm_api_key"`
	LLMModel    string        `yaml:"llm_model"`
	LLMBaseURL  string        `yaml:"llm_base_url"`
	LLMTimeout  time.Duration `yaml:"llm_timeout"`
	LLMReferer  string        `yaml:"llm_referer"`
	LLMTitle    string        `yaml:"llm_title"`

	// Extraction tuning
	CacheCapacity  int           `yaml:"cache_capacity"`
	MinInputLength int           `yaml:"min_input_length"`
	DebounceDelay  time.Duration `yaml:"debounce_delay"`
	MinGrowth      int           `yaml:"min_growth"`

	// Journal storage; empty RedisURL keeps journals in memory
	RedisURL      string        `yaml:"redis_url"`
	TranscriptTTL time.Duration `yaml:"transcript_ttl"`

	// Service configuration
	HTTPAddr    string `yaml:"http_addr"`
	ServiceName string `yaml:"service_name"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		NatsURL:               "nats://localhost:4222",
		NatsTranscriptSubject: "intake.transcript",
		NatsParseSubject:      "intake.parse",
		NatsStateSubject:      "intake.state",
		NatsHistorySubject:    "intake.history",
		NatsUpdatesPrefix:     "intake.updates",
		NatsTimeout:           30 * time.Second,

		LLMProvider: "openrouter",
		LLMModel:    "openai/gpt-4o-mini",
		LLMBaseURL:  "https://openrouter.ai/api/v1",
		LLMTimeout:  10 * time.Second,
		LLMTitle:    "Flightly",

		CacheCapacity:  50,
		MinInputLength: 15,
		DebounceDelay:  800 * time.Millisecond,
		MinGrowth:      5,

		TranscriptTTL: 30 * time.Minute,

		HTTPAddr:    ":8080",
		ServiceName: "flightly-intake",
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by INTAKE_CONFIG_FILE, and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("INTAKE_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// NATS settings
	cfg.NatsURL = getEnv("NATS_URL", cfg.NatsURL)
	cfg.NatsTranscriptSubject = getEnv("NATS_TRANSCRIPT_SUBJECT", cfg.NatsTranscriptSubject)
	cfg.NatsParseSubject = getEnv("NATS_PARSE_SUBJECT", cfg.NatsParseSubject)
	cfg.NatsStateSubject = getEnv("NATS_STATE_SUBJECT", cfg.NatsStateSubject)
	cfg.NatsHistorySubject = getEnv("NATS_HISTORY_SUBJECT", cfg.NatsHistorySubject)
	cfg.NatsUpdatesPrefix = getEnv("NATS_UPDATES_PREFIX", cfg.NatsUpdatesPrefix)
	cfg.NatsTimeout = getDurationEnv("NATS_TIMEOUT", cfg.NatsTimeout)

	// LLM settings
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMTimeout = getDurationEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	cfg.LLMReferer = getEnv("LLM_REFERER", cfg.LLMReferer)
	cfg.LLMTitle = getEnv("LLM_TITLE", cfg.LLMTitle)

	// Extraction settings
	cfg.CacheCapacity = getIntEnv("CACHE_CAPACITY", cfg.CacheCapacity)
	cfg.MinInputLength = getIntEnv("MIN_INPUT_LENGTH", cfg.MinInputLength)
	cfg.DebounceDelay = getDurationEnv("DEBOUNCE_DELAY", cfg.DebounceDelay)
	cfg.MinGrowth = getIntEnv("MIN_GROWTH", cfg.MinGrowth)

	// Storage settings
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.TranscriptTTL = getDurationEnv("TRANSCRIPT_TTL", cfg.TranscriptTTL)

	// Service settings
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.CacheCapacity < 1:
		return fmt.Errorf("cache_capacity must be positive, got %d", c.CacheCapacity)
	case c.MinInputLength < 0:
		return fmt.Errorf("min_input_length must not be negative, got %d", c.MinInputLength)
	case c.DebounceDelay <= 0:
		return fmt.Errorf("debounce_delay must be positive, got %s", c.DebounceDelay)
	case c.LLMTimeout <= 0:
		return fmt.Errorf("llm_timeout must be positive, got %s", c.LLMTimeout)
	case c.TranscriptTTL <= 0:
		return fmt.Errorf("transcript_ttl must be positive, got %s", c.TranscriptTTL)
	}
	return nil
}

// RemoteEnabled reports whether a remote extraction backend is configured.
func (c *Config) RemoteEnabled() bool {
	return c.LLMAPIKey != ""
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

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
