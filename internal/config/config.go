package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/MimeLyc/srt-batch-translator/pkg/log"
)

// Config holds all application configuration.
// Values come from environment variables, then an optional YAML file,
// then Options (CLI flags).
//
// Environment Variables:
// LLM Configuration:
// - LLM_PROVIDER: gemini, openai or compatible (default: gemini)
// - LLM_API_KEY: API key (falls back to GEMINI_API_KEY or OPENAI_API_KEY)
// - LLM_API_URL: endpoint override; required base URL for compatible
// - LLM_MODEL: model name (default depends on the provider)
// - LLM_MAX_TOKENS: maximum output tokens (default: 8192)
// - LLM_TEMPERATURE: sampling temperature (default: 1)
// - LLM_TOP_P: nucleus sampling (default: 0.95)
// - LLM_TOP_K: top-k sampling, Gemini only (default: 64)
// - LLM_TIMEOUT: request timeout in seconds (default: 120)
// - LLM_SITE_URL: HTTP-Referer header for compatible gateways (optional)
// - LLM_APP_NAME: X-Title header for compatible gateways (optional)
//
// Translate Configuration:
// - TARGET_LANGUAGE: target language code (default: en)
// - BATCH_SIZE: maximum blocks per request (default: 150)
// - FALLBACK_BATCH_SIZE: sub-batch size after a failure (default: 0, a quarter of BATCH_SIZE)
// - PACE_DELAY: wait after a successful request (default: 1s)
// - FAILURE_DELAY: wait after a failed request (default: 2s)
//
// System Configuration:
// - CHECKPOINT_DB: sqlite checkpoint database path (default: empty, disabled)
// - LOG_LEVEL: debug, info, warn or error (default: info)
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Translate TranslateConfig `yaml:"translate"`
	System    SystemConfig    `yaml:"system"`

	offline bool
}

const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderCompatible = "compatible"
)

// Providers lists the supported backend providers
var Providers = []string{ProviderGemini, ProviderOpenAI, ProviderCompatible}

var defaultModels = map[string]string{
	ProviderGemini:     "gemini-2.5-flash",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderCompatible: "openai/gpt-4o-mini",
}

const defaultCompatibleURL = "https://openrouter.ai/api/v1"

// LLMConfig holds the configuration of the translation backend
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	APIURL      string  `yaml:"api_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	TopK        int     `yaml:"top_k"`
	Timeout     int     `yaml:"timeout"`
	SiteURL     string  `yaml:"site_url"`
	AppName     string  `yaml:"app_name"`
}

// TimeoutDuration returns Timeout as a duration
func (c LLMConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

type TranslateConfig struct {
	TargetLanguage string        `yaml:"target_language"`
	BatchSize      int           `yaml:"batch_size"`
	FallbackSize   int           `yaml:"fallback_size"`
	PaceDelay      time.Duration `yaml:"pace_delay"`
	FailureDelay   time.Duration `yaml:"failure_delay"`
}

type SystemConfig struct {
	CheckpointDB string `yaml:"checkpoint_db"`
	LogLevel     string `yaml:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// Offline skips backend validation, for commands that never call a model
func Offline() Option {
	return func(c *Config) { c.offline = true }
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	return Load("", opts...)
}

// Load reads environment variables, overlays the YAML file at path when
// path is not empty, then applies opts and validates the result.
func Load(path string, opts ...Option) (*Config, error) {
	config := &Config{
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnvString("LLM_PROVIDER", ProviderGemini)),
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", ""),
			Model:       getEnvString("LLM_MODEL", ""),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8192),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 1),
			TopP:        getEnvFloat("LLM_TOP_P", 0.95),
			TopK:        getEnvInt("LLM_TOP_K", 64),
			Timeout:     getEnvInt("LLM_TIMEOUT", 120),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Translate: TranslateConfig{
			TargetLanguage: getEnvString("TARGET_LANGUAGE", "en"),
			BatchSize:      getEnvInt("BATCH_SIZE", 150),
			FallbackSize:   getEnvInt("FALLBACK_BATCH_SIZE", 0),
			PaceDelay:      getEnvDuration("PACE_DELAY", time.Second),
			FailureDelay:   getEnvDuration("FAILURE_DELAY", 2*time.Second),
		},
		System: SystemConfig{
			CheckpointDB: getEnvString("CHECKPOINT_DB", ""),
			LogLevel:     getEnvString("LOG_LEVEL", "info"),
		},
	}

	if path != "" {
		if err := config.overlayFile(path); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		opt(config)
	}

	config.resolveDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: provider=%s model=%s target=%s batch=%d fallback=%d checkpoint=%q",
		config.LLM.Provider, config.LLM.Model, config.Translate.TargetLanguage,
		config.Translate.BatchSize, config.Translate.FallbackSize, config.System.CheckpointDB)

	return config, nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. An empty path loads ./.env
// when it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// resolveDefaults fills values that depend on the chosen provider
func (c *Config) resolveDefaults() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.APIKey = getEnvString("GEMINI_API_KEY", "")
		case ProviderOpenAI:
			c.LLM.APIKey = getEnvString("OPENAI_API_KEY", "")
		}
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.LLM.APIURL == "" && c.LLM.Provider == ProviderCompatible {
		c.LLM.APIURL = defaultCompatibleURL
	}
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if !c.offline {
		if err := c.validateLLM(); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Translate.TargetLanguage) == "" {
		return fmt.Errorf("TARGET_LANGUAGE is required")
	}
	if _, err := language.Parse(c.Translate.TargetLanguage); err != nil {
		return fmt.Errorf("invalid TARGET_LANGUAGE %q: %w", c.Translate.TargetLanguage, err)
	}
	if c.Translate.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be greater than 0")
	}
	if c.Translate.FallbackSize < 0 {
		return fmt.Errorf("FALLBACK_BATCH_SIZE must not be negative")
	}
	if c.Translate.FallbackSize > 0 && c.Translate.FallbackSize >= c.Translate.BatchSize {
		return fmt.Errorf("FALLBACK_BATCH_SIZE must be smaller than BATCH_SIZE")
	}
	if c.Translate.PaceDelay < 0 || c.Translate.FailureDelay < 0 {
		return fmt.Errorf("pacing delays must not be negative")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if _, ok := defaultModels[c.LLM.Provider]; !ok {
		return fmt.Errorf("unknown LLM provider %q (want one of %s)", c.LLM.Provider, strings.Join(Providers, ", "))
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("LLM_MAX_TOKENS must be greater than 0")
	}
	if c.LLM.Timeout < 1 {
		return fmt.Errorf("LLM_TIMEOUT must be greater than 0")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1500ms") or plain seconds ("2")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
