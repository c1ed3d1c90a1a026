package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kvasir-lab/doctrans/internal/job"
	"github.com/kvasir-lab/doctrans/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// LLM Configuration:
// - LLM_PROVIDER: Provider name: openai, openrouter, gemini, ollama (default: openrouter)
// - LLM_API_KEY: API key for the LLM provider (required for cloud providers)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 8000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Request timeout in seconds (default: 120)
// - LLM_RATE_LIMIT: Max requests per second, 0 disables the gate (default: 0)
// - LLM_CONTEXT_TOKENS: Model context window for adaptive chunk sizing (default: 0)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// Translation Configuration:
// - TARGET_LANGUAGE: Target language (required unless given on the command line)
// - SOURCE_LANGUAGE: Source language (default: auto-detected)
// - CHUNK_SIZE: Target words per chunk (default: 350)
// - CHUNK_MIN_SIZE: Adaptive sizing floor in words (default: 80)
// - CHUNK_MAX_SIZE: Adaptive sizing ceiling in words (default: 600)
// - MAX_ATTEMPTS: Translation attempts per chunk (default: 3)
// - RETRY_DELAY: Seconds between attempts (default: 5)
// - RETRY_BACKOFF: fixed or exponential (default: fixed)
// - CONTEXT_CHUNKS: Prior chunks kept as preceding context (default: 2)
// - CONTEXT_TAIL_WORDS: Tail words retained per context chunk (default: 40)
//
// Storage Configuration:
// - DATA_DIR: Root for checkpoints and the job database (default: ./data)
//
// Watch Configuration:
// - WATCH_DIR: Directory scanned for new input files (optional; watch disabled when empty)
// - WATCH_CRON_EXPR: Scan schedule (default: */10 * * * *)
// - WATCH_OUTPUT_DIR: Where scanned jobs write output (default: WATCH_DIR)

type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	Storage   StorageConfig   `json:"storage"`
	Watch     WatchConfig     `json:"watch"`
}

// LLMConfig holds the configuration for the provider gateway.
type LLMConfig struct {
	Provider      string  `json:"provider"`
	APIKey        string  `json:"api_key"`
	APIURL        string  `json:"api_url"`
	Model         string  `json:"model"`
	MaxTokens     int     `json:"max_tokens"`
	Temperature   float64 `json:"temperature"`
	Timeout       int     `json:"timeout"`
	RateLimit     float64 `json:"rate_limit"`
	ContextTokens int     `json:"context_tokens"`
	SiteURL       string  `json:"site_url"`
	AppName       string  `json:"app_name"`
}

type TranslateConfig struct {
	TargetLanguage string       `json:"target_language"`
	SourceLanguage string       `json:"source_language"`
	Tunables       job.Tunables `json:"tunables"`
}

type StorageConfig struct {
	DataDir string `json:"data_dir"`
}

// CheckpointDir is where checkpoint files live under the data root.
func (c StorageConfig) CheckpointDir() string {
	return filepath.Join(c.DataDir, "checkpoints")
}

// DatabasePath is the SQLite job registry file.
func (c StorageConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "doctrans.db")
}

type WatchConfig struct {
	Dir       string `json:"dir"`
	CronExpr  string `json:"cron_expr"`
	OutputDir string `json:"output_dir"`
}

func (c WatchConfig) Enabled() bool {
	return c.Dir != ""
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options. A .env file in the working directory is loaded
// first when present.
func NewFromEnv(opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded configuration from .env file")
	}

	config := &Config{
		LLM: LLMConfig{
			Provider:      getEnvString("LLM_PROVIDER", "openrouter"),
			APIKey:        getEnvString("LLM_API_KEY", ""),
			APIURL:        getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:         getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:     getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature:   getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:       getEnvInt("LLM_TIMEOUT", 120),
			RateLimit:     getEnvFloat("LLM_RATE_LIMIT", 0),
			ContextTokens: getEnvInt("LLM_CONTEXT_TOKENS", 0),
			SiteURL:       getEnvString("LLM_SITE_URL", ""),
			AppName:       getEnvString("LLM_APP_NAME", ""),
		},
		Translate: TranslateConfig{
			TargetLanguage: getEnvString("TARGET_LANGUAGE", ""),
			SourceLanguage: getEnvString("SOURCE_LANGUAGE", ""),
			Tunables: job.Tunables{
				ChunkSize:          getEnvInt("CHUNK_SIZE", 0),
				MinChunkSize:       getEnvInt("CHUNK_MIN_SIZE", 0),
				MaxChunkSize:       getEnvInt("CHUNK_MAX_SIZE", 0),
				Timeout:            time.Duration(getEnvInt("LLM_TIMEOUT", 120)) * time.Second,
				MaxAttempts:        getEnvInt("MAX_ATTEMPTS", 0),
				RetryDelay:         time.Duration(getEnvInt("RETRY_DELAY", 5)) * time.Second,
				Backoff:            job.BackoffMode(getEnvString("RETRY_BACKOFF", "fixed")),
				ContextChunks:      getEnvInt("CONTEXT_CHUNKS", 0),
				ContextTailWords:   getEnvInt("CONTEXT_TAIL_WORDS", 0),
				ModelContextTokens: getEnvInt("LLM_CONTEXT_TOKENS", 0),
			}.WithDefaults(),
		},
		Storage: StorageConfig{
			DataDir: getEnvString("DATA_DIR", "./data"),
		},
		Watch: WatchConfig{
			Dir:       getEnvString("WATCH_DIR", ""),
			CronExpr:  getEnvString("WATCH_CRON_EXPR", "*/10 * * * *"),
			OutputDir: getEnvString("WATCH_OUTPUT_DIR", ""),
		},
	}
	if config.Watch.OutputDir == "" {
		config.Watch.OutputDir = config.Watch.Dir
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required for provider %s", c.LLM.Provider)
	}
	switch c.Translate.Tunables.Backoff {
	case job.BackoffFixed, job.BackoffExponential:
	default:
		return fmt.Errorf("RETRY_BACKOFF must be fixed or exponential, got %q", c.Translate.Tunables.Backoff)
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
