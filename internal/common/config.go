package common

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	OCR      OCRConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Store    StoreConfig
	Server   ServerConfig
}

// OCRConfig selects and configures the OCR adapter.
type OCRConfig struct {
	Provider     string // "azure" | "pdftext"
	Endpoint     string
	APIKey       string
	APIVersion   string
	PollInterval time.Duration
	Timeout      time.Duration
}

// LLMConfig selects and configures the language-model adapter.
type LLMConfig struct {
	Provider    string // "openai" | "gemini"
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds batch behavior knobs.
type PipelineConfig struct {
	Workers      int    // 1 = strict sequential processing
	ArtifactDir  string // where per-document JSON artifacts land
	RetryBackoff time.Duration
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	DSN string // sqlite path/":memory:" or postgres URL; empty disables persistence
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string
	MaxUploadMB  int
	AllowOrigins string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		OCR: OCRConfig{
			Provider:     getEnv("OCR_PROVIDER", "pdftext"),
			Endpoint:     getEnv("DOCUMENTINTELLIGENCE_ENDPOINT", ""),
			APIKey:       getEnv("DOCUMENTINTELLIGENCE_API_KEY", ""),
			APIVersion:   getEnv("DOCUMENTINTELLIGENCE_API_VERSION", "2023-07-31"),
			PollInterval: getEnvAsDuration("OCR_POLL_INTERVAL", 2*time.Second),
			Timeout:      getEnvAsDuration("OCR_TIMEOUT", 90*time.Second),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "openai"),
			Model:       getEnv("LLM_MODEL", ""), // adapters default per provider
			APIKey:      getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:      getEnvAsInt("PIPELINE_WORKERS", 1),
			ArtifactDir:  getEnv("ARTIFACT_DIR", "./out"),
			RetryBackoff: getEnvAsDuration("RETRY_BACKOFF", 2*time.Second),
		},
		Store: StoreConfig{
			DSN: getEnv("STORE_DSN", ""),
		},
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", ":8080"),
			MaxUploadMB:  getEnvAsInt("MAX_UPLOAD_MB", 32),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
	}
}

// Validate checks the parts of the configuration that have no usable default.
func (c *Config) Validate() error {
	if c.OCR.Provider == "azure" && (c.OCR.Endpoint == "" || c.OCR.APIKey == "") {
		return errors.New("azure OCR requires DOCUMENTINTELLIGENCE_ENDPOINT and DOCUMENTINTELLIGENCE_API_KEY")
	}
	if os.Getenv("LLM_PROVIDER") != "" && c.LLM.APIKey == "" {
		return errors.New("LLM_API_KEY is required when LLM_PROVIDER is set")
	}
	if c.Pipeline.Workers < 1 {
		c.Pipeline.Workers = 1
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
