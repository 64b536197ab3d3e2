package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	LLM   LLMConfig
	OCR   OCRConfig
	Agent AgentConfig
	Store StoreConfig
}

// LLMConfig holds language-model-related configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // "tesseract" (exec) | "gosseract" (in-process)
	Pdftotext     string
	Pdftoppm      string
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	DPI           int
	PSM           int
	Workers       int
	Timeout       time.Duration
}

// AgentConfig bounds the tool-calling loop
type AgentConfig struct {
	MaxToolCalls int
	MaxRetries   int
}

// StoreConfig holds result-store configuration
type StoreConfig struct {
	DBPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "tesseract"),
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 200),
			PSM:           getEnvAsInt("OCR_PSM", 6),
			Workers:       getEnvAsInt("OCR_WORKERS", 4),
			Timeout:       getEnvAsDuration("OCR_TIMEOUT", 2*time.Minute),
		},
		Agent: AgentConfig{
			MaxToolCalls: getEnvAsInt("AGENT_MAX_TOOL_CALLS", 16),
			MaxRetries:   getEnvAsInt("AGENT_MAX_RETRIES", 3),
		},
		Store: StoreConfig{
			DBPath: getEnv("DB_PATH", ""),
		},
	}
}

// Helper functions for environment variable parsing
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

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.OCR.Engine != "tesseract" && c.OCR.Engine != "gosseract" {
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be tesseract or gosseract", ErrInvalidInput)
	}
	if c.Agent.MaxToolCalls <= 0 || c.Agent.MaxRetries < 0 {
		return NewAppError("CONFIG_ERROR", "agent budgets must be positive", ErrInvalidInput)
	}
	return nil
}
