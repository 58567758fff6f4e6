package config

import (
	"fmt"
	"os"
	"strconv"

	"vpass/internal/logger"
)

type Config struct {
	// Google Cloud Configuration (OCR backends)
	GoogleCloudProject  string
	GoogleCloudLocation string
	OCRProcessorID      string
	OCRBackend          string // "vision" or "documentai"

	// Passport store
	StorePath string

	// Sealing key material (PEM, supplied out-of-band)
	SigningKeyPath string
	SigningKeyID   string
	VerifyKeyPath  string

	// Odometer plausibility bounds (km)
	OdometerMinKM int64
	OdometerMaxKM int64

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		GoogleCloudProject:  getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation: getEnv("GOOGLE_CLOUD_LOCATION", "eu"),
		OCRProcessorID:      getEnv("OCR_PROCESSOR_ID", ""),
		OCRBackend:          getEnv("OCR_BACKEND", "vision"),
		StorePath:           getEnv("PASSPORT_STORE_PATH", "passports.db"),
		SigningKeyPath:      getEnv("SEAL_SIGNING_KEY", ""),
		SigningKeyID:        getEnv("SEAL_KEY_ID", "default"),
		VerifyKeyPath:       getEnv("SEAL_VERIFY_KEY", ""),
		OdometerMinKM:       getEnvInt64("ODOMETER_MIN_KM", 5000),
		OdometerMaxKM:       getEnvInt64("ODOMETER_MAX_KM", 2000000),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:       getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:           getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.OCRBackend != "vision" && c.OCRBackend != "documentai" {
		return fmt.Errorf("OCR_BACKEND must be \"vision\" or \"documentai\", got %q", c.OCRBackend)
	}
	if c.OCRBackend == "documentai" && c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai backend")
	}
	if c.OdometerMinKM < 0 || c.OdometerMaxKM <= c.OdometerMinKM {
		return fmt.Errorf("odometer bounds invalid: min=%d max=%d", c.OdometerMinKM, c.OdometerMaxKM)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
