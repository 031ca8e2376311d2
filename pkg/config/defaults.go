package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ark-builders/ark/internal/bytesize"
)

// ApplyDefaults fills in any unspecified configuration fields with
// sensible defaults. Zero values are replaced; explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyHashDefaults(&cfg.Hash)
	applyStorageDefaults(&cfg.Storage)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyHashDefaults(cfg *HashConfig) {
	if cfg.Variant == "" {
		cfg.Variant = "crypto"
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.MaxMemoryItems == 0 {
		cfg.MaxMemoryItems = bytesize.ByteSize(10_000)
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = 2 * time.Second
	}
}

// GetDefaultConfig returns a Config populated entirely with defaults
// and no roots.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Validate checks cfg for the required fields and enumerations the
// mapstructure tags document.
func Validate(cfg *Config) error {
	switch strings.ToUpper(cfg.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	if cfg.Logging.Output == "" {
		return fmt.Errorf("logging.output is required")
	}

	switch cfg.Hash.Variant {
	case "crypto", "noncrypto":
	default:
		return fmt.Errorf("hash.variant must be crypto or noncrypto, got %q", cfg.Hash.Variant)
	}

	for _, root := range cfg.Roots {
		if root.Path == "" {
			return fmt.Errorf("roots: path is required")
		}
	}

	return nil
}
