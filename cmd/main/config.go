package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/natefinch/atomic"
)

// Config holds the settings shared by every command.
// Environment variables override the file.
type Config struct {
	LogLevel       string `json:"log_level" env:"THRIVETONES_LOG_LEVEL"`
	DatabasePath   string `json:"database_path" env:"THRIVETONES_DATABASE_PATH"`
	DefaultTable   string `json:"default_table" env:"THRIVETONES_DEFAULT_TABLE"`
	GenerateLength int    `json:"generate_length" env:"THRIVETONES_GENERATE_LENGTH"`
	RNGSeed        uint64 `json:"rng_seed" env:"THRIVETONES_RNG_SEED"` // 0 picks a random seed on every run
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		DatabasePath:   "./data/thrivetones.db",
		DefaultTable:   "default",
		GenerateLength: 8,
		RNGSeed:        0,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path, then
// applies any THRIVETONES_* environment overrides. If the file doesn't exist,
// it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The commands can still run with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err = env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.GenerateLength <= 0 {
		return nil, fmt.Errorf("invalid generate_length %d: must be positive", config.GenerateLength)
	}

	return config, nil
}

// parseLogLevel maps a config level name to a slog.Level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
