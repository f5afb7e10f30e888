package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Rules   RulesConfig   `mapstructure:"rules"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// SandboxConfig holds the execution engine's ceilings and process settings.
// The max_* values are the platform ceilings a request's hints are clamped
// to; a caller can never exceed them.
type SandboxConfig struct {
	PythonCommand         string  `mapstructure:"python_command"`
	HelperPath            string  `mapstructure:"helper_path"`
	ScratchDir            string  `mapstructure:"scratch_dir"`
	DefaultTimeoutSeconds float64 `mapstructure:"default_timeout_seconds"`
	MaxTimeoutSeconds     float64 `mapstructure:"max_timeout_seconds"`
	DefaultMemoryBytes    int64   `mapstructure:"default_memory_bytes"`
	MaxMemoryBytes        int64   `mapstructure:"max_memory_bytes"`
	MaxOutputBytes        int64   `mapstructure:"max_output_bytes"`
	MaxStdinBytes         int64   `mapstructure:"max_stdin_bytes"`
	MaxProcs              int64   `mapstructure:"max_procs"`
}

// RulesConfig extends the built-in denylist without code changes.
type RulesConfig struct {
	File          string   `mapstructure:"file"`
	ExtraModules  []string `mapstructure:"extra_modules"`
	ExtraBuiltins []string `mapstructure:"extra_builtins"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("sandbox.python_command", "python3 -I -B")
	viper.SetDefault("sandbox.helper_path", "sandbox-init")
	viper.SetDefault("sandbox.scratch_dir", "")
	viper.SetDefault("sandbox.default_timeout_seconds", 5.0)
	viper.SetDefault("sandbox.max_timeout_seconds", 10.0)
	viper.SetDefault("sandbox.default_memory_bytes", 50*1024*1024)
	viper.SetDefault("sandbox.max_memory_bytes", 256*1024*1024)
	viper.SetDefault("sandbox.max_output_bytes", 64*1024)
	viper.SetDefault("sandbox.max_stdin_bytes", 1024*1024)
	viper.SetDefault("sandbox.max_procs", 16)

	viper.SetDefault("rules.file", "")
	viper.SetDefault("rules.extra_modules", []string{})
	viper.SetDefault("rules.extra_builtins", []string{})

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Sandbox.PythonCommand == "" {
		return fmt.Errorf("sandbox.python_command must not be empty")
	}

	if c.Sandbox.DefaultTimeoutSeconds <= 0 {
		return fmt.Errorf("sandbox.default_timeout_seconds must be positive, got: %g", c.Sandbox.DefaultTimeoutSeconds)
	}

	if c.Sandbox.MaxTimeoutSeconds < c.Sandbox.DefaultTimeoutSeconds {
		return fmt.Errorf("sandbox.max_timeout_seconds (%g) must not be below the default (%g)",
			c.Sandbox.MaxTimeoutSeconds, c.Sandbox.DefaultTimeoutSeconds)
	}

	if c.Sandbox.DefaultMemoryBytes <= 0 {
		return fmt.Errorf("sandbox.default_memory_bytes must be positive, got: %d", c.Sandbox.DefaultMemoryBytes)
	}

	if c.Sandbox.MaxMemoryBytes < c.Sandbox.DefaultMemoryBytes {
		return fmt.Errorf("sandbox.max_memory_bytes (%d) must not be below the default (%d)",
			c.Sandbox.MaxMemoryBytes, c.Sandbox.DefaultMemoryBytes)
	}

	if c.Sandbox.MaxOutputBytes <= 0 {
		return fmt.Errorf("sandbox.max_output_bytes must be positive, got: %d", c.Sandbox.MaxOutputBytes)
	}

	if c.Sandbox.MaxProcs <= 0 {
		return fmt.Errorf("sandbox.max_procs must be positive, got: %d", c.Sandbox.MaxProcs)
	}

	return nil
}

// GetDefaultTimeout returns the default execution timeout as a duration
func (c *Config) GetDefaultTimeout() time.Duration {
	return time.Duration(c.Sandbox.DefaultTimeoutSeconds * float64(time.Second))
}
