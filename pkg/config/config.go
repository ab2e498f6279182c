package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete gateway configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FILEGATE_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Policy defines the access rules enforced on every operation
	Policy PolicyConfig `mapstructure:"policy"`

	// RateLimit configures request admission
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Metrics configures the optional Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stderr, or a file path. stdout is rejected because it
	// carries the response stream.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// PolicyConfig defines the access rules applied to every request.
//
// All paths must be absolute. An empty allowed_paths list means no path
// restriction; denied_paths always win over allowed_paths.
type PolicyConfig struct {
	// AllowedPaths lists directory roots operations are confined to
	AllowedPaths []string `mapstructure:"allowed_paths"`

	// DeniedPaths lists directory roots always refused, even under an
	// allowed root
	DeniedPaths []string `mapstructure:"denied_paths"`

	// AllowedExtensions restricts file operations to these extensions
	// (empty means all). Entries are case-insensitive, leading dot optional.
	AllowedExtensions []string `mapstructure:"allowed_extensions"`

	// DeniedExtensions lists extensions always refused for file operations
	DeniedExtensions []string `mapstructure:"denied_extensions"`

	// MaxFileSize is the per-file byte ceiling (0 means unlimited)
	MaxFileSize int64 `mapstructure:"max_file_size" validate:"gte=0"`

	// AllowSymlinks permits operations on and through symbolic links
	AllowSymlinks bool `mapstructure:"allow_symlinks"`

	// AllowHiddenFiles permits operations on dot-prefixed entries
	AllowHiddenFiles bool `mapstructure:"allow_hidden_files"`

	// ReadOnly refuses every state-changing operation
	ReadOnly bool `mapstructure:"read_only"`
}

// RateLimitConfig configures the request admission bucket.
//
// RequestsPerSecond zero with Burst zero disables limiting entirely;
// RequestsPerSecond zero with a positive Burst admits exactly Burst
// requests for the process lifetime.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained admission rate
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the bucket capacity
	Burst uint `mapstructure:"burst"`
}

// MetricsConfig configures the optional Prometheus scrape endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection on
	Enabled bool `mapstructure:"enabled"`

	// Listen is the address the /metrics endpoint binds to
	// Only used when Enabled is true
	Listen string `mapstructure:"listen"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FILEGATE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use FILEGATE_ prefix and underscores
	// Example: FILEGATE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FILEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/filegate/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to
// current directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "filegate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "filegate")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
