package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// GetDefaultConfig returns a configuration populated entirely from
// defaults, suitable for generating a starter config file.
func GetDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Server: ServerConfig{
			ShutdownTimeout: 30 * time.Second,
		},
		Policy: PolicyConfig{
			MaxFileSize: 10 * 1024 * 1024,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             100,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9090",
		},
	}
}

// InitConfig writes a commented starter configuration to the default
// location.
//
// Returns the path written. Fails if the file already exists unless force
// is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a commented starter configuration to an
// explicit path, creating parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders the configuration as annotated YAML.
//
// The template is written by hand rather than marshalled so every section
// carries its documentation; the result must stay loadable by Load.
func generateYAMLWithComments(cfg *Config) (string, error) {
	out := fmt.Sprintf(`# Filegate Configuration File
#
# Values can be overridden with FILEGATE_-prefixed environment variables,
# e.g. FILEGATE_LOGGING_LEVEL=DEBUG.

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: %q
  # Output format: text or json
  format: %q
  # Log destination: stderr or a file path (stdout carries responses)
  output: %q

server:
  # Maximum time to wait for the in-flight request on shutdown
  shutdown_timeout: %s

policy:
  # Directory roots operations are confined to (absolute paths).
  # Empty means no path restriction.
  allowed_paths: []
  # Directory roots always refused, even under an allowed root
  denied_paths: []
  # File extensions permitted for file operations (empty means all)
  allowed_extensions: []
  # File extensions always refused
  denied_extensions: []
  # Per-file size ceiling in bytes (0 means unlimited)
  max_file_size: %d
  # Permit operations on and through symbolic links
  allow_symlinks: false
  # Permit operations on dot-prefixed entries
  allow_hidden_files: false
  # Refuse every state-changing operation
  read_only: false

rate_limit:
  # Sustained request admission rate (0 disables limiting when burst is 0)
  requests_per_second: %d
  # Bucket capacity
  burst: %d

metrics:
  # Expose Prometheus metrics over HTTP
  enabled: %v
  # Address for the /metrics endpoint
  listen: %q
`,
		cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output,
		cfg.Server.ShutdownTimeout,
		cfg.Policy.MaxFileSize,
		cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst,
		cfg.Metrics.Enabled, cfg.Metrics.Listen,
	)
	return out, nil
}
