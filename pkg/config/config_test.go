package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9090" {
		t.Errorf("Expected default metrics listen address, got %q", cfg.Metrics.Listen)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	// Point the search path at an empty directory
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without config file should succeed, got: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %q", cfg.Logging.Level)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
  format: "json"
  output: "/var/log/filegate.log"

policy:
  allowed_paths: ["/srv/data"]
  denied_paths: ["/srv/data/secrets"]
  denied_extensions: ["key", "pem"]
  max_file_size: 1048576
  read_only: true

rate_limit:
  requests_per_second: 50
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level DEBUG, got %q", cfg.Logging.Level)
	}
	if len(cfg.Policy.AllowedPaths) != 1 || cfg.Policy.AllowedPaths[0] != "/srv/data" {
		t.Errorf("Unexpected allowed_paths: %v", cfg.Policy.AllowedPaths)
	}
	if cfg.Policy.MaxFileSize != 1048576 {
		t.Errorf("Expected max_file_size 1048576, got %d", cfg.Policy.MaxFileSize)
	}
	if !cfg.Policy.ReadOnly {
		t.Error("Expected read_only true")
	}
	if cfg.RateLimit.RequestsPerSecond != 50 {
		t.Errorf("Expected requests_per_second 50, got %d", cfg.RateLimit.RequestsPerSecond)
	}
	// Burst defaults to the rate when unset
	if cfg.RateLimit.Burst != 50 {
		t.Errorf("Expected burst defaulted to 50, got %d", cfg.RateLimit.Burst)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("FILEGATE_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Environment variable should override file, got %q", cfg.Logging.Level)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging: [not a map"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for malformed config file")
	}
}
