// Package config handles claude-pm configuration loading and validation
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete claude-pm configuration
type Config struct {
	// Framework settings
	Framework FrameworkConfig `yaml:"framework"`

	// Deployment settings
	Deployment DeploymentConfig `yaml:"deployment"`

	// Backup retention and rotation
	Backup BackupConfig `yaml:"backup"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// FrameworkConfig locates the framework source tree
type FrameworkConfig struct {
	// Path is the framework root directory. Overridden by
	// CLAUDE_PM_FRAMEWORK_PATH when set.
	Path string `yaml:"path"`

	// FallbackVersion is used when no VERSION file is present
	FallbackVersion string `yaml:"fallback_version"`
}

// DeploymentConfig controls template deployment behavior
type DeploymentConfig struct {
	// TargetFilename is the name of the deployed file in target directories
	TargetFilename string `yaml:"target_filename"`

	// TemplatePath is the template location relative to the framework root
	TemplatePath string `yaml:"template_path"`

	// QuietMode suppresses informational output
	QuietMode bool `yaml:"quiet_mode"`
}

// BackupConfig controls backup retention
type BackupConfig struct {
	// AutoBackup creates a backup before every overwrite
	AutoBackup bool `yaml:"auto_backup"`

	// RetentionDays is how long timestamped backups are kept
	RetentionDays int `yaml:"retention_days"`

	// FrameworkKeep is how many rotating framework template backups to keep
	FrameworkKeep int `yaml:"framework_keep"`
}

// LoggingConfig controls the categorized file logger
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			Path:            "",
			FallbackVersion: "4.5.1",
		},
		Deployment: DeploymentConfig{
			TargetFilename: "CLAUDE.md",
			TemplatePath:   filepath.Join("framework", "CLAUDE.md"),
			QuietMode:      false,
		},
		Backup: BackupConfig{
			AutoBackup:    true,
			RetentionDays: 30,
			FrameworkKeep: 2,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads configuration from the given path, falling back to defaults
// for missing values. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the given path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies CLAUDE_PM_* environment variables
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLAUDE_PM_FRAMEWORK_PATH"); v != "" {
		c.Framework.Path = v
	}
	if v := os.Getenv("CLAUDE_PM_QUIET_MODE"); v != "" {
		c.Deployment.QuietMode = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CLAUDE_PM_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || strings.EqualFold(v, "true")
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Deployment.TargetFilename == "" {
		return fmt.Errorf("deployment.target_filename must not be empty")
	}
	if strings.ContainsAny(c.Deployment.TargetFilename, `/\`) {
		return fmt.Errorf("deployment.target_filename must be a bare filename, got %q", c.Deployment.TargetFilename)
	}
	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup.retention_days must not be negative, got %d", c.Backup.RetentionDays)
	}
	if c.Backup.FrameworkKeep < 1 {
		return fmt.Errorf("backup.framework_keep must be at least 1, got %d", c.Backup.FrameworkKeep)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}

// FrameworkPath resolves the framework root directory. Resolution order:
// explicit config value (already env-overridden), then the deployment
// directory env var, then the current working directory.
func (c *Config) FrameworkPath() string {
	if c.Framework.Path != "" {
		return c.Framework.Path
	}
	if v := os.Getenv("CLAUDE_PM_DEPLOYMENT_DIR"); v != "" {
		return v
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// FrameworkVersion reads the framework VERSION file, falling back to the
// configured fallback version when the file is missing or empty.
func (c *Config) FrameworkVersion() string {
	versionPath := filepath.Join(c.FrameworkPath(), "VERSION")
	data, err := os.ReadFile(versionPath)
	if err == nil {
		v := strings.TrimSpace(string(data))
		if v != "" {
			return v
		}
	}
	if c.Framework.FallbackVersion != "" {
		return c.Framework.FallbackVersion
	}
	return "4.5.1"
}

// TemplateFile returns the absolute path to the framework master template
func (c *Config) TemplateFile() string {
	return filepath.Join(c.FrameworkPath(), c.Deployment.TemplatePath)
}

// DotDir returns the claude-pm state directory under the given workspace
func DotDir(workspace string) string {
	return filepath.Join(workspace, ".claude-pm")
}

// DefaultConfigPath returns the config file path for a workspace
func DefaultConfigPath(workspace string) string {
	return filepath.Join(DotDir(workspace), "config.yaml")
}
