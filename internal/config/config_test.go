package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Deployment.TargetFilename != "CLAUDE.md" {
		t.Errorf("expected TargetFilename=CLAUDE.md, got %s", cfg.Deployment.TargetFilename)
	}
	if cfg.Backup.RetentionDays != 30 {
		t.Errorf("expected RetentionDays=30, got %d", cfg.Backup.RetentionDays)
	}
	if cfg.Backup.FrameworkKeep != 2 {
		t.Errorf("expected FrameworkKeep=2, got %d", cfg.Backup.FrameworkKeep)
	}
	if !cfg.Backup.AutoBackup {
		t.Error("expected AutoBackup=true")
	}
	if cfg.Framework.FallbackVersion != "4.5.1" {
		t.Errorf("expected FallbackVersion=4.5.1, got %s", cfg.Framework.FallbackVersion)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("CLAUDE_PM_FRAMEWORK_PATH", "")
	t.Setenv("CLAUDE_PM_QUIET_MODE", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Framework.Path = "/opt/framework"
	cfg.Backup.RetentionDays = 7

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Framework.Path != "/opt/framework" {
		t.Errorf("expected Path=/opt/framework, got %s", loaded.Framework.Path)
	}
	if loaded.Backup.RetentionDays != 7 {
		t.Errorf("expected RetentionDays=7, got %d", loaded.Backup.RetentionDays)
	}
}

func TestConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CLAUDE_PM_FRAMEWORK_PATH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if cfg.Deployment.TargetFilename != "CLAUDE.md" {
		t.Errorf("defaults not applied: %s", cfg.Deployment.TargetFilename)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CLAUDE_PM_FRAMEWORK_PATH", "/env/framework")
	t.Setenv("CLAUDE_PM_QUIET_MODE", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Framework.Path != "/env/framework" {
		t.Errorf("env override not applied: %s", cfg.Framework.Path)
	}
	if !cfg.Deployment.QuietMode {
		t.Error("quiet mode env override not applied")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Deployment.TargetFilename = "sub/CLAUDE.md"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for path-like target filename")
	}

	cfg = DefaultConfig()
	cfg.Backup.RetentionDays = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative retention")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bogus log level")
	}
}

func TestFrameworkVersion(t *testing.T) {
	t.Setenv("CLAUDE_PM_FRAMEWORK_PATH", "")
	t.Setenv("CLAUDE_PM_DEPLOYMENT_DIR", "")

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Framework.Path = dir

	// No VERSION file: fallback
	if got := cfg.FrameworkVersion(); got != "4.5.1" {
		t.Errorf("fallback version = %s", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "VERSION"), []byte("5.2.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := cfg.FrameworkVersion(); got != "5.2.0" {
		t.Errorf("version = %s, want 5.2.0", got)
	}
}

func TestFrameworkPath_DeploymentDirEnv(t *testing.T) {
	t.Setenv("CLAUDE_PM_FRAMEWORK_PATH", "")
	t.Setenv("CLAUDE_PM_DEPLOYMENT_DIR", "/deploy/root")

	cfg := DefaultConfig()
	if got := cfg.FrameworkPath(); got != "/deploy/root" {
		t.Errorf("FrameworkPath = %s, want /deploy/root", got)
	}
}

func TestTemplateFile(t *testing.T) {
	t.Setenv("CLAUDE_PM_FRAMEWORK_PATH", "")
	t.Setenv("CLAUDE_PM_DEPLOYMENT_DIR", "")

	cfg := DefaultConfig()
	cfg.Framework.Path = "/opt/fw"
	want := filepath.Join("/opt/fw", "framework", "CLAUDE.md")
	if got := cfg.TemplateFile(); got != want {
		t.Errorf("TemplateFile = %s, want %s", got, want)
	}
}
