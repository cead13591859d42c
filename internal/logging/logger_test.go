package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitialize_DisabledWritesNothing(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Settings{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer CloseAll()

	// Convenience funcs are silent no-ops in production mode
	Deploy("should not appear")
	Backup("should not appear")

	if _, err := os.Stat(filepath.Join(ws, ".claude-pm", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory created with debug mode off")
	}
}

func TestInitialize_DebugModeWritesCategoryFiles(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	Deploy("deployed %s", "something")
	DeployDebug("detail line")
	CloseAll()

	dir := filepath.Join(ws, ".claude-pm", "logs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading logs dir: %v", err)
	}

	var deployLog string
	for _, e := range entries {
		if strings.Contains(e.Name(), string(CategoryDeploy)) {
			deployLog = filepath.Join(dir, e.Name())
		}
	}
	if deployLog == "" {
		t.Fatalf("no deploy category log file among %d entries", len(entries))
	}

	data, err := os.ReadFile(deployLog)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "deployed something") {
		t.Errorf("info line missing from log: %q", data)
	}
	if !strings.Contains(string(data), "detail line") {
		t.Errorf("debug line missing at debug level: %q", data)
	}
}

func TestInitialize_LevelFiltersDebug(t *testing.T) {
	ws := t.TempDir()
	if err := Initialize(ws, Settings{DebugMode: true, Level: "info"}); err != nil {
		t.Fatal(err)
	}

	Deploy("info line")
	DeployDebug("debug line")
	CloseAll()

	dir := filepath.Join(ws, ".claude-pm", "logs")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if !strings.Contains(e.Name(), string(CategoryDeploy)) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "debug line") {
			t.Error("debug line written at info level")
		}
		if !strings.Contains(string(data), "info line") {
			t.Error("info line missing at info level")
		}
	}
}

func TestCategoryToggle(t *testing.T) {
	ws := t.TempDir()
	err := Initialize(ws, Settings{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{string(CategoryDeploy): false},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryDeploy) {
		t.Error("explicitly disabled category reported enabled")
	}
	if !IsCategoryEnabled(CategoryBackup) {
		t.Error("unlisted category should default to enabled")
	}
}
