package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "CLAUDE.md")
	if err := os.WriteFile(templatePath, []byte("template"), 0644); err != nil {
		t.Fatal(err)
	}

	tw, err := NewTemplateWatcher(templatePath, nil)
	if err != nil {
		t.Fatalf("NewTemplateWatcher failed: %v", err)
	}
	if err := tw.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	tw.Stop()

	// Double stop is safe
	tw.Stop()
}

func TestWatcher_TriggersRedeployOnChange(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "CLAUDE.md")
	if err := os.WriteFile(templatePath, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	redeploy := func(ctx context.Context, path string) {
		if path == templatePath {
			calls.Add(1)
		}
	}

	tw, err := NewTemplateWatcher(templatePath, redeploy)
	if err != nil {
		t.Fatal(err)
	}
	tw.debounceDur = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tw.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer tw.Stop()

	if err := os.WriteFile(templatePath, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("redeploy callback never fired")
		case <-time.After(20 * time.Millisecond):
		}
	}

	stats := tw.Snapshot()
	if stats.TemplateModified == 0 {
		t.Error("stats did not record the template change")
	}
	if stats.RedeploysTriggered == 0 {
		t.Error("stats did not record the redeploy")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	templatePath := filepath.Join(dir, "CLAUDE.md")
	if err := os.WriteFile(templatePath, []byte("template"), 0644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	tw, err := NewTemplateWatcher(templatePath, func(ctx context.Context, path string) {
		calls.Add(1)
	})
	if err != nil {
		t.Fatal(err)
	}
	tw.debounceDur = 50 * time.Millisecond

	if err := tw.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer tw.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.md"), []byte("noise"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("callback fired %d times for unrelated file", calls.Load())
	}
}
