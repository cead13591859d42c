package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_CreatesStateDir(t *testing.T) {
	// A fresh workspace has no .claude-pm directory yet; Open must
	// create it rather than failing on the first statement.
	ws := filepath.Join(t.TempDir(), "brand-new-workspace")

	store, err := Open(ws)
	if err != nil {
		t.Fatalf("Open on fresh workspace failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(ws, ".claude-pm", "history.db")); err != nil {
		t.Errorf("history database not created: %v", err)
	}

	op := Operation{OpID: "op-1", Action: "deploy", TargetPath: "/p/CLAUDE.md", Success: true}
	if err := store.Record(context.Background(), op); err != nil {
		t.Fatalf("Record on fresh workspace failed: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	base := time.Now().Add(-time.Minute)
	ops := []Operation{
		{OpID: "op-1", Action: "deploy", TargetPath: "/a/CLAUDE.md", Version: "4.5.1-001", Success: true, CreatedAt: base},
		{OpID: "op-2", Action: "skip", TargetPath: "/a/CLAUDE.md", Reason: "current", Success: true, CreatedAt: base.Add(time.Second)},
		{OpID: "op-3", Action: "deploy", TargetPath: "/b/CLAUDE.md", Version: "4.5.1-001", Success: true, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, op := range ops {
		if err := store.Record(ctx, op); err != nil {
			t.Fatalf("Record(%s) failed: %v", op.OpID, err)
		}
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent returned %d ops, want 3", len(recent))
	}
	// Newest first
	if recent[0].OpID != "op-3" || recent[2].OpID != "op-1" {
		t.Errorf("Recent order wrong: %s, %s, %s", recent[0].OpID, recent[1].OpID, recent[2].OpID)
	}

	if recent[2].Version != "4.5.1-001" || !recent[2].Success {
		t.Errorf("round-tripped op mismatch: %+v", recent[2])
	}
}

func TestRecent_Limit(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Now()
	for i := 0; i < 5; i++ {
		op := Operation{
			OpID:       string(rune('a' + i)),
			Action:     "deploy",
			TargetPath: "/x/CLAUDE.md",
			Success:    true,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Record(ctx, op); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Errorf("Recent(2) returned %d ops", len(recent))
	}
}

func TestForTarget(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, op := range []Operation{
		{OpID: "1", Action: "deploy", TargetPath: "/a/CLAUDE.md", Success: true},
		{OpID: "2", Action: "deploy", TargetPath: "/b/CLAUDE.md", Success: true},
	} {
		if err := store.Record(ctx, op); err != nil {
			t.Fatal(err)
		}
	}

	ops, err := store.ForTarget(ctx, "/a/CLAUDE.md", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].OpID != "1" {
		t.Errorf("ForTarget = %+v", ops)
	}
}
