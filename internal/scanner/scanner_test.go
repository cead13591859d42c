package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"claudepm/internal/template"
)

func deploymentContent(version string) string {
	return strings.Join([]string{
		template.DeploymentTitle,
		"<!--",
		"CLAUDE_MD_VERSION: " + version,
		"FRAMEWORK_VERSION: 4.5.1",
		"DEPLOYMENT_DATE: 2026-08-29T10:00:00Z",
		"-->",
	}, "\n")
}

func writeDeployment(t *testing.T, dir, version string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "CLAUDE.md")
	if err := os.WriteFile(path, []byte(deploymentContent(version)), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScan_FindsFileInRootAndParents(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	topPath := writeDeployment(t, base, "4.5.1-001")
	deepPath := writeDeployment(t, nested, "4.5.1-002")

	sc := New("CLAUDE.md")
	found, err := sc.Scan(context.Background(), []string{nested})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	paths := make(map[string]Found)
	for _, f := range found {
		paths[f.Path] = f
	}
	if _, ok := paths[deepPath]; !ok {
		t.Errorf("deep deployment %s not found", deepPath)
	}
	if _, ok := paths[topPath]; !ok {
		t.Errorf("parent deployment %s not found", topPath)
	}
	if f := paths[deepPath]; !f.IsTemplate || f.Version != "4.5.1-002" {
		t.Errorf("deep classification wrong: %+v", f)
	}
}

func TestScan_ClassifiesNonTemplates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "CLAUDE.md")
	if err := os.WriteFile(path, []byte("# My own notes\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sc := New("CLAUDE.md")
	found, err := sc.Scan(context.Background(), []string{dir})
	if err != nil {
		t.Fatal(err)
	}

	var hit *Found
	for i := range found {
		if found[i].Path == path {
			hit = &found[i]
		}
	}
	if hit == nil {
		t.Fatal("file not found by scan")
	}
	if hit.IsTemplate {
		t.Error("plain file classified as template")
	}
	if hit.Version != "" {
		t.Errorf("plain file has version %q", hit.Version)
	}
}

func TestScan_DeduplicatesOverlappingRoots(t *testing.T) {
	base := t.TempDir()
	writeDeployment(t, base, "4.5.1-001")
	sub1 := filepath.Join(base, "x")
	sub2 := filepath.Join(base, "y")
	if err := os.MkdirAll(sub1, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(sub2, 0755); err != nil {
		t.Fatal(err)
	}

	sc := New("CLAUDE.md")
	found, err := sc.Scan(context.Background(), []string{sub1, sub2})
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, f := range found {
		if f.Dir == base {
			count++
		}
	}
	if count != 1 {
		t.Errorf("shared parent deployment reported %d times, want 1", count)
	}
}

func TestDedup_KeepsRootmost(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "a", "b")

	top := Found{Path: filepath.Join(base, "CLAUDE.md"), Dir: base, IsTemplate: true}
	deep := Found{Path: filepath.Join(nested, "CLAUDE.md"), Dir: nested, IsTemplate: true}
	other := Found{Path: "/elsewhere/CLAUDE.md", Dir: "/elsewhere", IsTemplate: true}

	res := Dedup([]Found{deep, top, other})

	if len(res.Keep) != 2 {
		t.Fatalf("Keep has %d entries, want 2: %+v", len(res.Keep), res.Keep)
	}
	if len(res.Duplicates) != 1 || res.Duplicates[0].Dir != nested {
		t.Errorf("Duplicates = %+v, want the nested deployment", res.Duplicates)
	}
}

func TestDedup_IgnoresNonTemplates(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "sub")

	top := Found{Path: filepath.Join(base, "CLAUDE.md"), Dir: base, IsTemplate: false}
	deep := Found{Path: filepath.Join(nested, "CLAUDE.md"), Dir: nested, IsTemplate: true}

	res := Dedup([]Found{top, deep})
	if len(res.Keep) != 1 || res.Keep[0].Dir != nested {
		t.Errorf("Keep = %+v, want only the template", res.Keep)
	}
	if len(res.Duplicates) != 0 {
		t.Errorf("non-template ancestor must not shadow: %+v", res.Duplicates)
	}
}
