// Package registry tracks directories under framework template management
// in a JSON registry at .claude-pm/managed_directories.json.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"claudepm/internal/logging"
)

// Context classifies why a directory is under management.
type Context string

const (
	ContextDeploymentRoot    Context = "deployment_root"
	ContextProjectCollection Context = "project_collection"
	ContextWorkspaceRoot     Context = "workspace_root"
	ContextUserHome          Context = "user_home"
	ContextCustom            Context = "custom"
)

// Valid reports whether c is a known context value.
func (c Context) Valid() bool {
	switch c {
	case ContextDeploymentRoot, ContextProjectCollection, ContextWorkspaceRoot, ContextUserHome, ContextCustom:
		return true
	}
	return false
}

// Entry is one managed directory record.
type Entry struct {
	TargetDirectory    string            `json:"target_directory"`
	Context            Context           `json:"context"`
	TemplateID         string            `json:"template_id"`
	TemplateVariables  map[string]string `json:"template_variables,omitempty"`
	BackupEnabled      bool              `json:"backup_enabled"`
	VersionControl     bool              `json:"version_control"`
	ConflictResolution string            `json:"conflict_resolution"`
	DeploymentMetadata map[string]string `json:"deployment_metadata,omitempty"`
}

// Registry is the managed-directories map keyed by absolute path.
type Registry struct {
	path    string
	entries map[string]Entry
}

// registryFilename under the workspace dot directory.
const registryFilename = "managed_directories.json"

// Load reads the registry for a workspace. A missing file yields an
// empty registry. Entries with unknown context values are rejected.
func Load(workspace string) (*Registry, error) {
	path := filepath.Join(workspace, ".claude-pm", registryFilename)
	r := &Registry{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}

	for dir, e := range r.entries {
		if !e.Context.Valid() {
			return nil, fmt.Errorf("registry entry %s has unknown context %q", dir, e.Context)
		}
	}

	logging.RegistryDebug("loaded %d managed directories from %s", len(r.entries), path)
	return r, nil
}

// Save writes the full registry back to disk.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("writing registry %s: %w", r.path, err)
	}
	logging.RegistryDebug("saved %d managed directories", len(r.entries))
	return nil
}

// Register adds or replaces a managed directory entry.
func (r *Registry) Register(dir string, e Entry) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	if !e.Context.Valid() {
		return fmt.Errorf("unknown context %q", e.Context)
	}
	if e.TargetDirectory == "" {
		e.TargetDirectory = abs
	}
	if e.ConflictResolution == "" {
		e.ConflictResolution = "backup_and_replace"
	}
	r.entries[abs] = e
	logging.Registry("registered %s (context=%s)", abs, e.Context)
	return nil
}

// Unregister removes a managed directory. Returns true if it existed.
func (r *Registry) Unregister(dir string) bool {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	if _, ok := r.entries[abs]; !ok {
		return false
	}
	delete(r.entries, abs)
	logging.Registry("unregistered %s", abs)
	return true
}

// Get returns the entry for a directory, if registered.
func (r *Registry) Get(dir string) (Entry, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Entry{}, false
	}
	e, ok := r.entries[abs]
	return e, ok
}

// List returns all managed directory paths in sorted order.
func (r *Registry) List() []string {
	dirs := make([]string, 0, len(r.entries))
	for d := range r.entries {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Len returns the number of managed directories.
func (r *Registry) Len() int { return len(r.entries) }

// DetectContext classifies a directory by inspecting its contents and
// position relative to the user home and the framework checkout.
func DetectContext(dir string) Context {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ContextCustom
	}

	if home, err := os.UserHomeDir(); err == nil && abs == home {
		return ContextUserHome
	}

	if hasSubdir(abs, "claude-multiagent-pm") {
		return ContextDeploymentRoot
	}

	if countProjectSubdirs(abs) > 1 {
		return ContextProjectCollection
	}

	if exists(filepath.Join(abs, ".vscode")) ||
		exists(filepath.Join(abs, ".idea")) ||
		exists(filepath.Join(abs, "workspace.json")) {
		return ContextWorkspaceRoot
	}

	return ContextCustom
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hasSubdir(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.IsDir()
}

// Project markers that indicate a subdirectory is a standalone project.
var projectMarkers = []string{".git", "package.json", "pyproject.toml", "Cargo.toml", "go.mod"}

func countProjectSubdirs(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		for _, marker := range projectMarkers {
			if exists(filepath.Join(sub, marker)) {
				count++
				break
			}
		}
	}
	return count
}
