// Package backup creates, restores and rotates timestamped file backups
// under the workspace .claude-pm/backups directory.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"claudepm/internal/logging"
)

// Backup type tags recorded in sidecar metadata.
const (
	TypeGeneral   = "general"
	TypeParentDir = "parent_directory"
	TypeFramework = "framework"
)

// Subdirectory names under the backup root.
const (
	dirGeneral   = "general"
	dirParentDir = "parent_directories"
	dirFramework = "framework"
)

// frameworkBackupPrefix and backupExt define the rotating framework
// backup naming scheme: framework_CLAUDE_md_{timestamp}.backup
const (
	frameworkBackupPrefix = "framework_CLAUDE_md_"
	backupExt             = ".backup"
)

// Record is the JSON sidecar written next to every general backup.
// Never mutated after creation; deleted together with its backup by
// the retention sweep.
type Record struct {
	SourcePath string `json:"source_path"`
	BackupPath string `json:"backup_path"`
	Timestamp  string `json:"timestamp"`
	Checksum   string `json:"checksum"`
	FileSize   int64  `json:"file_size"`
	BackupType string `json:"backup_type"`
}

// Store manages backups rooted at {workspace}/.claude-pm/backups.
type Store struct {
	root string

	// now is swappable for tests
	now func() time.Time

	// FrameworkKeep is how many rotating framework backups survive a
	// rotation sweep.
	FrameworkKeep int
}

// NewStore creates a backup store for the given workspace. Backup
// subdirectories are created lazily on first use.
func NewStore(workspace string) *Store {
	return &Store{
		root:          filepath.Join(workspace, ".claude-pm", "backups"),
		now:           time.Now,
		FrameworkKeep: 2,
	}
}

// Root returns the backup root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) subdir(backupType string) string {
	switch backupType {
	case TypeParentDir:
		return filepath.Join(s.root, dirParentDir)
	case TypeFramework:
		return filepath.Join(s.root, dirFramework)
	default:
		return filepath.Join(s.root, dirGeneral)
	}
}

// timestamp formats t as YYYYMMDD_HHMMSS_mmm for backup filenames.
func timestamp(t time.Time) string {
	return t.Format("20060102_150405") + fmt.Sprintf("_%03d", t.Nanosecond()/1e6)
}

// sidecarPath derives the sidecar location from a backup path:
// "X.md.backup" -> "X.md.json".
func sidecarPath(backupPath string) string {
	return strings.TrimSuffix(backupPath, backupExt) + ".json"
}

// Create copies path into the store and writes a JSON sidecar.
// Missing source is a no-op returning ("", nil). I/O failures are
// logged and swallowed, also returning "".
func (s *Store) Create(path, backupType string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Backup("backup skipped for %s: %v", path, err)
		}
		return ""
	}

	dir := s.subdir(backupType)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Backup("could not create backup dir %s: %v", dir, err)
		return ""
	}

	now := s.now()
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	backupPath := filepath.Join(dir, fmt.Sprintf("%s_%s%s%s", stem, timestamp(now), ext, backupExt))
	for i := 1; ; i++ {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		backupPath = filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s%s", stem, timestamp(now), i, ext, backupExt))
	}

	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		logging.Backup("could not write backup %s: %v", backupPath, err)
		return ""
	}

	sum := sha256.Sum256(data)
	rec := Record{
		SourcePath: path,
		BackupPath: backupPath,
		Timestamp:  now.Format(time.RFC3339),
		Checksum:   hex.EncodeToString(sum[:]),
		FileSize:   int64(len(data)),
		BackupType: backupType,
	}
	meta, err := json.MarshalIndent(rec, "", "  ")
	if err == nil {
		if werr := os.WriteFile(sidecarPath(backupPath), meta, 0644); werr != nil {
			logging.Backup("could not write sidecar for %s: %v", backupPath, werr)
		}
	}

	logging.BackupDebug("backed up %s -> %s (%d bytes)", path, backupPath, len(data))
	return backupPath
}

// CreateFramework stores a rotating backup of the framework master
// template. No sidecar is written; these are aged out by rotation,
// not by the retention sweep.
func (s *Store) CreateFramework(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Backup("framework backup skipped for %s: %v", path, err)
		}
		return ""
	}

	dir := s.subdir(TypeFramework)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Backup("could not create framework backup dir: %v", err)
		return ""
	}

	backupPath := filepath.Join(dir, frameworkBackupPrefix+timestamp(s.now())+backupExt)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		logging.Backup("could not write framework backup: %v", err)
		return ""
	}

	s.RotateFramework()
	return backupPath
}

// RotateFramework keeps only the FrameworkKeep most-recently-modified
// framework backups. Per-file delete failures are logged without
// aborting the sweep.
func (s *Store) RotateFramework() {
	dir := s.subdir(TypeFramework)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var backups []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, frameworkBackupPrefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, candidate{filepath.Join(dir, name), info.ModTime()})
	}

	keep := s.FrameworkKeep
	if keep < 1 {
		keep = 1
	}
	if len(backups) <= keep {
		return
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})
	for _, old := range backups[keep:] {
		if err := os.Remove(old.path); err != nil {
			logging.Backup("rotation could not remove %s: %v", old.path, err)
			continue
		}
		logging.BackupDebug("rotated out %s", old.path)
	}
}

// Restore copies backup bytes over target. When target is empty, the
// sidecar's recorded source_path is used. Parent directories of the
// target are created as needed. Returns false when the backup is
// missing or no target can be determined.
func (s *Store) Restore(backupPath, target string) bool {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		logging.Backup("restore failed, cannot read %s: %v", backupPath, err)
		return false
	}

	if target == "" {
		meta, err := os.ReadFile(sidecarPath(backupPath))
		if err != nil {
			logging.Backup("restore failed, no target and no sidecar for %s", backupPath)
			return false
		}
		var rec Record
		if err := json.Unmarshal(meta, &rec); err != nil || rec.SourcePath == "" {
			logging.Backup("restore failed, corrupt sidecar for %s", backupPath)
			return false
		}
		target = rec.SourcePath
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		logging.Backup("restore failed, cannot create parent of %s: %v", target, err)
		return false
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		logging.Backup("restore failed writing %s: %v", target, err)
		return false
	}

	logging.Backup("restored %s -> %s", backupPath, target)
	return true
}

// CleanupOld deletes backup/sidecar pairs older than retentionDays in
// the general and parent-directory subdirectories, by sidecar
// timestamp. Corrupt or missing sidecars are skipped with a warning.
// Returns the number of backups removed.
func (s *Store) CleanupOld(retentionDays int) int {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	removed := 0

	for _, dir := range []string{s.subdir(TypeGeneral), s.subdir(TypeParentDir)} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, backupExt) {
				continue
			}
			backupPath := filepath.Join(dir, name)
			side := sidecarPath(backupPath)

			meta, err := os.ReadFile(side)
			if err != nil {
				logging.Backup("cleanup skipping %s: missing sidecar", name)
				continue
			}
			var rec Record
			if err := json.Unmarshal(meta, &rec); err != nil {
				logging.Backup("cleanup skipping %s: corrupt sidecar", name)
				continue
			}
			ts, err := time.Parse(time.RFC3339, rec.Timestamp)
			if err != nil {
				logging.Backup("cleanup skipping %s: bad sidecar timestamp %q", name, rec.Timestamp)
				continue
			}
			if !ts.Before(cutoff) {
				continue
			}

			if err := os.Remove(backupPath); err != nil {
				logging.Backup("cleanup could not remove %s: %v", backupPath, err)
				continue
			}
			os.Remove(side)
			removed++
		}
	}

	if removed > 0 {
		logging.Backup("cleanup removed %d backups older than %d days", removed, retentionDays)
	}
	return removed
}

// Status summarises the store contents per subdirectory.
type Status struct {
	Root       string         `json:"root"`
	Counts     map[string]int `json:"counts"`
	TotalBytes int64          `json:"total_bytes"`
}

// Stat walks the backup subdirectories and reports counts and sizes.
func (s *Store) Stat() Status {
	st := Status{Root: s.root, Counts: make(map[string]int)}
	for _, sub := range []string{dirGeneral, dirParentDir, dirFramework} {
		entries, err := os.ReadDir(filepath.Join(s.root, sub))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), backupExt) {
				continue
			}
			st.Counts[sub]++
			if info, err := e.Info(); err == nil {
				st.TotalBytes += info.Size()
			}
		}
	}
	return st
}
