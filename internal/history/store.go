// Package history persists a log of deployment operations in SQLite
// under the workspace .claude-pm directory.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"claudepm/internal/logging"
)

// Operation is one recorded deployment action.
type Operation struct {
	OpID            string
	Action          string // deploy, skip, restore, backup, rotate, cleanup
	TargetPath      string
	TemplateID      string
	Success         bool
	Version         string
	PreviousVersion string
	BackupPath      string
	Reason          string
	CreatedAt       time.Time
}

// Store wraps the operations database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	op_id            TEXT PRIMARY KEY,
	action           TEXT NOT NULL,
	target_path      TEXT NOT NULL,
	template_id      TEXT NOT NULL DEFAULT '',
	success          INTEGER NOT NULL,
	version          TEXT NOT NULL DEFAULT '',
	previous_version TEXT NOT NULL DEFAULT '',
	backup_path      TEXT NOT NULL DEFAULT '',
	reason           TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_operations_target ON operations(target_path, created_at);
`

// Open opens (creating if needed) the history database for a workspace.
func Open(workspace string) (*Store, error) {
	path := filepath.Join(workspace, ".claude-pm", "history.db")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open history database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.StoreDebug("history database ready at %s", path)
	return &Store{db: db}, nil
}

// Record inserts one operation row.
func (s *Store) Record(ctx context.Context, op Operation) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operations
		(op_id, action, target_path, template_id, success, version, previous_version, backup_path, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.OpID, op.Action, op.TargetPath, op.TemplateID, boolToInt(op.Success),
		op.Version, op.PreviousVersion, op.BackupPath, op.Reason,
		op.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording operation %s: %w", op.OpID, err)
	}
	logging.StoreDebug("recorded %s %s -> %s", op.Action, op.TargetPath, op.Version)
	return nil
}

// Recent returns the most recent operations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT op_id, action, target_path, template_id, success, version, previous_version, backup_path, reason, created_at
		FROM operations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var op Operation
		var success int
		var createdAt string
		if err := rows.Scan(&op.OpID, &op.Action, &op.TargetPath, &op.TemplateID, &success,
			&op.Version, &op.PreviousVersion, &op.BackupPath, &op.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		op.Success = success != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			op.CreatedAt = t
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// ForTarget returns the operations recorded against one target path,
// newest first.
func (s *Store) ForTarget(ctx context.Context, targetPath string, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT op_id, action, target_path, template_id, success, version, previous_version, backup_path, reason, created_at
		FROM operations WHERE target_path = ? ORDER BY created_at DESC LIMIT ?`, targetPath, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", targetPath, err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var op Operation
		var success int
		var createdAt string
		if err := rows.Scan(&op.OpID, &op.Action, &op.TargetPath, &op.TemplateID, &success,
			&op.Version, &op.PreviousVersion, &op.BackupPath, &op.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		op.Success = success != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			op.CreatedAt = t
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
