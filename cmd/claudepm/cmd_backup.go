package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"claudepm/internal/backup"
)

var (
	backupType      string
	backupFramework bool
	retentionDays   int
)

var backupCmd = &cobra.Command{
	Use:   "backup [file...]",
	Short: "Create timestamped backups of files",
	Long: `Copies each file into the workspace backup store with a JSON sidecar
recording the source path, sha256 checksum, size and timestamp. With no
arguments, backs up the deployed file in the workspace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newBackupStore()

		if backupFramework {
			backupPath := store.CreateFramework(cfg.TemplateFile())
			if backupPath == "" {
				return fmt.Errorf("framework backup failed for %s", cfg.TemplateFile())
			}
			say("framework backup: %s", backupPath)
			return nil
		}

		paths := args
		if len(paths) == 0 {
			paths = []string{filepath.Join(workspace, cfg.Deployment.TargetFilename)}
		}

		failures := 0
		for _, path := range paths {
			backupPath := store.Create(path, backupType)
			if backupPath == "" {
				fmt.Printf("skipped  %s (missing or unreadable)\n", path)
				failures++
				continue
			}
			say("backed up %s -> %s", path, backupPath)
		}

		if failures == len(paths) {
			return fmt.Errorf("no backups created")
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-path> [target-path]",
	Short: "Restore a file from a backup",
	Long: `Copies backup bytes over the target. Without a target argument, the
original source path recorded in the backup's sidecar is used.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 2 {
			target = args[1]
		}

		store := newBackupStore()
		if !store.Restore(args[0], target) {
			return fmt.Errorf("restore failed for %s", args[0])
		}

		say("restored %s", args[0])
		return nil
	},
}

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Rotate framework template backups",
	Long:  `Keeps only the most recent framework template backups and deletes the rest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := newBackupStore()
		store.RotateFramework()

		st := store.Stat()
		say("framework backups after rotation: %d", st.Counts["framework"])
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		days := retentionDays
		if days <= 0 {
			days = cfg.Backup.RetentionDays
		}

		store := newBackupStore()
		removed := store.CleanupOld(days)
		say("removed %d backups older than %d days", removed, days)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupType, "type", backup.TypeGeneral, "Backup type tag (general, parent_directory)")
	backupCmd.Flags().BoolVar(&backupFramework, "framework", false, "Back up the framework master template (rotating, keeps the newest few)")
	cleanupCmd.Flags().IntVar(&retentionDays, "retention-days", 0, "Retention period in days (default: config value)")
}
