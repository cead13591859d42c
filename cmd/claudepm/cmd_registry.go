package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"claudepm/internal/registry"
	"claudepm/internal/scanner"
)

var (
	registerContext string
	registerNoBack  bool
)

var registerCmd = &cobra.Command{
	Use:   "register [directory]",
	Short: "Register a directory for framework template management",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := workspace
		if len(args) == 1 {
			dir = args[0]
		}

		reg, err := registry.Load(workspace)
		if err != nil {
			return err
		}

		ctx := registry.Context(registerContext)
		if registerContext == "" {
			ctx = registry.DetectContext(dir)
		}

		entry := registry.Entry{
			Context:            ctx,
			TemplateID:         cfg.Deployment.TemplatePath,
			BackupEnabled:      !registerNoBack,
			VersionControl:     true,
			ConflictResolution: "backup_and_replace",
		}
		if err := reg.Register(dir, entry); err != nil {
			return err
		}
		if err := reg.Save(); err != nil {
			return err
		}

		say("registered %s (context: %s)", dir, ctx)
		return nil
	},
}

var unregisterCmd = &cobra.Command{
	Use:   "unregister [directory]",
	Short: "Remove a directory from framework template management",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := workspace
		if len(args) == 1 {
			dir = args[0]
		}

		reg, err := registry.Load(workspace)
		if err != nil {
			return err
		}
		if !reg.Unregister(dir) {
			return fmt.Errorf("%s is not registered", dir)
		}
		if err := reg.Save(); err != nil {
			return err
		}

		say("unregistered %s", dir)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry.Load(workspace)
		if err != nil {
			return err
		}

		dirs := reg.List()
		if len(dirs) == 0 {
			say("no managed directories")
			return nil
		}

		for _, dir := range dirs {
			entry, _ := reg.Get(dir)
			fmt.Printf("  %-20s %s\n", entry.Context, dir)
		}
		return nil
	},
}

var autoRegisterCmd = &cobra.Command{
	Use:   "auto-register [search-root...]",
	Short: "Discover deployed files and register their directories",
	Long: `Scans each search root (and its parent chain) for deployed framework
files, deduplicates overlapping deployments keeping the rootmost one,
and registers the surviving directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		roots := args
		if len(roots) == 0 {
			roots = []string{workspace}
		}

		sc := scanner.New(cfg.Deployment.TargetFilename)
		found, err := sc.Scan(cctx, roots)
		if err != nil {
			return err
		}

		dedup := scanner.Dedup(found)

		reg, err := registry.Load(workspace)
		if err != nil {
			return err
		}

		added := 0
		for _, f := range dedup.Keep {
			if _, ok := reg.Get(f.Dir); ok {
				continue
			}
			entry := registry.Entry{
				Context:            registry.DetectContext(f.Dir),
				TemplateID:         cfg.Deployment.TemplatePath,
				BackupEnabled:      true,
				VersionControl:     true,
				ConflictResolution: "backup_and_replace",
			}
			if err := reg.Register(f.Dir, entry); err != nil {
				return err
			}
			added++
		}
		if added > 0 {
			if err := reg.Save(); err != nil {
				return err
			}
		}

		say("registered %d new directories (%d already known, %d shadowed duplicates)",
			added, len(dedup.Keep)-added, len(dedup.Duplicates))
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerContext, "context", "", "Directory context (default: auto-detected)")
	registerCmd.Flags().BoolVar(&registerNoBack, "no-backup", false, "Disable pre-overwrite backups for this directory")
}
