package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"claudepm/internal/scanner"
)

var dedupApply bool

var scanCmd = &cobra.Command{
	Use:   "scan [root...]",
	Short: "Find deployed framework files under directory hierarchies",
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

		if len(found) == 0 {
			say("no managed files found")
			return nil
		}

		for _, f := range found {
			kind := "other"
			if f.IsTemplate {
				kind = "template"
			}
			ver := f.Version
			if ver == "" {
				ver = "-"
			}
			fmt.Printf("  %-9s %-14s %s\n", kind, ver, f.Path)
		}
		return nil
	},
}

var dedupCmd = &cobra.Command{
	Use:   "dedup [root...]",
	Short: "Find and optionally remove shadowed duplicate deployments",
	Long: `A deployment whose directory sits below another deployment's directory
is shadowed by it. This command reports shadowed deployments; with
--apply it backs each one up and deletes it.`,
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

		res := scanner.Dedup(found)
		if len(res.Duplicates) == 0 {
			say("no duplicate deployments found (%d kept)", len(res.Keep))
			return nil
		}

		store := newBackupStore()
		for _, dup := range res.Duplicates {
			if !dedupApply {
				fmt.Printf("  shadowed  %s\n", dup.Path)
				continue
			}
			if backupPath := store.Create(dup.Path, "general"); backupPath == "" {
				fmt.Printf("  FAIL      %s: backup failed, not removing\n", dup.Path)
				continue
			}
			if err := os.Remove(dup.Path); err != nil {
				fmt.Printf("  FAIL      %s: %v\n", dup.Path, err)
				continue
			}
			say("  removed   %s (backed up)", dup.Path)
		}

		if !dedupApply {
			say("%d shadowed deployments; rerun with --apply to remove them", len(res.Duplicates))
		}
		return nil
	},
}

func init() {
	dedupCmd.Flags().BoolVar(&dedupApply, "apply", false, "Back up and delete shadowed deployments")
}
