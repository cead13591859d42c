package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claudepm/internal/deploy"
	"claudepm/internal/registry"
)

var (
	deployForce      bool
	deployAll        bool
	deployID         string
	deployVars       []string
	deployBackupType string
)

var deployCmd = &cobra.Command{
	Use:   "deploy [target-dir...]",
	Short: "Deploy the framework template to target directories",
	Long: `Renders the framework master template and writes it into each target
directory, after checking whether deployment is needed.

An existing file that is not a framework deployment is never
overwritten, even with --force. An existing deployment at the current
version is skipped unless --force is given. The previous file is backed
up before every overwrite.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVarP(&deployForce, "force", "f", false, "Redeploy even when the existing version is current")
	deployCmd.Flags().BoolVar(&deployAll, "all", false, "Deploy to every registered directory")
	deployCmd.Flags().StringVar(&deployID, "deployment-id", "", "Override the generated deployment ID")
	deployCmd.Flags().StringArrayVar(&deployVars, "var", nil, "Extra template variable KEY=VALUE (repeatable)")
	deployCmd.Flags().StringVar(&deployBackupType, "backup-type", "", "Backup type tag for the pre-overwrite backup")
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q, expected KEY=VALUE", p)
		}
		vars[k] = v
	}
	return vars, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	targets := args
	if deployAll {
		reg, err := registry.Load(workspace)
		if err != nil {
			return err
		}
		targets = append(targets, reg.List()...)
	}
	if len(targets) == 0 {
		targets = []string{workspace}
	}

	vars, err := parseVars(deployVars)
	if err != nil {
		return err
	}

	hist := openHistory()
	if hist != nil {
		defer hist.Close()
	}
	d := deploy.New(cfg, newBackupStore(), hist)

	failures := 0
	for _, target := range targets {
		res, err := d.Deploy(ctx, target, deploy.Options{
			Force:        deployForce,
			DeploymentID: deployID,
			Variables:    vars,
			BackupType:   deployBackupType,
		})
		if err != nil {
			logger.Error("deploy failed", zap.String("target", target), zap.Error(err))
			fmt.Printf("FAIL  %s: %v\n", target, err)
			failures++
			continue
		}

		switch res.Action {
		case deploy.ActionDeploy:
			say("deployed  %s (version %s)", res.Target, res.VersionDeployed)
			if res.BackupPath != "" {
				say("          backup: %s", res.BackupPath)
			}
		case deploy.ActionSkip:
			say("skipped   %s: %s (use --force to override)", res.Target, res.Reason)
		case deploy.ActionSkipPermanent:
			say("refused   %s: %s", res.Target, res.Reason)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d deployments failed", failures, len(targets))
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status [target-dir...]",
	Short: "Show deployment status for target directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := args
		if len(targets) == 0 {
			reg, err := registry.Load(workspace)
			if err != nil {
				return err
			}
			targets = reg.List()
			if len(targets) == 0 {
				targets = []string{workspace}
			}
		}

		d := deploy.New(cfg, newBackupStore(), nil)
		fmt.Printf("framework version: %s\n", cfg.FrameworkVersion())
		for _, target := range targets {
			info := d.Status(target)
			switch {
			case !info.Exists:
				fmt.Printf("  missing      %s\n", info.Target)
			case !info.IsTemplate:
				fmt.Printf("  unmanaged    %s\n", info.Target)
			case info.UpToDate:
				fmt.Printf("  current      %s (%s)\n", info.Target, info.DeployedVersion)
			default:
				fmt.Printf("  outdated     %s (%s)\n", info.Target, info.DeployedVersion)
			}
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [target-dir...]",
	Short: "Validate deployed file integrity",
	Long: `Checks each deployed file for the deployment title and metadata block,
an extractable version, leftover template placeholders, and a matching
content hash.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := args
		if len(targets) == 0 {
			targets = []string{workspace}
		}

		d := deploy.New(cfg, newBackupStore(), nil)
		problems := 0
		for _, target := range targets {
			rep := d.Validate(target)
			switch {
			case !rep.Exists:
				fmt.Printf("MISSING  %s\n", rep.Target)
				problems++
			case !rep.IsTemplate:
				fmt.Printf("INVALID  %s: not a framework deployment\n", rep.Target)
				problems++
			case len(rep.Unresolved) > 0:
				fmt.Printf("INVALID  %s: unresolved placeholders: %s\n", rep.Target, strings.Join(rep.Unresolved, ", "))
				problems++
			case rep.HashRecorded != "" && !rep.HashMatches:
				fmt.Printf("MODIFIED %s: content hash mismatch (file edited since deployment)\n", rep.Target)
				problems++
			default:
				say("OK       %s (version %s)", rep.Target, rep.Version)
			}
		}

		if problems > 0 {
			return fmt.Errorf("%d of %d targets failed validation", problems, len(targets))
		}
		return nil
	},
}
