package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claudepm/internal/deploy"
	"claudepm/internal/registry"
	"claudepm/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the framework template and redeploy on change",
	Long: `Watches the framework master template file. When it changes (after a
short settling window), the template is redeployed to every registered
directory. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		hist := openHistory()
		if hist != nil {
			defer hist.Close()
		}
		d := deploy.New(cfg, newBackupStore(), hist)

		redeploy := func(ctx context.Context, templatePath string) {
			// Snapshot the changed template before fanning it out, so
			// the previous generation stays recoverable via restore.
			if p := d.BackupFramework(); p != "" {
				say("framework backup: %s", p)
			}

			reg, err := registry.Load(workspace)
			if err != nil {
				logger.Error("cannot load registry for redeploy", zap.Error(err))
				return
			}
			for _, dir := range reg.List() {
				res, err := d.Deploy(ctx, dir, deploy.Options{})
				if err != nil {
					logger.Error("redeploy failed", zap.String("target", dir), zap.Error(err))
					continue
				}
				if res.Action == deploy.ActionDeploy {
					say("redeployed %s (version %s)", res.Target, res.VersionDeployed)
				}
			}
		}

		tw, err := watch.NewTemplateWatcher(cfg.TemplateFile(), redeploy)
		if err != nil {
			return err
		}
		if err := tw.Start(ctx); err != nil {
			return err
		}
		defer tw.Stop()

		say("watching %s (ctrl-c to stop)", cfg.TemplateFile())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		stats := tw.Snapshot()
		say("watcher exiting: %d template changes, %d redeploys, %d errors",
			stats.TemplateModified, stats.RedeploysTriggered, stats.Errors)
		return nil
	},
}
