package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"claudepm/internal/backup"
	"claudepm/internal/config"
	"claudepm/internal/history"
	"claudepm/internal/logging"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger

	// Loaded per-invocation in PersistentPreRunE
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claude-pm",
	Short: "claude-pm - framework template deployment manager",
	Long: `claude-pm deploys and maintains the framework CLAUDE.md file across
managed directories.

It tracks deployed versions with a serial-numbered version scheme,
refuses to overwrite files that are not framework deployments, backs up
every file it replaces, and keeps a registry of directories under
management.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			workspace, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to determine workspace: %w", err)
			}
		}

		cfg, err = config.Load(config.DefaultConfigPath(workspace))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if quiet {
			cfg.Deployment.QuietMode = true
		}

		logSettings := logging.Settings{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
			Categories: cfg.Logging.Categories,
		}
		if verbose {
			logSettings.DebugMode = true
			logSettings.Level = "debug"
		}
		if err := logging.Initialize(workspace, logSettings); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// newBackupStore builds the backup store with config-driven retention.
func newBackupStore() *backup.Store {
	store := backup.NewStore(workspace)
	store.FrameworkKeep = cfg.Backup.FrameworkKeep
	return store
}

// openHistory opens the operation history database. Failure is logged
// and history is skipped rather than blocking the operation.
func openHistory() *history.Store {
	h, err := history.Open(workspace)
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		return nil
	}
	return h
}

// say prints informational output unless quiet mode is on.
func say(format string, args ...interface{}) {
	if cfg != nil && cfg.Deployment.QuietMode {
		return
	}
	fmt.Printf(format+"\n", args...)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(unregisterCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(autoRegisterCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
