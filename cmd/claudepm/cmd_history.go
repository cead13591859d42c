package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"claudepm/internal/history"
)

var (
	historyLimit  int
	historyTarget string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent deployment operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		hist := openHistory()
		if hist == nil {
			return fmt.Errorf("history database unavailable")
		}
		defer hist.Close()

		var records []history.Operation
		var err error
		if historyTarget != "" {
			records, err = hist.ForTarget(cctx, historyTarget, historyLimit)
		} else {
			records, err = hist.Recent(cctx, historyLimit)
		}
		if err != nil {
			return err
		}

		if len(records) == 0 {
			say("no recorded operations")
			return nil
		}

		for _, op := range records {
			status := "ok"
			if !op.Success {
				status = "FAIL"
			}
			ver := op.Version
			if ver == "" {
				ver = "-"
			}
			fmt.Printf("  %s  %-6s %-4s %-12s %s\n",
				op.CreatedAt.Format("2006-01-02 15:04:05"), op.Action, status, ver, op.TargetPath)
			if op.Reason != "" {
				fmt.Printf("      %s\n", op.Reason)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum operations to show")
	historyCmd.Flags().StringVar(&historyTarget, "target", "", "Only show operations for this target path")
}
