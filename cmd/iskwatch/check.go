package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/monitor"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one check cycle over every enabled alert and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		report, err := a.monitor.CheckAll(ctx)
		if err != nil {
			return err
		}
		printReport(cmd, report)
		return nil
	},
}

func printReport(cmd *cobra.Command, report monitor.CycleReport) {
	out := cmd.OutOrStdout()
	for _, r := range report.Results {
		fmt.Fprintf(out, "%-11s %-30s %s\n", r.Result.Status, r.ItemName, r.Result.Message)
	}
	fmt.Fprintf(out, "\n%d checked, %d fired, %d suppressed, %d without data in %s\n",
		report.Checked, report.Fired, report.Suppressed, report.NoData, report.Duration.Round(time.Millisecond))
}
