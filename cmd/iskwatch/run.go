package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/iskwatch/internal/api"
	"github.com/rewired-gh/iskwatch/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the alert monitor (default)",
	RunE:  runService,
}

func runService(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.telegram != nil {
		a.telegram.ListenForCommands(ctx, botCommands(ctx, a))
	}

	if cfg.Monitor.AutoStart {
		a.monitor.Start(ctx)
	} else {
		logger.Info("Auto-start disabled; start the monitor through the API")
	}

	if cfg.API.Enabled {
		srv := api.New(api.Config{Address: cfg.API.Address, Verbose: cfg.API.Verbose}, api.Deps{
			Store:       a.store,
			Monitor:     a.monitor,
			History:     a.history,
			Triggered:   a.triggered,
			Permissions: a.dispatcher,
		})
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("Shutdown signal received, cleaning up...")
	return nil
}
