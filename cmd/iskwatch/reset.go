package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/storage"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every persisted alert, setting and history entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := storage.New(cfg.Storage.DBPath, cfg.Storage.Namespace)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer db.Close()

		keys, err := db.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := db.Delete(k); err != nil {
				return fmt.Errorf("failed to delete %s: %w", k, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys from namespace %q\n", len(keys), cfg.Storage.Namespace)
		return nil
	},
}
