package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ridgecap-labs/roofline/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "roofline",
	Short: "Roof measurement resolution engine",
	Long:  "Resolves roof area and pitch through a tiered source waterfall (LiDAR, solar imagery, geometric and address estimates), cross-validates candidates, and calibrates against verified historical reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
