package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "energy-communities",
	Short: "IRA energy community qualifying-area pipeline",
	Long:  "Joins BLS, MSHA, EIA, and EPA datasets against Census boundaries to determine which areas qualify as energy communities under the Inflation Reduction Act.",
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
