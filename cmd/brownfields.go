package main

import (
	"github.com/spf13/cobra"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/pipeline"
)

var (
	brownfieldsGeography string
	brownfieldsUpdate    bool
	brownfieldsOut       string
	brownfieldsFormat    string
	brownfieldsStore     bool
)

var brownfieldsCmd = &cobra.Command{
	Use:   "brownfields",
	Short: "Run the brownfield site criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		geo, err := parseGeographyFlag(brownfieldsGeography)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, brownfieldsStore)
		if err != nil {
			return err
		}
		defer env.Close()

		areas, err := env.coord.RunBrownfields(ctx, pipeline.Options{
			Geography: geo,
			Update:    brownfieldsUpdate,
		})
		if err != nil {
			return err
		}
		return writeOutput(areas, brownfieldsOut, brownfieldsFormat)
	},
}

func init() {
	brownfieldsCmd.Flags().StringVar(&brownfieldsGeography, "geography", "county", "geography level (county or tract)")
	brownfieldsCmd.Flags().BoolVar(&brownfieldsUpdate, "update", false, "re-download cached source files")
	brownfieldsCmd.Flags().StringVar(&brownfieldsOut, "out", "", "output path (default from config)")
	brownfieldsCmd.Flags().StringVar(&brownfieldsFormat, "format", "", "output format: csv or geojson (default from config)")
	brownfieldsCmd.Flags().BoolVar(&brownfieldsStore, "store", false, "persist results and the run log to the configured store")
	rootCmd.AddCommand(brownfieldsCmd)
}
