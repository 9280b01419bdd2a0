package main

import (
	"github.com/spf13/cobra"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/pipeline"
)

var (
	employmentUpdate bool
	employmentOut    string
	employmentFormat string
	employmentStore  bool
)

var employmentCmd = &cobra.Command{
	Use:   "employment",
	Short: "Run the fossil fuel employment and unemployment criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, employmentStore)
		if err != nil {
			return err
		}
		defer env.Close()

		areas, err := env.coord.RunEmployment(ctx, pipeline.Options{Update: employmentUpdate})
		if err != nil {
			return err
		}
		return writeOutput(areas, employmentOut, employmentFormat)
	},
}

func init() {
	employmentCmd.Flags().BoolVar(&employmentUpdate, "update", false, "re-download cached source files")
	employmentCmd.Flags().StringVar(&employmentOut, "out", "", "output path (default from config)")
	employmentCmd.Flags().StringVar(&employmentFormat, "format", "", "output format: csv or geojson (default from config)")
	employmentCmd.Flags().BoolVar(&employmentStore, "store", false, "persist results and the run log to the configured store")
	rootCmd.AddCommand(employmentCmd)
}
