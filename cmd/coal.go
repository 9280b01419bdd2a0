package main

import (
	"github.com/spf13/cobra"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/pipeline"
)

var (
	coalGeography           string
	coalUpdate              bool
	coalOut                 string
	coalFormat              string
	coalStore               bool
	coalProposedRetirements bool
)

var coalCmd = &cobra.Command{
	Use:   "coal",
	Short: "Run the coal mine and plant closure criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		geo, err := parseGeographyFlag(coalGeography)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, coalStore)
		if err != nil {
			return err
		}
		defer env.Close()

		areas, err := env.coord.RunCoal(ctx, pipeline.Options{
			Geography:           geo,
			Update:              coalUpdate,
			ProposedRetirements: coalProposedRetirements,
		})
		if err != nil {
			return err
		}
		return writeOutput(areas, coalOut, coalFormat)
	},
}

func init() {
	coalCmd.Flags().StringVar(&coalGeography, "geography", "county", "geography level (county or tract)")
	coalCmd.Flags().BoolVar(&coalUpdate, "update", false, "re-download cached source files")
	coalCmd.Flags().StringVar(&coalOut, "out", "", "output path (default from config)")
	coalCmd.Flags().StringVar(&coalFormat, "format", "", "output format: csv or geojson (default from config)")
	coalCmd.Flags().BoolVar(&coalStore, "store", false, "persist results and the run log to the configured store")
	coalCmd.Flags().BoolVar(&coalProposedRetirements, "proposed-retirements", false, "use planned coal plant retirements instead of retired plants")
	rootCmd.AddCommand(coalCmd)
}
