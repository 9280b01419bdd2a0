package main

import (
	"github.com/spf13/cobra"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/pipeline"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/qualify"
)

var (
	etlCoalGeography        string
	etlBrownfieldsGeography string
	etlUpdate               bool
	etlOut                  string
	etlFormat               string
	etlStore                bool
	etlProposedRetirements  bool
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Run every criteria pipeline and write the combined table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		coalGeo, err := parseGeographyFlag(etlCoalGeography)
		if err != nil {
			return err
		}
		brownfieldsGeo, err := parseGeographyFlag(etlBrownfieldsGeography)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, etlStore)
		if err != nil {
			return err
		}
		defer env.Close()

		employment, err := env.coord.RunEmployment(ctx, pipeline.Options{Update: etlUpdate})
		if err != nil {
			return err
		}
		coal, err := env.coord.RunCoal(ctx, pipeline.Options{
			Geography:           coalGeo,
			Update:              etlUpdate,
			ProposedRetirements: etlProposedRetirements,
		})
		if err != nil {
			return err
		}
		brownfields, err := env.coord.RunBrownfields(ctx, pipeline.Options{
			Geography: brownfieldsGeo,
			Update:    etlUpdate,
		})
		if err != nil {
			return err
		}

		return writeOutput(qualify.Combine(employment, coal, brownfields), etlOut, etlFormat)
	},
}

func init() {
	etlCmd.Flags().StringVar(&etlCoalGeography, "coal-geography", "county", "geography for coal closure areas (county or tract)")
	etlCmd.Flags().StringVar(&etlBrownfieldsGeography, "brownfields-geography", "county", "geography for brownfield sites (county or tract)")
	etlCmd.Flags().BoolVar(&etlUpdate, "update", false, "re-download cached source files")
	etlCmd.Flags().StringVar(&etlOut, "out", "", "output path (default from config)")
	etlCmd.Flags().StringVar(&etlFormat, "format", "", "output format: csv or geojson (default from config)")
	etlCmd.Flags().BoolVar(&etlStore, "store", false, "persist results and the run log to the configured store")
	etlCmd.Flags().BoolVar(&etlProposedRetirements, "proposed-retirements", false, "use planned coal plant retirements instead of retired plants")
	rootCmd.AddCommand(etlCmd)
}
