package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent pipeline runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRuns(runs)
		return nil
	},
}

func formatRuns(runs []model.Run) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCRITERIA\tGEOGRAPHY\tROWS\tSTATUS\tSTARTED\tDURATION\tERROR")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		errText := r.Error
		if len(errText) > 60 {
			errText = errText[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.ID,
			strings.Join(r.Criteria, ","),
			r.Geography,
			r.RowCount,
			r.Status,
			r.StartedAt.Format(time.RFC3339),
			duration,
			errText,
		)
	}
	w.Flush()
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(statusCmd)
}
