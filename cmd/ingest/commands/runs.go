package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/store"
	"github.com/spf13/cobra"
)

var flagLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs recorded in PostgreSQL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if cfg.Database.Postgres.DSN == "" {
			return apperr.Configf("database.postgres.dsn is required to list runs")
		}

		ctx := context.Background()
		s, err := store.New(ctx, cfg.Database.Postgres.DSN, logger)
		if err != nil {
			return err
		}
		defer s.Close()

		runs, err := s.ListIngestRuns(ctx, flagLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tPROVIDER\tPRODUCTS\tUPSERTED\tSKIPPED\tERROR")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Provider,
				r.Products, r.Upserted(), len(r.Skipped), r.Error)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().IntVar(&flagLimit, "limit", 20, "Number of runs to show")
}
