package commands

import (
	"fmt"

	"github.com/nidhogg/boutique-stylist/internal/app"
	"github.com/nidhogg/boutique-stylist/internal/ingest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.ValidateIngest(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	comps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	source, err := comps.Catalog()
	if err != nil {
		return err
	}

	p := ingest.New(source, comps.Embedder, comps.Index, cfg.Ingest.BatchSize, logger)
	if comps.Store != nil {
		p.SetRecorder(comps.Store)
	}

	logger.Info("starting ingestion",
		zap.String("provider", string(comps.Embedder.Kind())),
		zap.String("index", cfg.Index.Name),
		zap.String("catalog", cfg.Catalog.Source))
	rep, err := p.Run(ctx)
	if rep != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d products, %d embedded, %d upserted, %d skipped, %d failed batches\n",
			rep.RunID, rep.Products, rep.Embedded, rep.Upserted(), len(rep.Skipped), rep.FailedBatches)
	}
	return err
}
