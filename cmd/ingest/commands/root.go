package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nidhogg/boutique-stylist/internal/app"
	"github.com/nidhogg/boutique-stylist/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig    string
	flagProvider  string
	flagBatchSize int
	flagSource    string
)

// rootCmd runs one ingestion when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed the product catalog and upsert it into the vector index",
	Long: `ingest reads every product from the catalog, embeds "name. description"
with the configured provider and upserts the vectors in batches.

Products that fail to embed are skipped. Running it again re-embeds and
overwrites every entry.

Example:
  ingest --provider OLLAMA
  ingest --config configs/stylist.json --catalog-source postgres`,
	SilenceUsage: true,
	RunE:         runIngest,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = config.DefaultPath
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", defaultPath, "Config file path")
	rootCmd.Flags().StringVar(&flagProvider, "provider", "", "Embedding provider override (OLLAMA, GEMINI)")
	rootCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "Upsert batch size override")
	rootCmd.Flags().StringVar(&flagSource, "catalog-source", "", "Catalog source override (grpc, postgres)")

	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(seedCmd)
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagProvider != "" {
		cfg.Embedding.Provider = strings.ToUpper(flagProvider)
	}
	if flagBatchSize > 0 {
		cfg.Ingest.BatchSize = flagBatchSize
	}
	if flagSource != "" {
		cfg.Catalog.Source = flagSource
	}
	return cfg, nil
}

// setup loads and validates config and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := app.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
