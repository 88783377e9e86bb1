package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nidhogg/boutique-stylist/internal/app"
	"github.com/nidhogg/boutique-stylist/internal/apperr"
	"github.com/nidhogg/boutique-stylist/internal/catalog"
	"github.com/nidhogg/boutique-stylist/internal/store"
	"github.com/spf13/cobra"
)

var flagFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load an Online Boutique products.json into the PostgreSQL catalog",
	Long: `seed reads a products.json file in the Online Boutique format
({"products": [{"id", "name", "description", "priceUsd": {"units"}}]})
and upserts it into the products table used by --catalog-source postgres.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if cfg.Database.Postgres.DSN == "" {
			return apperr.Configf("database.postgres.dsn is required to seed the catalog")
		}

		data, err := os.ReadFile(flagFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", flagFile, err)
		}
		products, err := parseProductsFile(data)
		if err != nil {
			return err
		}

		ctx := context.Background()
		s, err := store.New(ctx, cfg.Database.Postgres.DSN, logger)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Migrate(ctx, app.MigrationsDir); err != nil {
			return err
		}
		if err := s.UpsertProducts(ctx, products); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products\n", len(products))
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&flagFile, "file", "f", "products.json", "Products file")
}

type productsFile struct {
	Products []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		PriceUSD    struct {
			Units int64 `json:"units"`
		} `json:"priceUsd"`
	} `json:"products"`
}

func parseProductsFile(data []byte) ([]catalog.Product, error) {
	var f productsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse products file: %w", err)
	}
	out := make([]catalog.Product, 0, len(f.Products))
	for _, p := range f.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("parse products file: product %q has no id", p.Name)
		}
		out = append(out, catalog.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			PriceUnits:  p.PriceUSD.Units,
		})
	}
	return out, nil
}
