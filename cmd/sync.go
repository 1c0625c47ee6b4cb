package cmd

import (
	"context"
	"fmt"

	"pos/database"
	"pos/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fullSync bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync products and stock from the inventory database",
	Long: `Copy stock levels (default) or the whole catalogue (--full) from the
PostgreSQL inventory database into the local store, then exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	syncCmd.Flags().BoolVar(&fullSync, "full", false, "import categories, items and variants too")
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := database.Init(cfg); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	source, err := service.NewInventorySource(ctx, &cfg.Inventory)
	if err != nil {
		return err
	}
	defer source.Close()

	syncer := service.NewSyncer(database.DB, source, nil, log)
	run := syncer.SyncProducts
	if fullSync {
		run = syncer.SyncFull
	}
	result, err := run(ctx)
	if err != nil {
		return err
	}

	log.Info("sync complete",
		zap.String("kind", result.Kind),
		zap.Int("products", result.Products),
		zap.Int("stocks", result.Stocks),
		zap.Int("categories_created", result.CategoriesAdded),
		zap.Int("items_created", result.ItemsCreated),
		zap.Int("variants_created", result.VariantsCreated),
		zap.Int("variants_updated", result.VariantsUpdated))
	return nil
}
