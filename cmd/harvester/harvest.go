package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/ingest"
	"github.com/dgnsrekt/options-harvester/internal/store"
)

func harvestCmd() *cobra.Command {
	var (
		dryRun bool
		after  string
		before string
	)

	cmd := &cobra.Command{
		Use:   "harvest [SYMBOL...]",
		Short: "Discover contracts and download their EOD history",
		Long: `Discover the option contract universe for each symbol and download
end-of-day history for every contract that passes the liquidity gate.

Without arguments the symbol universe comes from the artifact directory,
falling back to the symbol database when the directory is too thin.

Examples:
  # Harvest every known symbol
  harvester harvest

  # Harvest specific symbols
  harvester harvest AAPL MSFT

  # Dry run to see which symbols would be processed
  harvester harvest --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			fs, err := store.NewFileStore(cfg.Store.Directory, cfg.Store.Compress)
			if err != nil {
				return err
			}
			defer fs.Close()

			syms, err := resolveSymbols(ctx, args, cfg, fs, logger)
			if err != nil {
				return fmt.Errorf("resolving symbols: %w", err)
			}
			if len(syms) == 0 {
				logger.Warn("no symbols to harvest")
				return nil
			}

			logger.Info("symbol universe resolved", zap.Int("count", len(syms)))

			if dryRun {
				for _, s := range syms {
					fmt.Printf("Would harvest: %s\n", s)
				}
				return nil
			}

			opts := ingest.Options{
				Concurrency:        cfg.Ingest.Concurrency,
				BatchSize:          cfg.Ingest.BatchSize,
				MinAvgVolume:       cfg.Ingest.MinAvgVolume,
				MinAvgOpenInterest: cfg.Ingest.MinAvgOpenInterest,
				After:              cfg.Ingest.After,
				Before:             cfg.Ingest.Before,
			}
			if after != "" {
				opts.After = after
			}
			if before != "" {
				opts.Before = before
			}

			client := newAPIClient(cfg, logger)
			pipeline := ingest.NewPipeline(client, fs, opts, logger)

			result, err := pipeline.Run(ctx, syms)
			if err != nil {
				return err
			}

			if result.Failed > 0 {
				return fmt.Errorf("%d contracts failed", result.Failed)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show which symbols would be harvested")
	cmd.Flags().StringVar(&after, "after", "", "earliest expiration date to query (YYYY-MM-DD)")
	cmd.Flags().StringVar(&before, "before", "", "latest expiration date to query (YYYY-MM-DD)")

	return cmd
}
