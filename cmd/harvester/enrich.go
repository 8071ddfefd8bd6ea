package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/enrich"
	"github.com/dgnsrekt/options-harvester/internal/store"
)

func enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich [SYMBOL...]",
		Short: "Compute realized volatility series from stored daily data",
		Long: `Recompute the realized-volatility series for each symbol from its
stored daily price series and write the merged output.

Without arguments every symbol with a stored series is enriched.

Examples:
  # Enrich every stored symbol
  harvester enrich

  # Enrich specific symbols
  harvester enrich AAPL MSFT`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			input := store.NewSeriesStore(cfg.Store.SeriesDirectory)
			output := store.NewSeriesStore(cfg.Store.OutputDirectory)

			syms := args
			if len(syms) == 0 {
				var err error
				syms, err = input.Symbols()
				if err != nil {
					return fmt.Errorf("listing stored symbols: %w", err)
				}
			}
			if len(syms) == 0 {
				logger.Warn("no symbols to enrich")
				return nil
			}

			enricher := enrich.NewEnricher(input, output, cfg.Enrich.WindowSize, logger)

			result, err := enricher.Run(ctx, syms)
			if err != nil {
				return err
			}

			logger.Info("enrich complete",
				zap.Int("enriched", result.Enriched),
				zap.Int("missing", result.Missing),
				zap.Int("failed", result.Failed),
			)

			if result.Failed > 0 {
				return fmt.Errorf("%d symbols failed to enrich", result.Failed)
			}

			return nil
		},
	}

	return cmd
}
