package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/ingest"
	"github.com/dgnsrekt/options-harvester/internal/store"
)

func pruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune [SYMBOL...]",
		Short: "Delete stored artifacts for expired contracts",
		Long: `Delete artifacts whose contracts have already expired. The harvest
command prunes automatically; this runs the same pass standalone.

Examples:
  # Prune every stored symbol
  harvester prune

  # Prune specific symbols
  harvester prune AAPL MSFT`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := store.NewFileStore(cfg.Store.Directory, cfg.Store.Compress)
			if err != nil {
				return err
			}
			defer fs.Close()

			syms := args
			if len(syms) == 0 {
				syms, err = fs.Symbols()
				if err != nil {
					return fmt.Errorf("listing stored symbols: %w", err)
				}
			}
			if len(syms) == 0 {
				logger.Warn("no symbols to prune")
				return nil
			}

			pruner := ingest.NewPruner(fs, time.Now(), logger)

			var failed int
			for _, symbol := range syms {
				survivors, err := pruner.Prune(symbol)
				if err != nil {
					logger.Error("pruning failed", zap.String("symbol", symbol), zap.Error(err))
					failed++
					continue
				}
				logger.Info("pruned symbol",
					zap.String("symbol", symbol),
					zap.Int("surviving", len(survivors)),
				)
			}

			if failed > 0 {
				return fmt.Errorf("%d symbols failed to prune", failed)
			}

			return nil
		},
	}

	return cmd
}
