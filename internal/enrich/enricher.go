package enrich

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/store"
)

// Result counts the outcome of an enrichment run.
type Result struct {
	Symbols  int
	Enriched int
	Missing  int
	Failed   int
}

// Enricher recomputes the realized-volatility series for each symbol from
// its stored daily series and persists the merged output. Each run rebuilds
// the series in full.
type Enricher struct {
	input  *store.SeriesStore
	output *store.SeriesStore
	window int
	logger *zap.Logger
}

func NewEnricher(input, output *store.SeriesStore, window int, logger *zap.Logger) *Enricher {
	return &Enricher{
		input:  input,
		output: output,
		window: window,
		logger: logger,
	}
}

// Enrich processes one symbol. A symbol without a stored series is not an
// error for the run; it is simply skipped.
func (e *Enricher) Enrich(symbol string) error {
	var series []DailyRecord
	if err := e.input.Load(symbol, &series); err != nil {
		return err
	}

	records := Compute(series, e.window)
	if len(records) == 0 {
		return nil
	}

	return e.output.Save(symbol, records)
}

// Run enriches every symbol in order. Failures are isolated per symbol.
func (e *Enricher) Run(ctx context.Context, syms []string) (*Result, error) {
	result := &Result{Symbols: len(syms)}

	for _, symbol := range syms {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		err := e.Enrich(symbol)
		switch {
		case errors.Is(err, store.ErrNotFound):
			result.Missing++
			e.logger.Debug("no series for symbol", zap.String("symbol", symbol))
		case err != nil:
			result.Failed++
			e.logger.Warn("enrichment failed", zap.String("symbol", symbol), zap.Error(err))
		default:
			result.Enriched++
		}
	}

	e.logger.Info("enrichment run complete",
		zap.Int("symbols", result.Symbols),
		zap.Int("enriched", result.Enriched),
		zap.Int("missing", result.Missing),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}
