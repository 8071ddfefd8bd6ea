package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/api"
	"github.com/dgnsrekt/options-harvester/internal/store"
)

// Options configures a pipeline run.
type Options struct {
	Concurrency        int
	BatchSize          int
	MinAvgVolume       float64
	MinAvgOpenInterest float64

	// Expiration window queried upstream. After defaults to the reference
	// date when empty.
	After  string
	Before string

	// RefDate is the run's fixed reference date for expiry checks.
	RefDate time.Time
}

// Result aggregates a whole run across symbols.
type Result struct {
	Symbols   int
	Skipped   int
	Contracts int
	Persisted int
	Filtered  int
	Failed    int
}

// Pipeline ingests the full contract universe for each symbol: prune expired
// artifacts, list expirations, discover contracts, fetch and persist
// history. Symbols run sequentially; the work inside one symbol is
// concurrent. That keeps the upstream request rate predictable.
type Pipeline struct {
	client    api.Client
	store     store.Store
	opts      Options
	pruner    *Pruner
	discovery *Discovery
	batcher   *Batcher
	logger    *zap.Logger
}

func NewPipeline(client api.Client, st store.Store, opts Options, logger *zap.Logger) *Pipeline {
	if opts.RefDate.IsZero() {
		opts.RefDate = time.Now()
	}
	if opts.After == "" {
		opts.After = opts.RefDate.Format("2006-01-02")
	}

	fetcher := NewFetcher(client, opts.MinAvgVolume, opts.MinAvgOpenInterest, logger)

	return &Pipeline{
		client:    client,
		store:     st,
		opts:      opts,
		pruner:    NewPruner(st, opts.RefDate, logger),
		discovery: NewDiscovery(client, opts.Concurrency, logger),
		batcher:   NewBatcher(fetcher, st, opts.BatchSize, opts.Concurrency, logger),
		logger:    logger,
	}
}

// Run processes every symbol in order. A symbol that fails expiration
// listing is skipped; nothing short of context cancellation stops the run.
func (p *Pipeline) Run(ctx context.Context, syms []string) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))

	logger.Info("ingestion run starting",
		zap.Int("symbols", len(syms)),
		zap.String("ref_date", p.opts.RefDate.Format("2006-01-02")),
	)

	result := &Result{Symbols: len(syms)}
	for _, symbol := range syms {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		p.processSymbol(ctx, symbol, logger, result)
	}

	logger.Info("ingestion run complete",
		zap.Int("symbols", result.Symbols),
		zap.Int("skipped", result.Skipped),
		zap.Int("contracts", result.Contracts),
		zap.Int("persisted", result.Persisted),
		zap.Int("filtered", result.Filtered),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

func (p *Pipeline) processSymbol(ctx context.Context, symbol string, logger *zap.Logger, result *Result) {
	slog := logger.With(zap.String("symbol", symbol))
	slog.Info("processing symbol")

	// Pruning runs before discovery so stale expired artifacts never leak
	// into later runs.
	survivors, err := p.pruner.Prune(symbol)
	if err != nil {
		slog.Warn("pruning failed", zap.String("stage", "prune"), zap.Error(err))
	} else {
		slog.Debug("pruned expired artifacts",
			zap.String("stage", "prune"),
			zap.Int("surviving", len(survivors)),
		)
	}

	expirations, err := p.client.ListExpirations(ctx, symbol, p.opts.After, p.opts.Before)
	if err != nil {
		slog.Warn("expiration listing failed, skipping symbol",
			zap.String("stage", "expirations"),
			zap.Error(err),
		)
		result.Skipped++
		return
	}
	slog.Info("expirations listed",
		zap.String("stage", "expirations"),
		zap.Int("count", len(expirations)),
	)

	contracts := p.discovery.Contracts(ctx, symbol, expirations)
	slog.Info("contracts discovered",
		zap.String("stage", "contracts"),
		zap.Int("count", len(contracts)),
	)
	result.Contracts += len(contracts)

	if len(contracts) == 0 {
		return
	}

	batchResult := p.batcher.Run(ctx, symbol, contracts)
	result.Persisted += batchResult.Persisted
	result.Filtered += batchResult.Filtered
	result.Failed += batchResult.Failed

	slog.Info("symbol done",
		zap.String("stage", "done"),
		zap.Int("persisted", batchResult.Persisted),
		zap.Int("filtered", batchResult.Filtered),
		zap.Int("failed", batchResult.Failed),
	)
}
