package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/api"
	"github.com/dgnsrekt/options-harvester/internal/config"
	"github.com/dgnsrekt/options-harvester/internal/enrich"
	"github.com/dgnsrekt/options-harvester/internal/ingest"
	"github.com/dgnsrekt/options-harvester/internal/store"
	"github.com/dgnsrekt/options-harvester/internal/symbols"
)

// HarvestTracker tracks the last successfully harvested date
type HarvestTracker struct {
	stateFile string
}

// NewHarvestTracker creates a new tracker with the given state file path
func NewHarvestTracker(stateFile string) *HarvestTracker {
	return &HarvestTracker{stateFile: stateFile}
}

// GetLastHarvestDate reads the last successful harvest date from state file
func (t *HarvestTracker) GetLastHarvestDate() string {
	data, err := os.ReadFile(t.stateFile)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// SetLastHarvestDate writes the date to the state file
func (t *HarvestTracker) SetLastHarvestDate(date string) error {
	// Ensure directory exists
	dir := filepath.Dir(t.stateFile)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	return os.WriteFile(t.stateFile, []byte(date+"\n"), 0600)
}

// AlreadyHarvested checks if the given date was already harvested
func (t *HarvestTracker) AlreadyHarvested(date string) bool {
	return t.GetLastHarvestDate() == date
}

// databaseSource connects on demand so a run that never needs the fallback
// never touches the database.
type databaseSource struct {
	cfg symbols.DBConfig
}

func (s *databaseSource) List(ctx context.Context) ([]string, error) {
	src, err := symbols.NewPostgresSource(ctx, s.cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.List(ctx)
}

// executeHarvest runs the full ingestion pipeline for the configured symbol
// universe and returns the run result.
func executeHarvest(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ingest.Result, error) {
	fs, err := store.NewFileStore(cfg.Store.Directory, cfg.Store.Compress)
	if err != nil {
		return nil, err
	}
	defer fs.Close()

	source := symbols.NewFallbackSource(
		symbols.NewDirectorySource(fs),
		&databaseSource{cfg: cfg.Symbols.Database},
		cfg.Symbols.MinDirectoryCount,
		logger,
	)

	syms, err := source.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 {
		logger.Warn("no symbols to harvest")
		return &ingest.Result{}, nil
	}

	client := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		cfg.API.RatePerSecond,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
		time.Duration(cfg.API.RetryDelay)*time.Second,
		cfg.API.RetryCount,
		logger,
	)

	pipeline := ingest.NewPipeline(client, fs, ingest.Options{
		Concurrency:        cfg.Ingest.Concurrency,
		BatchSize:          cfg.Ingest.BatchSize,
		MinAvgVolume:       cfg.Ingest.MinAvgVolume,
		MinAvgOpenInterest: cfg.Ingest.MinAvgOpenInterest,
		After:              cfg.Ingest.After,
		Before:             cfg.Ingest.Before,
	}, logger)

	return pipeline.Run(ctx, syms)
}

// executeEnrich recomputes the volatility series for every stored symbol.
func executeEnrich(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	input := store.NewSeriesStore(cfg.Store.SeriesDirectory)
	output := store.NewSeriesStore(cfg.Store.OutputDirectory)

	syms, err := input.Symbols()
	if err != nil {
		return err
	}
	if len(syms) == 0 {
		logger.Debug("no stored series to enrich")
		return nil
	}

	enricher := enrich.NewEnricher(input, output, cfg.Enrich.WindowSize, logger)
	_, err = enricher.Run(ctx, syms)
	return err
}
