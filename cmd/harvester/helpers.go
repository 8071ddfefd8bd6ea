package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/api"
	"github.com/dgnsrekt/options-harvester/internal/config"
	"github.com/dgnsrekt/options-harvester/internal/store"
	"github.com/dgnsrekt/options-harvester/internal/symbols"
)

// newAPIClient builds the upstream client from config.
func newAPIClient(cfg *config.Config, logger *zap.Logger) *api.HTTPClient {
	return api.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		cfg.API.RatePerSecond,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
		time.Duration(cfg.API.RetryDelay)*time.Second,
		cfg.API.RetryCount,
		logger,
	)
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

// resolveSymbols picks the symbol universe for a run. Explicit arguments win;
// otherwise the artifact directory seeds the universe, with the database as
// fallback when the directory is too thin to be trusted.
func resolveSymbols(ctx context.Context, args []string, cfg *config.Config, fs *store.FileStore, logger *zap.Logger) ([]string, error) {
	var source symbols.Source
	if len(args) > 0 {
		source = symbols.StaticSource(args)
	} else {
		source = symbols.NewFallbackSource(
			symbols.NewDirectorySource(fs),
			&databaseSource{cfg: cfg.Symbols.Database},
			cfg.Symbols.MinDirectoryCount,
			logger,
		)
	}
	return source.List(ctx)
}
