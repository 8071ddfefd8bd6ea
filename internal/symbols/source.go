// Package symbols enumerates the universe of tickers to ingest.
package symbols

import (
	"context"

	"go.uber.org/zap"
)

// Source lists the symbols to process. Failure to list symbols is the only
// error the pipeline treats as fatal for a whole run.
type Source interface {
	List(ctx context.Context) ([]string, error)
}

// Lister is anything that can enumerate symbols from local state, such as
// the artifact store's directory layout.
type Lister interface {
	Symbols() ([]string, error)
}

// DirectorySource derives the symbol universe from artifacts already on
// disk, so a re-run covers exactly what previous runs ingested.
type DirectorySource struct {
	lister Lister
}

func NewDirectorySource(lister Lister) *DirectorySource {
	return &DirectorySource{lister: lister}
}

func (s *DirectorySource) List(_ context.Context) ([]string, error) {
	return s.lister.Symbols()
}

// FallbackSource prefers the primary source but falls back to the secondary
// when the primary yields fewer than minCount symbols. The artifact
// directory only knows symbols that produced liquid contracts before, so a
// thin directory means the database should seed the universe instead.
type FallbackSource struct {
	primary   Source
	secondary Source
	minCount  int
	logger    *zap.Logger
}

func NewFallbackSource(primary, secondary Source, minCount int, logger *zap.Logger) *FallbackSource {
	return &FallbackSource{
		primary:   primary,
		secondary: secondary,
		minCount:  minCount,
		logger:    logger,
	}
}

func (s *FallbackSource) List(ctx context.Context) ([]string, error) {
	symbols, err := s.primary.List(ctx)
	if err == nil && len(symbols) >= s.minCount {
		return symbols, nil
	}

	if err != nil {
		s.logger.Warn("primary symbol source failed, falling back", zap.Error(err))
	} else {
		s.logger.Info("primary symbol source below threshold, falling back",
			zap.Int("count", len(symbols)),
			zap.Int("min", s.minCount),
		)
	}

	return s.secondary.List(ctx)
}

// StaticSource returns a fixed symbol list, used when symbols are passed on
// the command line.
type StaticSource []string

func (s StaticSource) List(_ context.Context) ([]string, error) {
	return s, nil
}
