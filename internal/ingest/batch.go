package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/options-harvester/internal/store"
)

// BatchResult aggregates the outcome of scheduling history fetches for one
// symbol's contract universe.
type BatchResult struct {
	Total     int
	Persisted int
	Filtered  int
	Failed    int
	Errors    []string
}

// Batcher partitions a contract set into fixed-size batches and runs the
// fetcher over each batch under a concurrency bound. The limiter caps
// simultaneous network calls; batching caps total queued work on top of it.
// A batch must fully settle before the next one starts.
type Batcher struct {
	fetcher     *Fetcher
	store       store.Store
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

func NewBatcher(fetcher *Fetcher, st store.Store, batchSize, concurrency int, logger *zap.Logger) *Batcher {
	return &Batcher{
		fetcher:     fetcher,
		store:       st,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run fetches and persists every contract. A single fetch or persist failure
// never cancels sibling fetches; failures are simply absent from the output.
func (b *Batcher) Run(ctx context.Context, symbol string, contractIDs []string) *BatchResult {
	result := &BatchResult{Total: len(contractIDs)}
	if len(contractIDs) == 0 {
		return result
	}

	var (
		mu        sync.Mutex
		completed atomic.Int64
	)

	for batchNum, batch := range partition(contractIDs, b.batchSize) {
		if ctx.Err() != nil {
			break
		}

		b.logger.Info("processing batch",
			zap.String("symbol", symbol),
			zap.Int("batch", batchNum+1),
			zap.Int("size", len(batch)),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(b.concurrency)

		for _, contractID := range batch {
			g.Go(func() error {
				artifact, err := b.fetcher.Fetch(gctx, contractID)
				done := completed.Add(1)

				mu.Lock()
				defer mu.Unlock()

				switch {
				case err != nil:
					result.Failed++
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", contractID, err))
					b.logger.Warn("history fetch failed",
						zap.String("contract", contractID),
						zap.Error(err),
					)
				case artifact == nil:
					result.Filtered++
				default:
					if err := b.store.Put(symbol, contractID, artifact); err != nil {
						result.Failed++
						result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", contractID, err))
						b.logger.Warn("persist failed",
							zap.String("contract", contractID),
							zap.Error(err),
						)
					} else {
						result.Persisted++
					}
				}

				b.logger.Debug("contract processed",
					zap.String("contract", contractID),
					zap.Int64("progress", done),
					zap.Int("total", result.Total),
				)
				return nil
			})
		}

		// Workers never return errors; the barrier between batches is the
		// whole point of the Wait.
		_ = g.Wait()
	}

	return result
}

func partition(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
