package ingest

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/options-harvester/internal/api"
)

// Discovery resolves a symbol's full contract universe by fanning the chain
// lookup out over every expiration under a shared concurrency bound.
type Discovery struct {
	client      api.Client
	concurrency int
	logger      *zap.Logger
}

func NewDiscovery(client api.Client, concurrency int, logger *zap.Logger) *Discovery {
	return &Discovery{client: client, concurrency: concurrency, logger: logger}
}

// Contracts returns the deduplicated, sorted union of contract codes across
// all expirations. A failed expiration contributes nothing; one bad
// expiration must not block the others.
func (d *Discovery) Contracts(ctx context.Context, symbol string, expirations []string) []string {
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, expiration := range expirations {
		g.Go(func() error {
			codes, err := d.client.GetChain(gctx, symbol, expiration)
			if err != nil {
				d.logger.Warn("chain lookup failed",
					zap.String("symbol", symbol),
					zap.String("expiration", expiration),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			for _, code := range codes {
				seen[code] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}

	// Workers swallow their own errors; Wait only observes ctx cancellation.
	_ = g.Wait()

	contracts := make([]string, 0, len(seen))
	for code := range seen {
		contracts = append(contracts, code)
	}
	sort.Strings(contracts)

	return contracts
}
