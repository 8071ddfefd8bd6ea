package ingest

import (
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/occ"
	"github.com/dgnsrekt/options-harvester/internal/store"
)

// Pruner removes persisted artifacts whose encoded expiration has passed.
// The reference date is fixed at construction so every symbol in a run is
// judged against the same day.
type Pruner struct {
	store   store.Store
	refDate time.Time
	logger  *zap.Logger
}

func NewPruner(st store.Store, refDate time.Time, logger *zap.Logger) *Pruner {
	return &Pruner{store: st, refDate: refDate, logger: logger}
}

// Prune deletes expired artifacts for the symbol and returns the surviving
// contract IDs. Malformed keys are skipped, never fatal: one bad entry must
// not abort the pass.
func (p *Pruner) Prune(symbol string) ([]string, error) {
	ids, err := p.store.List(symbol)
	if err != nil {
		return nil, err
	}

	var survivors []string
	for _, id := range ids {
		contract, err := occ.Parse(id)
		if err != nil {
			p.logger.Warn("skipping undecodable artifact key",
				zap.String("symbol", symbol),
				zap.String("contract", id),
				zap.Error(err),
			)
			continue
		}

		if !contract.Expired(p.refDate) {
			survivors = append(survivors, id)
			continue
		}

		if err := p.store.Delete(symbol, id); err != nil {
			p.logger.Warn("failed to delete expired artifact",
				zap.String("symbol", symbol),
				zap.String("contract", id),
				zap.Error(err),
			)
			// Leave it in the survivor set so a later pass retries the delete.
			survivors = append(survivors, id)
			continue
		}

		p.logger.Debug("deleted expired contract",
			zap.String("symbol", symbol),
			zap.String("contract", id),
		)
	}

	return survivors, nil
}
