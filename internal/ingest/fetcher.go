package ingest

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/api"
	"github.com/dgnsrekt/options-harvester/internal/store"
)

// excludedFields are vendor bookkeeping fields with no downstream use,
// dropped from every history record before persistence.
var excludedFields = map[string]struct{}{
	"close_time":     {},
	"open_ask":       {},
	"ask_low":        {},
	"close_size":     {},
	"exercise_style": {},
	"discriminator":  {},
	"open_bid":       {},
	"bid_low":        {},
	"bid_high":       {},
	"ask_high":       {},
}

// Fetcher retrieves one contract's EOD history, applies the liquidity gate
// and computes the derived flow metrics.
type Fetcher struct {
	client             api.Client
	minAvgVolume       float64
	minAvgOpenInterest float64
	logger             *zap.Logger
}

func NewFetcher(client api.Client, minAvgVolume, minAvgOpenInterest float64, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:             client,
		minAvgVolume:       minAvgVolume,
		minAvgOpenInterest: minAvgOpenInterest,
		logger:             logger,
	}
}

// Fetch returns the enriched artifact for a contract, or (nil, nil) when the
// contract fails the liquidity gate. That outcome is a deliberate filter,
// not an error.
func (f *Fetcher) Fetch(ctx context.Context, contractID string) (*store.Artifact, error) {
	resp, err := f.client.GetHistory(ctx, contractID)
	if err != nil {
		return nil, err
	}

	history := make([]store.Record, 0, len(resp.Prices))
	for _, raw := range resp.Prices {
		history = append(history, cleanRecord(raw))
	}

	if !f.passesLiquidityGate(history) {
		f.logger.Debug("contract filtered by liquidity gate", zap.String("contract", contractID))
		return nil, nil
	}

	for _, record := range history {
		roundRecord(record)
	}

	sort.Slice(history, func(i, j int) bool {
		return dateOf(history[i]) < dateOf(history[j])
	})

	computeOpenInterestChanges(history)
	computeExposures(history)

	return &store.Artifact{
		Expiration: resp.Option["expiration"],
		Strike:     resp.Option["strike"],
		OptionType: resp.Option["type"],
		History:    history,
	}, nil
}

// cleanRecord drops excluded vendor fields and strips the vendor schema's
// leading underscore from key names.
func cleanRecord(raw map[string]any) store.Record {
	record := make(store.Record, len(raw))
	for key, value := range raw {
		if _, excluded := excludedFields[key]; excluded {
			continue
		}
		for len(key) > 0 && key[0] == '_' {
			key = key[1:]
		}
		if key == "" {
			continue
		}
		record[key] = value
	}
	return record
}

// passesLiquidityGate requires both mean volume and mean open interest over
// the full history to exceed the configured thresholds. Missing values count
// as zero for the mean only.
func (f *Fetcher) passesLiquidityGate(history []store.Record) bool {
	if len(history) == 0 {
		return false
	}

	volumes := make([]float64, len(history))
	openInterest := make([]float64, len(history))
	for i, record := range history {
		volumes[i], _ = numeric(record, "volume")
		openInterest[i], _ = numeric(record, "open_interest")
	}

	avgVolume, err := stats.Mean(volumes)
	if err != nil {
		return false
	}
	avgOpenInterest, err := stats.Mean(openInterest)
	if err != nil {
		return false
	}

	return avgVolume > f.minAvgVolume && avgOpenInterest > f.minAvgOpenInterest
}

// roundRecord rounds every numeric field to 2 decimal places. Numeric
// strings are rounded too; anything that does not parse passes through.
func roundRecord(record store.Record) {
	for key, value := range record {
		switch v := value.(type) {
		case float64:
			record[key] = round2(v)
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				record[key] = round2(parsed)
			}
		}
	}
}

// computeOpenInterestChanges walks the date-sorted history from the second
// record onward and sets changeOI / changesPercentageOI relative to the
// prior day. Both fields are explicit nulls when the prior open interest is
// zero or either side is missing.
func computeOpenInterestChanges(history []store.Record) {
	for i := 1; i < len(history); i++ {
		current, okCur := numeric(history[i], "open_interest")
		previous, okPrev := numeric(history[i-1], "open_interest")

		if !okCur || !okPrev || previous == 0 {
			history[i]["changeOI"] = nil
			history[i]["changesPercentageOI"] = nil
			continue
		}

		history[i]["changeOI"] = current - previous
		history[i]["changesPercentageOI"] = round2((current/previous - 1) * 100)
	}
}

// computeExposures sets gex, dex and total_premium from the second record
// onward. Each metric has its own failure policy: gex and dex are omitted
// when an input is missing, total_premium falls back to 0 so aggregate sums
// stay well-defined.
func computeExposures(history []store.Record) {
	for i := 1; i < len(history); i++ {
		record := history[i]

		oi, okOI := numeric(record, "open_interest")

		if gamma, ok := numeric(record, "gamma"); ok && okOI {
			record["gex"] = gamma * oi * 100
		}
		if delta, ok := numeric(record, "delta"); ok && okOI {
			record["dex"] = delta * oi * 100
		}

		mark, okMark := numeric(record, "mark")
		volume, okVolume := numeric(record, "volume")
		if okMark && okVolume {
			record["total_premium"] = math.Floor(mark * volume * 100)
		} else {
			record["total_premium"] = float64(0)
		}
	}
}

// numeric reads a field as float64, reporting false for missing, null or
// non-numeric values.
func numeric(record store.Record, key string) (float64, bool) {
	v, ok := record[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func dateOf(record store.Record) string {
	if d, ok := record["date"].(string); ok {
		return d
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
