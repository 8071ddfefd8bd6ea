package ingest

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/api"
)

func TestFetch_LiquidContract(t *testing.T) {
	client := &mockClient{
		histories: map[string]*api.HistoryResponse{
			"XYZ240119C00100000": {
				Option: map[string]any{"expiration": "2024-01-19", "strike": 100.0, "type": "call"},
				Prices: dailyHistory(30, 50, 40),
			},
		},
	}

	fetcher := NewFetcher(client, 10, 10, zap.NewNop())

	artifact, err := fetcher.Fetch(context.Background(), "XYZ240119C00100000")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if artifact == nil {
		t.Fatal("expected artifact for liquid contract")
	}

	if artifact.OptionType != "call" || artifact.Expiration != "2024-01-19" {
		t.Errorf("unexpected metadata: %+v", artifact)
	}
	if len(artifact.History) != 30 {
		t.Fatalf("expected 30 records, got %d", len(artifact.History))
	}

	// History is ascending by date.
	for i := 1; i < len(artifact.History); i++ {
		if dateOf(artifact.History[i-1]) >= dateOf(artifact.History[i]) {
			t.Fatalf("history not ascending at %d: %s >= %s",
				i, dateOf(artifact.History[i-1]), dateOf(artifact.History[i]))
		}
	}

	// First record carries no derived fields; later ones do.
	if _, ok := artifact.History[0]["changeOI"]; ok {
		t.Error("first record should have no changeOI")
	}
	second := artifact.History[1]
	if second["changeOI"] != 1.0 {
		t.Errorf("expected changeOI 1, got %v", second["changeOI"])
	}
	if second["gex"] == nil || second["dex"] == nil || second["total_premium"] == nil {
		t.Errorf("expected exposures on second record: %v", second)
	}
}

func TestFetch_IlliquidContract(t *testing.T) {
	client := &mockClient{
		histories: map[string]*api.HistoryResponse{
			"XYZ240119C00200000": {
				Option: map[string]any{"expiration": "2024-01-19", "strike": 200.0, "type": "call"},
				Prices: dailyHistory(30, 5, 40), // avg volume 5 fails the gate
			},
		},
	}

	fetcher := NewFetcher(client, 10, 10, zap.NewNop())

	artifact, err := fetcher.Fetch(context.Background(), "XYZ240119C00200000")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if artifact != nil {
		t.Error("expected no artifact for illiquid contract")
	}
}

func TestFetch_UpstreamError(t *testing.T) {
	client := &mockClient{}

	fetcher := NewFetcher(client, 10, 10, zap.NewNop())

	if _, err := fetcher.Fetch(context.Background(), "XYZ240119C00100000"); err != api.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCleanRecord(t *testing.T) {
	record := cleanRecord(map[string]any{
		"_date":          "2024-01-02",
		"volume":         10.0,
		"close_time":     "16:00",
		"exercise_style": "A",
		"bid_high":       1.2,
	})

	if record["date"] != "2024-01-02" {
		t.Errorf("expected leading underscore stripped, got %v", record)
	}
	for _, key := range []string{"close_time", "exercise_style", "bid_high"} {
		if _, ok := record[key]; ok {
			t.Errorf("excluded field %s survived cleaning", key)
		}
	}
	if record["volume"] != 10.0 {
		t.Errorf("volume should pass through, got %v", record["volume"])
	}
}

func TestRoundRecord(t *testing.T) {
	record := map[string]any{
		"mark":   1.23456,
		"strike": "150.129",
		"date":   "2024-01-02",
		"flag":   true,
	}
	roundRecord(record)

	if record["mark"] != 1.23 {
		t.Errorf("expected 1.23, got %v", record["mark"])
	}
	if record["strike"] != 150.13 {
		t.Errorf("numeric strings should round, got %v", record["strike"])
	}
	if record["date"] != "2024-01-02" {
		t.Errorf("non-numeric strings pass through, got %v", record["date"])
	}
	if record["flag"] != true {
		t.Errorf("booleans pass through, got %v", record["flag"])
	}
}

func TestOpenInterestChanges(t *testing.T) {
	history := []map[string]any{
		{"date": "2024-01-02", "open_interest": 100.0},
		{"date": "2024-01-03", "open_interest": 150.0},
	}
	computeOpenInterestChanges(history)

	if history[1]["changeOI"] != 50.0 {
		t.Errorf("expected changeOI 50, got %v", history[1]["changeOI"])
	}
	if history[1]["changesPercentageOI"] != 50.0 {
		t.Errorf("expected changesPercentageOI 50.0, got %v", history[1]["changesPercentageOI"])
	}
}

func TestOpenInterestChanges_ZeroPrior(t *testing.T) {
	history := []map[string]any{
		{"date": "2024-01-02", "open_interest": 0.0},
		{"date": "2024-01-03", "open_interest": 150.0},
	}
	computeOpenInterestChanges(history)

	// Division by zero must yield explicit nulls, present in the record.
	if v, ok := history[1]["changeOI"]; !ok || v != nil {
		t.Errorf("expected null changeOI, got %v (present=%v)", v, ok)
	}
	if v, ok := history[1]["changesPercentageOI"]; !ok || v != nil {
		t.Errorf("expected null changesPercentageOI, got %v (present=%v)", v, ok)
	}
}

func TestOpenInterestChanges_MissingPrior(t *testing.T) {
	history := []map[string]any{
		{"date": "2024-01-02"},
		{"date": "2024-01-03", "open_interest": 150.0},
	}
	computeOpenInterestChanges(history)

	if v := history[1]["changeOI"]; v != nil {
		t.Errorf("expected null changeOI, got %v", v)
	}
}

func TestComputeExposures_FailurePolicies(t *testing.T) {
	history := []map[string]any{
		{"date": "2024-01-02"},
		{"date": "2024-01-03", "open_interest": 200.0, "delta": 0.4, "mark": 2.0},
	}
	computeExposures(history)

	record := history[1]

	// gamma missing: gex omitted entirely, dex still computed.
	if _, ok := record["gex"]; ok {
		t.Error("gex should be omitted when gamma is missing")
	}
	if record["dex"] != 0.4*200*100 {
		t.Errorf("unexpected dex: %v", record["dex"])
	}

	// volume missing: total_premium falls back to 0, not null.
	if record["total_premium"] != float64(0) {
		t.Errorf("expected total_premium 0, got %v", record["total_premium"])
	}
}

func TestComputeExposures_TotalPremiumFloor(t *testing.T) {
	history := []map[string]any{
		{"date": "2024-01-02"},
		{"date": "2024-01-03", "mark": 1.507, "volume": 33.0},
	}
	computeExposures(history)

	// floor(1.507 * 33 * 100) = floor(4973.1) = 4973
	if history[1]["total_premium"] != 4973.0 {
		t.Errorf("expected total_premium 4973, got %v", history[1]["total_premium"])
	}
}
