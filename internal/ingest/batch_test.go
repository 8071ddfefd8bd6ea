package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/options-harvester/internal/api"
)

func TestPartition(t *testing.T) {
	ids := make([]string, 3200)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%04d", i)
	}

	batches := partition(ids, 1500)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 1500 || len(batches[1]) != 1500 || len(batches[2]) != 200 {
		t.Errorf("unexpected batch sizes: %d, %d, %d",
			len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestBatcher_BatchBarrier(t *testing.T) {
	histories := make(map[string]*api.HistoryResponse)
	var ids []string
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("XYZ24011%dC00100000", i)
		ids = append(ids, id)
		histories[id] = &api.HistoryResponse{
			Option: map[string]any{"expiration": "2024-01-19", "strike": 100.0, "type": "call"},
			Prices: dailyHistory(5, 50, 40),
		}
	}

	client := &mockClient{histories: histories, historyDelay: 10 * time.Millisecond}
	fs := newTestStore(t)
	fetcher := NewFetcher(client, 10, 10, zap.NewNop())

	// Batch size 2 with a much larger concurrency limit: if batches did not
	// settle before the next one starts, more than 2 calls would be in
	// flight at once.
	batcher := NewBatcher(fetcher, fs, 2, 10, zap.NewNop())
	result := batcher.Run(context.Background(), "XYZ", ids)

	if result.Persisted != 6 {
		t.Fatalf("expected 6 persisted, got %+v", result)
	}
	if client.maxInFlight > 2 {
		t.Errorf("batch barrier violated: %d calls in flight", client.maxInFlight)
	}
}

func TestBatcher_FailureIsolation(t *testing.T) {
	client := &mockClient{
		histories: map[string]*api.HistoryResponse{
			"XYZ240119C00100000": {
				Option: map[string]any{"expiration": "2024-01-19", "strike": 100.0, "type": "call"},
				Prices: dailyHistory(5, 50, 40),
			},
			"XYZ240119C00300000": {
				Option: map[string]any{"expiration": "2024-01-19", "strike": 300.0, "type": "call"},
				Prices: dailyHistory(5, 5, 5), // filtered
			},
		},
		historyErr: map[string]error{
			"XYZ240119C00200000": errors.New("boom"),
		},
	}

	fs := newTestStore(t)
	fetcher := NewFetcher(client, 10, 10, zap.NewNop())
	batcher := NewBatcher(fetcher, fs, 1500, 100, zap.NewNop())

	result := batcher.Run(context.Background(), "XYZ",
		[]string{"XYZ240119C00100000", "XYZ240119C00200000", "XYZ240119C00300000"})

	if result.Total != 3 || result.Persisted != 1 || result.Failed != 1 || result.Filtered != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected one recorded error, got %v", result.Errors)
	}

	persisted, _ := fs.List("XYZ")
	if len(persisted) != 1 || persisted[0] != "XYZ240119C00100000" {
		t.Errorf("unexpected persisted set: %v", persisted)
	}
}

func TestBatcher_Empty(t *testing.T) {
	fs := newTestStore(t)
	fetcher := NewFetcher(&mockClient{}, 10, 10, zap.NewNop())
	batcher := NewBatcher(fetcher, fs, 1500, 100, zap.NewNop())

	result := batcher.Run(context.Background(), "XYZ", nil)
	if result.Total != 0 || result.Persisted != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
}
