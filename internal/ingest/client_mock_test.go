package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgnsrekt/options-harvester/internal/api"
)

// mockClient implements api.Client for tests. It tracks in-flight history
// calls so scheduling tests can assert concurrency bounds.
type mockClient struct {
	expirations    map[string][]string
	expirationsErr map[string]error
	chains         map[string][]string
	chainErr       map[string]error
	histories      map[string]*api.HistoryResponse
	historyErr     map[string]error

	historyDelay time.Duration

	mu           sync.Mutex
	historyCalls int
	inFlight     int
	maxInFlight  int
}

func chainKey(symbol, expiration string) string {
	return symbol + "/" + expiration
}

func (m *mockClient) ListExpirations(_ context.Context, symbol, _, _ string) ([]string, error) {
	if err := m.expirationsErr[symbol]; err != nil {
		return nil, err
	}
	return m.expirations[symbol], nil
}

func (m *mockClient) GetChain(_ context.Context, symbol, expiration string) ([]string, error) {
	key := chainKey(symbol, expiration)
	if err := m.chainErr[key]; err != nil {
		return nil, err
	}
	return m.chains[key], nil
}

func (m *mockClient) GetHistory(_ context.Context, contractID string) (*api.HistoryResponse, error) {
	m.mu.Lock()
	m.historyCalls++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	if m.historyDelay > 0 {
		time.Sleep(m.historyDelay)
	}

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if err := m.historyErr[contractID]; err != nil {
		return nil, err
	}
	resp, ok := m.histories[contractID]
	if !ok {
		return nil, api.ErrNotFound
	}
	return resp, nil
}

// dailyHistory builds n days of history starting 2024-01-01 with fixed
// volume and linearly growing open interest.
func dailyHistory(n int, volume, startOI float64) []map[string]any {
	prices := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		prices = append(prices, map[string]any{
			"date":          fmt.Sprintf("2024-01-%02d", i+1),
			"volume":        volume,
			"open_interest": startOI + float64(i),
			"mark":          1.5,
			"delta":         0.5,
			"gamma":         0.02,
		})
	}
	return prices
}
