package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SeriesStore holds one JSON blob per symbol, used for the daily
// price/implied-volatility series consumed and produced by the enricher.
type SeriesStore struct {
	dir string
}

func NewSeriesStore(dir string) *SeriesStore {
	return &SeriesStore{dir: dir}
}

func (s *SeriesStore) Load(symbol string, out any) error {
	data, err := os.ReadFile(s.path(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("reading series: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshaling series: %w", err)
	}
	return nil
}

func (s *SeriesStore) Save(symbol string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling series: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpPath := s.path(symbol) + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0640); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(symbol)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Symbols returns the symbols with a stored series, from filenames.
func (s *SeriesStore) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing series: %w", err)
	}

	var symbols []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *SeriesStore) path(symbol string) string {
	return filepath.Join(s.dir, symbol+".json")
}
