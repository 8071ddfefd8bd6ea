package config

import (
	"os"
	"testing"
)

func TestLoadWithAPIKey(t *testing.T) {
	_ = os.Setenv("HARVESTER_API_KEY", "test-key-123")
	defer func() { _ = os.Unsetenv("HARVESTER_API_KEY") }()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected config to load with API key, got error: %v", err)
	}

	if cfg.API.APIKey != "test-key-123" {
		t.Errorf("expected API key 'test-key-123', got '%s'", cfg.API.APIKey)
	}

	if cfg.Ingest.Concurrency != 100 {
		t.Errorf("expected default concurrency 100, got %d", cfg.Ingest.Concurrency)
	}

	if cfg.Ingest.BatchSize != 1500 {
		t.Errorf("expected default batch size 1500, got %d", cfg.Ingest.BatchSize)
	}

	if cfg.Ingest.MinAvgVolume != 10 || cfg.Ingest.MinAvgOpenInterest != 10 {
		t.Errorf("expected liquidity thresholds of 10, got %v/%v",
			cfg.Ingest.MinAvgVolume, cfg.Ingest.MinAvgOpenInterest)
	}

	if cfg.Enrich.WindowSize != 20 {
		t.Errorf("expected default window size 20, got %d", cfg.Enrich.WindowSize)
	}

	if cfg.Ingest.Before != "2100-12-31" {
		t.Errorf("expected default before date, got %s", cfg.Ingest.Before)
	}
}

func TestLoadWithoutAPIKey(t *testing.T) {
	_ = os.Unsetenv("HARVESTER_API_KEY")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.API.APIKey = "k"
	cfg.Ingest.Concurrency = 100
	cfg.Ingest.BatchSize = 1500
	cfg.Enrich.WindowSize = 20

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg.Ingest.BatchSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero batch size")
	}

	cfg.Ingest.BatchSize = 1500
	cfg.Enrich.WindowSize = 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for window size below 2")
	}
}
