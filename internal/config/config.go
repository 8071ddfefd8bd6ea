package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/options-harvester/internal/symbols"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Ingest  IngestConfig  `mapstructure:"ingest"`
	Enrich  EnrichConfig  `mapstructure:"enrich"`
	Store   StoreConfig   `mapstructure:"store"`
	Symbols SymbolsConfig `mapstructure:"symbols"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	TimeoutSec    int    `mapstructure:"timeout_sec"`
	RetryCount    int    `mapstructure:"retry_count"`
	RetryDelay    int    `mapstructure:"retry_delay_sec"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type IngestConfig struct {
	// Concurrency bounds in-flight upstream calls for one symbol's run, for
	// chain discovery and history fetches alike.
	Concurrency int `mapstructure:"concurrency"`

	// BatchSize caps queued history fetches; a batch must settle before the
	// next one starts.
	BatchSize int `mapstructure:"batch_size"`

	// Liquidity gate: a contract must exceed both averages over its full
	// history to be persisted.
	MinAvgVolume       float64 `mapstructure:"min_avg_volume"`
	MinAvgOpenInterest float64 `mapstructure:"min_avg_open_interest"`

	// Expiration window queried upstream. After defaults to the run date.
	After  string `mapstructure:"after"`
	Before string `mapstructure:"before"`
}

type EnrichConfig struct {
	WindowSize int `mapstructure:"window_size"`
}

type StoreConfig struct {
	Directory       string `mapstructure:"directory"`
	SeriesDirectory string `mapstructure:"series_directory"`
	OutputDirectory string `mapstructure:"output_directory"`
	Compress        bool   `mapstructure:"compress"`
}

type SymbolsConfig struct {
	Database          symbols.DBConfig `mapstructure:"database"`
	MinDirectoryCount int              `mapstructure:"min_directory_count"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("api.base_url", "https://api.marketdata.example.com/v2")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("api.retry_count", 3)
	v.SetDefault("api.retry_delay_sec", 2)
	v.SetDefault("api.rate_per_second", 50)
	v.SetDefault("ingest.concurrency", 100)
	v.SetDefault("ingest.batch_size", 1500)
	v.SetDefault("ingest.min_avg_volume", 10)
	v.SetDefault("ingest.min_avg_open_interest", 10)
	v.SetDefault("ingest.before", "2100-12-31")
	v.SetDefault("enrich.window_size", 20)
	v.SetDefault("store.directory", "data/contracts")
	v.SetDefault("store.series_directory", "data/companies")
	v.SetDefault("store.output_directory", "data/implied-volatility")
	v.SetDefault("store.compress", false)
	v.SetDefault("symbols.database.port", 5432)
	v.SetDefault("symbols.min_directory_count", 2000)
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind nested keys to env vars
	_ = v.BindEnv("api.api_key", "HARVESTER_API_KEY")
	_ = v.BindEnv("symbols.database.password", "HARVESTER_DB_PASSWORD")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("api_key is required (set HARVESTER_API_KEY env var)")
	}
	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest.concurrency must be >= 1")
	}
	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be >= 1")
	}
	if c.Enrich.WindowSize < 2 {
		return fmt.Errorf("enrich.window_size must be >= 2")
	}
	return nil
}
