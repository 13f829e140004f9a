// Package config loads the runtime configuration from an optional YAML file
// with environment overrides on top. The oracle credential only ever comes
// from the environment; its absence selects deterministic-only scoring.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	internalconfig "github.com/TravelOpsHQ/travelcore-go/internal/config"
)

const (
	DefaultOracleBaseURL = "https://api.openai.com"
	DefaultOracleModel   = "gpt-4o-mini"
	DefaultMaxBatchSize  = 50
	DefaultRetryBudget   = 3
	DefaultCacheTTL      = 24 * time.Hour
	DefaultOracleTimeout = 30 * time.Second
)

type Config struct {
	OracleAPIKey  string
	OracleBaseURL string
	OracleModel   string
	OracleTimeout time.Duration

	MaxBatchSize int
	RetryBudget  int
	CacheTTL     time.Duration

	LedgerDBPath      string
	CacheSnapshotPath string
	RedisAddr         string
}

// OracleEnabled reports whether a credential is configured. Without one the
// whole deployment runs on the deterministic scorer, by design.
func (c Config) OracleEnabled() bool { return c.OracleAPIKey != "" }

type fileConfig struct {
	OracleBaseURL     string `yaml:"oracleBaseUrl"`
	OracleModel       string `yaml:"oracleModel"`
	OracleTimeout     string `yaml:"oracleTimeout"`
	MaxBatchSize      int    `yaml:"maxBatchSize"`
	RetryBudget       int    `yaml:"retryBudget"`
	CacheTTL          string `yaml:"cacheTtl"`
	LedgerDBPath      string `yaml:"ledgerDbPath"`
	CacheSnapshotPath string `yaml:"cacheSnapshotPath"`
	RedisAddr         string `yaml:"redisAddr"`
}

func Default() Config {
	return Config{
		OracleBaseURL:     DefaultOracleBaseURL,
		OracleModel:       DefaultOracleModel,
		OracleTimeout:     DefaultOracleTimeout,
		MaxBatchSize:      DefaultMaxBatchSize,
		RetryBudget:       DefaultRetryBudget,
		CacheTTL:          DefaultCacheTTL,
		LedgerDBPath:      filepath.Join("data", "ledger.db"),
		CacheSnapshotPath: filepath.Join("data", "scorecache.json"),
	}
}

// Load reads path (optional, "" means defaults only), then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to decode config file %q: %w", path, err)
		}
		applyFile(&cfg, fc)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if fc.OracleBaseURL != "" {
		cfg.OracleBaseURL = fc.OracleBaseURL
	}
	if fc.OracleModel != "" {
		cfg.OracleModel = fc.OracleModel
	}
	if d, err := time.ParseDuration(fc.OracleTimeout); err == nil && d > 0 {
		cfg.OracleTimeout = d
	}
	if fc.MaxBatchSize > 0 {
		cfg.MaxBatchSize = fc.MaxBatchSize
	}
	if fc.RetryBudget > 0 {
		cfg.RetryBudget = fc.RetryBudget
	}
	if d, err := time.ParseDuration(fc.CacheTTL); err == nil && d > 0 {
		cfg.CacheTTL = d
	}
	if fc.LedgerDBPath != "" {
		cfg.LedgerDBPath = fc.LedgerDBPath
	}
	if fc.CacheSnapshotPath != "" {
		cfg.CacheSnapshotPath = fc.CacheSnapshotPath
	}
	if fc.RedisAddr != "" {
		cfg.RedisAddr = fc.RedisAddr
	}
}

func applyEnv(cfg *Config) {
	cfg.OracleAPIKey = internalconfig.StringEnv("ORACLE_API_KEY", cfg.OracleAPIKey)
	cfg.OracleBaseURL = internalconfig.StringEnv("TRAVELCORE_ORACLE_BASE_URL", cfg.OracleBaseURL)
	cfg.OracleModel = internalconfig.StringEnv("TRAVELCORE_ORACLE_MODEL", cfg.OracleModel)
	cfg.OracleTimeout = internalconfig.ParseDurationEnv("TRAVELCORE_ORACLE_TIMEOUT", cfg.OracleTimeout)
	cfg.MaxBatchSize = internalconfig.ParseIntEnv("TRAVELCORE_MAX_BATCH_SIZE", cfg.MaxBatchSize)
	cfg.RetryBudget = internalconfig.ParseIntEnv("TRAVELCORE_RETRY_BUDGET", cfg.RetryBudget)
	cfg.CacheTTL = internalconfig.ParseDurationEnv("TRAVELCORE_CACHE_TTL", cfg.CacheTTL)
	cfg.LedgerDBPath = internalconfig.StringEnv("TRAVELCORE_LEDGER_DB", cfg.LedgerDBPath)
	cfg.CacheSnapshotPath = internalconfig.StringEnv("TRAVELCORE_CACHE_SNAPSHOT", cfg.CacheSnapshotPath)
	cfg.RedisAddr = internalconfig.StringEnv("TRAVELCORE_REDIS_ADDR", cfg.RedisAddr)
}
