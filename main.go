// Command travelcore is the operator CLI: run a risk scan over a travelers
// file, verify the audit chain, or print recent ledger entries.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/TravelOpsHQ/travelcore-go/config"
	"github.com/TravelOpsHQ/travelcore-go/ledger"
	ledgersqlite "github.com/TravelOpsHQ/travelcore-go/ledger/sqlite"
	openaioracle "github.com/TravelOpsHQ/travelcore-go/oracle/openai"
	"github.com/TravelOpsHQ/travelcore-go/pipeline"
	"github.com/TravelOpsHQ/travelcore-go/scorecache"
	cacheredis "github.com/TravelOpsHQ/travelcore-go/scorecache/redis"
	"github.com/TravelOpsHQ/travelcore-go/scoring"
	"github.com/TravelOpsHQ/travelcore-go/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	flags := flag.NewFlagSet("travelcore", flag.ExitOnError)
	configPath := flags.String("config", "", "path to travelcore.yaml")
	flags.Usage = usage
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	args := flags.Args()
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a command is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "scan":
		return runScan(ctx, cfg, args[1:])
	case "verify":
		return runVerify(ctx, cfg, args[1:])
	case "tail":
		return runTail(ctx, cfg, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: travelcore [-config travelcore.yaml] <command>

commands:
  scan -file travelers.json   score a group of travelers and audit the run
  verify [-payloads]          walk the audit chain and report its integrity
  tail [-n 20]                print the most recent audit entries`)
}

func openLedger(cfg config.Config) (*ledger.Ledger, *ledgersqlite.Store, error) {
	store, err := ledgersqlite.New(cfg.LedgerDBPath)
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.New(store)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return l, store, nil
}

func openCache(cfg config.Config) (*scorecache.Cache, error) {
	var backend scorecache.Backend
	if cfg.RedisAddr != "" {
		redisBackend, err := cacheredis.New(cfg.RedisAddr, cacheredis.WithTTL(cfg.CacheTTL))
		if err != nil {
			return nil, err
		}
		backend = redisBackend
	} else {
		fileBackend, err := scorecache.NewFileBackend(cfg.CacheSnapshotPath)
		if err != nil {
			return nil, err
		}
		backend = fileBackend
	}
	return scorecache.New(backend, scorecache.WithTTL(cfg.CacheTTL))
}

func runScan(ctx context.Context, cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("scan", flag.ExitOnError)
	file := flags.String("file", "", "JSON file holding an array of travelers")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("scan requires -file")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read travelers file: %w", err)
	}
	var travelers []types.Traveler
	if err := json.Unmarshal(raw, &travelers); err != nil {
		return fmt.Errorf("failed to decode travelers file: %w", err)
	}

	l, store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cache, err := openCache(cfg)
	if err != nil {
		return err
	}

	var oracle scoring.Oracle
	if cfg.OracleEnabled() {
		client, err := openaioracle.New(cfg.OracleAPIKey,
			openaioracle.WithBaseURL(cfg.OracleBaseURL),
			openaioracle.WithModel(cfg.OracleModel),
			openaioracle.WithTimeout(cfg.OracleTimeout),
		)
		if err != nil {
			return err
		}
		oracle = client
	} else {
		slog.Info("no oracle credential configured, scoring deterministically")
	}

	scorer := scoring.NewClient(cache, oracle,
		scoring.WithMaxBatchSize(cfg.MaxBatchSize),
		scoring.WithRetryPolicy(scoring.RetryPolicy{MaxAttempts: cfg.RetryBudget}),
	)
	p, err := pipeline.New(scorer, l)
	if err != nil {
		return err
	}

	result, err := p.RunScan(ctx, travelers)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runVerify(ctx context.Context, cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("verify", flag.ExitOnError)
	payloads := flags.Bool("payloads", false, "also recompute payload hashes")
	if err := flags.Parse(args); err != nil {
		return err
	}

	l, store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := l.Verify(ctx, ledger.VerifyOptions{CheckPayloads: *payloads})
	if err != nil {
		return err
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("audit chain broken at entry %s", result.BrokenAtEntryID)
	}
	return nil
}

func runTail(ctx context.Context, cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("tail", flag.ExitOnError)
	n := flags.Int("n", 20, "number of entries to print")
	if err := flags.Parse(args); err != nil {
		return err
	}

	l, store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var recent []ledger.Entry
	for offset := 0; ; offset += 200 {
		batch, err := l.List(ctx, ledger.ListQuery{Limit: 200, Offset: offset})
		if err != nil {
			return err
		}
		recent = append(recent, batch...)
		if len(batch) < 200 {
			break
		}
	}
	if len(recent) > *n {
		recent = recent[len(recent)-*n:]
	}
	return printJSON(recent)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
