// Package pipeline orchestrates a risk scan: feature derivation, scoring
// through the cache/oracle/fallback client, and the single audit entry that
// records the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/TravelOpsHQ/travelcore-go/ledger"
	"github.com/TravelOpsHQ/travelcore-go/scoring"
	"github.com/TravelOpsHQ/travelcore-go/types"
)

// ErrEmptyInput rejects a scan with no subjects before any I/O happens.
var ErrEmptyInput = errors.New("pipeline: no travelers to scan")

type ScanResult struct {
	Scanned int                    `json:"scanned"`
	Results []types.RiskAssessment `json:"results"`
}

// Pipeline wires the scoring client and the audit ledger together. All
// collaborators are injected at assembly time; the pipeline owns no hidden
// state and does not write traveler records back. That stays with the caller.
type Pipeline struct {
	client *scoring.Client
	audit  *ledger.Ledger
	logger *slog.Logger
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(client *scoring.Client, audit *ledger.Ledger, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("scoring client is required")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit ledger is required")
	}
	p := &Pipeline{
		client: client,
		audit:  audit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RunScan scores every traveler and appends exactly one audit entry for the
// whole run. Audit granularity is per logical operation, not per record.
// Oracle trouble degrades individual scores; ledger trouble fails the scan.
func (p *Pipeline) RunScan(ctx context.Context, travelers []types.Traveler) (ScanResult, error) {
	if len(travelers) == 0 {
		return ScanResult{}, ErrEmptyInput
	}

	features := DeriveFeatures(travelers)
	results, err := p.client.ScoreBatch(ctx, features)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to score travelers: %w", err)
	}

	groupID := travelers[0].GroupID
	if groupID == "" {
		groupID = "ad-hoc"
	}
	payload := map[string]any{
		"travelersScanned": len(results),
		"averageRiskScore": averageScore(results),
	}
	entry, err := p.audit.Append(ctx, "group", groupID, "group.risk_scan", payload)
	if err != nil {
		return ScanResult{}, err
	}

	p.logger.Info("risk scan completed",
		"groupId", groupID,
		"travelers", len(results),
		"auditEntryId", entry.ID,
	)
	return ScanResult{Scanned: len(results), Results: results}, nil
}

func averageScore(results []types.RiskAssessment) float64 {
	if len(results) == 0 {
		return 0
	}
	total := 0
	for _, r := range results {
		total += r.RiskScore
	}
	avg := float64(total) / float64(len(results))
	return math.Round(avg*100) / 100
}
