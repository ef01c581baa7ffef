// Package pipeline wires the ingestion, merge, aggregation and export
// stages into one run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/loteria-digital/walletledger/internal/domain/aggregate"
	"github.com/loteria-digital/walletledger/internal/domain/classify"
	"github.com/loteria-digital/walletledger/internal/domain/export"
	"github.com/loteria-digital/walletledger/internal/domain/ingest"
	"github.com/loteria-digital/walletledger/internal/domain/ledger"
	"github.com/loteria-digital/walletledger/internal/domain/roster"
	"github.com/loteria-digital/walletledger/pkg/config"
	"github.com/loteria-digital/walletledger/pkg/observability"
)

const (
	manifestName = "manifest.csv"
	snapshotName = "movimientos.parquet"
)

// Pipeline runs the incremental wallet report end to end.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	rules  *classify.RuleSet
}

// New prepares a pipeline. Classification rules come from the
// configured rules file, or the built-in defaults when none is set.
func New(cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	var (
		rules *classify.RuleSet
		err   error
	)
	if cfg.Paths.RulesFile != "" {
		rules, err = classify.LoadRules(cfg.Paths.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("loading classification rules: %w", err)
		}
	} else {
		rules = classify.DefaultRules()
	}
	if err := rules.Compile(); err != nil {
		return nil, fmt.Errorf("compiling classification rules: %w", err)
	}
	return &Pipeline{cfg: cfg, logger: logger, rules: rules}, nil
}

// Run executes one incremental cycle: ingest new files, merge them
// into the ledger, rebuild every dashboard table.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.New().String()
	logger := p.logger.With("run_id", runID)
	start := time.Now()
	logger.Info("run started", "data_dir", p.cfg.Paths.DataDir)

	for _, dir := range []string{p.cfg.Paths.DatasetDir, p.cfg.Paths.ProcessedDir, p.cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	txs, err := p.ingest(ctx, logger)
	if err != nil {
		return err
	}

	stage := time.Now()
	views := classify.Classify(txs, p.rules)
	observability.RunDuration.WithLabelValues("classify").Observe(time.Since(stage).Seconds())
	logger.Info("ledger classified",
		"total", len(views.All),
		"wagers", len(views.Wagers),
		"deposits", len(views.Deposits),
		"withdrawals", len(views.Withdrawals),
		"prizes", len(views.Prizes))

	reg := p.loadRoster(logger)

	cut, err := p.cutovers()
	if err != nil {
		return err
	}

	stage = time.Now()
	report := aggregate.Build(*views, cut, reg)
	observability.RunDuration.WithLabelValues("aggregate").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	written, err := export.New(p.cfg.Paths.OutputDir).Write(report)
	observability.RunDuration.WithLabelValues("export").Observe(time.Since(stage).Seconds())
	observability.TablesWritten.Add(float64(len(written)))
	if err != nil {
		return fmt.Errorf("exporting tables: %w", err)
	}
	logger.Info("tables written", "count", len(written), "dir", p.cfg.Paths.OutputDir)

	if err := observability.Dump(p.cfg.Paths.MetricsFile); err != nil {
		logger.Warn("metrics dump failed", "error", err)
	}
	logger.Info("run finished", "elapsed", time.Since(start).String())
	return nil
}

// ingest parses every new or modified source file and merges it into
// the persisted ledger, then returns the merged ledger.
func (p *Pipeline) ingest(ctx context.Context, logger *slog.Logger) ([]ledger.Transaction, error) {
	stage := time.Now()
	defer func() {
		observability.RunDuration.WithLabelValues("ingest").Observe(time.Since(stage).Seconds())
	}()

	manifestPath := filepath.Join(p.cfg.Paths.DatasetDir, manifestName)
	manifest := ledger.LoadManifest(manifestPath)
	pending, err := ledger.PendingFiles(p.cfg.Paths.DataDir, manifest)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", p.cfg.Paths.DataDir, err)
	}
	logger.Info("pending files identified", "count", len(pending), "known", manifest.Len())

	var batches []ledger.Batch
	for _, pf := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := ingest.ParseFile(pf.Path)
		switch result.Status {
		case ingest.StatusSkipped:
			observability.FilesProcessed.WithLabelValues("skipped").Inc()
			logger.Warn("file skipped", "file", pf.Name, "reason", result.Reason)
		case ingest.StatusFailed:
			// A format regression in one export must not block the rest
			// of the batch. The file keeps no manifest entry, so a fixed
			// re-export is picked up on the next run.
			observability.FilesProcessed.WithLabelValues("failed").Inc()
			logger.Error("file dropped", "file", pf.Name, "error", result.Err)
		default:
			observability.FilesProcessed.WithLabelValues("parsed").Inc()
			observability.RecordsIngested.Add(float64(len(result.Records)))
			logger.Info("file parsed", "file", pf.Name, "records", len(result.Records))
			batches = append(batches, ledger.Batch{
				File:    pf.Name,
				Path:    pf.Path,
				ModTime: pf.ModTime,
				Records: result.Records,
			})
		}
	}

	store := ledger.NewStore(filepath.Join(p.cfg.Paths.DatasetDir, snapshotName))
	merger := ledger.NewMerger(store, p.cfg.Paths.ProcessedDir)
	result, err := merger.Merge(batches, manifest, manifestPath)
	if err != nil {
		if errors.Is(err, ledger.ErrLedgerMissing) {
			return nil, err
		}
		return nil, fmt.Errorf("merging batches: %w", err)
	}
	observability.LedgerSize.Set(float64(result.Total))
	for _, aerr := range result.ArchiveErrs {
		logger.Warn("archive failed, file left in place", "error", aerr)
	}
	logger.Info("ledger merged",
		"total", result.Total, "added", result.Added, "replaced", result.Replaced)

	return store.Load()
}

// loadRoster reads the optional account registry. A missing or broken
// roster degrades the roster-dependent tables instead of failing the
// run.
func (p *Pipeline) loadRoster(logger *slog.Logger) *roster.Roster {
	path := p.cfg.Paths.RosterFile
	if path == "" {
		return nil
	}
	reg, err := roster.Load(path)
	if err != nil {
		logger.Warn("roster unavailable, contact tables will be empty", "file", path, "error", err)
		return nil
	}
	logger.Info("roster loaded", "accounts", reg.Len())
	return reg
}

func (p *Pipeline) cutovers() (aggregate.Cutovers, error) {
	games, err := p.cfg.GamesLaunchDate()
	if err != nil {
		return aggregate.Cutovers{}, err
	}
	modo, err := p.cfg.ModoFullDate()
	if err != nil {
		return aggregate.Cutovers{}, err
	}
	return aggregate.Cutovers{GamesLaunch: games, ModoFull: modo}, nil
}
