// Package producer defines the contract between ETL data sources and the
// data directory the dashboard loader reads. A Producer fetches and reshapes
// one dataset; the Runner validates the result against the canonical schema
// and publishes it with an atomic replace-on-write, so the loader never
// observes a half-written file.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
	"github.com/gridwatch/txlake/dashboard/pkg/metrics"
	"github.com/gridwatch/txlake/dashboard/pkg/parquetio"
	"github.com/gridwatch/txlake/dashboard/pkg/schema"
)

// Producer fetches one dataset from its source and reshapes it into the
// canonical schema.
type Producer interface {
	// Name identifies the producer in logs and metrics, e.g. "eia-fuelmix".
	Name() string
	// Dataset is the registry name of the dataset this producer publishes.
	Dataset() string
	Fetch(ctx context.Context) (*frame.Frame, error)
}

type RunnerConfig struct {
	Logger  *slog.Logger
	Clock   clockwork.Clock
	DataDir string
}

func (cfg *RunnerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DataDir == "" {
		return errors.New("data directory is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Runner struct {
	log *slog.Logger
	cfg RunnerConfig
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{log: cfg.Logger, cfg: cfg}, nil
}

// Run executes one fetch-validate-publish cycle for a producer.
func (r *Runner) Run(ctx context.Context, p Producer) error {
	runID := uuid.NewString()
	log := r.log.With("producer", p.Name(), "dataset", p.Dataset(), "run_id", runID)
	start := r.cfg.Clock.Now()

	log.Info("etl: run starting")

	s := schema.Get(p.Dataset())
	if s.IsZero() {
		metrics.ETLRunsTotal.WithLabelValues(p.Name(), "error").Inc()
		return fmt.Errorf("producer %s targets unknown dataset %q", p.Name(), p.Dataset())
	}

	f, err := p.Fetch(ctx)
	if err != nil {
		metrics.ETLRunsTotal.WithLabelValues(p.Name(), "error").Inc()
		return fmt.Errorf("failed to fetch %s: %w", p.Dataset(), err)
	}

	// Producers are expected to emit canonical frames; normalize anyway so
	// a source that reverts to legacy headers still publishes cleanly.
	f = schema.Normalize(f, p.Dataset())
	f = schema.Coerce(r.log, f, p.Dataset())
	missing, extra := schema.Validate(f, p.Dataset())
	if len(missing) > 0 {
		metrics.ETLRunsTotal.WithLabelValues(p.Name(), "invalid").Inc()
		return fmt.Errorf("producer %s output is missing columns %s (expected schema: %s)",
			p.Name(), strings.Join(missing, ", "), s.String())
	}
	if len(extra) > 0 {
		log.Debug("etl: publishing extra columns", "extra", strings.Join(extra, ","))
	}

	path := filepath.Join(r.cfg.DataDir, s.Filename)
	if err := parquetio.WriteFileAtomic(path, f, s); err != nil {
		metrics.ETLRunsTotal.WithLabelValues(p.Name(), "error").Inc()
		return fmt.Errorf("failed to publish %s: %w", s.Filename, err)
	}

	elapsed := r.cfg.Clock.Since(start)
	metrics.ETLRunsTotal.WithLabelValues(p.Name(), "ok").Inc()
	metrics.ETLRunDuration.WithLabelValues(p.Name()).Observe(elapsed.Seconds())
	metrics.ETLRowsWritten.WithLabelValues(p.Name()).Set(float64(f.NumRows()))

	log.Info("etl: run complete", "rows", f.NumRows(), "file", s.Filename, "elapsed", elapsed)
	return nil
}
