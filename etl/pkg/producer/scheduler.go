package producer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// defaultMaxConcurrent bounds simultaneous producer refreshes so one slow
// upstream cannot starve the rest.
const defaultMaxConcurrent = 2

type SchedulerConfig struct {
	Logger          *slog.Logger
	Clock           clockwork.Clock
	Runner          *Runner
	Producers       []Producer
	RefreshInterval time.Duration
	MaxConcurrent   int
}

func (cfg *SchedulerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Runner == nil {
		return errors.New("runner is required")
	}
	if len(cfg.Producers) == 0 {
		return errors.New("at least one producer is required")
	}
	if cfg.RefreshInterval <= 0 {
		return errors.New("refresh interval must be greater than 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	return nil
}

// Scheduler refreshes every registered producer on a fixed interval. A
// failing producer is logged and retried on the next tick; it never stops
// the loop or the other producers.
type Scheduler struct {
	log *slog.Logger
	cfg SchedulerConfig

	readyOnce sync.Once
	readyCh   chan struct{}
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{
		log:     cfg.Logger,
		cfg:     cfg,
		readyCh: make(chan struct{}),
	}, nil
}

// Ready reports whether the first refresh pass has completed.
func (s *Scheduler) Ready() bool {
	select {
	case <-s.readyCh:
		return true
	default:
		return false
	}
}

func (s *Scheduler) WaitReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the refresh loop. The first pass runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		s.log.Info("etl: starting refresh loop",
			"interval", s.cfg.RefreshInterval,
			"producers", len(s.cfg.Producers),
		)

		s.safeRefreshAll(ctx)
		s.readyOnce.Do(func() { close(s.readyCh) })

		ticker := s.cfg.Clock.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.safeRefreshAll(ctx)
			}
		}
	}()
}

// RunOnce refreshes every producer once and returns the first error, for
// one-shot CLI invocations.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	err := s.refreshAll(ctx)
	s.readyOnce.Do(func() { close(s.readyCh) })
	return err
}

func (s *Scheduler) safeRefreshAll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("etl: refresh panicked", "panic", r)
		}
	}()
	if err := s.refreshAll(ctx); err != nil {
		s.log.Error("etl: refresh pass had failures", "error", err)
	}
}

func (s *Scheduler) refreshAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)

	var mu sync.Mutex
	var errs []error
	for _, p := range s.cfg.Producers {
		p := p
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := s.cfg.Runner.Run(gctx, p); err != nil {
				s.log.Error("etl: producer run failed", "producer", p.Name(), "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			// Failures are collected, not returned: one bad upstream must
			// not cancel the sibling refreshes.
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
