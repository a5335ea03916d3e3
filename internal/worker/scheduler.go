// Package worker runs the periodic refresh-and-rescore pass over every
// candidate.
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/darescore/dare/internal/scorer"
	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/logger"
)

const (
	DefaultInterval = time.Hour
	DefaultWorkers  = 4
)

// Scorer stores a fresh score for one candidate. *scorer.Service satisfies it.
type Scorer interface {
	CalculateAndStoreScore(ctx context.Context, candidateID string, opts ...scorer.CalcOption) (scorer.Update, error)
}

// Result summarizes one pass.
type Result struct {
	Scored  int
	Changed int
	Failed  int
}

// Scheduler rescores every candidate on an interval.
type Scheduler struct {
	candidates store.Candidates
	scorer     Scorer
	interval   time.Duration
	workers    int
	log        logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the time between passes.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWorkers bounds how many candidates are processed at once.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler creates a Scheduler.
func NewScheduler(candidates store.Candidates, sc Scorer, opts ...Option) *Scheduler {
	s := &Scheduler{
		candidates: candidates,
		scorer:     sc,
		interval:   DefaultInterval,
		workers:    DefaultWorkers,
		log:        logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs a pass immediately and then on every tick until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error(ctx, "refresh pass failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce refreshes stale platforms and rescores every candidate. A failing
// candidate is logged and counted; it does not stop the pass.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	candidates, err := s.candidates.ListCandidates(ctx)
	if err != nil {
		return Result{}, err
	}

	var scored, changed, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, c := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			u, err := s.scorer.CalculateAndStoreScore(gctx, c.ID, scorer.WithStaleRefresh())
			if err != nil {
				failed.Add(1)
				s.log.Warn(gctx, "rescore failed",
					logger.String("candidate_id", c.ID),
					logger.Error(err),
				)
				return nil
			}
			scored.Add(1)
			if u.Changed {
				changed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Scored: int(scored.Load()), Changed: int(changed.Load()), Failed: int(failed.Load())}
	s.log.Info(ctx, "refresh pass complete",
		logger.Int("candidates", len(candidates)),
		logger.Int("scored", res.Scored),
		logger.Int("changed", res.Changed),
		logger.Int("failed", res.Failed),
	)
	return res, ctx.Err()
}
