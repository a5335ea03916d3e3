// Package scorer is the stateful score service: it holds the process-wide
// weights, computes and stores composite scores, and publishes the change
// events between consecutive snapshots.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/logger"
	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/scoring"
	"github.com/darescore/dare/pkg/telemetry"
)

// Store is the persistence the service needs.
type Store interface {
	store.Candidates
	store.Snapshots
}

// Profiler assembles digital profiles. *aggregator.Aggregator satisfies it.
type Profiler interface {
	AggregateProfile(ctx context.Context, candidateID string) (*platform.DigitalProfile, error)
	RefreshAllPlatformData(ctx context.Context, candidateID string) (*platform.DigitalProfile, error)
	RefreshStale(ctx context.Context, candidateID string) (*platform.DigitalProfile, error)
}

// Update is the outcome of one CalculateAndStoreScore call.
type Update struct {
	Previous     *scoring.CompositeScore `json:"previous,omitempty"`
	Current      scoring.CompositeScore  `json:"current"`
	Changed      bool                    `json:"changed"`
	ChangeAmount int                     `json:"change_amount"`
	Events       []notify.Event          `json:"events,omitempty"`
}

// Service computes and stores composite scores.
type Service struct {
	store    Store
	profiles Profiler
	sink     notify.Sink
	onStored func(scoring.CompositeScore)
	log      logger.Logger

	mu         sync.RWMutex
	weights    scoring.Weights
	engineOpts []scoring.Option
}

// Option configures a Service.
type Option func(*Service)

// WithSink publishes change events to sink.
func WithSink(sink notify.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithStoredHook calls fn with every score after it is stored.
func WithStoredHook(fn func(scoring.CompositeScore)) Option {
	return func(s *Service) { s.onStored = fn }
}

// WithInitialWeights sets the starting process-wide weights.
func WithInitialWeights(w scoring.Weights) Option {
	return func(s *Service) { s.weights = w }
}

// WithEngineOptions sets the scoring engine options.
func WithEngineOptions(opts ...scoring.Option) Option {
	return func(s *Service) { s.engineOpts = opts }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// New creates a Service.
func New(st Store, profiles Profiler, opts ...Option) *Service {
	s := &Service{
		store:    st,
		profiles: profiles,
		weights:  scoring.DefaultWeights(),
		log:      logger.Get().Named("scorer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetWeights returns the process-wide weights.
func (s *Service) GetWeights() scoring.Weights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights
}

// SetWeights merges p into the process-wide weights. Only later
// computations are affected; invalid results are rejected unchanged.
func (s *Service) SetWeights(p scoring.PartialWeights) (scoring.Weights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.weights.Merge(p)
	if err := next.Validate(); err != nil {
		return s.weights, err
	}
	s.weights = next
	return next, nil
}

// SetEngineOptions replaces the engine thresholds used by later computations.
func (s *Service) SetEngineOptions(opts ...scoring.Option) {
	s.mu.Lock()
	s.engineOpts = opts
	s.mu.Unlock()
}

type refreshMode int

const (
	refreshNone refreshMode = iota
	refreshAll
	refreshStale
)

type calcOptions struct {
	weights *scoring.Weights
	refresh refreshMode
}

// CalcOption configures one CalculateAndStoreScore call.
type CalcOption func(*calcOptions)

// WithWeights overrides the process-wide weights for one call.
func WithWeights(w scoring.Weights) CalcOption {
	return func(o *calcOptions) { o.weights = &w }
}

// WithRefresh re-fetches every connected platform before scoring.
func WithRefresh() CalcOption {
	return func(o *calcOptions) { o.refresh = refreshAll }
}

// WithStaleRefresh re-fetches only missing, expired or failed platforms
// before scoring.
func WithStaleRefresh() CalcOption {
	return func(o *calcOptions) { o.refresh = refreshStale }
}

// CalculateAndStoreScore scores the candidate's current profile, appends the
// result to the score history and publishes the change events. A sink
// failure is logged and does not fail the call.
func (s *Service) CalculateAndStoreScore(ctx context.Context, candidateID string, opts ...CalcOption) (Update, error) {
	var o calcOptions
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		return Update{}, err
	}
	previous, err := s.store.LatestSnapshot(ctx, candidateID)
	if errors.Is(err, store.ErrNotFound) {
		previous = nil
	} else if err != nil {
		return Update{}, fmt.Errorf("load previous score: %w", err)
	}

	assemble := s.profiles.AggregateProfile
	switch o.refresh {
	case refreshAll:
		assemble = s.profiles.RefreshAllPlatformData
	case refreshStale:
		assemble = s.profiles.RefreshStale
	}
	profile, err := assemble(ctx, candidateID)
	if err != nil {
		telemetry.RecordScoringError()
		return Update{}, fmt.Errorf("assemble profile: %w", err)
	}

	s.mu.RLock()
	w := s.weights
	engineOpts := s.engineOpts
	s.mu.RUnlock()
	if o.weights != nil {
		w = *o.weights
	}

	current, err := scoring.CalculateCompositeScore(profile, w, engineOpts...)
	if err != nil {
		telemetry.RecordScoringError()
		return Update{}, err
	}
	current.CandidateID = candidateID
	if err := s.store.AppendSnapshot(ctx, current); err != nil {
		telemetry.RecordScoringError()
		return Update{}, fmt.Errorf("store score: %w", err)
	}
	telemetry.RecordScoreComputed(current.Overall)
	if s.onStored != nil {
		s.onStored(current)
	}

	// The first score is measured against an implicit zero baseline but is
	// not reported as a change.
	u := Update{Previous: previous, Current: current, ChangeAmount: current.Overall}
	if previous != nil {
		u.ChangeAmount = current.Overall - previous.Overall
		u.Changed = u.ChangeAmount != 0
		if u.Changed {
			telemetry.RecordScoreChange(u.ChangeAmount)
		}
	}

	u.Events = notify.Diff(previous, current)
	if s.sink != nil && len(u.Events) > 0 {
		if err := notify.PublishAll(ctx, s.sink, u.Events); err != nil {
			s.log.Warn(ctx, "publishing score events failed",
				logger.String("candidate_id", candidateID),
				logger.String("snapshot_id", current.ID),
				logger.Error(err),
			)
		}
	}

	s.log.Info(ctx, "score stored",
		logger.String("candidate_id", candidateID),
		logger.Int("overall", current.Overall),
		logger.Int("change", u.ChangeAmount),
		logger.Int("events", len(u.Events)),
	)
	return u, nil
}

// GetScoreHistory returns up to limit snapshots, most recent first. A
// non-positive limit means store.DefaultHistoryLimit; larger limits are
// capped at store.MaxHistoryLimit.
func (s *Service) GetScoreHistory(ctx context.Context, candidateID string, limit int) ([]scoring.CompositeScore, error) {
	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}
	history, err := s.store.ListSnapshots(ctx, candidateID, store.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("score history: %w", err)
	}
	if history == nil {
		history = []scoring.CompositeScore{}
	}
	return history, nil
}

// CurrentScore returns the most recent snapshot.
func (s *Service) CurrentScore(ctx context.Context, candidateID string) (*scoring.CompositeScore, error) {
	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}
	return s.store.LatestSnapshot(ctx, candidateID)
}
