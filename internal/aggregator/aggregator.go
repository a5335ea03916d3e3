// Package aggregator assembles a candidate's DigitalProfile from cached
// platform metrics and drives platform refreshes.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/darescore/dare/internal/connector"
	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/logger"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/telemetry"
)

// DefaultConcurrency bounds the per-candidate platform fan-out.
const DefaultConcurrency = 4

// Store is the persistence the aggregator reads.
type Store interface {
	store.Candidates
	store.Connections
	store.MetricsCache
}

// Aggregator builds digital profiles.
type Aggregator struct {
	store       Store
	connectors  *connector.Registry
	concurrency int
	now         func() time.Time
	log         logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithConcurrency bounds how many platforms are refreshed at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// New creates an Aggregator. connectors may be nil when only cached reads
// are needed.
func New(s Store, connectors *connector.Registry, opts ...Option) *Aggregator {
	if connectors == nil {
		connectors = connector.NewRegistry()
	}
	a := &Aggregator{
		store:       s,
		connectors:  connectors,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		log:         logger.Get().Named("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AggregateProfile assembles the profile from cached metrics only. Expired
// entries are included and listed as stale; entries recording a failed
// fetch are listed as failed and left out.
func (a *Aggregator) AggregateProfile(ctx context.Context, candidateID string) (*platform.DigitalProfile, error) {
	if _, err := a.store.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}
	conns, err := a.store.ListConnections(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", candidateID, err)
	}

	now := a.now()
	var (
		metrics []platform.Metrics
		stale   []platform.Platform
		failed  = make(map[platform.Platform]string)
	)
	for _, conn := range conns {
		entry, err := a.store.GetCachedMetrics(ctx, candidateID, conn.Platform)
		if errors.Is(err, store.ErrNotFound) {
			telemetry.RecordCacheLookup(string(conn.Platform), telemetry.CacheMiss)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", candidateID, err)
		}
		if entry.Failed() {
			telemetry.RecordCacheLookup(string(conn.Platform), telemetry.CacheFailed)
			failed[conn.Platform] = entry.Error
			continue
		}
		if entry.Expired(now) {
			telemetry.RecordCacheLookup(string(conn.Platform), telemetry.CacheStale)
			stale = append(stale, conn.Platform)
		} else {
			telemetry.RecordCacheLookup(string(conn.Platform), telemetry.CacheFresh)
		}
		metrics = append(metrics, *entry.Metrics)
	}

	profile := platform.NewDigitalProfile(candidateID, metrics, now.UTC())
	profile.Stale = stale
	if len(failed) > 0 {
		profile.Failed = failed
	}
	return profile, nil
}

// RefreshAllPlatformData re-fetches every connected platform and then
// assembles the profile. One platform failing upstream never stops the
// others; its error is cached and reported in the profile's Failed map. A
// failure to store a fetch outcome fails the whole call.
func (a *Aggregator) RefreshAllPlatformData(ctx context.Context, candidateID string) (*platform.DigitalProfile, error) {
	return a.refresh(ctx, candidateID, func(store.Connection) bool { return true })
}

// RefreshStale re-fetches only the platforms whose cached metrics are
// missing, expired or failed.
func (a *Aggregator) RefreshStale(ctx context.Context, candidateID string) (*platform.DigitalProfile, error) {
	now := a.now()
	return a.refresh(ctx, candidateID, func(conn store.Connection) bool {
		entry, err := a.store.GetCachedMetrics(ctx, candidateID, conn.Platform)
		if err != nil {
			return true
		}
		return entry.Failed() || entry.Expired(now)
	})
}

func (a *Aggregator) refresh(ctx context.Context, candidateID string, want func(store.Connection) bool) (*platform.DigitalProfile, error) {
	if _, err := a.store.GetCandidate(ctx, candidateID); err != nil {
		return nil, err
	}
	conns, err := a.store.ListConnections(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", candidateID, err)
	}

	var (
		mu     sync.Mutex
		failed = make(map[platform.Platform]string)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, conn := range conns {
		if !want(conn) {
			continue
		}
		c, err := a.connectors.Get(conn.Platform)
		if err != nil {
			a.log.Warn(ctx, "skipping platform without connector",
				logger.String("candidate_id", candidateID),
				logger.String("platform", string(conn.Platform)),
			)
			continue
		}
		g.Go(func() error {
			if _, err := c.Refresh(gctx, conn); err != nil {
				if errors.Is(err, connector.ErrPersistence) {
					return err
				}
				a.log.Warn(gctx, "platform refresh failed",
					logger.String("candidate_id", candidateID),
					logger.String("platform", string(conn.Platform)),
					logger.Error(err),
				)
				mu.Lock()
				failed[conn.Platform] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refresh %s: %w", candidateID, err)
	}

	profile, err := a.AggregateProfile(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	for p, msg := range failed {
		if _, ok := profile.Platforms[p]; ok {
			continue
		}
		if profile.Failed == nil {
			profile.Failed = make(map[platform.Platform]string)
		}
		profile.Failed[p] = msg
	}
	return profile, nil
}
