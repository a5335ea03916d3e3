// Package connector turns a candidate's platform account into cached
// platform metrics: fetch a typed payload, run the family calculator, cache
// the outcome with an expiry and optionally archive the raw payload.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/darescore/dare/internal/archive"
	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/pkg/calculator"
	"github.com/darescore/dare/pkg/logger"
	"github.com/darescore/dare/pkg/platform"
	"github.com/darescore/dare/pkg/telemetry"
)

// Upstream failure classes. Fetchers wrap one of these so callers can tell
// them apart with errors.Is.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnavailable     = errors.New("platform unavailable")
	ErrNoConnector     = errors.New("no connector registered")
)

// ErrPersistence marks a failure to record a fetch outcome. Unlike upstream
// failures it is not isolated per platform.
var ErrPersistence = errors.New("persist platform metrics")

// DefaultTTL is how long cached metrics stay fresh.
const DefaultTTL = 24 * time.Hour

// Fetcher retrieves the raw payload of an account.
type Fetcher interface {
	Fetch(ctx context.Context, username string) (platform.Payload, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, username string) (platform.Payload, error)

func (f FetcherFunc) Fetch(ctx context.Context, username string) (platform.Payload, error) {
	return f(ctx, username)
}

// CandidateFetcher retrieves a payload that is keyed by candidate rather than
// by the platform account alone, such as manual entries and archived payloads.
type CandidateFetcher interface {
	FetchCandidate(ctx context.Context, candidateID, username string) (platform.Payload, error)
}

// Calculator derives metrics from a payload. *calculator.Set satisfies it.
type Calculator interface {
	Calculate(p platform.Payload) (platform.Metrics, error)
}

// Connector refreshes the cached metrics of one platform.
type Connector struct {
	platform platform.Platform
	fetch    func(ctx context.Context, candidateID, username string) (platform.Payload, error)
	calc     Calculator
	cache    store.MetricsCache
	archive  archive.Storage
	ttl      time.Duration
	now      func() time.Time
	log      logger.Logger
}

// Option configures a Connector.
type Option func(*Connector)

// WithCalculator replaces the default calculator set.
func WithCalculator(c Calculator) Option {
	return func(cn *Connector) { cn.calc = c }
}

// WithArchive stores every fetched payload in s.
func WithArchive(s archive.Storage) Option {
	return func(cn *Connector) { cn.archive = s }
}

// WithTTL sets how long cached metrics stay fresh.
func WithTTL(ttl time.Duration) Option {
	return func(cn *Connector) {
		if ttl > 0 {
			cn.ttl = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(cn *Connector) { cn.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(cn *Connector) { cn.log = l }
}

// New creates a connector for an account-keyed fetcher.
func New(p platform.Platform, f Fetcher, cache store.MetricsCache, opts ...Option) *Connector {
	fetch := func(ctx context.Context, _ string, username string) (platform.Payload, error) {
		return f.Fetch(ctx, username)
	}
	return newConnector(p, fetch, cache, opts)
}

// NewForCandidate creates a connector for a candidate-keyed fetcher.
func NewForCandidate(p platform.Platform, f CandidateFetcher, cache store.MetricsCache, opts ...Option) *Connector {
	return newConnector(p, f.FetchCandidate, cache, opts)
}

func newConnector(
	p platform.Platform,
	fetch func(ctx context.Context, candidateID, username string) (platform.Payload, error),
	cache store.MetricsCache,
	opts []Option,
) *Connector {
	c := &Connector{
		platform: p,
		fetch:    fetch,
		calc:     calculator.DefaultSet(),
		cache:    cache,
		ttl:      DefaultTTL,
		now:      time.Now,
		log:      logger.Get().Named("connector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Platform returns the platform this connector serves.
func (c *Connector) Platform() platform.Platform { return c.platform }

// Refresh fetches the account of conn, recomputes its metrics and caches the
// outcome. A failed fetch is cached as a failure and returned.
func (c *Connector) Refresh(ctx context.Context, conn store.Connection) (platform.Metrics, error) {
	start := c.now()
	m, payload, err := c.compute(ctx, conn)
	telemetryResult := telemetry.FetchOK
	if err != nil {
		telemetryResult = telemetry.FetchFailed
	}
	telemetry.RecordFetch(string(c.platform), telemetryResult, c.now().Sub(start).Seconds())

	fetchedAt := c.now().UTC()
	entry := store.CachedMetrics{
		CandidateID: conn.CandidateID,
		Platform:    c.platform,
		FetchedAt:   fetchedAt,
		ExpiresAt:   fetchedAt.Add(c.ttl),
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Metrics = &m
	}
	if perr := c.cache.PutCachedMetrics(ctx, entry); perr != nil {
		return platform.Metrics{}, fmt.Errorf("cache %s metrics: %w: %w", c.platform, ErrPersistence, perr)
	}
	if err != nil {
		return platform.Metrics{}, err
	}

	if c.archive != nil {
		if aerr := archive.Put(ctx, c.archive, conn.CandidateID, payload); aerr != nil {
			c.log.Warn(ctx, "archive payload failed",
				logger.String("candidate_id", conn.CandidateID),
				logger.String("platform", string(c.platform)),
				logger.Error(aerr),
			)
		}
	}
	return m, nil
}

func (c *Connector) compute(ctx context.Context, conn store.Connection) (platform.Metrics, platform.Payload, error) {
	payload, err := c.fetch(ctx, conn.CandidateID, conn.Username)
	if err != nil {
		return platform.Metrics{}, nil, fmt.Errorf("fetch %s/%s: %w", c.platform, conn.Username, err)
	}
	if payload == nil {
		return platform.Metrics{}, nil, fmt.Errorf("fetch %s/%s: %w", c.platform, conn.Username, ErrProfileNotFound)
	}
	if payload.Platform() != c.platform {
		return platform.Metrics{}, nil, fmt.Errorf("fetch %s: got %s payload: %w",
			c.platform, payload.Platform(), calculator.ErrPayloadMismatch)
	}
	payload = platform.Stamped(payload, c.now().UTC())
	m, err := c.calc.Calculate(payload)
	if err != nil {
		return platform.Metrics{}, nil, fmt.Errorf("calculate %s: %w", c.platform, err)
	}
	return m, payload, nil
}

// Registry maps platforms to their connectors.
type Registry struct {
	connectors map[platform.Platform]*Connector
}

// NewRegistry creates a registry holding cs.
func NewRegistry(cs ...*Connector) *Registry {
	r := &Registry{connectors: make(map[platform.Platform]*Connector, len(cs))}
	for _, c := range cs {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the connector of c's platform.
func (r *Registry) Register(c *Connector) {
	r.connectors[c.platform] = c
}

// Get returns the connector of p.
func (r *Registry) Get(p platform.Platform) (*Connector, error) {
	c, ok := r.connectors[p]
	if !ok {
		return nil, fmt.Errorf("%s: %w", p, ErrNoConnector)
	}
	return c, nil
}

// Platforms lists the registered platforms in a stable order.
func (r *Registry) Platforms() []platform.Platform {
	out := make([]platform.Platform, 0, len(r.connectors))
	for p := range r.connectors {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
