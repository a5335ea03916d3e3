package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/darescore/dare/internal/aggregator"
	"github.com/darescore/dare/internal/api"
	"github.com/darescore/dare/internal/archive"
	"github.com/darescore/dare/internal/config"
	"github.com/darescore/dare/internal/connector"
	"github.com/darescore/dare/internal/scorer"
	"github.com/darescore/dare/internal/store"
	"github.com/darescore/dare/internal/worker"
	"github.com/darescore/dare/pkg/calculator"
	"github.com/darescore/dare/pkg/logger"
	"github.com/darescore/dare/pkg/notify"
	"github.com/darescore/dare/pkg/platform"
	scoringconfig "github.com/darescore/dare/pkg/config"
)

// app holds the wired service components.
type app struct {
	cfg         *config.Config
	scoringPath string
	store       store.Store
	archive     archive.Storage
	scorer      *scorer.Service
	scheduler   *worker.Scheduler
	handler     *api.Handler
	log         logger.Logger

	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.Get().Named("dared")

	scoringPath := cfg.ScoringConfig
	if scoringPath == "" {
		if wd, err := os.Getwd(); err == nil {
			scoringPath = scoringconfig.FindConfigFile(wd)
		}
	}
	sc := scoringconfig.DefaultConfig()
	if scoringPath != "" {
		var err error
		if sc, err = scoringconfig.Load(scoringPath); err != nil {
			return nil, fmt.Errorf("loading scoring config %s: %w", scoringPath, err)
		}
	}

	st, err := store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		AutoMigrate: cfg.AutoMigrate,
	})
	if err != nil {
		return nil, err
	}

	arc, err := archive.Open(ctx, archive.Options{
		Backend: cfg.ArchiveBackend,
		Path:    cfg.ArchivePath,
		Bucket:  cfg.ArchiveBucket,
		S3: archive.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = sc.Cache.TTL
	}
	calcs := calculator.NewTunedSet(sc.Calculators)
	registry := connector.NewRegistry()
	for _, p := range platform.All {
		chain := connector.FirstOf{connector.ManualFetcher{Platform: p, Entries: st}}
		if arc != nil {
			chain = append(chain, connector.ArchiveFetcher{Platform: p, Storage: arc})
		}
		registry.Register(connector.NewForCandidate(p, chain, st,
			connector.WithCalculator(calcs),
			connector.WithArchive(arc),
			connector.WithTTL(ttl),
		))
	}

	agg := aggregator.New(st, registry, aggregator.WithConcurrency(cfg.RefreshWorkers))

	cache := api.NewScoreCache(cfg.ScoreCacheSize)
	svc := scorer.New(st, agg,
		scorer.WithSink(notify.MultiSink{notify.StoreSink{W: st}, notify.LogSink{}}),
		scorer.WithStoredHook(cache.Put),
		scorer.WithInitialWeights(sc.Scoring.Weights),
		scorer.WithEngineOptions(sc.EngineOptions()...),
	)

	sched := worker.NewScheduler(st, svc,
		worker.WithInterval(cfg.RefreshInterval),
		worker.WithWorkers(cfg.RefreshWorkers),
	)

	h := api.NewHandler(st, agg, svc,
		api.WithScoreCache(cache),
		api.WithRescorer(sched),
	)

	return &app{
		cfg:         cfg,
		scoringPath: scoringPath,
		store:       st,
		archive:     arc,
		scorer:      svc,
		scheduler:   sched,
		handler:     h,
		log:         log,
	}, nil
}

// Handler returns the HTTP handler with CORS and API key checks applied.
func (a *app) Handler() http.Handler {
	mux := http.NewServeMux()
	a.handler.RegisterRoutes(mux)
	return api.CORS(api.APIKeyAuth(a.cfg.APIKey)(mux))
}

// applyScoringConfig swaps the process-wide weights and engine options.
func (a *app) applyScoringConfig(ctx context.Context, c *scoringconfig.Config) {
	if _, err := a.scorer.SetWeights(c.Scoring.Weights.Partial()); err != nil {
		a.log.Warn(ctx, "ignoring reloaded weights", logger.Error(err))
		return
	}
	a.scorer.SetEngineOptions(c.EngineOptions()...)
	a.log.Info(ctx, "scoring weights applied", logger.Any("weights", c.Scoring.Weights))
}

// watchScoringConfig starts following the scoring file until ctx is cancelled.
func (a *app) watchScoringConfig(ctx context.Context) {
	if a.scoringPath == "" {
		return
	}
	err := scoringconfig.Watch(ctx, a.scoringPath, func(c *scoringconfig.Config) {
		a.applyScoringConfig(ctx, c)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Error(ctx, "scoring config watch stopped", logger.Error(err))
	}
}

func (a *app) Close() {
	a.closeOnce.Do(func() {
		if c, ok := a.archive.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				a.log.Warn(context.Background(), "closing archive", logger.Error(err))
			}
		}
		if err := a.store.Close(); err != nil {
			a.log.Warn(context.Background(), "closing store", logger.Error(err))
		}
	})
}
