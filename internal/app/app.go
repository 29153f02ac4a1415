// Package app wires the search pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/serp/internal/config"
	"github.com/kailas-cloud/serp/internal/db"
	"github.com/kailas-cloud/serp/internal/db/elastic"
	"github.com/kailas-cloud/serp/internal/db/memindex"
	dbRedis "github.com/kailas-cloud/serp/internal/db/redis"
	"github.com/kailas-cloud/serp/internal/domain/search/rules"
	"github.com/kailas-cloud/serp/internal/metrics"
	quotarepo "github.com/kailas-cloud/serp/internal/repository/quota"
	"github.com/kailas-cloud/serp/internal/repository/serpcache"
	healthuc "github.com/kailas-cloud/serp/internal/usecase/health"
	quotauc "github.com/kailas-cloud/serp/internal/usecase/quota"
	searchuc "github.com/kailas-cloud/serp/internal/usecase/search"
)

// App is the assembled search pipeline.
type App struct {
	Rules   *rules.Table
	Backend db.Backend
	// Cache is the Redis result cache store, nil for other cache drivers.
	Cache  db.Store
	Search *searchuc.Service
	Health *healthuc.Service
	// Quota is nil unless API keys and at least one quota limit are configured.
	Quota *quotauc.Tracker
}

// Build connects the backend and the result cache and assembles the search service.
// The caller owns the returned App and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	tbl, err := config.LoadRules(cfg.Tree())
	if err != nil {
		return nil, fmt.Errorf("load search rules: %w", err)
	}

	backend, err := NewBackend(ctx, cfg.Backend, tbl, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Rules: tbl, Backend: backend}

	var searcher searchuc.Searcher = searchuc.NewInstrumentedSearcher(backend, cfg.Backend.Driver, logger)

	switch cfg.Cache.Driver {
	case config.CacheMemory:
		store := serpcache.NewLRUStore(cfg.Cache.Size, cfg.Cache.TTL())
		searcher = serpcache.New(searcher, store, cfg.Cache.TTL(), metrics.ResultCacheTotal, logger)
	case config.CacheRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Cache.Addrs,
			Password:  cfg.Cache.Password,
			DB:        cfg.Cache.DB,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.Cache = store
		if err := store.WaitForReady(ctx, readiness(cfg.Backend.ReadinessTimeout)); err != nil {
			a.Close()
			return nil, fmt.Errorf("result cache not ready: %w", err)
		}
		searcher = serpcache.New(searcher, store, cfg.Cache.TTL(), metrics.ResultCacheTotal, logger)
	}

	a.Search = searchuc.New(searcher, tbl, searchuc.Options{
		TitleLength:     cfg.Serp.TitleLength,
		SnippetLength:   cfg.Serp.SnippetLength,
		DefaultLanguage: cfg.Serp.DefaultLanguage,
		Indices:         cfg.Backend.Indices,
		DefaultIndices:  cfg.Backend.DefaultIndices,
	})

	if cfg.Auth.Quota.Enabled() && len(cfg.Auth.APIKeys) > 0 {
		q := cfg.Auth.Quota
		a.Quota = quotauc.NewTracker(
			quotauc.Limits{Daily: q.Daily, Weekly: q.Weekly, Monthly: q.Monthly},
			quotauc.Action(q.Action), logger,
		)
		// Redis shares counters between replicas and across restarts.
		if counter, ok := a.Cache.(db.Counter); ok {
			a.Quota.WithStore(quotarepo.New(counter))
		}
	}

	// Pass a nil interface, not a typed nil pointer, when there is no cache store.
	var cachePinger healthuc.Pinger
	if a.Cache != nil {
		cachePinger = a.Cache
	}
	a.Health = healthuc.New(backend, cachePinger)

	logger.Info("Search pipeline ready",
		zap.String("backend", cfg.Backend.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.Int("main_fields", len(tbl.Fields)),
		zap.Int("rescore_window", tbl.RescoreWindow),
	)
	return a, nil
}

// Close releases the backend and the cache store.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.Backend != nil {
		a.Backend.Close()
	}
}

// NewBackend creates the configured search backend and waits until it is usable.
// The bleve backend is filled from the configured seed files.
func NewBackend(
	ctx context.Context, cfg config.BackendConfig, tbl *rules.Table, logger *zap.Logger,
) (db.Backend, error) {
	switch cfg.Driver {
	case config.BackendElastic:
		b, err := elastic.NewBackend(elastic.Config{
			Addresses:  cfg.Addrs,
			Username:   cfg.Username,
			Password:   cfg.Password,
			APIKey:     cfg.APIKey,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("create elasticsearch backend: %w", err)
		}
		if err := db.WaitForReady(ctx, b, readiness(cfg.ReadinessTimeout)); err != nil {
			return nil, fmt.Errorf("elasticsearch not ready: %w", err)
		}
		logger.Info("Connected to Elasticsearch", zap.Strings("addrs", cfg.Addrs))
		return b, nil

	case config.BackendBleve:
		b := memindex.New(memindex.Config{KeywordFields: memindex.KeywordFieldsFor(tbl)})
		for _, seed := range cfg.Seed {
			n, err := loadSeed(ctx, b, seed)
			if err != nil {
				b.Close()
				return nil, err
			}
			logger.Info("Seeded index", zap.String("index", seed.Index), zap.Int("documents", n))
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Driver)
	}
}

func loadSeed(ctx context.Context, b *memindex.Backend, seed config.SeedConfig) (int, error) {
	f, err := os.Open(filepath.Clean(seed.Path))
	if err != nil {
		return 0, fmt.Errorf("open seed %s: %w", seed.Path, err)
	}
	defer func() { _ = f.Close() }()

	n, err := b.LoadNDJSON(ctx, seed.Index, f)
	if err != nil {
		return 0, fmt.Errorf("load seed %s: %w", seed.Path, err)
	}
	return n, nil
}

func readiness(sec int) time.Duration {
	if sec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(sec) * time.Second
}
