package main

import (
	"context"
	"fmt"

	"github.com/shereeef1/meme-generator/internal/bypass"
	"github.com/shereeef1/meme-generator/internal/competitor"
	"github.com/shereeef1/meme-generator/internal/config"
	"github.com/shereeef1/meme-generator/internal/docstore"
	"github.com/shereeef1/meme-generator/internal/fetch"
	"github.com/shereeef1/meme-generator/internal/fingerprint"
	"github.com/shereeef1/meme-generator/internal/research"
	"github.com/shereeef1/meme-generator/internal/search"
	"github.com/shereeef1/meme-generator/internal/trend"
	"github.com/shereeef1/meme-generator/internal/website"
	"github.com/shereeef1/meme-generator/internal/wikipedia"
	"github.com/shereeef1/meme-generator/pkg/proxy"
	"github.com/shereeef1/meme-generator/pkg/ratelimit"
	"github.com/shereeef1/meme-generator/pkg/retry"
)

// buildStore constructs the configured document history backend.
func buildStore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Storage.Backend {
	case "", "json":
		return docstore.NewJSONStore(cfg.Storage.DocumentDir)
	case "sqlite":
		return docstore.NewSQLiteStore(cfg.Storage.SQLitePath, cfg.Storage.DocumentDir)
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return nil, fmt.Errorf("storage backend postgres requires storage.postgres_dsn")
		}
		return docstore.NewPGStore(ctx, cfg.Storage.PostgresDSN, cfg.Storage.DocumentDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// buildCoordinator wires the full research pipeline from configuration.
func buildCoordinator(cfg *config.Config, store docstore.Store) (*research.Coordinator, error) {
	var proxyPool *proxy.Pool
	if cfg.HTTP.ProxyFile != "" {
		proxyPool = proxy.NewPool(proxy.Config{})
		if err := proxyPool.LoadFile(cfg.HTTP.ProxyFile); err != nil {
			return nil, fmt.Errorf("loading proxies: %w", err)
		}
	}

	// Each source gets its own fetcher so bot-challenge detection stays
	// scoped to the markers that site actually serves.
	newFetcher := func(detectors []bypass.Detector) (*fetch.Fetcher, error) {
		return fetch.NewFetcher(fetch.Config{
			Timeout:      cfg.HTTP.Timeout,
			MaxRedirects: cfg.HTTP.MaxRedirects,
			UseCookieJar: cfg.HTTP.UseCookieJar,
			Fingerprint:  fingerprint.Profile(cfg.HTTP.Fingerprint),
			UserAgents:   cfg.HTTP.UserAgents,
			ProxyPool:    proxyPool,
			Detectors:    detectors,
			Logger:       logger,
		})
	}

	searchFetcher, err := newFetcher(bypass.SearchDetectors())
	if err != nil {
		return nil, fmt.Errorf("building search fetcher: %w", err)
	}
	wikiFetcher, err := newFetcher([]bypass.Detector{})
	if err != nil {
		return nil, fmt.Errorf("building wikipedia fetcher: %w", err)
	}
	siteFetcher, err := newFetcher(bypass.WebsiteDetectors())
	if err != nil {
		return nil, fmt.Errorf("building website fetcher: %w", err)
	}

	policy := retry.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay}
	pacer := ratelimit.NewPacer(cfg.Pacing.Min, cfg.Pacing.Max)

	searchClient, err := search.New(search.Config{
		Endpoint: cfg.Search.Endpoint,
		Fetcher:  searchFetcher,
		Retry:    policy,
		Pacer:    pacer,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building search client: %w", err)
	}

	wikiClient, err := wikipedia.New(wikipedia.Config{
		BaseURL: cfg.Wikipedia.BaseURL,
		Fetcher: wikiFetcher,
		Retry:   policy,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building wikipedia client: %w", err)
	}

	siteClient, err := website.New(website.Config{
		Fetcher: siteFetcher,
		Retry:   policy,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building website client: %w", err)
	}

	competitors, err := competitor.New(searchClient, pacer, logger)
	if err != nil {
		return nil, fmt.Errorf("building competitor analyzer: %w", err)
	}

	trends, err := trend.New(searchClient, pacer, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("building trend detector: %w", err)
	}

	return research.New(research.Config{
		Wikipedia:          wikiClient,
		Search:             searchClient,
		Website:            siteClient,
		Competitors:        competitors,
		Trends:             trends,
		Store:              store,
		Logger:             logger,
		MaxResultsPerQuery: cfg.Search.MaxPerQuery,
	})
}
