package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/porsa-ai/porsa/internal/config"
	dbredis "github.com/porsa-ai/porsa/internal/db/redis"
	"github.com/porsa-ai/porsa/internal/domain"
	"github.com/porsa-ai/porsa/internal/metrics"
	"github.com/porsa-ai/porsa/internal/repository/boltvec"
	"github.com/porsa-ai/porsa/internal/repository/embcache"
	"github.com/porsa-ai/porsa/internal/repository/history"
	"github.com/porsa-ai/porsa/internal/repository/vector"
	"github.com/porsa-ai/porsa/internal/text"
	"github.com/porsa-ai/porsa/internal/transport/firecrawl"
	openaitr "github.com/porsa-ai/porsa/internal/transport/openai"
	augmentuc "github.com/porsa-ai/porsa/internal/usecase/augment"
	healthuc "github.com/porsa-ai/porsa/internal/usecase/health"
	indexuc "github.com/porsa-ai/porsa/internal/usecase/index"
	ingestuc "github.com/porsa-ai/porsa/internal/usecase/ingest"
	queryuc "github.com/porsa-ai/porsa/internal/usecase/query"
)

// app is the composition root: every long-lived service constructed once
// and handed to commands by reference.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	index   *indexuc.Service
	ingest  *ingestuc.Service
	query   *queryuc.Service
	health  *healthuc.Service
	history *history.Store // nil when disabled

	closers []func()
}

// buildApp wires the pipeline from configuration. The returned app owns
// the store handles; call Close when done.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterPipelineMetrics()

	a := &app{cfg: cfg, logger: logger}

	embedder := openaitr.NewEmbedder(&openaitr.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var (
		vectors indexuc.VectorStore
		pinger  healthuc.StorePinger
		embed   domain.Embedder = embedder
	)

	switch cfg.Database.Driver {
	case "redis":
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)

		readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			a.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}

		vectors = vector.New(store, vector.Config{
			Collection: cfg.Database.Collection,
			KeyPrefix:  cfg.Database.KeyPrefix,
		})
		pinger = store
		// Embedding cache only makes sense with a shared store.
		embed = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)

	case "bolt":
		store, err := boltvec.NewStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		vectors = store
		pinger = store

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	a.index = indexuc.New(vectors, embed, cfg.Embedding.Dimensions, logger)
	if err := a.index.EnsureCollection(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.History.Enabled {
		hist, err := history.New(cfg.History.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open history store: %w", err)
		}
		a.history = hist
		a.closers = append(a.closers, func() { _ = hist.Close() })
	}

	fetcher := firecrawl.New(firecrawl.Config{
		APIKey:        cfg.Firecrawl.APIKey,
		BaseURL:       cfg.Firecrawl.BaseURL,
		ScrapeTimeout: time.Duration(cfg.Firecrawl.ScrapeTimeout) * time.Second,
		CrawlPoll:     time.Duration(cfg.Firecrawl.CrawlPollSec) * time.Second,
		CrawlTimeout:  time.Duration(cfg.Firecrawl.CrawlTimeoutSec) * time.Second,
		Logger:        logger,
	})
	augment := augmentuc.New(fetcher, logger)

	normalizer := text.NewNormalizer(text.NewPersianCanonicalizer())

	// Typed-nil gotcha: a nil *history.Store wrapped in an interface is
	// not a nil interface, so bind only when the store exists.
	var ingestHist ingestuc.History
	var queryHist queryuc.History
	if a.history != nil {
		ingestHist = a.history
		queryHist = a.history
	}

	a.ingest = ingestuc.New(augment, a.index, normalizer, ingestHist, ingestuc.Config{
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
	}, logger)

	completer := openaitr.NewCompleter(&openaitr.CompleterConfig{
		APIKey:      cfg.Generate.APIKey,
		BaseURL:     cfg.Generate.BaseURL,
		Model:       cfg.Generate.Model,
		Temperature: cfg.Generate.Temperature,
		MaxTokens:   cfg.Generate.MaxTokens,
		Logger:      logger,
	})

	a.query = queryuc.New(a.index, augment, a.ingest, completer, normalizer, queryHist, queryuc.Config{
		TopK:              cfg.Retrieval.TopK,
		ScoreThreshold:    cfg.Retrieval.ScoreThreshold,
		WebScoreThreshold: cfg.Retrieval.WebScoreThreshold,
		MinLocalResults:   cfg.Retrieval.MinLocalResults,
		WebMaxResults:     cfg.Retrieval.WebMaxResults,
		ContextChars:      cfg.Retrieval.ContextChars,
		EchoResults:       cfg.Retrieval.EchoResults,
	}, logger)

	a.health = healthuc.New(pinger, embedder, a.index)

	return a, nil
}

// Close releases store handles in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
