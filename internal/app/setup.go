package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurabase/kura/db"
	"github.com/kurabase/kura/internal/api"
	"github.com/kurabase/kura/internal/article"
	"github.com/kurabase/kura/internal/chunker"
	"github.com/kurabase/kura/internal/config"
	"github.com/kurabase/kura/internal/feedback"
	"github.com/kurabase/kura/internal/index"
	"github.com/kurabase/kura/internal/ingest"
	"github.com/kurabase/kura/internal/log"
	"github.com/kurabase/kura/internal/observability"
	"github.com/kurabase/kura/internal/pipeline"
	"github.com/kurabase/kura/internal/provider"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: true})
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be set up before Genkit so its TracerProvider is ready.
	a.otelCleanup = observability.Setup(ctx, observability.Config{
		Enabled:     cfg.Otel.Enabled,
		Endpoint:    cfg.Otel.Endpoint,
		ServiceName: cfg.Otel.ServiceName,
		Environment: cfg.Otel.Environment,
	})

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, embedder, err := provider.Setup(ctx, provider.Config{
		Provider:      cfg.Provider,
		ModelName:     cfg.ModelName,
		EmbedderModel: cfg.EmbedderModel,
		OllamaHost:    cfg.OllamaHost,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up AI provider: %w", err)
	}
	a.Genkit = g
	a.Embedder = embedder

	a.Index = index.New(index.NewPGQuerier(pool), embedder, logger)

	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}
	a.Ingest = ingest.New(splitter, a.Index, logger)

	articleStore := article.NewStore(pool, logger)
	a.Articles = article.NewService(articleStore, a.Ingest, a.Index, logger)

	interactionStore := feedback.NewStore(pool, logger)
	a.Feedback = feedback.NewEngine(interactionStore, articleStore, a.Index, logger)

	generator := provider.NewGenerator(g, cfg.ModelName)
	a.Pipeline = pipeline.New(a.Index, generator, cfg.TopK, logger)

	server, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Pipeline:    a.Pipeline,
		Ingest:      a.Ingest,
		Articles:    a.Articles,
		Feedback:    a.Feedback,
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		TrustProxy:  cfg.TrustProxy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	a.Server = server

	return a, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}
