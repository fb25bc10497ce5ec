// Package app provides application initialization and dependency
// injection. All services are constructed explicitly in Setup, wired
// top-down from configuration; there are no package-level singletons.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurabase/kura/internal/api"
	"github.com/kurabase/kura/internal/article"
	"github.com/kurabase/kura/internal/config"
	"github.com/kurabase/kura/internal/feedback"
	"github.com/kurabase/kura/internal/index"
	"github.com/kurabase/kura/internal/ingest"
	"github.com/kurabase/kura/internal/pipeline"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Index    *index.Store
	Ingest   *ingest.Service
	Articles *article.Service
	Feedback *feedback.Engine
	Pipeline *pipeline.Pipeline
	Server   *api.Server

	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully shuts down all resources, newest first.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
