package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clonebrain/clonebrain/db"
	"github.com/clonebrain/clonebrain/internal/config"
	"github.com/clonebrain/clonebrain/internal/database"
	"github.com/clonebrain/clonebrain/internal/knowledge"
	"github.com/clonebrain/clonebrain/internal/observability"
	"github.com/clonebrain/clonebrain/internal/persona"
)

// app holds the initialized core components shared by serve and mcp.
type app struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	Knowledge *knowledge.Store
	Personas  *persona.Store

	closers []func()
}

// Close releases resources in reverse initialization order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setupApp wires the core object graph: tracing, migrations, the connection
// pool, Genkit with the configured provider plugin, and the stores.
// Tracing is set up before genkit.Init so spans get the right resource.
func setupApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{Config: cfg}

	otelShutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Otel.Endpoint,
		Environment: cfg.Otel.Environment,
		ServiceName: cfg.Otel.ServiceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := otelShutdown(context.Background()); err != nil {
			logger.Warn("trace exporter shutdown", "error", err)
		}
	})

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		a.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	pool, poolCleanup, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, poolCleanup)

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		a.Close()
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(knowledge.NewQueries(pool), embedder, cfg.EmbedderModel, logger)
	a.Personas = persona.NewStore(pool, logger)

	return a, nil
}

// provideGenkit initializes Genkit with the configured provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		slog.Info("initialized Genkit with googleai provider", "model", cfg.ModelName)
		return g, nil

	default: // "openai"
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		slog.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
		return g, nil
	}
}

// provideEmbedder looks up the embedder registered by the provider plugin.
// The openai plugin auto-registers embedders in Init; googleai exposes a
// lookup helper.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	default: // "openai"
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	}
}
