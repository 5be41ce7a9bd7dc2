// Package app wires configuration into the components shared by the
// command-line tool and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/codebase-embeddings/internal/config"
	"github.com/bull/codebase-embeddings/internal/embedding"
	"github.com/bull/codebase-embeddings/internal/extractor"
	ghclient "github.com/bull/codebase-embeddings/internal/github"
	"github.com/bull/codebase-embeddings/internal/indexer"
	"github.com/bull/codebase-embeddings/internal/metadata"
	"github.com/bull/codebase-embeddings/internal/observability"
	"github.com/bull/codebase-embeddings/internal/search"
	"github.com/bull/codebase-embeddings/internal/storage"
)

// App holds the connected components. Close releases them.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *storage.QdrantStorage
	Embedder  *embedding.Embedder
	Describer *metadata.Describer
	Extractor *extractor.Extractor
	Pipeline  *indexer.Pipeline
	Engine    *search.Engine

	tracing *observability.TracerProvider
}

// New connects to Qdrant and the model provider. It fails when Qdrant does
// not answer its startup health check or no API key is configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tracingCfg := observability.DefaultTracingConfig()
	tracingCfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tracing, err := observability.InitTracing(ctx, tracingCfg)
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to Qdrant", "host", cfg.Qdrant.Host, "port", cfg.Qdrant.Port)
	store, err := storage.NewQdrantStorage(storage.Config{
		Host:   cfg.Qdrant.Host,
		Port:   cfg.Qdrant.Port,
		APIKey: cfg.Qdrant.APIKey,
		UseTLS: cfg.Qdrant.UseTLS,
	})
	if err != nil {
		tracing.Shutdown(ctx)
		return nil, err
	}

	client, err := embedding.NewClient(embedding.ClientConfig{
		APIKey:        cfg.OpenAI.APIKey,
		BaseURL:       cfg.OpenAI.BaseURL,
		AzureEndpoint: cfg.OpenAI.AzureEndpoint,
		APIVersion:    cfg.OpenAI.APIVersion,
	})
	if err != nil {
		store.Close()
		tracing.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	embedder := embedding.NewEmbedder(client, embedding.Options{
		Model:         cfg.OpenAI.EmbeddingModel,
		BatchSize:     cfg.Index.BatchSize,
		Concurrency:   cfg.Index.Concurrency,
		MaxInputChars: cfg.Index.MaxInputChars,
	})
	describer := metadata.NewDescriber(client.Client(), cfg.OpenAI.ChatModel, logger)
	ext := extractor.New(logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Embedder:  embedder,
		Describer: describer,
		Extractor: ext,
		Pipeline:  indexer.NewPipeline(ext, describer, embedder, store, logger),
		Engine:    search.NewEngine(embedder, store, logger),
		tracing:   tracing,
	}, nil
}

// OpenSource resolves root or repository using the application config.
func (a *App) OpenSource(ctx context.Context, root, repository string) (extractor.Source, error) {
	return OpenSource(ctx, a.Config, root, repository)
}

// Close releases the parser, the Qdrant connection and flushes traces.
func (a *App) Close(ctx context.Context) {
	a.Extractor.Close()
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("Failed to close Qdrant connection", "error", err)
	}
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.Logger.Warn("Failed to flush traces", "error", err)
	}
}

// OpenSource returns a local directory source for root, or a GitHub source
// for repository ("owner/repo[/path][@ref]"). Exactly one must be set.
func OpenSource(_ context.Context, cfg *config.Config, root, repository string) (extractor.Source, error) {
	switch {
	case root != "" && repository != "":
		return nil, errors.New("a local root and a repository cannot both be given")
	case repository != "":
		spec, err := ghclient.ParseRepoSpec(repository)
		if err != nil {
			return nil, err
		}
		client, err := ghclient.NewClient(cfg.GitHub.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		return ghclient.NewRepoSource(client, spec, cfg.Index.Extension, cfg.Index.Exclude)
	case root != "":
		return extractor.NewDirSource(root, cfg.Index.Extension, cfg.Index.Exclude)
	default:
		return nil, fmt.Errorf("%w: no root directory or repository given", extractor.ErrNoSource)
	}
}
