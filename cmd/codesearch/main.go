// Package main provides the codesearch CLI: index a Python codebase into
// Qdrant and query it in natural language.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/codebase-embeddings/internal/app"
	"github.com/bull/codebase-embeddings/internal/config"
	"github.com/bull/codebase-embeddings/internal/observability"
)

var (
	configPath string
	collection string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "codesearch",
	Short: "Semantic search over Python codebases",
	Long: `Index every function and class of a Python codebase into a Qdrant
collection and search it in natural language.

Environment variables:
  OPENAI_API_KEY     API key for embeddings and descriptions (required)
  OPENAI_ENDPOINT    Azure OpenAI endpoint (optional, switches to Azure)
  OPENAI_BASE_URL    OpenAI-compatible base URL (optional)
  EMBEDDING_MODEL    Embedding model or Azure deployment (default: text-embedding-3-small)
  QDRANT_HOST        Qdrant hostname (default: localhost)
  QDRANT_PORT        Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY     Qdrant API key (optional)
  COLLECTION         Default collection (default: default_project)
  GITHUB_TOKEN       GitHub token for --github sources (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&collection, "collection", "c", "", "collection (project) name (default from config: default_project)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(indexCmd, queryCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadApp reads configuration, applies the persistent flags and connects
// every component.
func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if collection != "" {
		cfg.Index.Collection = collection
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("startup failed: %w", err)
	}
	return a, nil
}
