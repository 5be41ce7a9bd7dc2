// Package main provides the MCP server entry point for codebase search.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/codebase-embeddings/internal/app"
	"github.com/bull/codebase-embeddings/internal/config"
	mcpserver "github.com/bull/codebase-embeddings/internal/mcp"
	"github.com/bull/codebase-embeddings/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer a.Close(context.Background())

	server := mcpserver.NewServer(&mcpserver.Config{
		Engine:     a.Engine,
		Indexer:    a.Pipeline,
		Store:      a.Store,
		OpenSource: a.OpenSource,
		Collection: cfg.Index.Collection,

		AuxiliaryFile: cfg.Index.AuxiliaryFile,
	})

	mux := mcpserver.NewMux(server, a.Store, cfg.Index.Collection, nil)
	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if cfg.Server.ServerMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
		return
	}

	// Stdio mode: run MCP over stdin/stdout for local clients, with the
	// health endpoint in the background for local testing
	go func() {
		logger.Info("Starting health server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting codebase MCP server (stdio mode)", "collection", cfg.Index.Collection)
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
