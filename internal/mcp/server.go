package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Engine     Querier
	Indexer    Runner
	Store      StatusReader
	OpenSource SourceOpener
	// Collection is used when a tool call names none.
	Collection string
	// AuxiliaryFile is read from the source root after indexing.
	// Empty means main.py.
	AuxiliaryFile string
	Version       string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "codebase-embeddings",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_code",
		Description: "Semantic search over an indexed Python codebase. Returns the best-matching functions and classes with file, line range, score and source.",
	}, makeSearchHandler(cfg.Engine, cfg.Collection))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a Python codebase (local directory or GitHub repository) into a collection: extract every function and class, optionally describe them, embed and store them.",
	}, makeIndexHandler(cfg.Indexer, cfg.OpenSource, cfg.Collection, cfg.AuxiliaryFile))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "collection_status",
		Description: "Report whether a collection exists, how many entities it holds and its vector parameters.",
	}, makeStatusHandler(cfg.Store, cfg.Collection))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
