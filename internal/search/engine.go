// Package search answers natural-language questions against an indexed
// collection.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/codebase-embeddings/internal/observability"
	"github.com/bull/codebase-embeddings/internal/storage"
)

const (
	// DefaultLimit is the number of hits returned when none is requested.
	DefaultLimit = 5

	// DefaultCollection is queried when no collection is named.
	DefaultCollection = "default_project"
)

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("query text is empty")

// QueryEmbedder embeds query text with the model the collection was built with.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Searcher finds the nearest stored points to a vector.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]*storage.ScoredChunk, error)
}

// Result is one ranked hit: similarity score plus everything stored with
// the entity.
type Result struct {
	Score   float64
	Payload storage.Payload
}

// Engine embeds queries and runs them against a collection.
type Engine struct {
	embedder QueryEmbedder
	searcher Searcher
	logger   *slog.Logger
}

// NewEngine creates a query engine. A nil logger means slog.Default().
func NewEngine(embedder QueryEmbedder, searcher Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{embedder: embedder, searcher: searcher, logger: logger}
}

// Query embeds text as typed and returns up to limit hits from collection,
// best first. A missing collection yields storage.ErrCollectionNotFound.
func (e *Engine) Query(ctx context.Context, text, collection string, limit int) (_ []Result, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if collection == "" {
		collection = DefaultCollection
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, span := observability.StartQuerySpan(ctx, collection, limit)
	defer func() { observability.EndSpan(span, err) }()

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.searcher.Search(ctx, collection, vector, limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, hit := range hits {
		results[i] = Result{Score: hit.Score, Payload: hit.Payload}
	}

	e.logger.Debug("Query complete", "collection", collection, "limit", limit, "hits", len(results))
	return results, nil
}
