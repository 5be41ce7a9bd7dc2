package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/codebase-embeddings/internal/embedding"
	"github.com/bull/codebase-embeddings/internal/extractor"
	"github.com/bull/codebase-embeddings/internal/indexer"
	"github.com/bull/codebase-embeddings/internal/search"
	"github.com/bull/codebase-embeddings/internal/storage"
)

// Querier runs similarity queries.
type Querier interface {
	Query(ctx context.Context, text, collection string, limit int) ([]search.Result, error)
}

// Runner runs indexing pipelines.
type Runner interface {
	Run(ctx context.Context, req indexer.Request) (*indexer.Result, error)
}

// StatusReader describes collections.
type StatusReader interface {
	CollectionInfo(ctx context.Context, name string) (*storage.CollectionInfo, error)
}

// SourceOpener resolves a local root or a GitHub repository spec into a
// Source. Exactly one of root and repository is non-empty.
type SourceOpener func(ctx context.Context, root, repository string) (extractor.Source, error)

// makeSearchHandler creates the search_code tool handler.
func makeSearchHandler(engine Querier, defaultCollection string) func(
	context.Context, *mcp.CallToolRequest, SearchCodeInput,
) (*mcp.CallToolResult, SearchCodeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchCodeInput) (
		*mcp.CallToolResult, SearchCodeOutput, error,
	) {
		collection := orDefault(input.Collection, defaultCollection)

		results, err := engine.Query(ctx, input.Query, collection, input.MaxResults)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				return nil, SearchCodeOutput{
					Results: []CodeMatch{},
					Message: fmt.Sprintf("Collection %q does not exist. Run index_codebase first.", collection),
				}, nil
			}
			return nil, SearchCodeOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			return nil, SearchCodeOutput{
				Results: []CodeMatch{},
				Message: "No matching code found.",
			}, nil
		}

		matches := make([]CodeMatch, len(results))
		for i, r := range results {
			matches[i] = CodeMatch{
				FilePath:    r.Payload.FilePath,
				EntityType:  r.Payload.EntityType,
				EntityName:  r.Payload.EntityName,
				StartLine:   r.Payload.StartLine,
				EndLine:     r.Payload.EndLine,
				Score:       r.Score,
				Description: r.Payload.Description,
				Code:        r.Payload.Code,
			}
		}
		return nil, SearchCodeOutput{Results: matches}, nil
	}
}

// makeIndexHandler creates the index_codebase tool handler. Runs are
// serialised: the extractor's parser is single-threaded.
func makeIndexHandler(runner Runner, open SourceOpener, defaultCollection, auxiliaryFile string) func(
	context.Context, *mcp.CallToolRequest, IndexCodebaseInput,
) (*mcp.CallToolResult, IndexCodebaseOutput, error) {
	var mu sync.Mutex

	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexCodebaseInput) (
		*mcp.CallToolResult, IndexCodebaseOutput, error,
	) {
		if (input.Root == "") == (input.Repository == "") {
			return nil, IndexCodebaseOutput{}, errors.New("exactly one of root and repository is required")
		}

		src, err := open(ctx, input.Root, input.Repository)
		if err != nil {
			return nil, IndexCodebaseOutput{}, err
		}

		mode := embedding.ModeCode
		if input.Enriched {
			mode = embedding.ModeEnriched
		}

		mu.Lock()
		defer mu.Unlock()

		result, err := runner.Run(ctx, indexer.Request{
			Collection: orDefault(input.Collection, defaultCollection),
			Source:     src,
			Describe:   input.Describe,
			Mode:       mode,
			Recreate:   input.Recreate,
			PruneStale: input.PruneStale,

			AuxiliaryFile: auxiliaryFile,
		})
		if err != nil {
			return nil, IndexCodebaseOutput{}, fmt.Errorf("indexing failed: %w", err)
		}

		parseErrors := make([]string, len(result.ParseErrors))
		for i, perr := range result.ParseErrors {
			parseErrors[i] = perr.Error()
		}

		return nil, IndexCodebaseOutput{
			RunID:               result.RunID,
			Collection:          result.Collection,
			FilesScanned:        result.FilesScanned,
			Entities:            result.Entities,
			Chunks:              result.Chunks,
			ParseErrors:         parseErrors,
			DescriptionFailures: result.DescriptionFailures,
			StalePoints:         result.StalePoints,
			PrunedPoints:        result.PrunedPoints,
			MainFile:            result.MainFile,
			HasMainFile:         result.HasMainFile,
			DurationMS:          result.Duration.Milliseconds(),
		}, nil
	}
}

// makeStatusHandler creates the collection_status tool handler. A missing
// collection is reported, not treated as an error.
func makeStatusHandler(store StatusReader, defaultCollection string) func(
	context.Context, *mcp.CallToolRequest, CollectionStatusInput,
) (*mcp.CallToolResult, CollectionStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CollectionStatusInput) (
		*mcp.CallToolResult, CollectionStatusOutput, error,
	) {
		collection := orDefault(input.Collection, defaultCollection)

		info, err := store.CollectionInfo(ctx, collection)
		if err != nil {
			if errors.Is(err, storage.ErrCollectionNotFound) {
				return nil, CollectionStatusOutput{Collection: collection}, nil
			}
			return nil, CollectionStatusOutput{}, fmt.Errorf("qdrant_error: failed to get collection info: %w", err)
		}

		return nil, CollectionStatusOutput{
			Collection:  collection,
			Exists:      true,
			PointsCount: info.PointsCount,
			VectorSize:  info.VectorSize,
			Distance:    info.Distance,
		}, nil
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
