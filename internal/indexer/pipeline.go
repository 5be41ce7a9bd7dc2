// Package indexer runs the indexing pipeline: extract entities from a
// source tree, optionally describe them, embed them and store them in a
// collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bull/codebase-embeddings/internal/embedding"
	"github.com/bull/codebase-embeddings/internal/extractor"
	"github.com/bull/codebase-embeddings/internal/metadata"
	"github.com/bull/codebase-embeddings/internal/observability"
	"github.com/bull/codebase-embeddings/internal/storage"
)

// DefaultAuxiliaryFile is read from the root of every indexed tree.
const DefaultAuxiliaryFile = "main.py"

// Pipeline stages, in execution order.
const (
	StageExtract  = "extract"
	StageDescribe = "describe"
	StageEmbed    = "embed"
	StageStore    = "store"
)

// Extractor turns a source tree into entities.
type Extractor interface {
	Extract(ctx context.Context, src extractor.Source) (*extractor.Result, error)
}

// Describer summarises one entity's code.
type Describer interface {
	Describe(ctx context.Context, code string) metadata.Description
}

// Embedder returns exactly one vector per input text, in input order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the subset of the vector store the pipeline writes to.
type Store interface {
	EnsureCollection(ctx context.Context, name string, dim int) (bool, error)
	DeleteCollection(ctx context.Context, name string) error
	UpsertChunks(ctx context.Context, name string, chunks []*storage.Chunk) error
	CountStale(ctx context.Context, name, runID string) (uint64, error)
	DeleteStale(ctx context.Context, name, runID string) error
}

// ProgressReporter receives per-stage progress. Implementations need not be
// safe for concurrent use.
type ProgressReporter interface {
	Start(stage string, total int)
	Increment()
	Finish()
}

// StageError reports the stage at which a run aborted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Request describes one indexing run.
type Request struct {
	Collection string
	Source     extractor.Source
	// Describe generates a description for every entity before embedding.
	Describe bool
	Mode     embedding.Mode
	// Recreate drops the collection before writing.
	Recreate bool
	// PruneStale deletes points left behind by earlier runs.
	PruneStale    bool
	AuxiliaryFile string
	Progress      ProgressReporter
}

// Result contains statistics about an indexing run.
type Result struct {
	RunID               string
	Collection          string
	FilesScanned        int
	Entities            int
	Chunks              int
	ParseErrors         []*extractor.ParseError
	DescriptionFailures int
	CollectionCreated   bool
	StalePoints         uint64
	PrunedPoints        uint64
	MainFile            string
	HasMainFile         bool
	Duration            time.Duration
}

// Pipeline orchestrates the full indexing process from extraction to storage.
type Pipeline struct {
	extractor Extractor
	describer Describer
	embedder  Embedder
	store     Store
	logger    *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
// describer may be nil when runs never request descriptions.
func NewPipeline(ext Extractor, describer Describer, embedder Embedder, store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: ext,
		describer: describer,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// Run indexes req.Source into req.Collection. Unparseable files and failed
// descriptions are reported in the result; any other failure aborts the run
// with a *StageError. Nothing is written to the store unless every entity
// was embedded.
func (p *Pipeline) Run(ctx context.Context, req Request) (_ *Result, err error) {
	start := time.Now()
	if req.Collection == "" {
		return nil, errors.New("collection name is required")
	}
	if req.Source == nil {
		return nil, &StageError{Stage: StageExtract, Err: extractor.ErrNoSource}
	}
	if req.Describe && p.describer == nil {
		return nil, &StageError{Stage: StageDescribe, Err: errors.New("no describer configured")}
	}
	progress := req.Progress
	if progress == nil {
		progress = noopProgress{}
	}

	result := &Result{
		RunID:      uuid.New().String(),
		Collection: req.Collection,
	}
	ctx, span := observability.StartRunSpan(ctx, result.RunID, req.Collection)
	defer func() { observability.EndSpan(span, err) }()

	logger := p.logger.With("run_id", result.RunID, "collection", req.Collection)
	logger.Info("Starting indexing", "root", req.Source.Root(), "mode", req.Mode, "describe", req.Describe)

	// 1. Extract
	entities, err := p.extract(ctx, req.Source, result)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}
	if len(entities) == 0 {
		return nil, &StageError{Stage: StageStore, Err: storage.ErrEmptyBatch}
	}

	// 2. Describe
	descriptions := make([]string, len(entities))
	if req.Describe {
		if err := p.describe(ctx, entities, descriptions, progress, result); err != nil {
			return nil, &StageError{Stage: StageDescribe, Err: err}
		}
	}

	// 3. Compose and embed
	chunks, err := p.embed(ctx, entities, descriptions, req.Mode, progress, result.RunID, start)
	if err != nil {
		return nil, &StageError{Stage: StageEmbed, Err: err}
	}

	// 4. Store
	if err := p.writeChunks(ctx, req, chunks, result, logger); err != nil {
		return nil, &StageError{Stage: StageStore, Err: err}
	}

	// 5. Auxiliary file
	auxName := req.AuxiliaryFile
	if auxName == "" {
		auxName = DefaultAuxiliaryFile
	}
	mainFile, ok, err := extractor.ReadAuxiliary(ctx, req.Source, auxName)
	if err != nil {
		logger.Warn("Failed to read auxiliary file", "file", auxName, "error", err)
	}
	result.MainFile, result.HasMainFile = mainFile, ok

	result.Duration = time.Since(start)
	logger.Info("Indexing complete",
		"files", result.FilesScanned,
		"entities", result.Entities,
		"chunks", result.Chunks,
		"parse_errors", len(result.ParseErrors),
		"description_failures", result.DescriptionFailures,
		"stale_points", result.StalePoints,
		"duration", result.Duration,
	)

	return result, nil
}

func (p *Pipeline) extract(ctx context.Context, src extractor.Source, result *Result) (_ []extractor.SourceEntity, err error) {
	ctx, span := observability.StartStageSpan(ctx, StageExtract, attribute.String("source.root", src.Root()))
	defer func() { observability.EndSpan(span, err) }()

	extracted, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return nil, err
	}

	result.FilesScanned = extracted.FilesScanned
	result.Entities = len(extracted.Entities)
	result.ParseErrors = extracted.ParseErrors
	span.SetAttributes(
		attribute.Int("extract.files", extracted.FilesScanned),
		attribute.Int("extract.entities", len(extracted.Entities)),
	)
	return extracted.Entities, nil
}

// describe fills descriptions in entity order. A failed description is
// replaced by the sentinel and counted; only cancellation stops the stage.
func (p *Pipeline) describe(ctx context.Context, entities []extractor.SourceEntity, descriptions []string, progress ProgressReporter, result *Result) (err error) {
	ctx, span := observability.StartStageSpan(ctx, StageDescribe, attribute.Int("describe.entities", len(entities)))
	defer func() { observability.EndSpan(span, err) }()

	progress.Start(StageDescribe, len(entities))
	defer progress.Finish()

	for i, entity := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}

		desc := p.describer.Describe(ctx, entity.Code)
		if !desc.Available {
			result.DescriptionFailures++
			p.logger.Warn("Description unavailable",
				"path", entity.FilePath, "entity", entity.EntityName, "error", desc.Err)
		}
		descriptions[i] = desc.Text
		progress.Increment()
	}

	span.SetAttributes(attribute.Int("describe.failures", result.DescriptionFailures))
	return nil
}

func (p *Pipeline) embed(ctx context.Context, entities []extractor.SourceEntity, descriptions []string, mode embedding.Mode, progress ProgressReporter, runID string, indexedAt time.Time) (_ []*storage.Chunk, err error) {
	ctx, span := observability.StartStageSpan(ctx, StageEmbed,
		attribute.Int("embed.inputs", len(entities)),
		attribute.String("embed.mode", mode.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	texts := make([]string, len(entities))
	for i, entity := range entities {
		texts[i] = embedding.Compose(mode, embedding.Document{
			FilePath:    entity.FilePath,
			EntityType:  entity.EntityType.String(),
			EntityName:  entity.EntityName,
			StartLine:   entity.StartLine,
			EndLine:     entity.EndLine,
			Description: descriptions[i],
			Code:        entity.Code,
		})
	}

	progress.Start(StageEmbed, len(texts))
	vectors, err := p.embedder.GenerateEmbeddings(ctx, texts)
	progress.Finish()
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), len(texts))
	}

	chunks := make([]*storage.Chunk, len(entities))
	for i, entity := range entities {
		chunks[i] = &storage.Chunk{
			FilePath:    entity.FilePath,
			EntityType:  entity.EntityType.String(),
			EntityName:  entity.EntityName,
			StartLine:   entity.StartLine,
			EndLine:     entity.EndLine,
			Code:        entity.Code,
			Description: descriptions[i],
			IsFunction:  entity.EntityType == extractor.Function,
			RunID:       runID,
			IndexedAt:   indexedAt,
			Embedding:   vectors[i],
		}
	}
	return chunks, nil
}

// writeChunks writes chunks to the collection, creating it from the first
// vector's dimension, then reports or prunes points of earlier runs.
func (p *Pipeline) writeChunks(ctx context.Context, req Request, chunks []*storage.Chunk, result *Result, logger *slog.Logger) (err error) {
	ctx, span := observability.StartStageSpan(ctx, StageStore,
		attribute.String("store.collection", req.Collection),
		attribute.Int("store.points", len(chunks)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if req.Recreate {
		if err := p.store.DeleteCollection(ctx, req.Collection); err != nil {
			return err
		}
		logger.Info("Dropped collection for recreation")
	}

	created, err := p.store.EnsureCollection(ctx, req.Collection, len(chunks[0].Embedding))
	if err != nil {
		return err
	}
	result.CollectionCreated = created

	if err := p.store.UpsertChunks(ctx, req.Collection, chunks); err != nil {
		return err
	}
	result.Chunks = len(chunks)

	stale, err := p.store.CountStale(ctx, req.Collection, result.RunID)
	if err != nil {
		logger.Warn("Failed to count stale points", "error", err)
		return nil
	}
	result.StalePoints = stale
	if stale == 0 {
		return nil
	}

	if !req.PruneStale {
		logger.Warn("Collection holds points from earlier runs", "stale_points", stale)
		return nil
	}
	if err := p.store.DeleteStale(ctx, req.Collection, result.RunID); err != nil {
		return err
	}
	result.PrunedPoints = stale
	logger.Info("Pruned stale points", "count", stale)
	return nil
}

type noopProgress struct{}

func (noopProgress) Start(string, int) {}
func (noopProgress) Increment()        {}
func (noopProgress) Finish()           {}
