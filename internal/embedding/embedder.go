package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// DefaultBatchSize is the number of texts sent per embeddings request.
	DefaultBatchSize = 100

	// DefaultConcurrency bounds the embeddings requests in flight.
	DefaultConcurrency = 4

	// MaxConcurrency caps a configured concurrency.
	MaxConcurrency = 32

	// DefaultMaxInputChars approximates the 8192-token input limit of the
	// text-embedding-3 models at 4 characters per token.
	DefaultMaxInputChars = 32000
)

// ErrEmptyInput is returned for blank texts, which the API rejects.
var ErrEmptyInput = errors.New("cannot embed empty text")

// Options tunes an Embedder. Zero values select the defaults.
type Options struct {
	Model         string
	BatchSize     int
	Concurrency   int
	MaxInputChars int
}

// Embedder generates one embedding per input text. Batches run with
// bounded concurrency; there is no retry, so the first failed request fails
// the whole call.
type Embedder struct {
	client        *Client
	model         string
	batchSize     int
	concurrency   int
	maxInputChars int
}

// NewEmbedder creates a new Embedder with the given client and options.
func NewEmbedder(client *Client, opts Options) *Embedder {
	e := &Embedder{
		client:        client,
		model:         opts.Model,
		batchSize:     opts.BatchSize,
		concurrency:   opts.Concurrency,
		maxInputChars: opts.MaxInputChars,
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.concurrency > MaxConcurrency {
		e.concurrency = MaxConcurrency
	}
	if e.maxInputChars <= 0 {
		e.maxInputChars = DefaultMaxInputChars
	}
	return e
}

// Model returns the embedding model identifier.
func (e *Embedder) Model() string {
	return e.model
}

// GenerateEmbeddings returns embeddings[i] for texts[i].
func (e *Embedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	inputs := make([]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyInput)
		}
		inputs[i] = truncate(text, e.maxInputChars)
	}

	embeddings := make([][]float32, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := 0; i < len(inputs); i += e.batchSize {
		start, end := i, min(i+e.batchSize, len(inputs))
		g.Go(func() error {
			batch, err := e.embedBatch(ctx, inputs[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(embeddings[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return embeddings, nil
}

// EmbedQuery embeds free-text query as typed.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// embedBatch performs a single embeddings request.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// The API documents Data as ordered, but each item carries its index.
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	embeddings := make([][]float32, len(data))
	for i, d := range data {
		embeddings[i] = toFloat32(d.Embedding)
	}
	return embeddings, nil
}

// truncate cuts s to at most maxChars bytes without splitting a rune.
func truncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
