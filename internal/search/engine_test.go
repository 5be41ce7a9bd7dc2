package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/codebase-embeddings/internal/storage"
)

type fakeEmbedder struct {
	queries []string
	err     error
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	e.queries = append(e.queries, query)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeSearcher struct {
	collection string
	limit      int
	hits       []*storage.ScoredChunk
	err        error
}

func (s *fakeSearcher) Search(_ context.Context, collection string, _ []float32, limit int) ([]*storage.ScoredChunk, error) {
	s.collection, s.limit = collection, limit
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.hits) {
		return s.hits[:limit], nil
	}
	return s.hits, nil
}

func hits(n int) []*storage.ScoredChunk {
	out := make([]*storage.ScoredChunk, n)
	for i := range out {
		out[i] = &storage.ScoredChunk{
			ID:    uint64(i),
			Score: 0.9 - float64(i)*0.1,
			Payload: storage.Payload{
				FilePath:   "pkg/mod.py",
				EntityName: fmt.Sprintf("fn%d", i),
				EntityType: "Function",
				IsFunction: true,
			},
		}
	}
	return out
}

func TestQuery_DefaultsAndOrder(t *testing.T) {
	emb := &fakeEmbedder{}
	searcher := &fakeSearcher{hits: hits(8)}
	engine := NewEngine(emb, searcher, nil)

	results, err := engine.Query(context.Background(), "  parse the config ", "", 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultCollection, searcher.collection)
	assert.Equal(t, DefaultLimit, searcher.limit)
	assert.Equal(t, []string{"  parse the config "}, emb.queries, "query text is embedded as typed")

	require.Len(t, results, DefaultLimit)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("fn%d", i), r.Payload.EntityName)
	}
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQuery_FewerPointsThanLimit(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{}, &fakeSearcher{hits: hits(2)}, nil)

	results, err := engine.Query(context.Background(), "find", "proj", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQuery_EmptyText(t *testing.T) {
	emb := &fakeEmbedder{}
	engine := NewEngine(emb, &fakeSearcher{}, nil)

	_, err := engine.Query(context.Background(), " \n\t", "proj", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, emb.queries)
}

func TestQuery_MissingCollection(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("%w: nope", storage.ErrCollectionNotFound)}
	engine := NewEngine(&fakeEmbedder{}, searcher, nil)

	_, err := engine.Query(context.Background(), "find", "nope", 5)
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestQuery_EmbeddingFailure(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := NewEngine(&fakeEmbedder{err: errors.New("unauthorized")}, searcher, nil)

	_, err := engine.Query(context.Background(), "find", "proj", 5)
	assert.ErrorContains(t, err, "unauthorized")
	assert.Empty(t, searcher.collection, "store is not queried")
}
