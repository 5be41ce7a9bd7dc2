//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStorage connects to a local Qdrant and returns a fresh collection
// name that is dropped when the test ends. Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) (*QdrantStorage, string) {
	storage, err := NewQdrantStorage(Config{Host: "localhost", Port: 6334})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	name := "test_" + uuid.NewString()
	t.Cleanup(func() {
		_ = storage.DeleteCollection(context.Background(), name)
		storage.Close()
	})
	return storage, name
}

func TestEnsureCollection(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	created, err := storage.EnsureCollection(ctx, name, 4)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = storage.EnsureCollection(ctx, name, 4)
	require.NoError(t, err)
	assert.False(t, created, "second call finds the existing collection")

	info, err := storage.CollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), info.VectorSize)
	assert.Equal(t, "Cosine", info.Distance)

	_, err = storage.EnsureCollection(ctx, name, 8)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = storage.EnsureCollection(ctx, name, 0)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestUpsertAndSearch(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	chunks := []*Chunk{
		sampleChunk("add", 1, 0, 0, 0),
		sampleChunk("split", 0, 1, 0, 0),
		sampleChunk("parse", 0, 0, 1, 0),
	}
	_, err := storage.EnsureCollection(ctx, name, 4)
	require.NoError(t, err)
	require.NoError(t, storage.UpsertChunks(ctx, name, chunks))

	results, err := storage.Search(ctx, name, []float32{0.9, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "add", results[0].Payload.EntityName)
	assert.Equal(t, uint64(0), results[0].ID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, PayloadOf(chunks[0]), results[0].Payload)
}

func TestSearch_MissingCollection(t *testing.T) {
	storage, name := setupTestStorage(t)

	results, err := storage.Search(context.Background(), name, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	assert.Nil(t, results)

	_, err = storage.CollectionInfo(context.Background(), name)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestStalePoints(t *testing.T) {
	storage, name := setupTestStorage(t)
	ctx := context.Background()

	first := []*Chunk{
		sampleChunk("a", 1, 0),
		sampleChunk("b", 0, 1),
		sampleChunk("c", 1, 1),
	}
	_, err := storage.EnsureCollection(ctx, name, 2)
	require.NoError(t, err)
	require.NoError(t, storage.UpsertChunks(ctx, name, first))

	// The tree shrank: the second run overwrites ids 0 and 1 only.
	second := []*Chunk{sampleChunk("a", 1, 0), sampleChunk("b", 0, 1)}
	for _, c := range second {
		c.RunID = "run-2"
	}
	require.NoError(t, storage.UpsertChunks(ctx, name, second))

	stale, err := storage.CountStale(ctx, name, "run-2")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stale)

	require.NoError(t, storage.DeleteStale(ctx, name, "run-2"))

	info, err := storage.CollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.PointsCount)
}
