package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingsServer answers /v1/embeddings with a vector derived from
// each input: [len(text), first byte, 1].
func fakeEmbeddingsServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error","code":"boom"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float64{float64(len(text)), float64(text[0]), 1},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestEmbedder(t *testing.T, srv *httptest.Server, opts Options) *Embedder {
	t.Helper()
	client, err := NewClient(ClientConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return NewEmbedder(client, opts)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}

func TestNewEmbedder_Defaults(t *testing.T) {
	e := NewEmbedder(nil, Options{})
	assert.Equal(t, DefaultModel, e.Model())
	assert.Equal(t, DefaultBatchSize, e.batchSize)
	assert.Equal(t, DefaultConcurrency, e.concurrency)
	assert.Equal(t, DefaultMaxInputChars, e.maxInputChars)
}

func TestNewEmbedder_ClampsConcurrency(t *testing.T) {
	e := NewEmbedder(nil, Options{Concurrency: 100})
	assert.Equal(t, MaxConcurrency, e.concurrency)

	e = NewEmbedder(nil, Options{Concurrency: 8})
	assert.Equal(t, 8, e.concurrency)
}

func TestGenerateEmbeddings_PreservesOrderAcrossBatches(t *testing.T) {
	srv, calls := fakeEmbeddingsServer(t, http.StatusOK)
	e := newTestEmbedder(t, srv, Options{BatchSize: 2, Concurrency: 3})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	embeddings, err := e.GenerateEmbeddings(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, embeddings, len(texts))
	for i, text := range texts {
		assert.Equal(t, []float32{float32(len(text)), float32(text[0]), 1}, embeddings[i], text)
	}
	assert.Equal(t, int32(3), calls.Load(), "5 texts in batches of 2")
}

func TestGenerateEmbeddings_NoRetryOnFailure(t *testing.T) {
	srv, calls := fakeEmbeddingsServer(t, http.StatusInternalServerError)
	e := newTestEmbedder(t, srv, Options{})

	_, err := e.GenerateEmbeddings(context.Background(), []string{"def f(): pass"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateEmbeddings_RejectsEmptyText(t *testing.T) {
	srv, calls := fakeEmbeddingsServer(t, http.StatusOK)
	e := newTestEmbedder(t, srv, Options{})

	_, err := e.GenerateEmbeddings(context.Background(), []string{"ok", "  "})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, calls.Load())
}

func TestGenerateEmbeddings_TruncatesLongInput(t *testing.T) {
	srv, _ := fakeEmbeddingsServer(t, http.StatusOK)
	e := newTestEmbedder(t, srv, Options{MaxInputChars: 10})

	embeddings, err := e.GenerateEmbeddings(context.Background(), []string{strings.Repeat("x", 50)})
	require.NoError(t, err)
	assert.Equal(t, float32(10), embeddings[0][0])
}

func TestEmbedQuery(t *testing.T) {
	srv, _ := fakeEmbeddingsServer(t, http.StatusOK)
	e := newTestEmbedder(t, srv, Options{})

	vec, err := e.EmbedQuery(context.Background(), "sum two numbers")
	require.NoError(t, err)
	assert.Equal(t, []float32{15, 's', 1}, vec)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 10))
	assert.Equal(t, "h", truncate("hé", 2), "é is two bytes and must not be split")
}
