package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config holds the Qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantStorage wraps the Qdrant client with connection management and
// collection lifecycle. Every collection holds one unnamed dense vector per
// point under cosine distance.
type QdrantStorage struct {
	client *qdrant.Client
	cfg    Config
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg Config) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		cfg:    cfg,
	}

	if err := storage.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
// This is the only retried call: pipeline operations fail on first error.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// CollectionExists reports whether the named collection exists.
func (s *QdrantStorage) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return exists, nil
}

// CreateCollection creates a collection of dim-sized cosine vectors plus
// keyword indexes on the fields used for filtering. It fails if the
// collection already exists.
func (s *QdrantStorage) CreateCollection(ctx context.Context, name string, dim int) error {
	if dim <= 0 {
		return ErrEmptyBatch
	}

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	if err := s.createPayloadIndexes(ctx, name); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes creates keyword indexes for the filterable fields.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context, name string) error {
	fields := []string{
		fieldRunID,      // Stale point detection
		fieldFilePath,   // Lookup by file
		fieldEntityType, // Function vs Class
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}

	return nil
}

// EnsureCollection creates the collection if it is absent. An existing
// collection must already hold dim-sized vectors.
// The check-then-create is not atomic: a concurrent creator makes one of
// the two calls fail.
func (s *QdrantStorage) EnsureCollection(ctx context.Context, name string, dim int) (created bool, err error) {
	if dim <= 0 {
		return false, ErrEmptyBatch
	}

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := s.CreateCollection(ctx, name, dim); err != nil {
			return false, err
		}
		return true, nil
	}

	info, err := s.CollectionInfo(ctx, name)
	if err != nil {
		return false, err
	}
	if info.VectorSize != uint64(dim) {
		return false, fmt.Errorf("%w: collection %s holds %d-dimension vectors, got %d",
			ErrDimensionMismatch, name, info.VectorSize, dim)
	}
	return false, nil
}

// DeleteCollection drops a collection. Deleting a missing collection is not
// an error.
func (s *QdrantStorage) DeleteCollection(ctx context.Context, name string) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// CollectionInfo returns the size and vector parameters of a collection.
func (s *QdrantStorage) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	return &CollectionInfo{
		Name:        name,
		PointsCount: info.GetPointsCount(),
		VectorSize:  params.GetSize(),
		Distance:    params.GetDistance().String(),
	}, nil
}

// UpsertChunks writes chunks as points 0..n-1 in a single upsert call.
// Points from an earlier, larger run keep their ids above n-1 and are left
// in place; see CountStale and DeleteStale.
func (s *QdrantStorage) UpsertChunks(ctx context.Context, name string, chunks []*Chunk) error {
	points, err := buildPoints(chunks)
	if err != nil {
		return err
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), name, err)
	}

	return nil
}

// Search returns the limit points nearest to vector, in the order Qdrant
// ranks them. A missing collection yields ErrCollectionNotFound, never an
// empty result.
func (s *QdrantStorage) Search(ctx context.Context, name string, vector []float32, limit int) ([]*ScoredChunk, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
		}
		return nil, fmt.Errorf("failed to search %s: %w", name, err)
	}

	scored := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, &ScoredChunk{
			ID:      result.GetId().GetNum(),
			Score:   float64(result.GetScore()),
			Payload: payloadFromValues(result.GetPayload()),
		})
	}

	return scored, nil
}

// staleFilter matches points written by any run other than runID.
func staleFilter(runID string) *qdrant.Filter {
	return &qdrant.Filter{
		MustNot: []*qdrant.Condition{
			qdrant.NewMatch(fieldRunID, runID),
		},
	}
}

// CountStale counts points not written by runID, i.e. leftovers of earlier
// runs over a larger tree.
func (s *QdrantStorage) CountStale(ctx context.Context, name, runID string) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Filter:         staleFilter(runID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count stale points in %s: %w", name, err)
	}
	return count, nil
}

// DeleteStale removes every point not written by runID.
func (s *QdrantStorage) DeleteStale(ctx context.Context, name, runID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(staleFilter(runID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete stale points in %s: %w", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if errors.Is(err, ErrCollectionNotFound) {
		return true
	}
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}
