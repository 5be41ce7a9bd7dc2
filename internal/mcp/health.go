package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Qdrant     string `json:"qdrant"`
	Collection string `json:"collection"`
	Indexed    bool   `json:"indexed"`
	Timestamp  string `json:"timestamp"`
}

// HealthChecker is implemented by the vector store.
type HealthChecker interface {
	Health(ctx context.Context) error
	CollectionExists(ctx context.Context, name string) (bool, error)
}

// NewHealthHandler creates an HTTP handler for the /health endpoint. The
// server is healthy when Qdrant answers; whether collection has been
// indexed yet is reported but does not affect the status.
func NewHealthHandler(store HealthChecker, collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Collection: collection,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}
		w.Header().Set("Content-Type", "application/json")

		if err := store.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Qdrant = "disconnected"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		response.Qdrant = "connected"
		if exists, err := store.CollectionExists(ctx, collection); err == nil {
			response.Indexed = exists
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
