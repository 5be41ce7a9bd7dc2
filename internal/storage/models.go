package storage

import (
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// Chunk is an extracted entity enriched with its description and embedding,
// ready to be written as one point.
type Chunk struct {
	FilePath    string
	EntityType  string // "Function" or "Class"
	EntityName  string
	StartLine   int
	EndLine     int
	Code        string
	Description string
	IsFunction  bool
	RunID       string    // Indexing run that wrote the point
	IndexedAt   time.Time // When the run started
	Embedding   []float32
}

// Payload is the metadata stored alongside each vector: every Chunk field
// except the embedding.
type Payload struct {
	FilePath    string    `json:"file_path"`
	EntityType  string    `json:"entity_type"`
	EntityName  string    `json:"entity_name"`
	StartLine   int       `json:"start_line"`
	EndLine     int       `json:"end_line"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	IsFunction  bool      `json:"is_function"`
	RunID       string    `json:"run_id"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	ID      uint64
	Score   float64
	Payload Payload
}

// CollectionInfo describes a collection's shape and size.
type CollectionInfo struct {
	Name        string
	PointsCount uint64
	VectorSize  uint64
	Distance    string
}

// Payload field names.
const (
	fieldFilePath    = "file_path"
	fieldEntityType  = "entity_type"
	fieldEntityName  = "entity_name"
	fieldStartLine   = "start_line"
	fieldEndLine     = "end_line"
	fieldCode        = "code"
	fieldDescription = "description"
	fieldIsFunction  = "is_function"
	fieldRunID       = "run_id"
	fieldIndexedAt   = "indexed_at"
)

// PayloadOf returns the payload stored for c.
func PayloadOf(c *Chunk) Payload {
	return Payload{
		FilePath:    c.FilePath,
		EntityType:  c.EntityType,
		EntityName:  c.EntityName,
		StartLine:   c.StartLine,
		EndLine:     c.EndLine,
		Code:        c.Code,
		Description: c.Description,
		IsFunction:  c.IsFunction,
		RunID:       c.RunID,
		IndexedAt:   c.IndexedAt,
	}
}

// Map returns the payload as the flat map written to Qdrant.
func (p Payload) Map() map[string]any {
	return map[string]any{
		fieldFilePath:    p.FilePath,
		fieldEntityType:  p.EntityType,
		fieldEntityName:  p.EntityName,
		fieldStartLine:   p.StartLine,
		fieldEndLine:     p.EndLine,
		fieldCode:        p.Code,
		fieldDescription: p.Description,
		fieldIsFunction:  p.IsFunction,
		fieldRunID:       p.RunID,
		fieldIndexedAt:   p.IndexedAt.UTC().Format(time.RFC3339),
	}
}

// payloadFromValues decodes a Qdrant payload. Missing fields stay zero.
func payloadFromValues(values map[string]*qdrant.Value) Payload {
	indexedAt, err := time.Parse(time.RFC3339, values[fieldIndexedAt].GetStringValue())
	if err != nil {
		indexedAt = time.Time{}
	}

	return Payload{
		FilePath:    values[fieldFilePath].GetStringValue(),
		EntityType:  values[fieldEntityType].GetStringValue(),
		EntityName:  values[fieldEntityName].GetStringValue(),
		StartLine:   int(values[fieldStartLine].GetIntegerValue()),
		EndLine:     int(values[fieldEndLine].GetIntegerValue()),
		Code:        values[fieldCode].GetStringValue(),
		Description: values[fieldDescription].GetStringValue(),
		IsFunction:  values[fieldIsFunction].GetBoolValue(),
		RunID:       values[fieldRunID].GetStringValue(),
		IndexedAt:   indexedAt,
	}
}

// buildPoints converts chunks into points with ids 0..n-1. Every embedding
// must have the same length as the first.
func buildPoints(chunks []*Chunk) ([]*qdrant.PointStruct, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyBatch
	}

	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return nil, ErrEmptyBatch
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) != dim {
			return nil, errDimension(i, len(chunk.Embedding), dim)
		}
		payload, err := qdrant.TryValueMap(PayloadOf(chunk).Map())
		if err != nil {
			return nil, err
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectorsDense(chunk.Embedding),
			Payload: payload,
		}
	}
	return points, nil
}
