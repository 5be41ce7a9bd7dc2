package storage

import (
	"errors"
	"fmt"
)

var (
	ErrQdrantUnreachable  = errors.New("qdrant server unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrEmptyBatch         = errors.New("no chunks to store: vector dimension cannot be determined")
)

func errDimension(index, got, want int) error {
	return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d", ErrDimensionMismatch, index, got, want)
}
