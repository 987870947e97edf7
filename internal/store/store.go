package store

import (
	"context"
	"errors"

	"github.com/ajitpratap0/sage/internal/models"
)

// ErrNotFound is returned by Get and Delete when the requested chunk does not exist.
var ErrNotFound = errors.New("chunk not found")

// ErrCorrupt indicates the knowledge store failed an I/O operation. It is
// treated as fatal by callers; retrying against a broken store is pointless.
var ErrCorrupt = errors.New("knowledge store failure")

// ErrDimensionMismatch is returned when a vector's dimension does not match
// the dimension the collection was created with.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// SearchFilter narrows similarity search to chunks matching payload fields.
// The zero value matches every chunk.
type SearchFilter struct {
	// Source restricts results to chunks ingested from this source.
	Source string
	// Tags restricts results to chunks carrying every listed tag.
	Tags []string
}

// IsZero reports whether the filter imposes no restriction.
func (f SearchFilter) IsZero() bool {
	return f.Source == "" && len(f.Tags) == 0
}

// KnowledgeStore defines the interface for knowledge chunk persistence with
// vector search.
type KnowledgeStore interface {
	// EnsureCollection creates the vector collection if it doesn't exist,
	// and verifies its dimension when it does.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or updates a chunk with its embedding vector. The
	// chunk payload and vector are written together; a chunk is never
	// visible without its vector.
	Upsert(ctx context.Context, chunk models.KnowledgeChunk, vector []float32) error

	// Search finds chunks similar to the query vector, ordered by
	// descending score with chunk ID as a stable tie-break. Chunks
	// scoring below minScore or failing the filter are excluded. An
	// empty collection yields an empty result, not an error.
	Search(ctx context.Context, vector []float32, limit uint64, minScore float64, filter SearchFilter) ([]models.ScoredChunk, error)

	// Get retrieves a single chunk by ID.
	Get(ctx context.Context, id string) (*models.KnowledgeChunk, error)

	// HasContentHash reports whether any stored chunk carries the given
	// content hash. Used to skip re-embedding on repeated ingestion.
	HasContentHash(ctx context.Context, hash string) (bool, error)

	// DeleteSource removes every chunk ingested from the given source.
	DeleteSource(ctx context.Context, source string) error

	// Reset drops all chunks and recreates the collection.
	Reset(ctx context.Context) error

	// Stats returns collection statistics.
	Stats(ctx context.Context) (*models.KnowledgeStats, error)

	// Close cleans up resources.
	Close() error
}
