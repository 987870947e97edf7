package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ajitpratap0/sage/internal/models"
)

// MemoryStore is an in-process implementation of KnowledgeStore. It backs
// the "memory" storage backend for single-shot CLI runs and is the store
// of choice in tests. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	chunks    map[string]*storedChunk
	dimension int
}

type storedChunk struct {
	chunk  models.KnowledgeChunk
	vector []float32
}

// NewMemoryStore creates a new in-process store. dimension of 0 means the
// dimension is fixed by the first upserted vector.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		chunks:    make(map[string]*storedChunk),
		dimension: dimension,
	}
}

// EnsureCollection is a no-op for the in-process store.
func (m *MemoryStore) EnsureCollection(_ context.Context) error {
	return nil
}

// Upsert inserts or updates a chunk. The chunk and vector are stored under
// one lock acquisition, so readers never observe a chunk without its vector.
func (m *MemoryStore) Upsert(_ context.Context, chunk models.KnowledgeChunk, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dimension == 0 {
		m.dimension = len(vector)
	}
	if len(vector) != m.dimension {
		return fmt.Errorf("vector has dimension %d, collection expects %d: %w", len(vector), m.dimension, ErrDimensionMismatch)
	}

	// Deep-copy mutable fields to prevent external mutation of stored data.
	if len(chunk.Tags) > 0 {
		tags := make([]string, len(chunk.Tags))
		copy(tags, chunk.Tags)
		chunk.Tags = tags
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	m.chunks[chunk.ID] = &storedChunk{chunk: chunk, vector: vec}
	return nil
}

// Search finds chunks by cosine similarity to the query vector.
func (m *MemoryStore) Search(_ context.Context, vector []float32, limit uint64, minScore float64, filter SearchFilter) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.chunks) > 0 && m.dimension != 0 && len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, collection expects %d: %w", len(vector), m.dimension, ErrDimensionMismatch)
	}

	results := make([]models.ScoredChunk, 0, len(m.chunks))
	for _, sc := range m.chunks {
		if !matchesFilter(sc.chunk, filter) {
			continue
		}
		score := cosineSimilarity(vector, sc.vector)
		if score < minScore {
			continue
		}
		results = append(results, models.ScoredChunk{
			Chunk: copyChunk(sc.chunk),
			Score: score,
		})
	}

	sortScored(results)
	if uint64(len(results)) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Get retrieves a single chunk by ID.
func (m *MemoryStore) Get(_ context.Context, id string) (*models.KnowledgeChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.chunks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	chunk := copyChunk(sc.chunk)
	return &chunk, nil
}

// HasContentHash reports whether any stored chunk carries the given hash.
func (m *MemoryStore) HasContentHash(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sc := range m.chunks {
		if sc.chunk.ContentHash == hash {
			return true, nil
		}
	}
	return false, nil
}

// DeleteSource removes every chunk ingested from the given source.
func (m *MemoryStore) DeleteSource(_ context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sc := range m.chunks {
		if sc.chunk.Source == source {
			delete(m.chunks, id)
		}
	}
	return nil
}

// Reset drops all chunks.
func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[string]*storedChunk)
	return nil
}

// Stats returns collection statistics computed from the stored chunks.
func (m *MemoryStore) Stats(_ context.Context) (*models.KnowledgeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.KnowledgeStats{
		TotalChunks: int64(len(m.chunks)),
		BySource:    make(map[string]int64),
	}
	for _, sc := range m.chunks {
		stats.BySource[sc.chunk.Source]++
	}
	return stats, nil
}

// Close is a no-op for the in-process store.
func (m *MemoryStore) Close() error {
	return nil
}

// --- helpers ---

// matchesFilter reports whether a chunk satisfies every filter condition.
func matchesFilter(c models.KnowledgeChunk, f SearchFilter) bool {
	if f.Source != "" && c.Source != f.Source {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, tag := range c.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func copyChunk(c models.KnowledgeChunk) models.KnowledgeChunk {
	if len(c.Tags) > 0 {
		tags := make([]string, len(c.Tags))
		copy(tags, c.Tags)
		c.Tags = tags
	}
	return c
}

// sortScored orders results by descending score, breaking exact ties by
// chunk ID so result order is stable across runs.
func sortScored(results []models.ScoredChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
