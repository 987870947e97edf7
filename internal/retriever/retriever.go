// Package retriever turns a natural-language query into a ranked set of
// knowledge chunks via embedding similarity search.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ajitpratap0/sage/internal/embedder"
	"github.com/ajitpratap0/sage/internal/metrics"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/store"
)

// overfetchFactor is how many extra candidates are pulled from the store so
// that near-duplicate filtering still leaves topK results.
const overfetchFactor = 3

// Options controls retrieval behavior.
type Options struct {
	// TopK is the maximum number of chunks returned.
	TopK int
	// MinScore excludes chunks below this similarity.
	MinScore float64
	// DedupOverlap is the text overlap ratio above which two chunks from
	// the same source count as near-duplicates.
	DedupOverlap float64
}

// Retriever embeds queries and searches the knowledge store.
type Retriever struct {
	embedder embedder.Embedder
	store    store.KnowledgeStore
	opts     Options
	logger   *slog.Logger
}

// New creates a retriever.
func New(emb embedder.Embedder, st store.KnowledgeStore, opts Options, logger *slog.Logger) *Retriever {
	return &Retriever{
		embedder: emb,
		store:    st,
		opts:     opts,
		logger:   logger,
	}
}

// Retrieve returns at most TopK chunks relevant to the query, ordered by
// descending score. Near-duplicate chunks from the same source are collapsed
// to the highest-scoring one. An empty knowledge store yields an empty
// result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.ScoredChunk, error) {
	return r.RetrieveFiltered(ctx, query, store.SearchFilter{})
}

// RetrieveFiltered is Retrieve restricted to chunks matching the filter:
// a source name, a set of required tags, or both.
func (r *Retriever) RetrieveFiltered(ctx context.Context, query string, filter store.SearchFilter) ([]models.ScoredChunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates, err := r.store.Search(ctx, vec, uint64(r.opts.TopK*overfetchFactor), r.opts.MinScore, filter)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge store: %w", err)
	}

	// Candidates arrive score-descending, so the first of any duplicate
	// group is the one to keep.
	var results []models.ScoredChunk
	for _, cand := range candidates {
		if r.isDuplicate(cand, results) {
			continue
		}
		results = append(results, cand)
		if len(results) == r.opts.TopK {
			break
		}
	}

	metrics.IncRetrievals()
	r.logger.Debug("retrieved chunks", "candidates", len(candidates), "kept", len(results))
	return results, nil
}

func (r *Retriever) isDuplicate(cand models.ScoredChunk, kept []models.ScoredChunk) bool {
	for _, k := range kept {
		if k.Chunk.Source != cand.Chunk.Source {
			continue
		}
		if textOverlap(k.Chunk.Text, cand.Chunk.Text) >= r.opts.DedupOverlap {
			return true
		}
	}
	return false
}

// textOverlap measures word-level overlap between two texts as the shared
// fraction of the smaller text's vocabulary.
func textOverlap(a, b string) float64 {
	wordsA := wordSet(a)
	wordsB := wordSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	smaller, larger := wordsA, wordsB
	if len(wordsB) < len(wordsA) {
		smaller, larger = wordsB, wordsA
	}

	shared := 0
	for w := range smaller {
		if larger[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(smaller))
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'`")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
