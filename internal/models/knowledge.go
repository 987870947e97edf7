package models

import "time"

// KnowledgeChunk is one indexed slice of a source document.
type KnowledgeChunk struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title,omitempty"`
	Section     string    `json:"section,omitempty"`
	Seq         int       `json:"seq"` // position within the source document
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash"`
	Tags        []string  `json:"tags,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// ScoredChunk wraps a KnowledgeChunk with its similarity score.
type ScoredChunk struct {
	Chunk KnowledgeChunk `json:"chunk"`
	Score float64        `json:"score"`
}

// KnowledgeStats holds summary statistics about the knowledge collection.
type KnowledgeStats struct {
	TotalChunks int64            `json:"total_chunks"`
	BySource    map[string]int64 `json:"by_source"`
}
