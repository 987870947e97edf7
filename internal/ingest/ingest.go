package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/sage/internal/embedder"
	"github.com/ajitpratap0/sage/internal/metrics"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/store"
)

// maxConcurrentDocs bounds how many documents IngestFiles processes at once.
const maxConcurrentDocs = 4

// Ingestor chunks source text, generates embeddings, and stores the chunks.
type Ingestor struct {
	embedder embedder.Embedder
	store    store.KnowledgeStore
	opts     ChunkOptions
	logger   *slog.Logger
}

// NewIngestor creates a new ingestor.
func NewIngestor(emb embedder.Embedder, st store.KnowledgeStore, opts ChunkOptions, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		embedder: emb,
		store:    st,
		opts:     opts,
		logger:   logger,
	}
}

// IngestText splits text into chunks and indexes each one. Chunks whose
// content hash already exists in the store, or that repeat an earlier chunk
// of the same call, are skipped without re-embedding, so ingestion is
// idempotent. Returns the IDs of the chunks written in this call.
func (ing *Ingestor) IngestText(ctx context.Context, text, source, title string) ([]string, error) {
	type pending struct {
		section string
		seq     int
		text    string
		hash    string
	}

	var todo []pending
	queued := make(map[string]bool) // hashes already picked up in this call
	seq := 0
	for _, sec := range splitSections(text) {
		for _, chunk := range SplitText(sec.body, ing.opts) {
			seq++
			if len(chunk) < ing.opts.MinChars {
				continue
			}
			hash := contentHash(source, chunk)
			if queued[hash] {
				metrics.IncDedupSkips()
				ing.logger.Debug("skipping duplicate chunk within document", "source", source, "seq", seq)
				continue
			}
			exists, err := ing.store.HasContentHash(ctx, hash)
			if err != nil {
				return nil, fmt.Errorf("checking content hash: %w", err)
			}
			if exists {
				metrics.IncDedupSkips()
				ing.logger.Debug("skipping already-indexed chunk", "source", source, "seq", seq)
				continue
			}
			queued[hash] = true
			todo = append(todo, pending{section: sec.heading, seq: seq, text: chunk, hash: hash})
		}
	}

	if len(todo) == 0 {
		return nil, nil
	}

	// Batch-embed all new chunks in one call.
	texts := make([]string, len(todo))
	for i, p := range todo {
		texts[i] = p.text
	}
	vecs, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("batch embedding %d chunks from %s: %w", len(todo), source, err)
	}

	var ids []string
	for i, p := range todo {
		select {
		case <-ctx.Done():
			return ids, ctx.Err()
		default:
		}

		chunk := models.KnowledgeChunk{
			ID:          uuid.New().String(),
			Source:      source,
			Title:       title,
			Section:     p.section,
			Seq:         p.seq,
			Text:        p.text,
			ContentHash: p.hash,
			Tags:        ExtractTags(p.text),
			IndexedAt:   time.Now().UTC(),
		}
		if err := ing.store.Upsert(ctx, chunk, vecs[i]); err != nil {
			return ids, fmt.Errorf("storing chunk %d of %s: %w", p.seq, source, err)
		}
		ids = append(ids, chunk.ID)
		metrics.IncChunksIngested()
	}

	ing.logger.Info("ingested document", "source", source, "chunks", len(ids), "skipped", len(todo)-len(ids))
	return ids, nil
}

// IngestFile reads a plain text or markdown file and ingests its content.
func (ing *Ingestor) IngestFile(ctx context.Context, path, title string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".markdown":
	default:
		return nil, fmt.Errorf("unsupported file type %q (want .txt or .md)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ing.IngestText(ctx, string(data), filepath.Base(path), title)
}

// IngestFiles ingests multiple files concurrently. The first failure cancels
// the remaining work.
func (ing *Ingestor) IngestFiles(ctx context.Context, paths []string) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDocs)

	counts := make([]int, len(paths))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			ids, err := ing.IngestFile(gctx, path, "")
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", path, err)
			}
			counts[i] = len(ids)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// contentHash fingerprints a chunk by source and exact text.
func contentHash(source, text string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

type section struct {
	heading string
	body    string
}

// splitSections splits markdown-ish text on headers so chunks never span a
// section boundary. Text without headers becomes a single unnamed section.
func splitSections(text string) []section {
	var sections []section
	var heading string
	var lines []string

	flush := func() {
		body := strings.TrimSpace(strings.Join(lines, "\n"))
		if body != "" {
			sections = append(sections, section{heading: heading, body: body})
		}
		lines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if isHeader(line) {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return sections
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, "# ") ||
		strings.HasPrefix(line, "## ") ||
		strings.HasPrefix(line, "### ") ||
		strings.HasPrefix(line, "#### ")
}
