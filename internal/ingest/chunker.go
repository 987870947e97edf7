package ingest

import (
	"strings"
)

// ChunkOptions controls how source text is split.
type ChunkOptions struct {
	// ChunkSize is the target chunk size in tokens.
	ChunkSize int
	// Overlap is the token overlap carried between adjacent chunks.
	Overlap int
	// MinChars drops chunks shorter than this after trimming.
	MinChars int
}

// charsPerToken converts the token-denominated options into character
// windows. Matches the estimator in pkg/tokenizer.
const charsPerToken = 4

// SplitText splits text into overlapping chunks, preferring sentence
// boundaries near the end of each window. The split is a pure function of
// the input text and options: the same source always produces the same
// chunk boundaries.
func SplitText(text string, opts ChunkOptions) []string {
	// Collapse all whitespace so formatting differences don't move boundaries.
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	size := opts.ChunkSize * charsPerToken
	overlap := opts.Overlap * charsPerToken
	if size <= 0 {
		return []string{text}
	}
	if len(text) <= size {
		return []string{text}
	}

	// Window near the chunk end where a sentence break is acceptable.
	searchWindow := size / 5
	if searchWindow > 200 {
		searchWindow = 200
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end < len(text) {
			end = findBreak(text, start, end, searchWindow)
		} else {
			end = len(text)
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - overlap
		if next <= start {
			// Guarantee forward progress when a sentence break landed
			// inside the overlap region.
			next = end
		}
		start = next
	}

	return chunks
}

// findBreak looks for a sentence-ending punctuation mark in the tail of the
// window and returns the position just past it, or the window end when no
// boundary is found.
func findBreak(text string, start, end, searchWindow int) int {
	searchStart := end - searchWindow
	if searchStart < start {
		searchStart = start
	}
	searchEnd := end + 50
	if searchEnd > len(text) {
		searchEnd = len(text)
	}

	for _, punct := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.LastIndex(text[searchStart:searchEnd], punct); idx >= 0 {
			abs := searchStart + idx
			if abs > start {
				return abs + 1
			}
		}
	}
	return end
}

// tagKeywords maps a tag to the substrings that trigger it.
var tagKeywords = []struct {
	tag      string
	keywords []string
}{
	{"investing", []string{"invest", "stock", "market", "portfolio", "dividend"}},
	{"mental_models", []string{"mental model", "framework", "thinking", "latticework"}},
	{"psychology", []string{"psychology", "bias", "behavior", "cognitive"}},
	{"business", []string{"business", "company", "management", "moat"}},
	{"wisdom", []string{"wisdom", "advice", "lesson", "learn"}},
	{"mistakes", []string{"mistake", "error", "failure", "wrong"}},
	{"success", []string{"success", "achievement", "excellence"}},
	{"character", []string{"character", "integrity", "honest", "trust"}},
	{"relationships", []string{"relationship", "partner", "marriage", "friend"}},
	{"career", []string{"career", "job", "work", "profession"}},
}

const maxTags = 5

// ExtractTags derives topical tags from chunk text by keyword match.
func ExtractTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, tk := range tagKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, tk.tag)
				break
			}
		}
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
