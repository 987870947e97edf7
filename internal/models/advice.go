package models

// TruncationReport records what the context assembler dropped to fit
// the token budget. It is always populated, even when nothing was cut.
type TruncationReport struct {
	DroppedTurns  int `json:"dropped_turns"`
	DroppedEvents int `json:"dropped_events"`
	DroppedChunks int `json:"dropped_chunks"`
}

// Truncated returns true if anything was dropped.
func (t TruncationReport) Truncated() bool {
	return t.DroppedTurns > 0 || t.DroppedEvents > 0 || t.DroppedChunks > 0
}

// Provenance records what went into one composed prompt.
type Provenance struct {
	ChunkIDs     []string         `json:"chunk_ids"`
	Sources      []string         `json:"sources"`
	EventIDs     []string         `json:"event_ids"`
	MentalModels []string         `json:"mental_models"`
	Truncation   TruncationReport `json:"truncation"`
}

// AdviceResult is the final output of one advice request.
type AdviceResult struct {
	Text       string     `json:"text"`
	Provider   string     `json:"provider"`
	Model      string     `json:"model"`
	Attempts   int        `json:"attempts"`
	Provenance Provenance `json:"provenance"`
}
