// Package assembler fits persona, charter, profile, conversation and
// retrieved knowledge into a bounded token budget, in strict priority
// order, and reports exactly what it had to drop.
package assembler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/sage/internal/metrics"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/pkg/tokenizer"
)

// ErrContextOverflow indicates the protected blocks alone exceed the token
// budget. This is a configuration problem, not a runtime condition to
// retry: either the budget is too small or the persona/charter too large.
var ErrContextOverflow = errors.New("protected context exceeds token budget")

// Input carries the candidate blocks for one prompt, ordered the way their
// slices are consumed: turns and events chronologically (oldest first),
// chunks by descending score.
type Input struct {
	Persona string
	Charter string
	Profile string
	Turns   []models.SessionTurn
	Events  []models.LifeEvent
	Chunks  []models.ScoredChunk
}

// PromptContext is the budget-fitted result. Slices keep the input order;
// only their length changes.
type PromptContext struct {
	Persona string
	Charter string
	Profile string
	Turns   []models.SessionTurn
	Events  []models.LifeEvent
	Chunks  []models.ScoredChunk

	Report     models.TruncationReport
	UsedTokens int
	Budget     int
}

// Assembler fits prompt blocks into a token budget.
type Assembler struct {
	budget int
	logger *slog.Logger
}

// New creates an assembler with the given token budget.
func New(budget int, logger *slog.Logger) *Assembler {
	return &Assembler{budget: budget, logger: logger}
}

// Assemble fills the budget in priority order: persona and charter are
// protected and never cut; the profile is truncated to whatever remains if
// it doesn't fit whole; session turns drop oldest first; life events drop
// oldest first; retrieved chunks drop lowest-scored first. Every drop is
// counted in the report, so truncation is never silent.
func (a *Assembler) Assemble(in Input) (*PromptContext, error) {
	out := &PromptContext{
		Persona: in.Persona,
		Charter: in.Charter,
		Budget:  a.budget,
	}

	used := tokenizer.EstimateTokens(in.Persona) + tokenizer.EstimateTokens(in.Charter)
	if used > a.budget {
		return nil, fmt.Errorf("persona and charter need %d tokens, budget is %d: %w", used, a.budget, ErrContextOverflow)
	}

	// Profile: truncate rather than drop, it anchors personalization.
	if in.Profile != "" {
		remaining := a.budget - used
		profile := in.Profile
		if cost := tokenizer.EstimateTokens(profile); cost > remaining {
			profile = tokenizer.TruncateToTokenBudget(profile, remaining)
		}
		out.Profile = profile
		used += tokenizer.EstimateTokens(profile)
	}

	// Session turns: keep the newest suffix that fits.
	turns := in.Turns
	for len(turns) > 0 && used+turnsCost(turns) > a.budget {
		turns = turns[1:]
		out.Report.DroppedTurns++
	}
	out.Turns = turns
	used += turnsCost(turns)

	// Life events: keep the newest suffix that fits.
	events := in.Events
	for len(events) > 0 && used+eventsCost(events) > a.budget {
		events = events[1:]
		out.Report.DroppedEvents++
	}
	out.Events = events
	used += eventsCost(events)

	// Retrieved chunks arrive score-descending, so trimming the tail drops
	// the lowest-scored first.
	chunks := in.Chunks
	for len(chunks) > 0 && used+chunksCost(chunks) > a.budget {
		chunks = chunks[:len(chunks)-1]
		out.Report.DroppedChunks++
	}
	out.Chunks = chunks
	used += chunksCost(chunks)

	out.UsedTokens = used

	if out.Report.Truncated() {
		metrics.IncTruncations()
		a.logger.Debug("context truncated to fit budget",
			"budget", a.budget,
			"used", used,
			"dropped_turns", out.Report.DroppedTurns,
			"dropped_events", out.Report.DroppedEvents,
			"dropped_chunks", out.Report.DroppedChunks,
		)
	}

	return out, nil
}

func turnsCost(turns []models.SessionTurn) int {
	total := 0
	for _, t := range turns {
		total += tokenizer.EstimateTokens(t.Text) + 4 // role label + separators
	}
	return total
}

func eventsCost(events []models.LifeEvent) int {
	total := 0
	for _, e := range events {
		total += tokenizer.EstimateTokens(e.Summary()) + 2
	}
	return total
}

func chunksCost(chunks []models.ScoredChunk) int {
	total := 0
	for _, c := range chunks {
		total += tokenizer.EstimateTokens(c.Chunk.Text) + 8 // title + source attribution
	}
	return total
}
