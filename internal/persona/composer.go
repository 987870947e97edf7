package persona

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ajitpratap0/sage/internal/assembler"
	"github.com/ajitpratap0/sage/internal/mentalmodels"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/pkg/tokenizer"
	"github.com/ajitpratap0/sage/pkg/xmlutil"
)

// ErrPromptTooLarge indicates the composed prompt, persona framing
// included, exceeds the composer's ceiling even though the assembled
// context fit its budget.
var ErrPromptTooLarge = errors.New("composed prompt exceeds size ceiling")

// Message is one conversational turn in the final prompt.
type Message struct {
	Role    models.TurnRole
	Content string
}

// FinalPrompt is the fully composed input for a completion provider.
type FinalPrompt struct {
	System          string
	Messages        []Message
	Provenance      models.Provenance
	EstimatedTokens int
}

// Composer renders budget-fitted context into the final prompt. The
// ceiling covers the whole prompt including persona framing, so it must be
// larger than the assembler budget by enough to hold the framing prose.
type Composer struct {
	ceiling int
	logger  *slog.Logger
}

// NewComposer creates a composer with the given total token ceiling.
func NewComposer(ceiling int, logger *slog.Logger) *Composer {
	return &Composer{ceiling: ceiling, logger: logger}
}

// Compose assembles the final prompt in fixed order: persona framing,
// personal context, topic framing, response guidelines, mental-model
// instructions, retrieved wisdom with source attribution, then prior
// session turns and the user's question verbatim as the last message.
// The total size is re-validated against the ceiling because the framing
// added here is not visible to the context assembler.
func (c *Composer) Compose(pc *assembler.PromptContext, selections []mentalmodels.Selection, question string) (*FinalPrompt, error) {
	var sys []string
	sys = append(sys, pc.Persona)

	if personal := personalization(pc); personal != "" {
		sys = append(sys, personal)
	}

	sys = append(sys, TopicContext(question))
	sys = append(sys, ResponseGuidelines)

	if len(selections) > 0 {
		sys = append(sys, mentalmodels.FormatForPrompt(selections))
	}

	if len(pc.Chunks) > 0 {
		sys = append(sys, formatWisdom(pc.Chunks))
	}

	prompt := &FinalPrompt{
		System:     strings.Join(sys, "\n\n"),
		Provenance: provenance(pc, selections),
	}

	for _, turn := range pc.Turns {
		prompt.Messages = append(prompt.Messages, Message{Role: turn.Role, Content: turn.Text})
	}
	prompt.Messages = append(prompt.Messages, Message{Role: models.RoleUser, Content: question})

	total := tokenizer.EstimateTokens(prompt.System)
	for _, m := range prompt.Messages {
		total += tokenizer.EstimateTokens(m.Content) + 4
	}
	prompt.EstimatedTokens = total

	if total > c.ceiling {
		return nil, fmt.Errorf("prompt needs %d tokens, ceiling is %d: %w", total, c.ceiling, ErrPromptTooLarge)
	}

	c.logger.Debug("composed prompt",
		"tokens", total,
		"turns", len(pc.Turns),
		"chunks", len(pc.Chunks),
		"models", len(selections),
	)
	return prompt, nil
}

// ComposeReflection assembles the prompt for a periodic review session.
// Retrieval and topic framing are skipped; the persona reflects on the
// profile, charter and recent events alone.
func (c *Composer) ComposeReflection(pc *assembler.PromptContext) (*FinalPrompt, error) {
	var sys []string
	sys = append(sys, ReflectionPrompt)
	if personal := personalization(pc); personal != "" {
		sys = append(sys, personal)
	}

	prompt := &FinalPrompt{
		System:     strings.Join(sys, "\n\n"),
		Provenance: provenance(pc, nil),
		Messages: []Message{
			{Role: models.RoleUser, Content: ReflectionQuestion},
		},
	}

	total := tokenizer.EstimateTokens(prompt.System) + tokenizer.EstimateTokens(ReflectionQuestion) + 4
	prompt.EstimatedTokens = total
	if total > c.ceiling {
		return nil, fmt.Errorf("reflection prompt needs %d tokens, ceiling is %d: %w", total, c.ceiling, ErrPromptTooLarge)
	}

	return prompt, nil
}

// personalization renders the profile, charter and recent events sections.
func personalization(pc *assembler.PromptContext) string {
	var parts []string

	if pc.Profile != "" {
		parts = append(parts, "## About This Person\n"+pc.Profile)
	}
	if pc.Charter != "" {
		parts = append(parts, "## Their Personal Charter\n"+pc.Charter)
	}
	if len(pc.Events) > 0 {
		var b strings.Builder
		b.WriteString("## Recent Life Events")
		for _, e := range pc.Events {
			b.WriteString("\n- " + e.Summary())
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n\n")
}

// formatWisdom renders retrieved chunks with source attribution. Chunk text
// is XML-escaped so indexed material can't smuggle instructions into the
// prompt structure.
func formatWisdom(chunks []models.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("## Relevant Wisdom from Your Past")
	for _, sc := range chunks {
		title := sc.Chunk.Title
		if title == "" {
			title = "Untitled"
		}
		b.WriteString(fmt.Sprintf("\n\n**%s** (from %s):\n", title, sc.Chunk.Source))
		b.WriteString(xmlutil.Escape(sc.Chunk.Text))
	}
	return b.String()
}

func provenance(pc *assembler.PromptContext, selections []mentalmodels.Selection) models.Provenance {
	p := models.Provenance{Truncation: pc.Report}

	seenSource := make(map[string]bool)
	for _, sc := range pc.Chunks {
		p.ChunkIDs = append(p.ChunkIDs, sc.Chunk.ID)
		if !seenSource[sc.Chunk.Source] {
			seenSource[sc.Chunk.Source] = true
			p.Sources = append(p.Sources, sc.Chunk.Source)
		}
	}
	for _, e := range pc.Events {
		p.EventIDs = append(p.EventIDs, e.ID)
	}
	for _, sel := range selections {
		p.MentalModels = append(p.MentalModels, sel.Model.Name)
	}

	return p
}
