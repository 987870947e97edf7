package assembler

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sage/internal/models"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func turnAt(text string, minutesAgo int) models.SessionTurn {
	return models.SessionTurn{
		Role: models.RoleUser,
		Text: text,
		At:   time.Now().Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

func eventTitled(title string) models.LifeEvent {
	return models.LifeEvent{
		Title:        title,
		Category:     models.EventCareer,
		Significance: 5,
		OccurredAt:   time.Now(),
	}
}

func scored(text string, score float64) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.KnowledgeChunk{ID: text, Text: text},
		Score: score,
	}
}

func TestAssembleEverythingFits(t *testing.T) {
	a := New(10000, newTestLogger())

	out, err := a.Assemble(Input{
		Persona: "You are a wise advisor.",
		Charter: "Value honesty above all.",
		Profile: "Name: Alex",
		Turns:   []models.SessionTurn{turnAt("first question", 10), turnAt("second question", 5)},
		Events:  []models.LifeEvent{eventTitled("Changed jobs")},
		Chunks:  []models.ScoredChunk{scored("some wisdom", 0.9)},
	})
	require.NoError(t, err)

	assert.Len(t, out.Turns, 2)
	assert.Len(t, out.Events, 1)
	assert.Len(t, out.Chunks, 1)
	assert.Equal(t, "Name: Alex", out.Profile)
	assert.False(t, out.Report.Truncated())
	assert.LessOrEqual(t, out.UsedTokens, out.Budget)
}

func TestAssembleProtectedOverflow(t *testing.T) {
	a := New(10, newTestLogger())

	_, err := a.Assemble(Input{
		Persona: strings.Repeat("persona text ", 50),
		Charter: strings.Repeat("charter text ", 50),
	})
	assert.ErrorIs(t, err, ErrContextOverflow)
}

func TestAssembleProfileTruncatedNotDropped(t *testing.T) {
	a := New(60, newTestLogger())

	longProfile := strings.Repeat("background detail ", 100)
	out, err := a.Assemble(Input{
		Persona: "Short persona.",
		Profile: longProfile,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.Profile)
	assert.Less(t, len(out.Profile), len(longProfile))
	assert.LessOrEqual(t, out.UsedTokens, out.Budget)
	// Truncating the profile is not a drop; the report counts whole
	// blocks removed.
	assert.False(t, out.Report.Truncated())
}

func TestAssembleDropsOldestTurnsFirst(t *testing.T) {
	a := New(120, newTestLogger())

	turns := []models.SessionTurn{
		turnAt(strings.Repeat("oldest turn content ", 20), 30),
		turnAt(strings.Repeat("middle turn content ", 20), 20),
		turnAt("newest short question", 10),
	}

	out, err := a.Assemble(Input{Persona: "Short persona.", Turns: turns})
	require.NoError(t, err)

	require.NotEmpty(t, out.Turns)
	assert.Equal(t, "newest short question", out.Turns[len(out.Turns)-1].Text)
	assert.Greater(t, out.Report.DroppedTurns, 0)
	assert.Equal(t, 3, len(out.Turns)+out.Report.DroppedTurns)
}

func TestAssembleDropsOldestEventsFirst(t *testing.T) {
	a := New(80, newTestLogger())

	var events []models.LifeEvent
	for i := 0; i < 10; i++ {
		e := eventTitled(strings.Repeat("a significant event ", 10))
		events = append(events, e)
	}
	events = append(events, eventTitled("latest milestone"))

	out, err := a.Assemble(Input{Persona: "Short persona.", Events: events})
	require.NoError(t, err)

	require.NotEmpty(t, out.Events)
	assert.Equal(t, "latest milestone", out.Events[len(out.Events)-1].Title)
	assert.Greater(t, out.Report.DroppedEvents, 0)
}

func TestAssembleDropsLowestScoredChunks(t *testing.T) {
	a := New(100, newTestLogger())

	chunks := []models.ScoredChunk{
		scored("top chunk", 0.95),
		scored(strings.Repeat("bulky middle chunk ", 15), 0.7),
		scored(strings.Repeat("bulky low chunk ", 15), 0.4),
	}

	out, err := a.Assemble(Input{Persona: "Short persona.", Chunks: chunks})
	require.NoError(t, err)

	require.NotEmpty(t, out.Chunks)
	assert.Equal(t, "top chunk", out.Chunks[0].Chunk.ID)
	assert.Greater(t, out.Report.DroppedChunks, 0)
	// Remaining chunks keep their score-descending order.
	for i := 1; i < len(out.Chunks); i++ {
		assert.LessOrEqual(t, out.Chunks[i].Score, out.Chunks[i-1].Score)
	}
}

func TestAssemblePriorityOrder(t *testing.T) {
	// With a tight budget, chunks and events are sacrificed while the
	// protected blocks and profile survive.
	a := New(50, newTestLogger())

	out, err := a.Assemble(Input{
		Persona: "Short persona.",
		Charter: "Short charter.",
		Profile: "Name: Alex",
		Turns:   []models.SessionTurn{turnAt(strings.Repeat("conversation ", 30), 5)},
		Events:  []models.LifeEvent{eventTitled(strings.Repeat("event ", 30))},
		Chunks:  []models.ScoredChunk{scored(strings.Repeat("wisdom ", 30), 0.9)},
	})
	require.NoError(t, err)

	assert.Equal(t, "Short persona.", out.Persona)
	assert.Equal(t, "Short charter.", out.Charter)
	assert.NotEmpty(t, out.Profile)
	assert.True(t, out.Report.Truncated())
	assert.LessOrEqual(t, out.UsedTokens, out.Budget)
}
