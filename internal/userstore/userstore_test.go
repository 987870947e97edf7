package userstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sage/internal/models"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sage.db"), newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProfileRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := models.Profile{
		Name:          "Alex",
		Age:           34,
		CareerStage:   models.CareerStageMid,
		Industry:      "software",
		Occupation:    "engineer",
		RiskTolerance: models.RiskModerate,
		TimeHorizon:   models.HorizonLong,
		Dependents:    2,
		Tone:          models.ToneBlunt,
		Bio:           "builds things",
	}
	require.NoError(t, s.SaveProfile(ctx, p))

	got, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestProfileNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Profile(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileSingletonUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProfile(ctx, models.Profile{Name: "Alex"}))
	require.NoError(t, s.SaveProfile(ctx, models.Profile{Name: "Alex Updated", Age: 35}))

	got, err := s.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alex Updated", got.Name)
	assert.Equal(t, 35, got.Age)
}

func TestCharterRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := models.Charter{
		Values:         []string{"honesty", "curiosity", "patience"},
		NonNegotiables: []string{"family dinners"},
		LongTermGoals:  []string{"financial independence"},
		AntiGoals:      []string{"burnout"},
	}
	require.NoError(t, s.SaveCharter(ctx, c))

	got, err := s.Charter(ctx)
	require.NoError(t, err)
	// Value order is the user's priority order; it must survive storage.
	assert.Equal(t, c.Values, got.Values)
	assert.Equal(t, c.NonNegotiables, got.NonNegotiables)
	assert.Equal(t, c.LongTermGoals, got.LongTermGoals)
	assert.Equal(t, c.AntiGoals, got.AntiGoals)
}

func TestCharterMissingIsEmptyNotError(t *testing.T) {
	s := openTestStore(t)
	c, err := s.Charter(context.Background())
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestAddEventValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddEvent(ctx, models.LifeEvent{Title: "x", Category: "nonsense", Significance: 5})
	require.ErrorIs(t, err, ErrInvalidEvent)
	assert.Contains(t, err.Error(), "unknown category")

	_, err = s.AddEvent(ctx, models.LifeEvent{Title: "x", Category: models.EventCareer, Significance: 0})
	require.ErrorIs(t, err, ErrInvalidEvent)
	assert.Contains(t, err.Error(), "significance")

	_, err = s.AddEvent(ctx, models.LifeEvent{Title: "x", Category: models.EventCareer, Significance: 11})
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestAddEventConcurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const workers = 16
	const perWorker = 25

	ids := make([][]string, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := s.AddEvent(ctx, models.LifeEvent{
					Title:        "parallel",
					Category:     models.EventCareer,
					Significance: 5,
				})
				assert.NoError(t, err)
				ids[w] = append(ids[w], id)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, batch := range ids {
		for _, id := range batch {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestRecentEventsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		_, err := s.AddEvent(ctx, models.LifeEvent{
			Title:        title,
			Category:     models.EventCareer,
			Significance: 5,
			OccurredAt:   base.AddDate(0, i, 0),
		})
		require.NoError(t, err)
	}

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "newest", events[0].Title)
	assert.Equal(t, "oldest", events[2].Title)

	limited, err := s.RecentEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "newest", limited[0].Title)
}

func TestEventRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	occurred := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	id, err := s.AddEvent(ctx, models.LifeEvent{
		Title:        "Changed jobs",
		Description:  "Moved to a smaller company",
		Category:     models.EventCareer,
		Significance: 8,
		Lessons:      "Culture beats compensation",
		OccurredAt:   occurred,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	events, err := s.RecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "Changed jobs", e.Title)
	assert.Equal(t, models.EventCareer, e.Category)
	assert.Equal(t, 8, e.Significance)
	assert.Equal(t, "Culture beats compensation", e.Lessons)
	assert.True(t, e.OccurredAt.Equal(occurred))
	assert.False(t, e.CreatedAt.IsZero())
}

func TestDeleteEvent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.AddEvent(ctx, models.LifeEvent{Title: "x", Category: models.EventGrowth, Significance: 3})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEvent(ctx, id))
	assert.ErrorIs(t, s.DeleteEvent(ctx, id), ErrNotFound)
}

func TestTurnsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range []string{"question one", "answer one", "question two"} {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		_, err := s.AppendTurn(ctx, models.SessionTurn{
			ConversationID: "conv-1",
			Role:           role,
			Text:           text,
			At:             base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	// A second conversation must not leak into the first.
	_, err := s.AppendTurn(ctx, models.SessionTurn{
		ConversationID: "conv-2",
		Role:           models.RoleUser,
		Text:           "unrelated",
		At:             base,
	})
	require.NoError(t, err)

	turns, err := s.Turns(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "question one", turns[0].Text)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, "question two", turns[2].Text)
	assert.True(t, turns[1].At.After(turns[0].At))
}

func TestAppendTurnRejectsInvalidRole(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AppendTurn(context.Background(), models.SessionTurn{
		ConversationID: "conv-1",
		Role:           "narrator",
		Text:           "aside",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid turn role")
}

func TestTurnsEmptyConversation(t *testing.T) {
	s := openTestStore(t)
	turns, err := s.Turns(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
