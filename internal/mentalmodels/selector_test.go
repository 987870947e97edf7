package mentalmodels

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestSelector() *Selector {
	return NewSelector(DefaultWeights, DefaultMaxModels, newTestLogger())
}

func selectionNames(selections []Selection) []string {
	names := make([]string, len(selections))
	for i, s := range selections {
		names[i] = s.Model.Name
	}
	return names
}

func TestSelectCoreFallback(t *testing.T) {
	s := newTestSelector()
	selections := s.Select("what should I have for breakfast", "")
	require.NotEmpty(t, selections)
	assert.Equal(t, []string{"Inversion", "Incentives", "Circle of Competence", "Margin of Safety"}, selectionNames(selections))
}

func TestSelectNeverEmpty(t *testing.T) {
	s := newTestSelector()
	assert.NotEmpty(t, s.Select("", ""))
}

func TestSelectDeterministic(t *testing.T) {
	s := newTestSelector()
	query := "should I invest my money or change career"

	first := s.Select(query, "")
	for i := 0; i < 5; i++ {
		assert.Equal(t, selectionNames(first), selectionNames(s.Select(query, "")))
	}
}

func TestSelectExactBeatsFuzzy(t *testing.T) {
	s := newTestSelector()

	// "risk" appears as a whole word, "invest" only inside "investments".
	selections := s.Select("how much risk is hiding in my investments", "")
	require.NotEmpty(t, selections)

	scores := map[string]float64{}
	for _, sel := range selections {
		scores[sel.Model.Name] = sel.Score
	}

	// Margin of Safety gets exact from "risk" plus fuzzy from "invest".
	assert.Equal(t, DefaultWeights.Exact+DefaultWeights.Fuzzy, scores["Margin of Safety"])
	assert.Equal(t, "Margin of Safety", selections[0].Model.Name)
}

func TestSelectAccumulatesAcrossTriggers(t *testing.T) {
	s := newTestSelector()

	// "money" and "invest" both fire; their shared models score twice.
	selections := s.Select("where should my money go, rent or invest", "")
	require.NotEmpty(t, selections)

	scores := map[string]float64{}
	for _, sel := range selections {
		scores[sel.Model.Name] = sel.Score
	}
	assert.Equal(t, 2*DefaultWeights.Exact, scores["Compound Interest"])
	assert.Equal(t, 2*DefaultWeights.Exact, scores["Margin of Safety"])
}

func TestSelectHintSteersSelection(t *testing.T) {
	s := newTestSelector()

	without := s.Select("what should I do next", "")
	with := s.Select("what should I do next", "career")

	assert.NotEqual(t, selectionNames(without), selectionNames(with))
	assert.Contains(t, selectionNames(with), "Opportunity Cost")
}

func TestSelectCapped(t *testing.T) {
	s := newTestSelector()
	selections := s.Select("money invest career decision relationship risk team habit mistake", "")
	assert.Len(t, selections, DefaultMaxModels)
}

func TestSelectCarriesAnchors(t *testing.T) {
	s := newTestSelector()
	selections := s.Select("thinking about a big decision", "")
	require.NotEmpty(t, selections)

	found := false
	for _, sel := range selections {
		for _, a := range sel.Anchors {
			if a == "decision" {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestSelectTieBreakFollowsTaxonomyOrder(t *testing.T) {
	s := NewSelector(DefaultWeights, 10, newTestLogger())

	// A single trigger gives all its models the same score; their order
	// must match taxonomy declaration order, not map iteration order.
	first := s.Select("a major decision looms", "")
	for i := 0; i < 5; i++ {
		assert.Equal(t, selectionNames(first), selectionNames(s.Select("a major decision looms", "")))
	}

	var taxOrder []string
	for _, m := range taxonomy {
		for _, sel := range first {
			if sel.Model.Name == m.Name {
				taxOrder = append(taxOrder, m.Name)
			}
		}
	}
	assert.Equal(t, taxOrder, selectionNames(first))
}

func TestFormatForPrompt(t *testing.T) {
	s := newTestSelector()
	selections := s.Select("should I invest", "")
	out := FormatForPrompt(selections)

	assert.Contains(t, out, "Relevant Mental Models to Consider:")
	for _, sel := range selections {
		assert.Contains(t, out, "**"+sel.Model.Name+"**")
	}
}

func TestTaxonomyLookups(t *testing.T) {
	all := All()
	assert.Len(t, all, len(taxonomy))

	m, ok := ByName("Inversion")
	require.True(t, ok)
	assert.Equal(t, "Inversion", m.Name)

	_, ok = ByName("Not A Model")
	assert.False(t, ok)

	byCat := ByCategory(m.Category)
	assert.NotEmpty(t, byCat)
}
