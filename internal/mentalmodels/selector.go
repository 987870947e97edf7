package mentalmodels

import (
	"log/slog"
	"sort"
	"strings"
)

// Weights controls how trigger matches are scored. An exact whole-word hit
// counts more than a fuzzy substring hit.
type Weights struct {
	Exact float64
	Fuzzy float64
}

// DefaultWeights are the standard match weights.
var DefaultWeights = Weights{
	Exact: 2.0,
	Fuzzy: 1.0,
}

// DefaultMaxModels caps how many models a selection returns by default.
const DefaultMaxModels = 4

// triggers maps query keywords to the models they suggest. A fuzzy match is
// the keyword appearing as a substring, so "invest" also fires on
// "investing" and "investment".
var triggers = []struct {
	keyword string
	models  []string
}{
	{"money", []string{"Compound Interest", "Margin of Safety", "Opportunity Cost"}},
	{"invest", []string{"Compound Interest", "Margin of Safety", "Base Rates", "Moats"}},
	{"career", []string{"Opportunity Cost", "Circle of Competence", "Comparative Advantage"}},
	{"decision", []string{"Inversion", "Base Rates", "First Principles"}},
	{"relationship", []string{"Reciprocity", "Incentives", "Liking/Loving Tendency"}},
	{"negotiate", []string{"Incentives", "Reciprocity", "First Principles"}},
	{"mistake", []string{"Inversion", "Denial", "Consistency and Commitment"}},
	{"risk", []string{"Margin of Safety", "Base Rates", "Redundancy"}},
	{"competition", []string{"Moats", "Red Queen Effect", "Comparative Advantage"}},
	{"team", []string{"Incentives", "Social Proof", "Authority Bias"}},
	{"habit", []string{"Consistency and Commitment", "Feedback Loops", "Momentum"}},
}

// coreModels are returned when nothing in the query matches a trigger.
var coreModels = []string{"Inversion", "Incentives", "Circle of Competence", "Margin of Safety"}

// Selection is one chosen model with its score and the keywords that
// anchored it, for explainability.
type Selection struct {
	Model   Model
	Score   float64
	Anchors []string
}

// Selector picks the mental models relevant to a question.
type Selector struct {
	weights   Weights
	maxModels int
	logger    *slog.Logger
}

// NewSelector creates a selector. Zero weights or maxModels fall back to
// the defaults.
func NewSelector(weights Weights, maxModels int, logger *slog.Logger) *Selector {
	if weights.Exact == 0 && weights.Fuzzy == 0 {
		weights = DefaultWeights
	}
	if maxModels <= 0 {
		maxModels = DefaultMaxModels
	}
	return &Selector{
		weights:   weights,
		maxModels: maxModels,
		logger:    logger,
	}
}

// Select scores the latticework against the query plus optional hint text
// and returns the top selections. The result is a pure function of the
// inputs: equal scores are broken by declaration order in the taxonomy, and
// the same query always yields the same models in the same order. When no
// trigger fires, the core models are returned so the caller always has at
// least one model to reason with.
func (s *Selector) Select(query, hint string) []Selection {
	text := strings.ToLower(query)
	if hint != "" {
		text += " " + strings.ToLower(hint)
	}
	words := wordSet(text)

	scores := make(map[string]float64)
	anchors := make(map[string][]string)

	for _, trig := range triggers {
		var w float64
		if words[trig.keyword] {
			w = s.weights.Exact
		} else if strings.Contains(text, trig.keyword) {
			w = s.weights.Fuzzy
		} else {
			continue
		}
		for _, name := range trig.models {
			scores[name] += w
			anchors[name] = append(anchors[name], trig.keyword)
		}
	}

	var selections []Selection
	if len(scores) == 0 {
		for _, name := range coreModels {
			if m, ok := ByName(name); ok {
				selections = append(selections, Selection{Model: m})
			}
		}
	} else {
		// Walk the taxonomy in declaration order so sorting ties resolve
		// to the earlier-declared model.
		for _, m := range taxonomy {
			if score, ok := scores[m.Name]; ok {
				selections = append(selections, Selection{
					Model:   m,
					Score:   score,
					Anchors: anchors[m.Name],
				})
			}
		}
		sort.SliceStable(selections, func(i, j int) bool {
			return selections[i].Score > selections[j].Score
		})
	}

	if len(selections) > s.maxModels {
		selections = selections[:s.maxModels]
	}

	names := make([]string, len(selections))
	for i, sel := range selections {
		names[i] = sel.Model.Name
	}
	s.logger.Debug("selected mental models", "models", names)
	return selections
}

// FormatForPrompt renders selections for inclusion in a prompt.
func FormatForPrompt(selections []Selection) string {
	var b strings.Builder
	b.WriteString("Relevant Mental Models to Consider:")
	for _, sel := range selections {
		m := sel.Model
		b.WriteString("\n\n**" + m.Name + "** (" + string(m.Category) + ")")
		b.WriteString("\n  - " + m.Description)
		b.WriteString("\n  - Application: " + m.Application)
		if m.Quote != "" {
			b.WriteString("\n  - Munger: \"" + m.Quote + "\"")
		}
	}
	return b.String()
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'`")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
