// Package mentalmodels holds the fixed latticework of mental models the
// advisor reasons with, and the deterministic selector that picks which
// models apply to a question.
package mentalmodels

import "strings"

// Category groups mental models by discipline.
type Category string

const (
	CategoryPsychology  Category = "psychology"
	CategoryEconomics   Category = "economics"
	CategoryMathematics Category = "mathematics"
	CategoryPhysics     Category = "physics"
	CategoryBiology     Category = "biology"
	CategoryEngineering Category = "engineering"
	CategoryPhilosophy  Category = "philosophy"
	CategoryBusiness    Category = "business"
)

// Model is one mental model in the latticework.
type Model struct {
	Name        string
	Category    Category
	Description string
	Application string
	Quote       string // attributed aphorism, may be empty
}

// taxonomy is the complete latticework. Declaration order is the canonical
// priority used to break scoring ties, so the order here is load-bearing.
var taxonomy = []Model{
	// Psychology
	{
		Name:        "Incentives",
		Category:    CategoryPsychology,
		Description: "People respond to incentives. Never think about what people should do, think about what they will do given their incentives.",
		Application: "Analyze the incentive structure before judging behavior. 'Show me the incentive and I'll show you the outcome.'",
		Quote:       "Never, ever, think about something else when you should be thinking about the power of incentives.",
	},
	{
		Name:        "Denial",
		Category:    CategoryPsychology,
		Description: "The tendency to deny reality when it's too painful or inconvenient to accept.",
		Application: "Watch for situations where you or others might be avoiding uncomfortable truths.",
		Quote:       "The first principle is that you must not fool yourself - and you are the easiest person to fool.",
	},
	{
		Name:        "Social Proof",
		Category:    CategoryPsychology,
		Description: "People look to what others are doing to determine correct behavior.",
		Application: "Be skeptical of crowd behavior. What's popular isn't always right.",
		Quote:       "When everybody is buying something, that's often the exact wrong time to buy it.",
	},
	{
		Name:        "Consistency and Commitment",
		Category:    CategoryPsychology,
		Description: "Once we make a commitment, we tend to be consistent with that commitment, even when wrong.",
		Application: "Be willing to change your mind when facts change. Avoid escalation of commitment.",
		Quote:       "The human mind is a lot like the human egg, and the human egg has a shut-off device.",
	},
	{
		Name:        "Reciprocity",
		Category:    CategoryPsychology,
		Description: "We feel obligated to repay favors, even when unsolicited.",
		Application: "Be aware of reciprocity in negotiations and relationships. Don't let gifts cloud judgment.",
	},
	{
		Name:        "Envy and Jealousy",
		Category:    CategoryPsychology,
		Description: "Envy is one of the most destructive emotions, driving irrational behavior.",
		Application: "Don't compare yourself to others. Focus on your own goals and progress.",
		Quote:       "The world is not driven by greed; it's driven by envy.",
	},
	{
		Name:        "Authority Bias",
		Category:    CategoryPsychology,
		Description: "The tendency to attribute greater accuracy to the opinion of authority figures.",
		Application: "Evaluate arguments on their merits, not on who's making them.",
	},
	{
		Name:        "Liking/Loving Tendency",
		Category:    CategoryPsychology,
		Description: "We distort facts and ignore faults of people we like.",
		Application: "Try to evaluate people and ideas objectively, regardless of personal feelings.",
	},

	// Economics
	{
		Name:        "Opportunity Cost",
		Category:    CategoryEconomics,
		Description: "The true cost of something is what you give up to get it.",
		Application: "Always consider what you're NOT doing when you choose to do something.",
		Quote:       "Intelligent people make decisions based on opportunity costs.",
	},
	{
		Name:        "Comparative Advantage",
		Category:    CategoryEconomics,
		Description: "Focus on what you do relatively better, not absolutely better.",
		Application: "Specialize in your strengths. Outsource or delegate areas where others have advantage.",
	},
	{
		Name:        "Supply and Demand",
		Category:    CategoryEconomics,
		Description: "Prices are determined by the interaction of supply and demand.",
		Application: "Understand market dynamics before making decisions. Scarcity drives value.",
	},
	{
		Name:        "Compound Interest",
		Category:    CategoryEconomics,
		Description: "Small gains compound into large gains over time.",
		Application: "Start early, be patient. The power is in the time, not the rate.",
		Quote:       "The first rule of compounding: Never interrupt it unnecessarily.",
	},

	// Mathematics
	{
		Name:        "Inversion",
		Category:    CategoryMathematics,
		Description: "Instead of thinking about how to succeed, think about how to avoid failure.",
		Application: "Invert problems. What would guarantee failure? Avoid those things.",
		Quote:       "Invert, always invert.",
	},
	{
		Name:        "Margin of Safety",
		Category:    CategoryMathematics,
		Description: "Build a buffer against errors and bad luck.",
		Application: "Never bet the farm. Always maintain reserves for unexpected events.",
		Quote:       "Proper preparation for improbable events.",
	},
	{
		Name:        "Base Rates",
		Category:    CategoryMathematics,
		Description: "The general probability of an outcome regardless of specific case details.",
		Application: "Before evaluating specifics, consider how similar situations typically turn out.",
	},
	{
		Name:        "Power Laws (Pareto)",
		Category:    CategoryMathematics,
		Description: "A small number of causes often account for most of the effects.",
		Application: "Focus on the vital few, not the trivial many. 80/20 principle.",
	},

	// Physics
	{
		Name:        "Critical Mass",
		Category:    CategoryPhysics,
		Description: "Systems need to reach a threshold before effects become visible.",
		Application: "Be patient with investments that haven't yet reached critical mass.",
	},
	{
		Name:        "Momentum",
		Category:    CategoryPhysics,
		Description: "Objects in motion tend to stay in motion.",
		Application: "Understand that trends often continue longer than expected.",
	},

	// Biology
	{
		Name:        "Evolution",
		Category:    CategoryBiology,
		Description: "Adaptation through variation and selection.",
		Application: "What survives isn't always the strongest, but the most adaptable.",
	},
	{
		Name:        "Red Queen Effect",
		Category:    CategoryBiology,
		Description: "You must keep running just to stay in place.",
		Application: "In competitive environments, you must continuously improve to maintain position.",
	},

	// Engineering
	{
		Name:        "Redundancy",
		Category:    CategoryEngineering,
		Description: "Having backup systems prevents complete failure.",
		Application: "Build redundancy into critical systems and plans.",
	},
	{
		Name:        "Feedback Loops",
		Category:    CategoryEngineering,
		Description: "Outputs of a system become inputs that affect future outputs.",
		Application: "Identify and leverage positive feedback loops. Break negative ones.",
	},

	// Philosophy
	{
		Name:        "Circle of Competence",
		Category:    CategoryPhilosophy,
		Description: "Know what you know and what you don't know.",
		Application: "Stay within your circle. Expand it deliberately over time.",
		Quote:       "Know the edge of your competency. It's not a competency if you don't know the edge of it.",
	},
	{
		Name:        "First Principles",
		Category:    CategoryPhilosophy,
		Description: "Break down complex problems into basic elements and rebuild from there.",
		Application: "Don't rely on analogies. Understand the fundamental truths.",
	},
	{
		Name:        "Occam's Razor",
		Category:    CategoryPhilosophy,
		Description: "The simplest explanation is usually the correct one.",
		Application: "Prefer simple solutions over complex ones when equally effective.",
	},

	// Business
	{
		Name:        "Moats",
		Category:    CategoryBusiness,
		Description: "Sustainable competitive advantages that protect against competition.",
		Application: "Identify and strengthen moats. Avoid businesses without them.",
		Quote:       "We're trying to find a business with a wide and long-lasting moat.",
	},
	{
		Name:        "Scale Economies",
		Category:    CategoryBusiness,
		Description: "Cost advantages from operating at larger scale.",
		Application: "Understand how scale affects your business or investments.",
	},
	{
		Name:        "Network Effects",
		Category:    CategoryBusiness,
		Description: "Value increases as more people use the product.",
		Application: "Seek businesses with strong network effects. They compound.",
	},
}

// All returns the full latticework in declaration order.
func All() []Model {
	out := make([]Model, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// ByName returns a model by case-insensitive name.
func ByName(name string) (Model, bool) {
	lower := strings.ToLower(name)
	for _, m := range taxonomy {
		if strings.ToLower(m.Name) == lower {
			return m, true
		}
	}
	return Model{}, false
}

// ByCategory returns all models in a category, in declaration order.
func ByCategory(cat Category) []Model {
	var out []Model
	for _, m := range taxonomy {
		if m.Category == cat {
			out = append(out, m)
		}
	}
	return out
}
