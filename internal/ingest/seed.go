package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/sage/internal/metrics"
	"github.com/ajitpratap0/sage/internal/models"
)

// seedEntry is one built-in wisdom item. Entries are indexed whole rather
// than run through the chunker; many are single sentences.
type seedEntry struct {
	title string
	text  string
	src   string
	tags  []string
}

const (
	seedSourceQuotes     = "seed:quotes"
	seedSourceModels     = "seed:mental-models"
	seedSourcePrinciples = "seed:principles"
	seedSourceSpeeches   = "seed:speeches"
)

// Seed indexes the built-in wisdom corpus. Entries already present (by
// content hash) are skipped, so Seed is safe to run repeatedly. Returns the
// number of entries written.
func (ing *Ingestor) Seed(ctx context.Context) (int, error) {
	entries := seedCorpus()

	var todo []seedEntry
	var hashes []string
	for _, e := range entries {
		hash := contentHash(e.src, e.text)
		exists, err := ing.store.HasContentHash(ctx, hash)
		if err != nil {
			return 0, fmt.Errorf("checking seed entry: %w", err)
		}
		if exists {
			continue
		}
		todo = append(todo, e)
		hashes = append(hashes, hash)
	}
	if len(todo) == 0 {
		ing.logger.Info("seed corpus already indexed")
		return 0, nil
	}

	texts := make([]string, len(todo))
	for i, e := range todo {
		texts[i] = e.text
	}
	vecs, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding seed corpus: %w", err)
	}

	written := 0
	for i, e := range todo {
		chunk := models.KnowledgeChunk{
			ID:          uuid.New().String(),
			Source:      e.src,
			Title:       e.title,
			Seq:         i + 1,
			Text:        e.text,
			ContentHash: hashes[i],
			Tags:        e.tags,
			IndexedAt:   time.Now().UTC(),
		}
		if err := ing.store.Upsert(ctx, chunk, vecs[i]); err != nil {
			return written, fmt.Errorf("storing seed entry %q: %w", e.title, err)
		}
		written++
		metrics.IncChunksIngested()
	}

	ing.logger.Info("seeded wisdom corpus", "entries", written)
	return written, nil
}

func seedCorpus() []seedEntry {
	var entries []seedEntry

	quote := func(title, text string, tags ...string) {
		entries = append(entries, seedEntry{title: title, text: text, src: seedSourceQuotes, tags: tags})
	}
	quote("On problem solving", "Invert, always invert.", "thinking", "mental_models")
	quote("On intellectual honesty", "I never allow myself to have an opinion on anything that I don't know the other side's argument better than they do.", "thinking", "humility")
	quote("On teaching", "The best thing a human being can do is to help another human being know more.", "wisdom", "relationships")
	quote("On focus", "Take a simple idea and take it seriously.", "wisdom", "simplicity")
	quote("On continuous learning", "Spend each day trying to be a little wiser than you were when you woke up.", "learning", "self-improvement")
	quote("On reading", "In my whole life, I have known no wise people who didn't read all the time - none, zero.", "learning", "wisdom")
	quote("On compounding wisdom", "You don't have to be brilliant, only a little bit wiser than the other guys, on average, for a long time.", "wisdom", "patience")
	quote("On patience in investing", "The big money is not in the buying and selling, but in the waiting.", "investing", "patience")
	quote("On value investing", "All intelligent investing is value investing.", "investing")
	quote("On quality", "A great business at a fair price is superior to a fair business at a great price.", "investing", "business")
	quote("On compounding", "The first rule of compounding: Never interrupt it unnecessarily.", "investing", "patience")
	quote("On circle of competence", "We have three baskets for investing: in, out, and too tough to understand.", "investing", "mental_models")
	quote("On independent thinking", "Mimicking the herd invites regression to the mean.", "investing", "psychology")
	quote("On incentives", "Show me the incentive and I will show you the outcome.", "psychology", "mental_models")
	quote("On envy", "The world is not driven by greed; it's driven by envy.", "psychology")
	quote("On incentives power", "I think I've been in the top 5% of my age cohort all my life in understanding the power of incentives, and all my life I've underestimated it.", "psychology", "mental_models")
	quote("On envy's futility", "Envy is a really stupid sin because it's the only one you could never possibly have any fun at.", "psychology", "wisdom")
	quote("On rewards", "The iron rule of nature is: you get what you reward for. If you want ants to come, you put sugar on the floor.", "psychology")
	quote("On integrity", "Remember that reputation and integrity are your most valuable assets - and can be lost in a heartbeat.", "character", "wisdom")
	quote("On ethics", "You want to deliver to the world what you would buy if you were on the other end.", "character", "business")
	quote("On trust", "Trust is one of the best of all simplifiers, like a lubrication mechanism in an old Swiss clock.", "character", "relationships")
	quote("On deserving", "The safest way to get what you want is to deserve what you want.", "character", "success")
	quote("On learning from mistakes", "I like people admitting they were complete stupid horses' asses. I know I'll perform better if I rub my nose in my mistakes.", "learning", "humility")
	quote("On intellectual humility", "Knowing what you don't know is more useful than being brilliant.", "wisdom", "mental_models")
	quote("On history", "There is no better teacher than history in determining the future.", "learning", "wisdom")
	quote("On learning from others", "I believe in the discipline of mastering the best that other people have ever figured out. I don't believe in just sitting down and trying to dream it all up yourself.", "learning")
	quote("On marriage", "The best thing to do with a spouse is to find someone who has low expectations.", "relationships", "wisdom")
	quote("On career", "Three rules for a career: Don't sell anything you wouldn't buy yourself. Don't work for anyone you don't respect and admire. Work only with people you enjoy.", "career", "character")
	quote("On self-development", "Develop into a lifelong self-learner through voracious reading; cultivate curiosity and strive to become a little wiser every day.", "learning", "wisdom")
	quote("On capital allocation", "There are two types of businesses: The first earns 12% and you can take it out at the end of the year. The second earns 12%, but all the excess cash must be reinvested. The first is a winner, the second is a loser.", "business", "investing")
	quote("On winning systems", "In business we often find that the winning system goes almost ridiculously far in maximizing and or minimizing one or a few variables.", "business", "strategy")
	quote("On self-awareness", "Acknowledging what you don't know is the dawning of wisdom.", "wisdom", "mental_models")
	quote("On the big ideas", "You must know the big ideas in the big disciplines and use them routinely - all of them, not just a few.", "mental_models", "learning")
	quote("On the man with a hammer", "To the man with only a hammer, every problem looks like a nail.", "mental_models", "thinking")
	quote("On learning machines", "I constantly see people rise in life who are not the smartest, sometimes not even the most diligent, but they are learning machines.", "learning", "success")

	model := func(name, text string, tags ...string) {
		entries = append(entries, seedEntry{title: "Mental Model: " + name, text: text, src: seedSourceModels, tags: tags})
	}
	model("Inversion",
		"Instead of asking how to succeed, ask how to fail and avoid those things. "+
			"All I want to know is where I'm going to die, so I'll never go there. "+
			"It's not enough to think about problems forward. You must also think about them backward. "+
			"Many hard problems are best solved when they are addressed backward.",
		"thinking", "problem_solving")
	model("Circle of Competence",
		"Know what you know and what you don't know. The most important thing is to know where the perimeter is. "+
			"It's not a competency if you don't know the edge of it. If you play games where other people have aptitudes and you don't, "+
			"you're going to lose. You have to figure out where you've got an edge. And you've got to play within your circle of competence.",
		"investing", "self_awareness")
	model("Incentives",
		"Never, ever, think about something else when you should be thinking about the power of incentives. "+
			"The most important thing in any economy is the incentive structure. People respond to incentives. "+
			"Never think about what people should do; think about what they will do given their incentives. "+
			"If you want to predict behavior, you need to understand the incentive structure first.",
		"psychology", "economics")
	model("Margin of Safety",
		"The whole secret of investment is to find places where it's safe and wise to non-diversify. "+
			"You need a margin of safety in case things go wrong. Engineering has backup systems. "+
			"You should too. Build redundancy into your plans. Never bet everything on one outcome. "+
			"Proper preparation for improbable events is essential.",
		"investing", "risk_management")
	model("Second-Order Thinking",
		"Almost everyone focuses on first-order effects and ignores second and third-order effects. "+
			"You have to think about the effects of the effects. What happens next? And what happens after that? "+
			"The world is not static. Your actions have ripple effects. Think through the consequences of consequences.",
		"thinking", "strategy")
	model("Opportunity Cost",
		"Intelligent people make decisions based on opportunity costs. Every dollar spent or hour used has an alternative. "+
			"What are you NOT doing when you choose to do this? The cost of a thing is what you give up to get it. "+
			"Always ask: What's the next best alternative?",
		"economics", "decision_making")

	principle := func(name, text string, tags ...string) {
		entries = append(entries, seedEntry{title: "Principle: " + name, text: text, src: seedSourcePrinciples, tags: tags})
	}
	principle("Continuous Learning",
		"Go to bed smarter than when you woke up. Develop into a lifelong self-learner through voracious reading. "+
			"The game of life is the game of everlasting learning. At least it is if you want to win. "+
			"I constantly see people rise in life who are not the smartest but they are learning machines. "+
			"They go to bed a little wiser each day.",
		"learning", "self_improvement")
	principle("Intellectual Humility",
		"Acknowledging what you don't know is the dawning of wisdom. Knowing what you don't know is more useful than being brilliant. "+
			"There's no shame in not knowing. The shame is in pretending to know. "+
			"Develop the habit of ruthlessly examining your own thinking for errors.",
		"wisdom", "thinking")
	principle("Patience and Discipline",
		"The big money is in the waiting. You need patience, discipline, and agility to seize opportunities when they're presented. "+
			"Occasionally, do nothing. Wait for the fat pitch. Don't swing at every ball. "+
			"Most gains come from waiting for a few obvious opportunities.",
		"investing", "character")
	principle("Avoiding Stupidity",
		"It is remarkable how much long-term advantage people like us have gotten by trying to be consistently not stupid, "+
			"instead of trying to be very intelligent. Avoid stupidity is an easier goal than being brilliant. "+
			"If you just avoid the major mistakes, you'll do well.",
		"wisdom", "risk_management")
	principle("Deserving What You Want",
		"The safest way to get what you want is to deserve what you want. Deliver to the world what you would buy if you were on the other end. "+
			"Be reliable, be ethical, be hardworking. Success follows those who deserve it through their conduct.",
		"character", "success")
	principle("Reading and Thinking",
		"In my whole life, I have known no wise people who didn't read all the time. "+
			"You'd be amazed at how much Warren reads and how much I read. My children laugh at me. "+
			"They think I'm a book with a couple of legs sticking out.",
		"learning", "habits")

	speech := func(name, text string, tags ...string) {
		entries = append(entries, seedEntry{title: "Speech: " + name, text: text, src: seedSourceSpeeches, tags: tags})
	}
	speech("Psychology of Human Misjudgment (1995)",
		"I've long been intrigued by standard thinking errors. I started cataloguing psychological tendencies "+
			"that cause problems in cognition. There are about 25 standard causes of human misjudgment. "+
			"Understanding these tendencies is essential for good decision-making. They include: "+
			"reward and punishment super-response, liking/loving tendency, disliking/hating tendency, "+
			"doubt-avoidance tendency, inconsistency-avoidance tendency, and many more.",
		"psychology", "mental_models")
	speech("Elementary Worldly Wisdom (USC, 1994)",
		"What is elementary worldly wisdom? It's a latticework of mental models. "+
			"You've got to hang your experience on a latticework of models in your head. "+
			"The first rule is that you've got to have multiple models - because if you just have one or two, "+
			"the nature of human psychology is such that you'll torture reality so that it fits your models. "+
			"You must have the models across many disciplines.",
		"mental_models", "learning")
	speech("The Art of Stock Picking (1994)",
		"The model I like - to sort of simplify the notion of what goes on in a market for common stocks - "+
			"is the pari-mutuel system at the racetrack. If you stop to think about it, a pari-mutuel system is a market. "+
			"Everybody goes there and bets, and the odds change based on what's bet. That's what happens in the stock market.",
		"investing", "mental_models")
	speech("Academic Economics (UC Santa Barbara, 2003)",
		"I have a habit of citing examples like this but I think they're important. "+
			"Academic economics has serious problems. Essentially, I find it's just plain wrong. "+
			"They have a paradigm with utility maximizing rationality, but it's a gross oversimplification "+
			"of reality and often leads to wrong conclusions.",
		"economics", "thinking")

	return entries
}
