// Package advisor orchestrates the full advice pipeline: load the user's
// context, retrieve relevant wisdom, fit everything to budget, compose the
// persona prompt, and call the completion provider with retry.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/sage/internal/assembler"
	"github.com/ajitpratap0/sage/internal/embedder"
	"github.com/ajitpratap0/sage/internal/llm"
	"github.com/ajitpratap0/sage/internal/mentalmodels"
	"github.com/ajitpratap0/sage/internal/metrics"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/persona"
	"github.com/ajitpratap0/sage/internal/retriever"
	"github.com/ajitpratap0/sage/internal/session"
	"github.com/ajitpratap0/sage/internal/userstore"
)

// ErrAdviceUnavailable is returned when every attempt failed on a transient
// error and the retry budget is exhausted.
var ErrAdviceUnavailable = errors.New("advice unavailable after retries")

// retryBaseDelay is the first backoff interval; it doubles per attempt.
const retryBaseDelay = 500 * time.Millisecond

// Options carries pipeline settings.
type Options struct {
	Model             string
	Temperature       float64
	MaxOutputTokens   int
	MaxAttempts       int
	RecentEvents      int
	SessionTurnBudget int
}

// Advisor runs the advice pipeline.
type Advisor struct {
	users     *userstore.Store
	retriever *retriever.Retriever
	assembler *assembler.Assembler
	selector  *mentalmodels.Selector
	composer  *persona.Composer
	completer llm.Completer
	opts      Options
	logger    *slog.Logger
}

// New wires the pipeline together.
func New(
	users *userstore.Store,
	ret *retriever.Retriever,
	asm *assembler.Assembler,
	sel *mentalmodels.Selector,
	comp *persona.Composer,
	completer llm.Completer,
	opts Options,
	logger *slog.Logger,
) *Advisor {
	return &Advisor{
		users:     users,
		retriever: ret,
		assembler: asm,
		selector:  sel,
		composer:  comp,
		completer: completer,
		opts:      opts,
		logger:    logger,
	}
}

// Answer runs one advice request. Transient failures (embedding service
// down, provider rate limits or outages) are retried with exponential
// backoff up to MaxAttempts; everything else aborts immediately. The user
// and assistant turns are committed to the session only after a successful
// completion, so a cancelled or failed request leaves the session unchanged.
func (a *Advisor) Answer(ctx context.Context, sess *session.Session, question, hint string) (*models.AdviceResult, error) {
	metrics.IncAsks()
	askedAt := time.Now().UTC()

	personal, err := a.loadPersonalContext(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncCompletionRetries()
			if err := a.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		result, err := a.attempt(ctx, sess, personal, question, hint)
		if err == nil {
			result.Attempts = attempt
			if err := a.commitTurns(ctx, sess, question, result.Text, askedAt); err != nil {
				return nil, err
			}
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			return nil, err
		}
		a.logger.Warn("advice attempt failed, will retry", "attempt", attempt, "max", a.opts.MaxAttempts, "error", err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %w", ErrAdviceUnavailable, lastErr)
}

// Reflect runs a periodic review session over the profile, charter and
// recent events. Retrieval is skipped; the session history is not used and
// no turns are committed.
func (a *Advisor) Reflect(ctx context.Context) (*models.AdviceResult, error) {
	personal, err := a.loadPersonalContext(ctx)
	if err != nil {
		return nil, err
	}
	if personal.profile.Name == "" {
		return nil, fmt.Errorf("no profile configured; run init first")
	}

	pc, err := a.assembler.Assemble(assembler.Input{
		Persona: persona.ReflectionPrompt,
		Charter: personal.charterText,
		Profile: personal.profile.Summary(),
		Events:  personal.events,
	})
	if err != nil {
		return nil, fmt.Errorf("assembling reflection context: %w", err)
	}

	prompt, err := a.composer.ComposeReflection(pc)
	if err != nil {
		return nil, fmt.Errorf("composing reflection prompt: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncCompletionRetries()
			if err := a.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		text, err := a.completer.Complete(ctx, prompt, a.completionOpts())
		if err == nil {
			return &models.AdviceResult{
				Text:       text,
				Provider:   a.completer.Name(),
				Model:      a.opts.Model,
				Attempts:   attempt,
				Provenance: prompt.Provenance,
			}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %w", ErrAdviceUnavailable, lastErr)
}

// personalContext is the slow-changing user state loaded once per request.
type personalContext struct {
	profile     models.Profile
	charterText string
	events      []models.LifeEvent
}

func (a *Advisor) loadPersonalContext(ctx context.Context) (*personalContext, error) {
	profile, err := a.users.Profile(ctx)
	if err != nil && !errors.Is(err, userstore.ErrNotFound) {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	charter, err := a.users.Charter(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading charter: %w", err)
	}

	events, err := a.users.RecentEvents(ctx, a.opts.RecentEvents)
	if err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	// RecentEvents returns newest first; the assembler drops from the
	// front, so flip to oldest-first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	var charterText string
	if !charter.IsEmpty() {
		charterText = charter.Summary()
	}

	return &personalContext{
		profile:     profile,
		charterText: charterText,
		events:      events,
	}, nil
}

// attempt runs one pass of retrieve, assemble, select, compose, complete.
func (a *Advisor) attempt(ctx context.Context, sess *session.Session, personal *personalContext, question, hint string) (*models.AdviceResult, error) {
	query := question
	if hint != "" {
		query = question + " " + hint
	}

	chunks, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving wisdom: %w", err)
	}

	var turns []models.SessionTurn
	if sess != nil {
		turns = sess.Windowed(a.opts.SessionTurnBudget)
	}

	pc, err := a.assembler.Assemble(assembler.Input{
		Persona: persona.SystemPrompt,
		Charter: personal.charterText,
		Profile: personal.profile.Summary(),
		Turns:   turns,
		Events:  personal.events,
		Chunks:  chunks,
	})
	if err != nil {
		return nil, fmt.Errorf("assembling context: %w", err)
	}

	selections := a.selector.Select(question, hint)

	prompt, err := a.composer.Compose(pc, selections, question)
	if err != nil {
		return nil, fmt.Errorf("composing prompt: %w", err)
	}

	text, err := a.completer.Complete(ctx, prompt, a.completionOpts())
	if err != nil {
		return nil, err
	}

	return &models.AdviceResult{
		Text:       text,
		Provider:   a.completer.Name(),
		Model:      a.opts.Model,
		Provenance: prompt.Provenance,
	}, nil
}

// commitTurns persists the question and answer as session turns. The user
// turn keeps the time the question was asked so turn order survives reload.
func (a *Advisor) commitTurns(ctx context.Context, sess *session.Session, question, answer string, askedAt time.Time) error {
	if sess == nil {
		return nil
	}

	userTurn := models.SessionTurn{
		ID:             uuid.New().String(),
		ConversationID: sess.ID(),
		Role:           models.RoleUser,
		Text:           question,
		At:             askedAt,
	}
	assistantTurn := models.SessionTurn{
		ID:             uuid.New().String(),
		ConversationID: sess.ID(),
		Role:           models.RoleAssistant,
		Text:           answer,
		At:             time.Now().UTC(),
	}

	if err := sess.Append(userTurn); err != nil {
		return fmt.Errorf("appending user turn: %w", err)
	}
	if err := sess.Append(assistantTurn); err != nil {
		return fmt.Errorf("appending assistant turn: %w", err)
	}

	if _, err := a.users.AppendTurn(ctx, userTurn); err != nil {
		return fmt.Errorf("persisting user turn: %w", err)
	}
	if _, err := a.users.AppendTurn(ctx, assistantTurn); err != nil {
		return fmt.Errorf("persisting assistant turn: %w", err)
	}
	return nil
}

func (a *Advisor) completionOpts() llm.Options {
	return llm.Options{
		Model:           a.opts.Model,
		Temperature:     a.opts.Temperature,
		MaxOutputTokens: a.opts.MaxOutputTokens,
	}
}

// backoff sleeps for an exponentially growing interval, aborting early if
// the context is cancelled.
func (a *Advisor) backoff(ctx context.Context, attempt int) error {
	delay := retryBaseDelay << (attempt - 2)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// retryable reports whether the pipeline should retry after err. Embedding
// outages and transient provider failures qualify; store corruption,
// budget overflows and provider auth errors do not.
func retryable(err error) bool {
	return errors.Is(err, embedder.ErrUnavailable) || llm.IsTransient(err)
}
