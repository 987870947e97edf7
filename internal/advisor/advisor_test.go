package advisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sage/internal/assembler"
	"github.com/ajitpratap0/sage/internal/embedder"
	"github.com/ajitpratap0/sage/internal/llm"
	"github.com/ajitpratap0/sage/internal/mentalmodels"
	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/persona"
	"github.com/ajitpratap0/sage/internal/retriever"
	"github.com/ajitpratap0/sage/internal/session"
	"github.com/ajitpratap0/sage/internal/store"
	"github.com/ajitpratap0/sage/internal/userstore"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type fakeEmbedder struct {
	calls int
	errs  []error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

// scriptedCompleter fails with the queued errors before succeeding.
type scriptedCompleter struct {
	errs  []error
	text  string
	calls int
}

func (s *scriptedCompleter) Complete(_ context.Context, _ *persona.FinalPrompt, _ llm.Options) (string, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return s.text, nil
}

func (s *scriptedCompleter) Name() string { return "scripted" }

func transientErr() error {
	return &llm.ProviderError{Provider: "scripted", Transient: true, Err: errors.New("rate limited")}
}

func fatalErr() error {
	return &llm.ProviderError{Provider: "scripted", Transient: false, Err: errors.New("invalid api key")}
}

type advisorFixture struct {
	advisor   *Advisor
	users     *userstore.Store
	embedder  *fakeEmbedder
	completer *scriptedCompleter
}

func newTestAdvisor(t *testing.T, completer *scriptedCompleter, emb *fakeEmbedder) *advisorFixture {
	t.Helper()
	logger := newTestLogger()

	users, err := userstore.Open(filepath.Join(t.TempDir(), "sage.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = users.Close() })

	st := store.NewMemoryStore(3)
	require.NoError(t, st.Upsert(context.Background(), models.KnowledgeChunk{
		ID:          "c1",
		Source:      "almanack",
		Text:        "Invert, always invert. Figure out what you want to avoid.",
		ContentHash: "hash-c1",
	}, []float32{1, 0, 0}))

	ret := retriever.New(emb, st, retriever.Options{TopK: 3, MinScore: 0, DedupOverlap: 0.9}, logger)
	asm := assembler.New(10000, logger)
	sel := mentalmodels.NewSelector(mentalmodels.DefaultWeights, 0, logger)
	comp := persona.NewComposer(20000, logger)

	adv := New(users, ret, asm, sel, comp, completer, Options{
		Model:             "test-model",
		MaxAttempts:       3,
		RecentEvents:      5,
		SessionTurnBudget: 1000,
	}, logger)

	return &advisorFixture{advisor: adv, users: users, embedder: emb, completer: completer}
}

func TestAnswerFirstAttemptSucceeds(t *testing.T) {
	completer := &scriptedCompleter{text: "Invert the problem first."}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	result, err := fx.advisor.Answer(context.Background(), nil, "Should I invest in this business?", "")
	require.NoError(t, err)

	assert.Equal(t, "Invert the problem first.", result.Text)
	assert.Equal(t, "scripted", result.Provider)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, completer.calls)
	assert.Contains(t, result.Provenance.Sources, "almanack")
}

func TestAnswerRetriesTransientProviderError(t *testing.T) {
	completer := &scriptedCompleter{
		errs: []error{transientErr()},
		text: "Patience pays.",
	}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	result, err := fx.advisor.Answer(context.Background(), nil, "What should I do about my job?", "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, completer.calls)
}

func TestAnswerRetriesEmbedderOutage(t *testing.T) {
	completer := &scriptedCompleter{text: "Stay within your circle."}
	emb := &fakeEmbedder{errs: []error{embedder.ErrUnavailable}}
	fx := newTestAdvisor(t, completer, emb)

	result, err := fx.advisor.Answer(context.Background(), nil, "Should I change careers?", "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Attempts)
	// The first attempt never reached the completer.
	assert.Equal(t, 1, completer.calls)
}

func TestAnswerFatalErrorAbortsImmediately(t *testing.T) {
	completer := &scriptedCompleter{
		errs: []error{fatalErr(), fatalErr(), fatalErr()},
	}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	_, err := fx.advisor.Answer(context.Background(), nil, "Should I invest?", "")
	require.Error(t, err)

	assert.NotErrorIs(t, err, ErrAdviceUnavailable)
	assert.Equal(t, 1, completer.calls)
}

func TestAnswerExhaustsRetryBudget(t *testing.T) {
	completer := &scriptedCompleter{
		errs: []error{transientErr(), transientErr(), transientErr()},
	}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	_, err := fx.advisor.Answer(context.Background(), nil, "Should I invest?", "")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrAdviceUnavailable)
	assert.True(t, llm.IsTransient(err))
	assert.Equal(t, 3, completer.calls)
}

func TestAnswerCancelledContextAborts(t *testing.T) {
	completer := &scriptedCompleter{
		errs: []error{transientErr(), transientErr(), transientErr()},
	}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := session.New("conv-cancel")
	_, err := fx.advisor.Answer(ctx, sess, "Should I invest?", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Nothing was committed.
	assert.Equal(t, 0, sess.Len())
	turns, err := fx.users.Turns(context.Background(), "conv-cancel")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAnswerCommitsTurnsOnSuccess(t *testing.T) {
	completer := &scriptedCompleter{text: "Marry for character."}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	sess := session.New("conv-1")
	result, err := fx.advisor.Answer(context.Background(), sess, "Who should I marry?", "")
	require.NoError(t, err)

	require.Equal(t, 2, sess.Len())
	turns := sess.Turns()
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "Who should I marry?", turns[0].Text)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, result.Text, turns[1].Text)

	persisted, err := fx.users.Turns(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, "Who should I marry?", persisted[0].Text)
}

func TestAnswerFailureLeavesSessionUnchanged(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{fatalErr()}}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	sess := session.New("conv-2")
	_, err := fx.advisor.Answer(context.Background(), sess, "Should I invest?", "")
	require.Error(t, err)

	assert.Equal(t, 0, sess.Len())
	turns, err := fx.users.Turns(context.Background(), "conv-2")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAnswerHintFeedsRetrievalQuery(t *testing.T) {
	completer := &scriptedCompleter{text: "Consider the incentives."}
	emb := &fakeEmbedder{}
	fx := newTestAdvisor(t, completer, emb)

	_, err := fx.advisor.Answer(context.Background(), nil, "What now?", "career change after a layoff")
	require.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
}

func TestReflectRequiresProfile(t *testing.T) {
	completer := &scriptedCompleter{text: "You are on track."}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	_, err := fx.advisor.Reflect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profile")
}

func TestReflectWithProfile(t *testing.T) {
	completer := &scriptedCompleter{text: "You are compounding well."}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	require.NoError(t, fx.users.SaveProfile(context.Background(), models.Profile{
		Name:        "Alex",
		CareerStage: models.CareerStageMid,
	}))

	result, err := fx.advisor.Reflect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "You are compounding well.", result.Text)
	assert.Equal(t, 1, result.Attempts)
	// Reflection skips retrieval entirely.
	assert.Equal(t, 0, fx.embedder.calls)
}

func TestReflectRetriesTransientError(t *testing.T) {
	completer := &scriptedCompleter{
		errs: []error{transientErr()},
		text: "Keep the charter in sight.",
	}
	fx := newTestAdvisor(t, completer, &fakeEmbedder{})

	require.NoError(t, fx.users.SaveProfile(context.Background(), models.Profile{
		Name:        "Alex",
		CareerStage: models.CareerStageMid,
	}))

	result, err := fx.advisor.Reflect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
}
