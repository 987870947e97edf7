package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/ajitpratap0/sage/internal/models"
	"github.com/ajitpratap0/sage/internal/persona"
)

// OpenAICompleter implements Completer backed by the OpenAI chat API.
type OpenAICompleter struct {
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAICompleter creates an OpenAI-backed completer.
func NewOpenAICompleter(apiKey string, logger *slog.Logger) *OpenAICompleter {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAICompleter{
		client: &c,
		logger: logger,
	}
}

// Name returns the provider identifier.
func (o *OpenAICompleter) Name() string {
	return "openai"
}

// Complete sends the composed prompt as a system message plus alternating
// chat messages and returns the text of the first choice.
func (o *OpenAICompleter) Complete(ctx context.Context, prompt *persona.FinalPrompt, opts Options) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(prompt.Messages)+1)
	msgs = append(msgs, openai.SystemMessage(prompt.System))
	for _, m := range prompt.Messages {
		if m.Role == models.RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            msgs,
		Model:               opts.Model,
		Temperature:         param.Opt[float64]{Value: opts.Temperature},
		MaxCompletionTokens: param.Opt[int64]{Value: int64(opts.MaxOutputTokens)},
	})
	if err != nil {
		return "", o.wrapErr(err)
	}

	if len(completion.Choices) == 0 {
		return "", &ProviderError{Provider: o.Name(), Transient: true, Err: fmt.Errorf("no completion choices")}
	}

	text := completion.Choices[0].Message.Content
	if text == "" {
		return "", &ProviderError{Provider: o.Name(), Transient: true, Err: fmt.Errorf("empty response")}
	}

	o.logger.Debug("completion received", "provider", o.Name(), "model", opts.Model, "chars", len(text))
	return text, nil
}

func (o *OpenAICompleter) wrapErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &ProviderError{Provider: o.Name(), Transient: transientStatus(apierr.StatusCode), Err: err}
	}
	return &ProviderError{Provider: o.Name(), Transient: true, Err: err}
}
